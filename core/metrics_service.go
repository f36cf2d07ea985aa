package core

import (
	"context"
	"encoding/json"
	"strconv"
)

// QueueMetrics はブローカーの現在値を表す。Pending は submissions リストの
// 長さ、InFlight はタスクハッシュの総数（PENDING + RUNNING）の近似値。
type QueueMetrics struct {
	Pending  int64 `json:"pending"`
	InFlight int64 `json:"in_flight"`
	Backlog  int64 `json:"backlog"`
}

// MetricsService は Redis からキュー長とワーカーハートビートを取得する。
type MetricsService struct {
	redis  RedisClientRaw
	broker *Broker
}

func NewMetricsService(redis RedisClientRaw, broker *Broker) *MetricsService {
	return &MetricsService{redis: redis, broker: broker}
}

// Overview はキューと全ワーカーの簡易情報を返す。
func (s *MetricsService) Overview(ctx context.Context) (QueueMetrics, []WorkerHeartbeat, error) {
	queue, err := s.Queue(ctx)
	if err != nil {
		return QueueMetrics{}, nil, err
	}
	workers, err := s.Workers(ctx)
	if err != nil {
		return queue, nil, err
	}
	return queue, workers, nil
}

// Queue はブローカーの submissions リスト長とタスクハッシュ総数、
// submitted/processed の差分から求めたバックログを返す。
func (s *MetricsService) Queue(ctx context.Context) (QueueMetrics, error) {
	pending, err := s.broker.Length(ctx, s.broker.Keys.Submissions())
	if err != nil {
		return QueueMetrics{}, err
	}

	var inFlight int64
	if err := s.broker.ScanAll(ctx, s.broker.Keys.TaskPattern(), 1000, func(keys []string) error {
		inFlight += int64(len(keys))
		return nil
	}); err != nil {
		return QueueMetrics{}, err
	}

	submitted, _ := s.broker.Get(ctx, s.broker.Keys.Submitted())
	processed, _ := s.broker.Get(ctx, s.broker.Keys.Processed())
	backlog := parseCounter(submitted) - parseCounter(processed)

	return QueueMetrics{Pending: pending, InFlight: inFlight, Backlog: backlog}, nil
}

func parseCounter(raw string) int64 {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Workers は Redis に残っているハートビートをすべて返す。
func (s *MetricsService) Workers(ctx context.Context) ([]WorkerHeartbeat, error) {
	iter := s.redis.Scan(ctx, 0, WorkerHeartbeatPrefix+"*", 100).Iterator()
	var res []WorkerHeartbeat
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var hb WorkerHeartbeat
		if err := json.Unmarshal([]byte(val), &hb); err != nil {
			continue
		}
		res = append(res, hb)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// WorkerByID は特定ワーカーのハートビートを返す。
func (s *MetricsService) WorkerByID(ctx context.Context, id string) (*WorkerHeartbeat, error) {
	val, err := s.redis.Get(ctx, WorkerHeartbeatKey(id)).Result()
	if err != nil {
		return nil, err
	}
	var hb WorkerHeartbeat
	if err := json.Unmarshal([]byte(val), &hb); err != nil {
		return nil, err
	}
	return &hb, nil
}
