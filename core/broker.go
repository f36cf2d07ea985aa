package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BrokerKeys is the single key-builder every broker-facing component must
// go through; no component formats a "<prefix>:..." string inline.
type BrokerKeys struct {
	Prefix string
}

func NewBrokerKeys(prefix string) BrokerKeys {
	if prefix == "" {
		prefix = "oj"
	}
	return BrokerKeys{Prefix: prefix}
}

func (k BrokerKeys) Submissions() string     { return k.Prefix + ":submissions" }
func (k BrokerKeys) Task(taskID string) string    { return fmt.Sprintf("%s:tasks:%s", k.Prefix, taskID) }
func (k BrokerKeys) Results(taskID string) string { return fmt.Sprintf("%s:results:%s", k.Prefix, taskID) }
func (k BrokerKeys) Submitted() string       { return k.Prefix + ":submitted" }
func (k BrokerKeys) Fetched() string         { return k.Prefix + ":fetched" }
func (k BrokerKeys) Processed() string       { return k.Prefix + ":processed" }
func (k BrokerKeys) Restart() string         { return k.Prefix + ":restart" }
func (k BrokerKeys) TaskPattern() string     { return k.Prefix + ":tasks:*" }
func (k BrokerKeys) ResultsPattern() string  { return k.Prefix + ":results:*" }

// Broker is the narrow typed surface spec'd in §4.1: lists, hashes, counters,
// blocking pop, scan. Decoding is lazy — callers get strings back and decode
// JSON themselves. Connection handling is per-scheduling-domain: one *Broker
// per worker process, one shared instance in the HTTP front-end.
type Broker struct {
	Keys   BrokerKeys
	client *redis.Client
}

func NewBroker(client *redis.Client, prefix string) *Broker {
	return &Broker{Keys: NewBrokerKeys(prefix), client: client}
}

func (b *Broker) Close() error { return b.client.Close() }

// Push appends a payload to the tail of a list (RPUSH), matching a FIFO
// list drained from the head via BlockingPop's BLPOP.
func (b *Broker) Push(ctx context.Context, list string, payload string) error {
	return b.client.RPush(ctx, list, payload).Err()
}

// BlockingPop pops from the head of list, waiting up to timeout. Returns
// ok=false on timeout (no error) so callers can distinguish "nothing to do"
// from a transport failure.
func (b *Broker) BlockingPop(ctx context.Context, list string, timeout time.Duration) (value string, ok bool, err error) {
	res, err := b.client.BLPop(ctx, timeout, list).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(res) < 2 {
		return "", false, nil
	}
	return res[1], true, nil
}

// Length returns the number of elements in a list.
func (b *Broker) Length(ctx context.Context, list string) (int64, error) {
	return b.client.LLen(ctx, list).Result()
}

func (b *Broker) Get(ctx context.Context, key string) (string, error) {
	v, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (b *Broker) Set(ctx context.Context, key, value string) error {
	return b.client.Set(ctx, key, value, 0).Err()
}

// Incr atomically increments a counter key, creating it at 1 if absent.
func (b *Broker) Incr(ctx context.Context, key string) (int64, error) {
	return b.client.Incr(ctx, key).Result()
}

// HSet writes fields on a hash in one round trip.
func (b *Broker) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return b.client.HSet(ctx, key, args...).Err()
}

// HGetFields reads a subset of hash fields (HMGET); missing fields come
// back as empty strings, matching Redis's nil-to-"" convention used here.
func (b *Broker) HGetFields(ctx context.Context, key string, fields ...string) (map[string]string, error) {
	vals, err := b.client.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields))
	for i, f := range fields {
		if i >= len(vals) || vals[i] == nil {
			out[f] = ""
			continue
		}
		if s, ok := vals[i].(string); ok {
			out[f] = s
		}
	}
	return out, nil
}

// HGetAll reads every field of a hash; used by Recovery/Cleanup scans.
func (b *Broker) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return b.client.HGetAll(ctx, key).Result()
}

func (b *Broker) Expire(ctx context.Context, key string, seconds time.Duration) error {
	return b.client.Expire(ctx, key, seconds).Err()
}

// Delete removes zero or more keys; a no-op on an empty argument list.
func (b *Broker) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

// Exists reports whether a key is present.
func (b *Broker) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Exists(ctx, key).Result()
	return n > 0, err
}

// Scan performs one cursor step of a SCAN over keys matching pattern.
func (b *Broker) Scan(ctx context.Context, cursor uint64, pattern string, count int64) (keys []string, nextCursor uint64, err error) {
	return b.client.Scan(ctx, cursor, pattern, count).Result()
}

// ScanAll drains a full SCAN cycle, calling fn with each batch of keys.
// Used by Recovery/Cleanup, whose loops run over the whole keyspace slice
// every interval; draining here keeps that iteration logic in one place.
func (b *Broker) ScanAll(ctx context.Context, pattern string, count int64, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := b.Scan(ctx, cursor, pattern, count)
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks broker connectivity, used by /api/v1/health/redis.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
