package core

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"
)

// blockingPopTimeout bounds each submissions-list poll so the worker can
// notice a shutdown request within roughly one second, per spec §4.8.
const blockingPopTimeout = 1 * time.Second

// WorkerLoop is the long-running body of one worker OS process: blocking
// dequeue, judge, publish. One WorkerLoop runs per process; the multi-
// process fan-out itself lives in Supervisor (core/supervisor.go), which
// starts one cmd/worker process per slot (see SPEC_FULL.md §5).
type WorkerLoop struct {
	Broker           *Broker
	WorkerID         string
	CodeExecutionDir string
	ResultExpiry     time.Duration
	// TaskCompletionTimeout bounds how long an in-flight Judge call is
	// allowed to finish after shutdown is requested before it is abandoned
	// and a SYSTEM_ERROR Verdict is published in its place.
	TaskCompletionTimeout time.Duration
	EngineLimits          EngineLimits
}

// Run drains the submissions list until stop is closed. On any loop-level
// error it logs and sleeps one second rather than spinning, per spec §4.8
// and the "simple, non-exponential backoff" design note.
func (w *WorkerLoop) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		ctx := context.Background()
		payload, ok, err := w.Broker.BlockingPop(ctx, w.Broker.Keys.Submissions(), blockingPopTimeout)
		if err != nil {
			log.Printf("worker %s: broker error: %v", w.WorkerID, err)
			time.Sleep(1 * time.Second)
			continue
		}
		if !ok {
			continue
		}

		if _, err := w.Broker.Incr(ctx, w.Broker.Keys.Fetched()); err != nil {
			log.Printf("worker %s: incr fetched: %v", w.WorkerID, err)
		}

		var sub Submission
		if err := json.Unmarshal([]byte(payload), &sub); err != nil {
			log.Printf("worker %s: malformed submission payload: %v", w.WorkerID, err)
			continue
		}

		w.processTask(ctx, sub, stop)
	}
}

func (w *WorkerLoop) processTask(ctx context.Context, sub Submission, stop <-chan struct{}) {
	taskKey := w.Broker.Keys.Task(sub.TaskID)
	resultsKey := w.Broker.Keys.Results(sub.TaskID)

	if err := w.Broker.HSet(ctx, taskKey, map[string]string{
		"status":     StatusRunning.String(),
		"running_at": strconv.FormatInt(time.Now().Unix(), 10),
	}); err != nil {
		log.Printf("worker %s: hset running: %v", w.WorkerID, err)
	}
	if w.ResultExpiry > 0 {
		_ = w.Broker.Expire(ctx, taskKey, w.ResultExpiry)
	}

	verdictCh := make(chan Verdict, 1)
	go func() {
		verdictCh <- Judge(sub, w.CodeExecutionDir, w.EngineLimits)
	}()

	var verdict Verdict
	select {
	case verdict = <-verdictCh:
	case <-stop:
		// Shutdown requested mid-task: give it TaskCompletionTimeout to
		// finish before stranding the waiter with a SYSTEM_ERROR verdict.
		select {
		case verdict = <-verdictCh:
		case <-time.After(w.TaskCompletionTimeout):
			verdict = SystemErrorVerdict(sub.TaskID, "worker shutting down before task completion")
		}
	}

	w.publish(ctx, sub.TaskID, resultsKey, verdict)
}

func (w *WorkerLoop) publish(ctx context.Context, taskID, resultsKey string, verdict Verdict) {
	data, err := json.Marshal(verdict)
	if err != nil {
		data, _ = json.Marshal(SystemErrorVerdict(taskID, "failed to encode verdict: "+err.Error()))
	}
	if err := w.Broker.Push(ctx, resultsKey, string(data)); err != nil {
		log.Printf("worker %s: publish verdict for %s: %v", w.WorkerID, taskID, err)
		return
	}
	if _, err := w.Broker.Incr(ctx, w.Broker.Keys.Processed()); err != nil {
		log.Printf("worker %s: incr processed: %v", w.WorkerID, err)
	}
}
