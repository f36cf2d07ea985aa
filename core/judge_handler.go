package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// JudgeHandlerConfig carries the rendezvous timing knobs from spec §4.10/§6.
type JudgeHandlerConfig struct {
	ResultExpiry time.Duration
	MaxLatency   time.Duration // default 180s; bounds the blocking wait for a Verdict

	// DefaultTimeLimit/DefaultMemoryLimitMB back-fill a submission's
	// time_limit_sec/memory_limit_mb when it omits them (spec §3's
	// "positive, default 30"/"positive, default 4096"), sourced from
	// MAX_EXECUTION_TIME/MAX_MEMORY so an operator can raise or lower the
	// engine-wide default without redeploying client code.
	DefaultTimeLimit     time.Duration
	DefaultMemoryLimitMB int
}

// RegisterJudgeRoutes wires the front-end rendezvous endpoints described in
// spec §4.10 and the health surface from §6, grounded on the teacher's gin
// handler idioms (closures over a shared *Broker, respondError for the
// uniform error envelope).
func RegisterJudgeRoutes(api *gin.RouterGroup, broker *Broker, cfg JudgeHandlerConfig) {
	api.POST("/judge", func(c *gin.Context) {
		handleJudge(c, broker, cfg)
	})

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api.GET("/health/redis", func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := broker.Ping(ctx); err != nil {
			c.JSON(http.StatusOK, gin.H{"status": "unreachable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.GET("/health/detail", func(c *gin.Context) {
		handleHealthDetail(c, broker)
	})

	api.POST("/health/restart", func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := broker.Set(ctx, broker.Keys.Restart(), "True"); err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set restart flag")
			return
		}
		c.JSON(http.StatusOK, gin.H{"restart": true})
	})
}

// handleJudge implements spec §4.10's five numbered steps exactly via
// EnqueueAndAwait. Status is always 200 for a semantic outcome (including
// a SYSTEM_ERROR Verdict); only a broker transport failure earns a 5xx,
// per the contract in §6.
func handleJudge(c *gin.Context, broker *Broker, cfg JudgeHandlerConfig) {
	var sub Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid submission body")
		return
	}

	verdict, err := EnqueueAndAwait(c.Request.Context(), broker, sub, cfg)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "broker unavailable")
		return
	}
	c.JSON(http.StatusOK, verdict)
}

// EnqueueAndAwait runs spec §4.10's rendezvous protocol against an
// arbitrary Submission and returns the resulting Verdict. It is the shared
// body behind POST /api/v1/judge and the web submission flow in router.go,
// so both paths hash/push/block/teardown identically. The returned error is
// non-nil only on a broker transport failure; every semantic outcome
// (including a lost or timed-out task) comes back as a Verdict, never an
// error.
func EnqueueAndAwait(ctx context.Context, broker *Broker, sub Submission, cfg JudgeHandlerConfig) (Verdict, error) {
	if sub.TaskID == "" {
		sub.TaskID = NewTaskID()
	}
	applySubmissionDefaults(&sub, cfg)

	taskKey := broker.Keys.Task(sub.TaskID)
	resultsKey := broker.Keys.Results(sub.TaskID)

	payload, err := json.Marshal(sub)
	if err != nil {
		return Verdict{}, err
	}

	if err := broker.HSet(ctx, taskKey, map[string]string{
		"status":       StatusPending.String(),
		"submitted_at": strconv.FormatInt(time.Now().Unix(), 10),
		"data":         string(payload),
	}); err != nil {
		return Verdict{}, err
	}
	if cfg.ResultExpiry > 0 {
		_ = broker.Expire(ctx, taskKey, cfg.ResultExpiry)
	}

	if err := broker.Push(ctx, broker.Keys.Submissions(), string(payload)); err != nil {
		return Verdict{}, err
	}
	if _, err := broker.Incr(ctx, broker.Keys.Submitted()); err != nil {
		return Verdict{}, err
	}

	maxLatency := cfg.MaxLatency
	if maxLatency <= 0 {
		maxLatency = 180 * time.Second
	}

	raw, ok, err := broker.BlockingPop(ctx, resultsKey, maxLatency)
	if err != nil {
		return Verdict{}, err
	}

	if !ok {
		return classifyTimeout(ctx, broker, sub.TaskID, taskKey), nil
	}

	_ = broker.Delete(ctx, taskKey, resultsKey)

	var verdict Verdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return SystemErrorVerdict(sub.TaskID, "failed to decode verdict"), nil
	}
	return verdict, nil
}

// applySubmissionDefaults fills in the positive defaults spec §3 assigns
// time_limit_sec and memory_limit_mb when a submission omits them, falling
// back to the hard-coded 30s/4096MB spec defaults if the engine-wide
// MAX_EXECUTION_TIME/MAX_MEMORY config is itself unset.
func applySubmissionDefaults(sub *Submission, cfg JudgeHandlerConfig) {
	if sub.TimeLimitSec <= 0 {
		if cfg.DefaultTimeLimit > 0 {
			sub.TimeLimitSec = cfg.DefaultTimeLimit.Seconds()
		} else {
			sub.TimeLimitSec = 30
		}
	}
	if sub.MemoryLimitMB <= 0 {
		if cfg.DefaultMemoryLimitMB > 0 {
			sub.MemoryLimitMB = cfg.DefaultMemoryLimitMB
		} else {
			sub.MemoryLimitMB = 4096
		}
	}
}

// classifyTimeout implements spec §4.10 step 6: distinguish "still
// pending", "unknown / expired", and "in other state" on a rendezvous
// timeout, and builds the matching SYSTEM_ERROR Verdict.
func classifyTimeout(ctx context.Context, broker *Broker, taskID, taskKey string) Verdict {
	fields, err := broker.HGetFields(ctx, taskKey, "status")
	if err != nil {
		return SystemErrorVerdict(taskID, "broker unavailable while resolving timeout")
	}
	switch fields["status"] {
	case "":
		return SystemErrorVerdict(taskID, "task unknown or expired")
	case StatusPending.String():
		return SystemErrorVerdict(taskID, "task still pending after max_latency_sec")
	default:
		return SystemErrorVerdict(taskID, "task in unexpected state after max_latency_sec: "+fields["status"])
	}
}

// handleHealthDetail builds the counts from spec §6's /health/detail
// contract: list lengths plus the three lifetime counters and the derived
// backlog.
func handleHealthDetail(c *gin.Context, broker *Broker) {
	ctx := c.Request.Context()

	submissionsLen, err := broker.Length(ctx, broker.Keys.Submissions())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "broker unavailable")
		return
	}

	var tasksLen, resultsLen int64
	_ = broker.ScanAll(ctx, broker.Keys.TaskPattern(), 1000, func(keys []string) error {
		tasksLen += int64(len(keys))
		return nil
	})
	_ = broker.ScanAll(ctx, broker.Keys.ResultsPattern(), 1000, func(keys []string) error {
		resultsLen += int64(len(keys))
		return nil
	})

	submitted := counterValue(ctx, broker, broker.Keys.Submitted())
	fetched := counterValue(ctx, broker, broker.Keys.Fetched())
	processed := counterValue(ctx, broker, broker.Keys.Processed())

	c.JSON(http.StatusOK, gin.H{
		"submissions_length": submissionsLen,
		"tasks_length":       tasksLen,
		"results_length":     resultsLen,
		"submitted_tasks":    submitted,
		"fetched_tasks":      fetched,
		"processed_tasks":    processed,
		"backlog":            submitted - processed,
	})
}

func counterValue(ctx context.Context, broker *Broker, key string) int64 {
	raw, err := broker.Get(ctx, key)
	if err != nil || raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
