package core

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(broker *Broker, cfg JudgeHandlerConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterJudgeRoutes(r.Group("/api/v1"), broker, cfg)
	return r
}

func TestJudgeHandlerRendezvousHit(t *testing.T) {
	broker := newTestBroker(t)
	router := newTestRouter(broker, JudgeHandlerConfig{MaxLatency: 2 * time.Second, ResultExpiry: time.Minute})

	// Simulate a worker: pop the enqueued submission and publish a verdict.
	go func() {
		ctx := context.Background()
		payload, ok, err := broker.BlockingPop(ctx, broker.Keys.Submissions(), 2*time.Second)
		if err != nil || !ok {
			return
		}
		var sub Submission
		if json.Unmarshal([]byte(payload), &sub) != nil {
			return
		}
		verdict := Verdict{Status: StatusAccepted, TaskID: sub.TaskID, Metadata: VerdictMetadata{Passed: 1, Total: 1}}
		data, _ := json.Marshal(verdict)
		_ = broker.Push(ctx, broker.Keys.Results(sub.TaskID), string(data))
	}()

	body, _ := json.Marshal(Submission{
		TaskID:   "test-task-1",
		Code:     "print('hi')",
		Language: LanguagePython,
		Mode:     ModeExecution,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/judge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var verdict Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if verdict.Status != StatusAccepted {
		t.Errorf("verdict.Status = %v, want %v", verdict.Status, StatusAccepted)
	}
	if verdict.TaskID != "test-task-1" {
		t.Errorf("verdict.TaskID = %q, want %q", verdict.TaskID, "test-task-1")
	}

	exists, _ := broker.Exists(context.Background(), broker.Keys.Task("test-task-1"))
	if exists {
		t.Errorf("task hash should be deleted after a successful rendezvous")
	}
}

func TestJudgeHandlerRendezvousTimeout(t *testing.T) {
	broker := newTestBroker(t)
	router := newTestRouter(broker, JudgeHandlerConfig{MaxLatency: 100 * time.Millisecond, ResultExpiry: time.Minute})

	body, _ := json.Marshal(Submission{
		TaskID:   "test-task-timeout",
		Code:     "print('hi')",
		Language: LanguagePython,
		Mode:     ModeExecution,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/judge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var verdict Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if verdict.Status != StatusSystemError {
		t.Errorf("verdict.Status = %v, want %v", verdict.Status, StatusSystemError)
	}
	if verdict.ErrorMessage == "" {
		t.Errorf("expected a non-empty error message on timeout")
	}
}

func TestJudgeHandlerHealth(t *testing.T) {
	broker := newTestBroker(t)
	router := newTestRouter(broker, JudgeHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want %q", body["status"], "healthy")
	}
}

func TestJudgeHandlerHealthDetail(t *testing.T) {
	broker := newTestBroker(t)
	router := newTestRouter(broker, JudgeHandlerConfig{})

	ctx := context.Background()
	_, _ = broker.Incr(ctx, broker.Keys.Submitted())
	_, _ = broker.Incr(ctx, broker.Keys.Submitted())
	_, _ = broker.Incr(ctx, broker.Keys.Processed())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/detail", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["submitted_tasks"] != 2 {
		t.Errorf("submitted_tasks = %d, want 2", body["submitted_tasks"])
	}
	if body["processed_tasks"] != 1 {
		t.Errorf("processed_tasks = %d, want 1", body["processed_tasks"])
	}
	if body["backlog"] != 1 {
		t.Errorf("backlog = %d, want 1", body["backlog"])
	}
}

func TestJudgeHandlerRestartFlag(t *testing.T) {
	broker := newTestBroker(t)
	router := newTestRouter(broker, JudgeHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/health/restart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	value, err := broker.Get(context.Background(), broker.Keys.Restart())
	if err != nil {
		t.Fatalf("Get restart flag: %v", err)
	}
	if value != "True" {
		t.Errorf("restart flag = %q, want %q", value, "True")
	}
}
