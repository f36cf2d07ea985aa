package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewBroker(client, "oj-test")
}

func TestBrokerPushAndBlockingPop(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	if err := broker.Push(ctx, broker.Keys.Submissions(), "payload-1"); err != nil {
		t.Fatalf("Push: %v", err)
	}

	value, ok, err := broker.BlockingPop(ctx, broker.Keys.Submissions(), time.Second)
	if err != nil {
		t.Fatalf("BlockingPop: %v", err)
	}
	if !ok {
		t.Fatalf("BlockingPop: expected a hit, got timeout")
	}
	if value != "payload-1" {
		t.Errorf("BlockingPop value = %q, want %q", value, "payload-1")
	}
}

func TestBrokerBlockingPopTimeout(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	_, ok, err := broker.BlockingPop(ctx, broker.Keys.Submissions(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("BlockingPop: %v", err)
	}
	if ok {
		t.Errorf("BlockingPop on an empty list should time out, not hit")
	}
}

func TestBrokerHashFieldsAndExists(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()
	key := broker.Keys.Task("task-1")

	exists, err := broker.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatalf("Exists should be false before the hash is written")
	}

	if err := broker.HSet(ctx, key, map[string]string{"status": StatusPending.String(), "data": "x"}); err != nil {
		t.Fatalf("HSet: %v", err)
	}

	fields, err := broker.HGetFields(ctx, key, "status", "missing_field")
	if err != nil {
		t.Fatalf("HGetFields: %v", err)
	}
	if fields["status"] != StatusPending.String() {
		t.Errorf("status field = %q, want %q", fields["status"], StatusPending.String())
	}
	if fields["missing_field"] != "" {
		t.Errorf("missing field should decode to empty string, got %q", fields["missing_field"])
	}

	if err := broker.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, err = broker.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists after delete: %v", err)
	}
	if exists {
		t.Errorf("Exists should be false after Delete")
	}
}

func TestBrokerIncrAndGet(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()
	key := broker.Keys.Submitted()

	for i := 0; i < 3; i++ {
		if _, err := broker.Incr(ctx, key); err != nil {
			t.Fatalf("Incr: %v", err)
		}
	}

	value, err := broker.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != "3" {
		t.Errorf("counter value = %q, want %q", value, "3")
	}
}

func TestBrokerScanAllDrainsFullCycle(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		key := broker.Keys.Task(string(rune('a' + i)))
		if err := broker.HSet(ctx, key, map[string]string{"status": "PENDING"}); err != nil {
			t.Fatalf("HSet: %v", err)
		}
	}

	seen := map[string]bool{}
	err := broker.ScanAll(ctx, broker.Keys.TaskPattern(), 5, func(keys []string) error {
		for _, k := range keys {
			seen[k] = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(seen) != 25 {
		t.Errorf("ScanAll saw %d keys, want 25", len(seen))
	}
}

func TestBrokerKeysNamespacing(t *testing.T) {
	keys := NewBrokerKeys("")
	if keys.Prefix != "oj" {
		t.Errorf("default prefix = %q, want %q", keys.Prefix, "oj")
	}
	if got, want := keys.Task("abc"), "oj:tasks:abc"; got != want {
		t.Errorf("Task key = %q, want %q", got, want)
	}
	if got, want := keys.Results("abc"), "oj:results:abc"; got != want {
		t.Errorf("Results key = %q, want %q", got, want)
	}
}
