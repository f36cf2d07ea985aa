package core

import (
	"os/exec"
	"strconv"
	"testing"
	"time"
)

func TestStale(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name  string
		raw   string
		limit time.Duration
		want  bool
	}{
		{"empty timestamp", "", 5 * time.Second, false},
		{"zero limit disables check", "123", 0, false},
		{"fresh timestamp is not stale", formatUnix(now.Add(-1*time.Second)), 5 * time.Second, false},
		{"old timestamp is stale", formatUnix(now.Add(-10*time.Second)), 5 * time.Second, true},
		{"unparseable timestamp", "not-a-number", 5 * time.Second, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := stale(tc.raw, now, tc.limit)
			if got != tc.want {
				t.Errorf("stale(%q, limit=%v) = %v, want %v", tc.raw, tc.limit, got, tc.want)
			}
		})
	}
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

func TestTaskIDFromKey(t *testing.T) {
	keys := NewBrokerKeys("oj")

	cases := []struct {
		key  string
		want string
	}{
		{keys.Task("abc-123"), "abc-123"},
		{keys.Results("abc-123"), "abc-123"},
		{"unrelated-key", "unrelated-key"},
	}

	for _, tc := range cases {
		if got := taskIDFromKey(keys, tc.key); got != tc.want {
			t.Errorf("taskIDFromKey(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestManagedWorkerIsAliveNilProcess(t *testing.T) {
	w := &managedWorker{id: 0, cmd: &exec.Cmd{}}
	if w.isAlive() {
		t.Errorf("isAlive() on a never-started command should be false")
	}
}

func TestProcessAgeExceedsZeroLimitDisabled(t *testing.T) {
	if processAgeExceeds(1, 0) {
		t.Errorf("processAgeExceeds with a zero limit must always be false")
	}
}
