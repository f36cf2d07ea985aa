package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

const maxFailingCasesReported = 3

// EngineLimits carries the process-wide ceilings from spec §6
// (MAX_PROCESSES, MAX_OUTPUT_SIZE) that apply to every submission
// regardless of what that submission itself requests.
type EngineLimits struct {
	MaxProcesses   int
	MaxOutputBytes int64
}

// Judge runs the full pipeline described in spec §4.7: static screen,
// compile, fan out per-test-case execution, aggregate, build the Verdict.
// The caller owns sub.TaskID; it is echoed onto the returned Verdict
// unconditionally, including every error path, so the rendezvous waiter
// is never stranded without knowing which task this is.
func Judge(sub Submission, codeExecutionDir string, engineLimits EngineLimits) Verdict {
	if sub.SecurityCheck {
		result := CheckCodeSafety(sub.Code, sub.Language)
		if !result.Safe {
			return SystemErrorVerdict(sub.TaskID, UnsafeCodeMessage)
		}
	}

	workingDir, err := os.MkdirTemp(codeExecutionDir, "judge-")
	if err != nil {
		return SystemErrorVerdict(sub.TaskID, "failed to create working directory: "+err.Error())
	}
	if err := os.Chmod(workingDir, 0o700); err != nil {
		_ = os.RemoveAll(workingDir)
		return SystemErrorVerdict(sub.TaskID, "failed to secure working directory: "+err.Error())
	}
	defer os.RemoveAll(workingDir)

	artifact, err := Compile(sub, workingDir)
	if err != nil {
		return Verdict{
			Status:       StatusCompilationError,
			TaskID:       sub.TaskID,
			ErrorMessage: err.Error(),
		}
	}

	maxProcesses := engineLimits.MaxProcesses
	if maxProcesses <= 0 {
		maxProcesses = defaultMaxProcesses
	}
	results := make([]TestCaseResult, len(sub.TestCases))
	var group errgroup.Group
	group.SetLimit(maxProcesses)
	var mu sync.Mutex

	for i, tc := range sub.TestCases {
		i, tc := i, tc
		group.Go(func() error {
			res := Execute(artifact, sub, tc, engineLimits)
			if res.Status == StatusAccepted && requiresComparison(sub.Mode) {
				res = applyComparator(res, sub.Mode, tc)
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return aggregateVerdict(sub, results)
}

func requiresComparison(mode JudgeMode) bool {
	return mode == ModeACM || mode == ModeLeetcode
}

func applyComparator(res TestCaseResult, mode JudgeMode, tc JudgeTestCase) TestCaseResult {
	var equal bool
	if mode == ModeLeetcode {
		equal = CompareStructured(res.ActualOutput, tc.Expected)
	} else {
		equal = Compare(res.ActualOutput, tc.Expected)
	}
	if !equal {
		res.Status = StatusWrongAnswer
		res.ExpectedOutput = tc.Expected
		if res.ErrorMessage == "" {
			res.ErrorMessage = fmt.Sprintf("expected:\n%s\nactual:\n%s", truncate(tc.Expected, 200), truncate(res.ActualOutput, 200))
		}
	}
	return res
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// aggregateVerdict implements spec §4.7 steps 6-9: min-severity status,
// max execution time/memory, truncated-to-3 (or full, in execution mode)
// test_case_results, first failing case's error_message.
func aggregateVerdict(sub Submission, results []TestCaseResult) Verdict {
	overall := StatusAccepted
	var maxTime, maxMemory float64
	passed := 0
	var firstFailureMessage string

	for _, r := range results {
		overall = MinSeverity(overall, r.Status)
		if r.ExecutionTime > maxTime {
			maxTime = r.ExecutionTime
		}
		if r.MemoryUsageMB > maxMemory {
			maxMemory = r.MemoryUsageMB
		}
		if r.Status == StatusAccepted {
			passed++
		} else if firstFailureMessage == "" {
			firstFailureMessage = r.ErrorMessage
		}
	}

	var reported []TestCaseResult
	if sub.Mode == ModeExecution {
		reported = results
	} else {
		failing := make([]TestCaseResult, 0, maxFailingCasesReported)
		for _, r := range results {
			if r.Status != StatusAccepted {
				failing = append(failing, r)
				if len(failing) == maxFailingCasesReported {
					break
				}
			}
		}
		reported = failing
	}

	return Verdict{
		Status:           overall,
		TaskID:           sub.TaskID,
		ExecutionTimeSec: maxTime,
		MemoryUsageMB:    maxMemory,
		TestCaseResults:  reported,
		ErrorMessage:     firstFailureMessage,
		Metadata:         VerdictMetadata{Passed: passed, Total: len(results)},
	}
}

// ensureExecutionDir creates the configured CODE_EXECUTION_DIR (and any
// missing parents). No code in this repository calls it.
func ensureExecutionDir(dir string) error {
	return os.MkdirAll(filepath.Clean(dir), 0o755)
}
