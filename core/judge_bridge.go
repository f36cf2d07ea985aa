package core

import (
	"context"
	"log"
	"strconv"
)

// BuildSubmissionFromProblem resolves a problem's stored testcases into the
// judge engine's inline JudgeTestCase shape and assembles a Submission,
// implementing the "problem bank as inline resolver" bridge between the
// Postgres-backed problem catalogue and the Redis-broker judge engine: the
// engine itself never talks to Postgres, so this lookup happens once, at
// submission time, in the HTTP layer.
func BuildSubmissionFromProblem(taskID string, problem ProblemDetail, testcases []ProblemTestcase, language, code string) Submission {
	cases := make([]JudgeTestCase, 0, len(testcases))
	for _, tc := range testcases {
		cases = append(cases, JudgeTestCase{Input: tc.InputText, Expected: tc.OutputText})
	}

	lang := Language(language)
	mode := ModeACM
	timeLimitSec := float64(problem.TimeLimitMS) / 1000.0
	memoryLimitMB := int(problem.MemoryLimitKB / 1024)

	return Submission{
		TaskID:        taskID,
		Code:          code,
		Language:      lang,
		Mode:          mode,
		TestCases:     cases,
		TimeLimitSec:  timeLimitSec,
		MemoryLimitMB: memoryLimitMB,
		SecurityCheck: true,
	}
}

// JudgeAndRecord enqueues sub through the broker, awaits its Verdict, and
// persists the outcome onto the matching submissions row. It runs in its
// own goroutine from the web submission handler so the HTTP response to the
// browser is not held open for the judge pipeline's full run time; the
// client polls GET /api/v1/submissions/:id for the eventual result, exactly
// as the teacher's handler already expected callers to do.
func JudgeAndRecord(broker *Broker, subRepo SubmissionRepository, cfg JudgeHandlerConfig, submissionID int64, sub Submission) {
	ctx := context.Background()

	verdict, err := EnqueueAndAwait(ctx, broker, sub, cfg)
	if err != nil {
		log.Printf("judge bridge: submission %d: broker error: %v", submissionID, err)
		_ = subRepo.MarkStatus(ctx, submissionID, "failed")
		return
	}

	result := SubmissionResult{
		SubmissionID: submissionID,
		Verdict:      verdictCode(verdict.Status),
		ErrorMessage: optionalString(verdict.ErrorMessage),
	}
	timeMS := int32(verdict.ExecutionTimeSec * 1000)
	result.TimeMS = &timeMS
	memKB := int32(verdict.MemoryUsageMB * 1024)
	result.MemoryKB = &memKB
	for _, tc := range verdict.TestCaseResults {
		result.Details = append(result.Details, SubmissionJudgeDetail{
			Status: tc.Status.String(),
		})
	}

	finalStatus := "judged"
	if verdict.Status == StatusSystemError {
		finalStatus = "failed"
	}
	if err := subRepo.SaveResult(ctx, result, finalStatus); err != nil {
		log.Printf("judge bridge: submission %d: save result failed: %v", submissionID, err)
	}
}

// DispatchSubmission resolves problemID's testcases, builds a Submission
// keyed by the DB submission id, and runs JudgeAndRecord in the background.
// It is the single call both the interactive POST /api/v1/submissions
// handler and the admin bulk-test handler go through to reach the judge
// engine, so both stay on the same broker/problem-bank wiring.
func DispatchSubmission(broker *Broker, problemRepo ProblemRepository, subRepo SubmissionRepository, jcfg JudgeHandlerConfig, submissionID, problemID int64, language, source string) error {
	ctx := context.Background()
	problem, err := problemRepo.FindDetail(ctx, problemID)
	if err != nil {
		return err
	}
	testcases, err := problemRepo.ListTestcases(ctx, problemID)
	if err != nil {
		return err
	}

	sub := BuildSubmissionFromProblem(strconv.FormatInt(submissionID, 10), *problem, testcases, language, source)
	go JudgeAndRecord(broker, subRepo, jcfg, submissionID, sub)
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// verdictCode maps the engine's Status onto the short verdict codes the web
// UI/DB already use (AC/WA/TLE/MLE/RE/CE/SE), grounded on the original
// short-code convention carried through submission_repository.go/router.go.
func verdictCode(status Status) string {
	switch status {
	case StatusAccepted:
		return "AC"
	case StatusWrongAnswer:
		return "WA"
	case StatusTimeLimitExceeded:
		return "TLE"
	case StatusMemoryLimitExceeded:
		return "MLE"
	case StatusRuntimeError:
		return "RE"
	case StatusCompilationError:
		return "CE"
	default:
		return "SE"
	}
}
