package core

import "testing"

func TestAggregateVerdictAllCorrectIsAccepted(t *testing.T) {
	sub := Submission{TaskID: "t1", Mode: ModeACM}
	results := []TestCaseResult{
		{Status: StatusAccepted, ExecutionTime: 0.1, MemoryUsageMB: 10},
		{Status: StatusAccepted, ExecutionTime: 0.2, MemoryUsageMB: 20},
	}
	v := aggregateVerdict(sub, results)
	if v.Status != StatusAccepted {
		t.Errorf("Status = %v, want %v", v.Status, StatusAccepted)
	}
	if v.Metadata.Passed != 2 || v.Metadata.Total != 2 {
		t.Errorf("Metadata = %+v, want passed=2 total=2", v.Metadata)
	}
	if v.ExecutionTimeSec != 0.2 || v.MemoryUsageMB != 20 {
		t.Errorf("max time/memory = %v/%v, want 0.2/20", v.ExecutionTimeSec, v.MemoryUsageMB)
	}
	if v.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty on an all-correct verdict", v.ErrorMessage)
	}
}

func TestAggregateVerdictMinSeverityAcrossCases(t *testing.T) {
	sub := Submission{TaskID: "t2", Mode: ModeACM}
	results := []TestCaseResult{
		{Status: StatusAccepted},
		{Status: StatusWrongAnswer, ErrorMessage: "case 2 mismatch"},
		{Status: StatusTimeLimitExceeded, ErrorMessage: "case 3 timed out"},
	}
	v := aggregateVerdict(sub, results)
	if v.Status != StatusTimeLimitExceeded {
		t.Errorf("Status = %v, want %v (worse of WA/TLE)", v.Status, StatusTimeLimitExceeded)
	}
}

func TestAggregateVerdictFirstFailureMessage(t *testing.T) {
	sub := Submission{TaskID: "t3", Mode: ModeACM}
	results := []TestCaseResult{
		{Status: StatusAccepted},
		{Status: StatusWrongAnswer, ErrorMessage: "first failure"},
		{Status: StatusWrongAnswer, ErrorMessage: "second failure"},
	}
	v := aggregateVerdict(sub, results)
	if v.ErrorMessage != "first failure" {
		t.Errorf("ErrorMessage = %q, want %q (first failing case only)", v.ErrorMessage, "first failure")
	}
}

func TestAggregateVerdictTruncatesToThreeFailingCases(t *testing.T) {
	sub := Submission{TaskID: "t4", Mode: ModeACM}
	results := make([]TestCaseResult, 0, 6)
	for i := 0; i < 6; i++ {
		results = append(results, TestCaseResult{Status: StatusWrongAnswer})
	}
	v := aggregateVerdict(sub, results)
	if len(v.TestCaseResults) != 3 {
		t.Errorf("len(TestCaseResults) = %d, want 3 (truncated)", len(v.TestCaseResults))
	}
	if v.Metadata.Total != 6 {
		t.Errorf("Metadata.Total = %d, want 6 (truncation must not affect the reported total)", v.Metadata.Total)
	}
}

func TestAggregateVerdictExecutionModeReportsEveryCase(t *testing.T) {
	sub := Submission{TaskID: "t5", Mode: ModeExecution}
	results := make([]TestCaseResult, 0, 6)
	for i := 0; i < 6; i++ {
		results = append(results, TestCaseResult{Status: StatusAccepted})
	}
	v := aggregateVerdict(sub, results)
	if len(v.TestCaseResults) != 6 {
		t.Errorf("len(TestCaseResults) = %d, want 6 (execution mode reports every case, no truncation)", len(v.TestCaseResults))
	}
}

func TestAggregateVerdictEmptyResultsIsAccepted(t *testing.T) {
	sub := Submission{TaskID: "t6", Mode: ModeACM}
	v := aggregateVerdict(sub, nil)
	if v.Status != StatusAccepted {
		t.Errorf("Status = %v, want %v for a submission with no test cases", v.Status, StatusAccepted)
	}
	if v.Metadata.Total != 0 {
		t.Errorf("Metadata.Total = %d, want 0", v.Metadata.Total)
	}
}
