package core

// Language enumerates the source languages the engine can judge.
type Language string

const (
	LanguagePython Language = "python"
	LanguageC      Language = "c"
	LanguageCPP    Language = "cpp"
)

// JudgeMode enumerates the comparison strategy a Submission requires.
type JudgeMode string

const (
	ModeACM       JudgeMode = "acm"
	ModeLeetcode  JudgeMode = "leetcode"
	ModeFullcode  JudgeMode = "fullcode"
	ModeExecution JudgeMode = "execution"
)

// JudgeTestCase is one {input, expected} pair. In leetcode mode, Input is
// the JSON-encoded argument list the generated driver reads from stdin and
// Expected is the JSON-encoded result CompareStructured compares against;
// every other mode treats both as plain strings fed to/compared against
// stdio.
type JudgeTestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// Submission is the engine's sole input shape. It is immutable once built;
// nothing downstream of the judge pipeline mutates it.
type Submission struct {
	TaskID         string          `json:"task_id"`
	Code           string          `json:"code"`
	Language       Language        `json:"language"`
	Mode           JudgeMode       `json:"mode"`
	TestCases      []JudgeTestCase `json:"test_cases"`
	TimeLimitSec   float64         `json:"time_limit_sec"`
	MemoryLimitMB  int             `json:"memory_limit_mb"`
	EntryPoint     string          `json:"entry_point,omitempty"`
	SecurityCheck  bool            `json:"security_check"`
}

// TestCaseResult is the per-case outcome produced by the Executor and
// (when applicable) refined by the Comparator.
type TestCaseResult struct {
	Status          Status  `json:"status"`
	ExecutionTime   float64 `json:"execution_time_sec"`
	MemoryUsageMB   float64 `json:"memory_usage_mb"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	ExpectedOutput  string  `json:"expected_output,omitempty"`
	ActualOutput    string  `json:"actual_output,omitempty"`
}

// VerdictMetadata carries the passed/total case counts.
type VerdictMetadata struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// Verdict (JudgeResult) is the engine's sole output shape, published once
// per task_id onto the per-task results list.
type Verdict struct {
	Status           Status           `json:"status"`
	TaskID           string           `json:"task_id"`
	ExecutionTimeSec float64          `json:"execution_time_sec"`
	MemoryUsageMB    float64          `json:"memory_usage_mb"`
	TestCaseResults  []TestCaseResult `json:"test_case_results"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	Metadata         VerdictMetadata  `json:"metadata"`
}

// SystemErrorVerdict builds a Verdict that strands no waiter: used on every
// failure path upstream of per-case execution (screen rejection, compile
// failure is its own status, broker errors, recovery of a lost task, ...).
func SystemErrorVerdict(taskID, message string) Verdict {
	return Verdict{
		Status:       StatusSystemError,
		TaskID:       taskID,
		ErrorMessage: message,
	}
}
