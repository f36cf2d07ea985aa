package core

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ArtifactKind distinguishes what the Executor must do to run an artifact.
type ArtifactKind int

const (
	ArtifactPythonScript ArtifactKind = iota
	ArtifactExecutable
)

// Artifact is what the Compiler hands the Executor: something runnable,
// plus how to run it. Go cannot host an in-process callable the way the
// Python original does for leetcode mode (see Design Notes in
// SPEC_FULL.md); leetcode submissions are compiled down to a generated
// driver script of ArtifactPythonScript kind like any other Python
// submission, so the Executor never needs a third case.
type Artifact struct {
	Kind ArtifactKind
	Path string // script path or executable path
}

// CompileError is returned when compilation fails; callers turn this into
// a COMPILATION_ERROR Verdict with Message as the error text.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return e.Message }

// Compile materializes a Submission's code into a runnable Artifact in
// workingDir, per spec §4.4.
func Compile(sub Submission, workingDir string) (Artifact, error) {
	switch sub.Language {
	case LanguagePython:
		if sub.Mode == ModeLeetcode {
			return compileLeetcodeDriver(sub, workingDir)
		}
		return compilePythonScript(sub.Code, workingDir)
	case LanguageC:
		return compileNative(sub.Code, workingDir, "solution.c", "gcc", nil)
	case LanguageCPP:
		return compileNative(sub.Code, workingDir, "solution.cpp", "g++", []string{"-std=c++17"})
	default:
		return Artifact{}, &CompileError{Message: fmt.Sprintf("unsupported language: %s", sub.Language)}
	}
}

func compilePythonScript(code, workingDir string) (Artifact, error) {
	path := filepath.Join(workingDir, "solution.py")
	if err := os.WriteFile(path, []byte(code), 0o600); err != nil {
		return Artifact{}, &CompileError{Message: err.Error()}
	}
	return Artifact{Kind: ArtifactPythonScript, Path: path}, nil
}

func compileNative(code, workingDir, sourceName, compiler string, extraArgs []string) (Artifact, error) {
	sourcePath := filepath.Join(workingDir, sourceName)
	execPath := filepath.Join(workingDir, "solution")
	if err := os.WriteFile(sourcePath, []byte(code), 0o600); err != nil {
		return Artifact{}, &CompileError{Message: err.Error()}
	}

	args := append([]string{"-o", execPath, sourcePath, "-Wall", "-O2"}, extraArgs...)
	cmd := exec.Command(compiler, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Artifact{}, &CompileError{Message: string(out)}
	}
	return Artifact{Kind: ArtifactExecutable, Path: execPath}, nil
}

// compileLeetcodeDriver writes the user's code plus a small generated
// harness that, for each test case, reads the JSON-encoded argument list
// from stdin, instantiates Solution (or binds the free function), calls
// entry_point, and prints the JSON-encoded result on one line. This keeps
// leetcode mode on the same subprocess Sandbox/Executor path as every
// other mode (see SPEC_FULL.md's leetcode-driver design note), trading
// the Python original's in-process callable for a generated script run
// exactly like a fullcode submission.
func compileLeetcodeDriver(sub Submission, workingDir string) (Artifact, error) {
	if sub.EntryPoint == "" {
		return Artifact{}, &CompileError{Message: "No entry point specified"}
	}
	driver := leetcodeDriverTemplate(sub.Code, sub.EntryPoint)
	path := filepath.Join(workingDir, "solution.py")
	if err := os.WriteFile(path, []byte(driver), 0o600); err != nil {
		return Artifact{}, &CompileError{Message: err.Error()}
	}
	return Artifact{Kind: ArtifactPythonScript, Path: path}, nil
}

// leetcodeDriverTemplate mirrors app/services/leetcode/template.py's SCRIPT
// wrapper in spirit: user code is embedded verbatim, followed by a harness
// that reads one JSON array of positional arguments per line from stdin
// and prints one JSON-encoded result per line, so the Executor can drive
// it exactly like any stdio-based submission, one test case at a time.
func leetcodeDriverTemplate(userCode, entryPoint string) string {
	return userCode + "\n\n" + `
if __name__ == "__main__":
    import json
    import sys

    _args = json.loads(sys.stdin.readline())
    try:
        _candidate = Solution()
    except NameError:
        _candidate = sys.modules[__name__]
    _fn = getattr(_candidate, "` + entryPoint + `")
    _result = _fn(*_args)
    print(json.dumps(_result))
`
}
