package core

import (
	"regexp"
	"strings"
)

// dangerousPythonImports mirrors DANGEROUS_PYTHON_IMPORTS: per-module
// deny-lists of attribute/function names, "*" meaning "any use of this
// module is disallowed".
var dangerousPythonImports = map[string][]string{
	"os": {
		"system", "popen", "spawn", "exec", "execl", "execlp", "execle",
		"execv", "execvp", "execve", "kill", "killpg", "pclose", "putenv",
		"remove", "removedirs", "rmdir", "setuid", "setsid", "spawnl",
		"spawnle", "spawnlp", "spawnlpe", "spawnv", "spawnve", "spawnvp",
		"unlink", "fork", "forkpty",
	},
	"subprocess": {"*"},
	"pty":        {"*"},
	"shutil":     {"rmtree", "move", "copy", "copyfile", "copytree", "make_archive"},
	"importlib":  {"*"},
	"__import__": {"*"},
	"eval":       {"*"},
	"exec":       {"*"},
	"pickle":     {"*"},
	"socket":     {"*"},
	"requests":   {"*"},
}

// allowedOSAttrs is the whitelist of os.* attributes/submodules a
// submission may reference freely.
var allowedOSAttrs = map[string]bool{
	"path": true, "environ": true, "read": true, "write": true,
	"fstat": true, "getcwd": true, "listdir": true, "mkdir": true,
	"makedirs": true, "stat": true, "access": true, "name": true,
	"sep": true, "linesep": true, "curdir": true, "pardir": true,
	"pathsep": true, "devnull": true, "altsep": true, "extsep": true,
}

var dangerousCPPPatterns = []string{
	`\bsystem\s*\(`,
	`\bpopen\s*\(`,
	`\bfork\s*\(`,
	`\bexec\w*\s*\(`,
	`\bProcessBuilder\b`,
	`\bRuntime\.getRuntime\b`,
	`\bsocket\s*\(`,
}

var (
	pyCommentPattern    = regexp.MustCompile(`(?m)#.*$`)
	pyExecCallPattern   = regexp.MustCompile(`(?m)\b(eval|exec)\s*\(`)
	pyFuncDefPattern    = regexp.MustCompile(`(?m)def\s+(\w+)\s*\(`)
	pyVarAssignPattern  = regexp.MustCompile(`(?m)\b(\w+)\s*=\s*(?:eval|exec)\b`)
	pyIndirectExec      = regexp.MustCompile(`(?m)__builtins__\s*(?:\[|\.)['"]?(eval|exec)['"]?(?:\]|\))`)
	pyDangerousAttr     = regexp.MustCompile(`(?m)getattr\s*\(\s*os\s*,\s*['"](\w+)['"]|\w+\s*=\s*getattr\s*\(\s*os\s*,`)
	pyImportStd         = regexp.MustCompile(`(?m)^\s*import\s+(\w+(?:\s*,\s*\w+)*)`)
	pyImportFrom        = regexp.MustCompile(`(?m)^\s*from\s+(\w+)(?:\.\w+)*\s+import\s+([^#\n]+)`)
	pyImportDunder      = regexp.MustCompile(`(?m)__import__\s*\(\s*['"](\w+)['"]`)
	pyImportLib         = regexp.MustCompile(`(?m)importlib\.import_module\s*\(\s*['"](\w+)['"]`)
	osAttrAccessPattern = regexp.MustCompile(`(?m)\bos\.(\w+)(?:\s*\(|\s*$|\s+|\.)`)

	cppLineComment  = regexp.MustCompile(`(?m)//.*$`)
	cppBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cppSystemCall   = regexp.MustCompile(`\bsystem\s*\([^)]*\)`)
	cppFileWrite    = regexp.MustCompile(`\b(fopen|open|ofstream|ifstream)\s*\([^)]*,\s*["']w`)
	cppSocketCall   = regexp.MustCompile(`\bsocket\s*\(`)
)

// SafetyScreenResult carries a verdict plus the rule that tripped, for logs.
type SafetyScreenResult struct {
	Safe   bool
	Reason string
}

// CheckCodeSafety is the advisory static screen from spec §4.3: called
// before compilation when Submission.SecurityCheck is set. It is a regex-
// level screen, not the authoritative defense — the Sandbox is.
func CheckCodeSafety(code string, lang Language) SafetyScreenResult {
	switch lang {
	case LanguagePython:
		return checkPythonSafety(code)
	case LanguageC, LanguageCPP:
		return checkCPPSafety(code)
	default:
		return SafetyScreenResult{Safe: false, Reason: "unsupported language"}
	}
}

func checkPythonSafety(code string) SafetyScreenResult {
	withoutComments := pyCommentPattern.ReplaceAllString(code, "")

	userDefined := map[string]bool{}
	for _, m := range pyFuncDefPattern.FindAllStringSubmatch(withoutComments, -1) {
		userDefined[m[1]] = true
	}
	for _, m := range pyVarAssignPattern.FindAllStringSubmatch(withoutComments, -1) {
		userDefined[m[1]] = true
	}

	for _, m := range pyExecCallPattern.FindAllStringSubmatchIndex(withoutComments, -1) {
		funcName := withoutComments[m[2]:m[3]]
		pos := m[0]
		if userDefined[funcName] {
			continue
		}
		if pos > 0 && withoutComments[pos-1] == '.' {
			continue
		}
		if pos > 0 {
			ch := withoutComments[pos-1]
			if isAlnumOrUnderscore(ch) {
				continue
			}
		}
		return SafetyScreenResult{Safe: false, Reason: "dangerous function call: " + funcName}
	}

	if pyIndirectExec.MatchString(withoutComments) {
		return SafetyScreenResult{Safe: false, Reason: "indirect access to eval/exec"}
	}

	if m := pyDangerousAttr.FindStringSubmatch(withoutComments); m != nil {
		return SafetyScreenResult{Safe: false, Reason: "dynamic os attribute access"}
	}

	for _, m := range pyImportStd.FindAllStringSubmatch(withoutComments, -1) {
		for _, mod := range strings.Split(m[1], ",") {
			mod = strings.TrimSpace(strings.Split(strings.TrimSpace(mod), " as ")[0])
			if _, bad := dangerousPythonImports[mod]; bad && mod != "os" {
				return SafetyScreenResult{Safe: false, Reason: "import of blacklisted module: " + mod}
			}
		}
	}
	for _, m := range pyImportFrom.FindAllStringSubmatch(withoutComments, -1) {
		mod := strings.TrimSpace(m[1])
		dangerousItems, bad := dangerousPythonImports[mod]
		if !bad {
			continue
		}
		imports := strings.Split(m[2], ",")
		if mod == "os" {
			for _, imp := range imports {
				imp = strings.TrimSpace(strings.Split(strings.TrimSpace(imp), " as ")[0])
				if imp == "*" || containsStr(dangerousItems, imp) {
					return SafetyScreenResult{Safe: false, Reason: "dangerous os import: " + imp}
				}
			}
			continue
		}
		if containsStr(dangerousItems, "*") {
			return SafetyScreenResult{Safe: false, Reason: "from-import of blacklisted module: " + mod}
		}
		for _, imp := range imports {
			imp = strings.TrimSpace(strings.Split(strings.TrimSpace(imp), " as ")[0])
			if containsStr(dangerousItems, imp) {
				return SafetyScreenResult{Safe: false, Reason: "from-import of blacklisted name: " + mod + "." + imp}
			}
		}
	}
	for _, pat := range []*regexp.Regexp{pyImportDunder, pyImportLib} {
		for _, m := range pat.FindAllStringSubmatch(withoutComments, -1) {
			mod := strings.TrimSpace(m[1])
			if _, bad := dangerousPythonImports[mod]; bad && mod != "os" {
				return SafetyScreenResult{Safe: false, Reason: "dynamic import of blacklisted module: " + mod}
			}
		}
	}

	for module, funcs := range dangerousPythonImports {
		if module == "os" {
			for _, fn := range funcs {
				pat := regexp.MustCompile(`\bos\.` + regexp.QuoteMeta(fn) + `\s*\(`)
				if pat.MatchString(withoutComments) {
					return SafetyScreenResult{Safe: false, Reason: "dangerous os call: os." + fn}
				}
			}
			for _, m := range osAttrAccessPattern.FindAllStringSubmatch(withoutComments, -1) {
				if !allowedOSAttrs[m[1]] {
					return SafetyScreenResult{Safe: false, Reason: "disallowed os attribute: " + m[1]}
				}
			}
			continue
		}
		if containsStr(funcs, "*") {
			pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(module) + `\.(\w+)\s*\(`)
			if pat.MatchString(withoutComments) {
				return SafetyScreenResult{Safe: false, Reason: "dangerous module usage: " + module}
			}
			continue
		}
		for _, fn := range funcs {
			pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(module) + `\.` + regexp.QuoteMeta(fn) + `\s*\(`)
			if pat.MatchString(withoutComments) {
				return SafetyScreenResult{Safe: false, Reason: "dangerous call: " + module + "." + fn}
			}
		}
	}

	return SafetyScreenResult{Safe: true}
}

func checkCPPSafety(code string) SafetyScreenResult {
	stripped := cppLineComment.ReplaceAllString(code, "")
	stripped = cppBlockComment.ReplaceAllString(stripped, "")

	for _, pat := range dangerousCPPPatterns {
		if regexp.MustCompile(pat).MatchString(stripped) {
			return SafetyScreenResult{Safe: false, Reason: "dangerous function pattern: " + pat}
		}
	}
	if cppSystemCall.MatchString(stripped) {
		return SafetyScreenResult{Safe: false, Reason: "system() call"}
	}
	if cppFileWrite.MatchString(stripped) {
		return SafetyScreenResult{Safe: false, Reason: "file opened for write"}
	}
	if cppSocketCall.MatchString(stripped) {
		return SafetyScreenResult{Safe: false, Reason: "socket() call"}
	}
	return SafetyScreenResult{Safe: true}
}

func isAlnumOrUnderscore(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// UnsafeCodeMessage is the fixed message a SYSTEM_ERROR verdict carries
// when the screen rejects a submission, per spec §4.3.
const UnsafeCodeMessage = "Code contains potentially unsafe operations"
