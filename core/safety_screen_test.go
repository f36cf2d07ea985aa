package core

import "testing"

func TestCheckCodeSafetyAcceptsOrdinaryPython(t *testing.T) {
	code := `
def add(a, b):
    return a + b

print(add(1, 2))
`
	result := CheckCodeSafety(code, LanguagePython)
	if !result.Safe {
		t.Errorf("expected ordinary Python to be safe, got reason=%q", result.Reason)
	}
}

func TestCheckCodeSafetyRejectsEval(t *testing.T) {
	result := CheckCodeSafety(`eval("1 + 1")`, LanguagePython)
	if result.Safe {
		t.Errorf("expected eval() call to be rejected")
	}
}

func TestCheckCodeSafetyRejectsOSSystem(t *testing.T) {
	result := CheckCodeSafety("import os\nos.system('rm -rf /')", LanguagePython)
	if result.Safe {
		t.Errorf("expected os.system to be rejected")
	}
}

func TestCheckCodeSafetyRejectsSubprocessImport(t *testing.T) {
	result := CheckCodeSafety("import subprocess\nsubprocess.run(['ls'])", LanguagePython)
	if result.Safe {
		t.Errorf("expected subprocess import to be rejected")
	}
}

func TestCheckCodeSafetyIgnoresCommentedOutCalls(t *testing.T) {
	result := CheckCodeSafety("# eval('danger')\nprint('hi')", LanguagePython)
	if !result.Safe {
		t.Errorf("expected a commented-out eval call to be ignored, got reason=%q", result.Reason)
	}
}

func TestCheckCodeSafetyAllowsUserDefinedExecShadow(t *testing.T) {
	code := `
def exec(cmd):
    return cmd

exec("harmless")
`
	result := CheckCodeSafety(code, LanguagePython)
	if !result.Safe {
		t.Errorf("expected a user-defined exec() shadow to be allowed, got reason=%q", result.Reason)
	}
}

func TestCheckCodeSafetyAllowsWhitelistedOSAttrs(t *testing.T) {
	code := "import os\nprint(os.path.join('a', 'b'))\nprint(os.getcwd())"
	result := CheckCodeSafety(code, LanguagePython)
	if !result.Safe {
		t.Errorf("expected whitelisted os.* attrs to be allowed, got reason=%q", result.Reason)
	}
}

func TestCheckCodeSafetyAcceptsOrdinaryCPP(t *testing.T) {
	code := `
#include <iostream>
int main() {
    std::cout << "hello" << std::endl;
    return 0;
}
`
	result := CheckCodeSafety(code, LanguageCPP)
	if !result.Safe {
		t.Errorf("expected ordinary C++ to be safe, got reason=%q", result.Reason)
	}
}

func TestCheckCodeSafetyRejectsCPPSystemCall(t *testing.T) {
	result := CheckCodeSafety(`system("rm -rf /");`, LanguageC)
	if result.Safe {
		t.Errorf("expected system() call to be rejected")
	}
}

func TestCheckCodeSafetyIgnoresCommentedCPPCall(t *testing.T) {
	code := "// system(\"rm -rf /\");\nint main() { return 0; }"
	result := CheckCodeSafety(code, LanguageCPP)
	if !result.Safe {
		t.Errorf("expected a commented-out system() call to be ignored, got reason=%q", result.Reason)
	}
}

func TestCheckCodeSafetyRejectsUnsupportedLanguage(t *testing.T) {
	result := CheckCodeSafety("anything", Language("ruby"))
	if result.Safe {
		t.Errorf("expected an unsupported language to be rejected")
	}
}
