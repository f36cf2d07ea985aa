package core

import "testing"

func TestCompareDirectEqual(t *testing.T) {
	if !Compare("hello\n", "hello") {
		t.Errorf("Compare should ignore trailing newline differences")
	}
}

func TestCompareLineTokenEqual(t *testing.T) {
	if !Compare("1  2   3\n", "1 2 3") {
		t.Errorf("Compare should ignore whitespace run-length differences")
	}
}

func TestCompareNumericTolerance(t *testing.T) {
	if !Compare("3.14159265", "3.14159266") {
		t.Errorf("Compare should accept numeric tokens within tolerance")
	}
	if Compare("3.0", "4.0") {
		t.Errorf("Compare should reject numeric tokens outside tolerance")
	}
}

func TestCompareSetOfTokens(t *testing.T) {
	if !Compare("3 1 2", "1 2 3") {
		t.Errorf("Compare should accept a reordered token set per line")
	}
}

func TestCompareSetOfRoundedNumbers(t *testing.T) {
	if !Compare("1.0001 2.0001", "2.0 1.0") {
		t.Errorf("Compare should accept reordered numbers rounded to 3 places")
	}
}

func TestCompareRejectsMismatch(t *testing.T) {
	if Compare("wrong answer", "right answer") {
		t.Errorf("Compare must reject genuinely different output")
	}
}

func TestCompareReflexive(t *testing.T) {
	cases := []string{"42", "1 2 3\n4 5 6", "3.14159\n", "", "hello world"}
	for _, c := range cases {
		if !Compare(c, c) {
			t.Errorf("Compare(%q, %q) = false, want true (reflexivity)", c, c)
		}
	}
}

func TestCompareIdempotent(t *testing.T) {
	a, b := "1 2 3", "3 2 1"
	first := Compare(a, b)
	second := Compare(a, b)
	if first != second {
		t.Errorf("Compare is not idempotent: first=%v second=%v", first, second)
	}
	if !first {
		t.Errorf("Compare(%q, %q) = false, want true", a, b)
	}
}

func TestCompareStructuredFallsBackToCascade(t *testing.T) {
	if !CompareStructured("hello", "hello") {
		t.Errorf("CompareStructured should accept plain-text equal values via the shared cascade")
	}
}

func TestCompareStructuredFloatTolerance(t *testing.T) {
	if !CompareStructured("3.1400001", "3.1400002") {
		t.Errorf("CompareStructured should accept JSON floats within atol=1e-6")
	}
	if CompareStructured("3.0", "4.0") {
		t.Errorf("CompareStructured should reject JSON floats outside tolerance")
	}
}

func TestCompareStructuredListElementWise(t *testing.T) {
	if !CompareStructured("[1, 2, 3.0000001]", "[1, 2, 3.0]") {
		t.Errorf("CompareStructured should compare lists element-wise with float tolerance")
	}
	if CompareStructured("[1, 2, 3]", "[1, 2]") {
		t.Errorf("CompareStructured must reject lists of different length")
	}
	if CompareStructured("[1, 2, 3]", "[1, 3, 2]") {
		t.Errorf("CompareStructured must reject lists with different element order")
	}
}

func TestCompareStructuredRejectsInvalidJSON(t *testing.T) {
	if CompareStructured("not json", "{}") {
		t.Errorf("CompareStructured must reject unparsable JSON rather than panic")
	}
}
