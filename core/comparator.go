package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const numericTolerance = 1e-5

// Compare implements the five-step cascade from spec §4.6, used whenever
// the Executor yields tentative ACCEPTED and the mode requires output
// comparison (acm, leetcode, fullcode's check-function path is handled by
// the program's own assertions instead). Returns true on the first step
// that succeeds.
func Compare(actual, expected string) bool {
	if directEqual(actual, expected) {
		return true
	}
	if lineTokenEqual(actual, expected) {
		return true
	}
	if numericTokenEqual(actual, expected, numericTolerance) {
		return true
	}
	if setOfTokensEqual(actual, expected) {
		return true
	}
	if setOfRoundedNumbersEqual(actual, expected, 3) {
		return true
	}
	return false
}

// CompareStructured compares two JSON-encoded leetcode results (as printed
// by the generated driver) using the same cascade, plus JSON-aware float
// tolerance (atol=1e-6) and element-wise list comparison, per spec §4.6's
// structured-output paragraph.
func CompareStructured(actualJSON, expectedJSON string) bool {
	if Compare(actualJSON, expectedJSON) {
		return true
	}
	var a, e interface{}
	if json.Unmarshal([]byte(actualJSON), &a) != nil {
		return false
	}
	if json.Unmarshal([]byte(expectedJSON), &e) != nil {
		return false
	}
	return jsonValuesEqual(a, e)
}

func jsonValuesEqual(a, e interface{}) bool {
	switch ev := e.(type) {
	case float64:
		av, ok := a.(float64)
		if !ok {
			return false
		}
		return math.Abs(av-ev) <= 1e-6
	case []interface{}:
		av, ok := a.([]interface{})
		if !ok || len(av) != len(ev) {
			return false
		}
		for i := range ev {
			if !jsonValuesEqual(av[i], ev[i]) {
				return false
			}
		}
		return true
	default:
		return a == e
	}
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func directEqual(a, b string) bool {
	a = strings.TrimRight(normalizeNewlines(a), "\n")
	b = strings.TrimRight(normalizeNewlines(b), "\n")
	return a == b
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(normalizeNewlines(s), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func lineTokenEqual(a, b string) bool {
	la, lb := nonEmptyLines(a), nonEmptyLines(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		ta, tb := strings.Fields(la[i]), strings.Fields(lb[i])
		if len(ta) != len(tb) {
			return false
		}
		for j := range ta {
			if ta[j] != tb[j] {
				return false
			}
		}
	}
	return true
}

func numericTokenEqual(a, b string, tol float64) bool {
	la, lb := nonEmptyLines(a), nonEmptyLines(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		ta, tb := strings.Fields(la[i]), strings.Fields(lb[i])
		if len(ta) != len(tb) {
			return false
		}
		for j := range ta {
			if ta[j] == tb[j] {
				continue
			}
			fa, errA := strconv.ParseFloat(ta[j], 64)
			fb, errB := strconv.ParseFloat(tb[j], 64)
			if errA != nil || errB != nil {
				return false
			}
			if !closeEnough(fa, fb, tol) {
				return false
			}
		}
	}
	return true
}

func closeEnough(a, b, tol float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	return diff <= tol*math.Max(math.Abs(a), math.Abs(b))
}

func tokenSet(line string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(line) {
		set[tok] = true
	}
	return set
}

func setOfTokensEqual(a, b string) bool {
	la, lb := nonEmptyLines(a), nonEmptyLines(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if !sameSet(tokenSet(la[i]), tokenSet(lb[i])) {
			return false
		}
	}
	return true
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func roundedNumberSet(line string, places int) (map[string]bool, bool) {
	out := map[string]bool{}
	for _, tok := range strings.Fields(line) {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, false
		}
		out[formatRounded(f, places)] = true
	}
	return out, true
}

func formatRounded(f float64, places int) string {
	mul := math.Pow(10, float64(places))
	rounded := math.Round(f*mul) / mul
	return strconv.FormatFloat(rounded, 'f', places, 64)
}

func setOfRoundedNumbersEqual(a, b string, places int) bool {
	la, lb := nonEmptyLines(a), nonEmptyLines(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		sa, okA := roundedNumberSet(la[i], places)
		sb, okB := roundedNumberSet(lb[i], places)
		if !okA || !okB {
			return false
		}
		if !sameSet(sa, sb) {
			return false
		}
	}
	return true
}
