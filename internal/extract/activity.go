package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var exerciseRules = []keywordRule[string]{
	{"跑步", []string{"跑步", "run"}},
	{"走路", []string{"走路", "walk"}},
	{"游泳", []string{"游泳", "swim"}},
}

// ExerciseType names a known activity. Unknown activities fall back to the
// whole utterance with ok=false.
func ExerciseType(text string) (string, bool) {
	if kind, ok := matchKeywords(text, exerciseRules); ok {
		return kind, true
	}
	return text, false
}

var durationPattern = regexp.MustCompile(`(\d+)\s*分钟`)

// DurationMinutes finds "<n>分钟".
func DurationMinutes(text string) (int, bool) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

var dosagePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mg|毫克|单位|片|iu|u)`)

// Dosage returns the amount and unit as written, e.g. "500mg" or "2片".
func Dosage(text string) (string, bool) {
	m := dosagePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1] + strings.ToLower(m[2]), true
}
