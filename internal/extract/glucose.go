// Package extract pulls structured glucose, meal and activity data out of
// free-text utterances. Every function is pure.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

// compilePatterns compiles case-insensitive patterns in order.
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return compiled
}

// firstNumber returns the first capture group of the first matching pattern.
func firstNumber(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

var valuePatterns = compilePatterns([]string{
	`(\d+(?:\.\d+)?)\s*(?:mmol|mg)`,
	`血糖[是\s]*(\d+(?:\.\d+)?)`,
	`(\d+(?:\.\d+)?)`,
})

// Value finds the glucose number in text. A number with a unit wins over a
// "血糖" labelled number, which wins over any bare number. The value is not
// checked for plausibility.
func Value(text string) (float64, bool) {
	return firstNumber(text, valuePatterns)
}

// Unit reports mg/dL when "mg" appears anywhere in text, otherwise mmol/L.
func Unit(text string) domain.Unit {
	if strings.Contains(strings.ToLower(text), "mg") {
		return domain.UnitMgdL
	}
	return domain.UnitMmolL
}

// ConvertUnit converts between mmol/L and mg/dL. Unknown or equal units are
// returned unchanged.
func ConvertUnit(value float64, from, to domain.Unit) float64 {
	switch {
	case from == to:
		return value
	case from == domain.UnitMgdL && to == domain.UnitMmolL:
		return value / domain.MgdLPerMmolL
	case from == domain.UnitMmolL && to == domain.UnitMgdL:
		return value * domain.MgdLPerMmolL
	default:
		return value
	}
}

// ToCanonical converts value in unit to mmol/L.
func ToCanonical(value float64, unit domain.Unit) float64 {
	return ConvertUnit(value, unit, domain.UnitMmolL)
}
