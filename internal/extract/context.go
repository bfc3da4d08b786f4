package extract

import (
	"regexp"
	"strings"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

// ContextTier is one priority level of the colloquial context matcher.
type ContextTier struct {
	Context  domain.MeasurementContext
	Patterns []*regexp.Regexp
}

// ColloquialTiers is evaluated top to bottom and the first tier with a
// matching pattern wins. The order resolves phrases that fit more than one
// context and must not be changed.
var ColloquialTiers = []ContextTier{
	{
		Context: domain.ContextFasting,
		Patterns: compilePatterns([]string{
			`没吃饭.*时候.*测`,
			`没吃饭.*测`,
			`饿.*一晚上.*测`,
			`饿.*晚上.*测`,
			`没吃早饭.*测`,
			`没吃早餐.*测`,
			`肚子空.*时候.*测`,
			`肚子空.*测`,
			`空腹`,
			`fasting`,
			`饿着.*测`,
			`空着.*测`,
		}),
	},
	{
		Context: domain.ContextPreMeal,
		Patterns: compilePatterns([]string{
			`吃饭前.*测`,
			`准备开饭.*时候.*测`,
			`准备开饭.*测`,
			`没吃饭之前.*测`,
			`要吃饭.*先测`,
			`餐前`,
			`pre.*meal`,
			`饭前`,
		}),
	},
	{
		Context: domain.ContextPostMeal,
		Patterns: compilePatterns([]string{
			`吃完.*饭后.*测`,
			`刚吃完.*饭.*测`,
			`吃饱.*东西.*测`,
			`吃饱.*测`,
			`用餐结束.*测`,
			`餐后`,
			`post.*meal`,
			`饭后`,
			`吃完.*测`,
		}),
	},
	{
		Context: domain.ContextRandom,
		Patterns: compilePatterns([]string{
			`随便.*时候.*测`,
			`想起来.*测`,
			`没固定时间.*测`,
			`任意时候.*测`,
			`随机`,
			`random`,
			`随便.*测`,
			`任意.*测`,
		}),
	},
}

// ContextFromColloquial matches everyday phrasing such as "没吃早饭那会测的"
// against ColloquialTiers.
func ContextFromColloquial(text string) (domain.MeasurementContext, bool) {
	lower := strings.ToLower(text)
	for _, tier := range ColloquialTiers {
		for _, re := range tier.Patterns {
			if re.MatchString(lower) {
				return tier.Context, true
			}
		}
	}
	return "", false
}

// ContextFromKeywords is the plain keyword fallback. hoursKnown marks a
// post-meal offset that was already extracted.
func ContextFromKeywords(text string, hoursKnown bool) (domain.MeasurementContext, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "空腹") || strings.Contains(lower, "fasting"):
		return domain.ContextFasting, true
	case strings.Contains(text, "餐后") || strings.Contains(lower, "post") || hoursKnown:
		return domain.ContextPostMeal, true
	case strings.Contains(text, "餐前") || strings.Contains(lower, "pre"):
		return domain.ContextPreMeal, true
	}
	return "", false
}
