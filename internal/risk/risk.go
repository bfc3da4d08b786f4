// Package risk resolves personal target ranges and buckets a glucose value
// into a risk tier. All values are mmol/L.
package risk

import (
	"fmt"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

// Fixed thresholds in mmol/L.
const (
	HypoThreshold        = 3.9
	SevereHyperThreshold = 16.7
	HyperThreshold       = 11.1
	DefaultFastingMin    = 4.4
	DefaultFastingMax    = 7.2
	DefaultPostMealMax   = 10.0
	DefaultRandomMin     = 3.9
	DefaultRandomMax     = 11.1
)

// Range is an inclusive target band.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the band, inclusive.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// TargetRange picks the band for a measurement context. Personal fasting
// targets apply only when both ends are set. A nil profile gets defaults.
func TargetRange(profile *domain.User, mctx domain.MeasurementContext) Range {
	switch mctx {
	case domain.ContextFasting:
		if profile != nil && positive(profile.FastingTargetMin) && positive(profile.FastingTargetMax) {
			return Range{Min: *profile.FastingTargetMin, Max: *profile.FastingTargetMax}
		}
		return Range{Min: DefaultFastingMin, Max: DefaultFastingMax}
	case domain.ContextPostMeal:
		if profile != nil && positive(profile.PostMealTargetMax) {
			return Range{Min: 0, Max: *profile.PostMealTargetMax}
		}
		return Range{Min: 0, Max: DefaultPostMealMax}
	default:
		// TODO: make the random/other band configurable per user once product
		// confirms 3.9-11.1 is policy and not a placeholder.
		return Range{Min: DefaultRandomMin, Max: DefaultRandomMax}
	}
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

// InRange is the compliance check used by weekly reports.
func InRange(value float64, mctx domain.MeasurementContext, profile *domain.User) bool {
	return TargetRange(profile, mctx).Contains(value)
}

// Assessment is the outcome of classifying one value.
type Assessment struct {
	Level       domain.RiskLevel
	Band        domain.RiskBand
	Conclusion  string
	Reasoning   string
	Suggestions []string
}

// Classify applies the ordered thresholds: hypoglycaemia, severe and plain
// hyperglycaemia, then the personal band.
func Classify(value float64, target Range) Assessment {
	switch {
	case value < HypoThreshold:
		return Assessment{
			Level:      domain.RiskCritical,
			Band:       domain.BandCriticalLow,
			Conclusion: "低血糖风险",
			Reasoning:  fmt.Sprintf("您的血糖值%.1f mmol/L低于安全阈值3.9 mmol/L，属于低血糖。", value),
			Suggestions: []string{
				"请立即补充速效碳水化合物（如糖果、果汁、葡萄糖片）",
				"15分钟后复测血糖",
				"如症状持续或加重，请立即就医",
				"注意：本建议仅供参考，紧急情况请及时联系医生",
			},
		}
	case value >= SevereHyperThreshold:
		return Assessment{
			Level:      domain.RiskCritical,
			Band:       domain.BandCriticalHigh,
			Conclusion: "极高血糖风险",
			Reasoning:  fmt.Sprintf("您的血糖值%.1f mmol/L非常高，需要立即关注。", value),
			Suggestions: []string{
				"请多喝水，保持水分",
				"密切监测症状",
				"建议尽快联系医生或前往医院",
				"注意：本建议仅供参考，紧急情况请及时就医",
			},
		}
	case value >= HyperThreshold:
		return Assessment{
			Level:      domain.RiskHigh,
			Band:       domain.BandHigh,
			Conclusion: "血糖偏高",
			Reasoning:  fmt.Sprintf("您的血糖值%.1f mmol/L偏高。", value),
			Suggestions: []string{
				"建议多喝水",
				"适当增加运动",
				"检查最近的饮食和用药情况",
				"如持续偏高，建议咨询医生",
			},
		}
	case value < target.Min:
		return Assessment{
			Level:      domain.RiskModerate,
			Band:       domain.BandModerateLow,
			Conclusion: "血糖偏低",
			Reasoning:  fmt.Sprintf("您的血糖值%.1f mmol/L略低于目标范围。", value),
			Suggestions: []string{
				"注意监测，避免低血糖",
				"适当调整饮食",
			},
		}
	case value <= target.Max:
		return Assessment{
			Level:      domain.RiskNormal,
			Band:       domain.BandNormal,
			Conclusion: "血糖在目标范围内",
			Reasoning:  fmt.Sprintf("您的血糖值%.1f mmol/L在目标范围内，控制得很好！", value),
			Suggestions: []string{
				"继续保持当前的饮食和运动习惯",
				"定期监测血糖",
			},
		}
	default:
		return Assessment{
			Level:      domain.RiskModerate,
			Band:       domain.BandModerateHigh,
			Conclusion: "血糖略高于目标",
			Reasoning:  fmt.Sprintf("您的血糖值%.1f mmol/L略高于目标范围。", value),
			Suggestions: []string{
				"注意饮食搭配",
				"适当增加运动",
				"继续监测",
			},
		}
	}
}

// Assess resolves the target range for the context and classifies value.
func Assess(value float64, mctx domain.MeasurementContext, profile *domain.User) (Range, Assessment) {
	target := TargetRange(profile, mctx)
	return target, Classify(value, target)
}
