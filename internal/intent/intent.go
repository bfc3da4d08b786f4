// Package intent classifies utterances into a single intent, a sentiment and
// a slot mapping.
package intent

import (
	"strings"
	"unicode"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/extract"
)

// Rule maps a predicate to an intent. Rules are evaluated in slice order.
type Rule struct {
	Intent domain.Intent
	Match  func(text string) bool
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func hasDigit(text string) bool {
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}

var (
	supportNegative = []string{"沮丧", "控制不好", "又高了", "失败", "担心", "焦虑"}
	supportPositive = []string{"控制得很好", "达标", "开心", "进步"}
)

// Rules is the priority order of intents. Only the first match is returned,
// so moving a rule changes classification of overlapping utterances.
var Rules = []Rule{
	{domain.IntentRecordGlucose, func(t string) bool {
		return containsAny(t, "血糖", "测了", "测量") && hasDigit(t)
	}},
	{domain.IntentRecordMeal, func(t string) bool {
		return containsAny(t, "吃了", "饮食") ||
			(strings.Contains(t, "餐") && containsAny(t, "记录", "吃"))
	}},
	{domain.IntentRecordExercise, func(t string) bool {
		return containsAny(t, "运动", "锻炼", "跑步", "走路")
	}},
	{domain.IntentRecordMedication, func(t string) bool {
		return containsAny(t, "用药", "吃药", "药物")
	}},
	{domain.IntentAskValueStatus, func(t string) bool {
		return containsAny(t, "怎么样", "高吗", "低吗", "正常吗") && strings.Contains(t, "血糖")
	}},
	{domain.IntentWeeklyReport, func(t string) bool {
		return containsAny(t, "周报", "这周", "本周", "复盘")
	}},
	{domain.IntentAskEducation, func(t string) bool {
		return containsAny(t, "是什么", "什么意思", "解释") || strings.Contains(strings.ToLower(t), "gi")
	}},
	{domain.IntentEmotionalSupport, func(t string) bool {
		return containsAny(t, supportNegative...) || containsAny(t, supportPositive...)
	}},
	{domain.IntentRiskAlert, func(t string) bool {
		return containsAny(t, "低血糖", "高血糖", "紧急")
	}},
}

// Classify returns the first matching intent, or general.
func Classify(text string) domain.Intent {
	return ClassifyWith(Rules, text)
}

// ClassifyWith runs an arbitrary rule table.
func ClassifyWith(rules []Rule, text string) domain.Intent {
	for _, r := range rules {
		if r.Match(text) {
			return r.Intent
		}
	}
	return domain.IntentGeneral
}

// ExtractSlots fills the slot mapping stored with the conversation state.
// The unit slot is always set; the others only when found.
func ExtractSlots(text string) domain.Slots {
	slots := domain.Slots{Unit: extract.Unit(text)}

	if v, ok := extract.Value(text); ok && v != 0 {
		slots.GlucoseValue = &v
	}
	if m, ok := extract.MealTypeFromText(text); ok {
		slots.MealType = m
	}
	if h, ok := extract.HoursAfterMeal(text); ok && h != 0 {
		slots.HoursAfterMeal = &h
	}
	return slots
}
