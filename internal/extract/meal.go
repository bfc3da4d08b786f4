package extract

import (
	"strings"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

// MealTypeFromClock maps the hour of t, in t's own location, to a meal slot.
func MealTypeFromClock(t time.Time) domain.MealType {
	switch h := t.Hour(); {
	case h >= 6 && h < 10:
		return domain.MealBreakfast
	case h >= 10 && h < 14:
		return domain.MealLunch
	case h >= 14 && h < 18:
		return domain.MealSnack
	case h >= 18 && h < 22:
		return domain.MealDinner
	default:
		return domain.MealOther
	}
}

type keywordRule[T any] struct {
	label    T
	keywords []string
}

func matchKeywords[T any](text string, rules []keywordRule[T]) (T, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.label, true
			}
		}
	}
	var zero T
	return zero, false
}

var mealTypeRules = []keywordRule[domain.MealType]{
	{domain.MealBreakfast, []string{"早餐", "早饭", "breakfast"}},
	{domain.MealLunch, []string{"午餐", "午饭", "lunch"}},
	{domain.MealDinner, []string{"晚餐", "晚饭", "dinner"}},
	{domain.MealSnack, []string{"加餐", "snack"}},
}

// MealTypeFromText finds an explicit meal mention.
func MealTypeFromText(text string) (domain.MealType, bool) {
	return matchKeywords(text, mealTypeRules)
}

// MealType prefers an explicit mention and falls back to the clock.
func MealType(text string, at time.Time) domain.MealType {
	if m, ok := MealTypeFromText(text); ok {
		return m
	}
	return MealTypeFromClock(at)
}

var hoursAfterMealPatterns = compilePatterns([]string{
	`餐后[(\s]*(\d+(?:\.\d+)?)\s*小时`,
	`(\d+(?:\.\d+)?)\s*小时后`,
	`(\d+(?:\.\d+)?)h`,
})

// HoursAfterMeal finds how many hours after a meal the measurement was taken.
func HoursAfterMeal(text string) (float64, bool) {
	return firstNumber(text, hoursAfterMealPatterns)
}

// Nutrition is a rough per-portion estimate.
type Nutrition struct {
	Carbs float64 // grams
	GI    float64
	GL    float64
}

var nutritionTable = []struct {
	keywords []string
	carbs    float64
	gi       float64
}{
	// 面包 has to be checked before 面.
	{[]string{"面包"}, 30, 70},
	{[]string{"米饭", "米"}, 40, 70},
	{[]string{"面"}, 50, 60},
}

// EstimateNutrition guesses carbohydrate load from well known staples.
func EstimateNutrition(text string) (Nutrition, bool) {
	lower := strings.ToLower(text)
	for _, food := range nutritionTable {
		for _, kw := range food.keywords {
			if strings.Contains(lower, kw) {
				return Nutrition{
					Carbs: food.carbs,
					GI:    food.gi,
					GL:    food.carbs * food.gi / 100,
				}, true
			}
		}
	}
	return Nutrition{}, false
}
