// Package report recognises weekly glucose patterns and renders the weekly
// summary text. Everything here is pure; persistence lives in services.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/risk"
)

// NoDataMessage is the content returned for a week without readings.
const NoDataMessage = "本周还没有血糖记录，请开始记录您的血糖数据。"

const (
	mealElevatedAvg  = 8.0
	mealLowAvg       = 5.0
	maxActionItems   = 3
	lowCompliance    = 70.0
	goodCompliance   = 80.0
	minWeekReadings  = 7
	goodWeekReadings = 14
	stableStdDev     = 1.5
	trendSample      = 3
)

// Window is a half-open [Start, End) reporting period.
type Window struct {
	Start time.Time
	End   time.Time
}

// WeekWindow returns the UTC calendar week (Monday 00:00 to the next Monday)
// containing now.
func WeekWindow(now time.Time) Window {
	now = now.UTC()
	offset := (int(now.Weekday()) + 6) % 7
	start := time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// Contains reports whether t lies in the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type PatternKind string

const (
	PatternMealElevated PatternKind = "meal_elevated"
	PatternMealLow      PatternKind = "meal_low"
	PatternRising       PatternKind = "rising"
	PatternFalling      PatternKind = "falling"
	PatternExercise     PatternKind = "exercise"
)

// Pattern is one recognised observation. MealType is set only for the
// per-meal kinds.
type Pattern struct {
	Kind     PatternKind     `json:"kind"`
	MealType domain.MealType `json:"meal_type,omitempty"`
	Text     string          `json:"text"`
}

var mealOrder = []domain.MealType{
	domain.MealBreakfast,
	domain.MealLunch,
	domain.MealDinner,
	domain.MealSnack,
	domain.MealOther,
}

var mealAdvice = map[domain.MealType]string{
	domain.MealBreakfast: "早餐选择低GI食物，增加蛋白质和膳食纤维",
	domain.MealLunch:     "午餐控制主食份量，注意营养搭配",
	domain.MealDinner:    "晚餐减少精制碳水，增加蔬菜比例",
}

func average(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func values(readings []domain.GlucoseReading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Value
	}
	return out
}

// Compliance is the percentage of readings inside the target band of their
// own context. ok is false when there are no readings.
func Compliance(readings []domain.GlucoseReading, profile *domain.User) (rate float64, ok bool) {
	if len(readings) == 0 {
		return 0, false
	}
	var hits int
	for _, r := range readings {
		if risk.InRange(r.Value, r.Context, profile) {
			hits++
		}
	}
	return float64(hits) / float64(len(readings)) * 100, true
}

// Patterns expects readings in timestamp order.
func Patterns(readings []domain.GlucoseReading, meals []domain.MealEntry, exercises []domain.ExerciseRecord) []Pattern {
	if len(readings) == 0 {
		return nil
	}

	var patterns []Pattern
	byMeal := make(map[domain.MealType][]float64)
	for _, r := range readings {
		if r.MealType != nil && *r.MealType != "" {
			byMeal[*r.MealType] = append(byMeal[*r.MealType], r.Value)
		}
	}
	for _, mt := range mealOrder {
		vals, ok := byMeal[mt]
		if !ok {
			continue
		}
		avg := average(vals)
		switch {
		case avg > mealElevatedAvg:
			patterns = append(patterns, Pattern{
				Kind:     PatternMealElevated,
				MealType: mt,
				Text:     fmt.Sprintf("%s后血糖平均值偏高（%.1f mmol/L）", mt.DisplayName(), avg),
			})
		case avg < mealLowAvg:
			patterns = append(patterns, Pattern{
				Kind:     PatternMealLow,
				MealType: mt,
				Text:     fmt.Sprintf("%s后血糖平均值偏低（%.1f mmol/L）", mt.DisplayName(), avg),
			})
		}
	}

	if len(readings) >= trendSample {
		all := values(readings)
		earlier := average(all[:trendSample])
		recent := average(all[len(all)-trendSample:])
		switch {
		case recent > earlier*1.1:
			patterns = append(patterns, Pattern{Kind: PatternRising, Text: "本周后期血糖较前期有所上升"})
		case recent < earlier*0.9:
			patterns = append(patterns, Pattern{Kind: PatternFalling, Text: "本周后期血糖较前期有所下降"})
		}
	}

	if n := len(exercises); n > 0 {
		patterns = append(patterns, Pattern{Kind: PatternExercise, Text: fmt.Sprintf("本周进行了%d次运动，继续保持", n)})
	}
	return patterns
}

// ActionItems returns at most three suggestions.
func ActionItems(readings []domain.GlucoseReading, profile *domain.User, patterns []Pattern) []string {
	if len(readings) == 0 {
		return []string{"开始记录血糖数据"}
	}

	var items []string
	for _, p := range patterns {
		if p.Kind != PatternMealElevated {
			continue
		}
		if advice, ok := mealAdvice[p.MealType]; ok {
			items = append(items, advice)
		}
	}
	if rate, _ := Compliance(readings, profile); rate < lowCompliance {
		items = append(items, "加强血糖监测频率，及时调整饮食和运动")
	}
	if len(readings) < minWeekReadings {
		items = append(items, "建议增加测量频率，每天至少2-3次（不同时间点）")
	}
	if len(items) == 0 {
		items = append(items, "继续保持当前的良好习惯", "定期监测血糖，关注变化趋势")
	}
	if len(items) > maxActionItems {
		items = items[:maxActionItems]
	}
	return items
}

// PositiveProgress lists what went well this week: high compliance, frequent
// measurement and a stable curve.
func PositiveProgress(readings []domain.GlucoseReading, profile *domain.User) []string {
	if len(readings) == 0 {
		return nil
	}

	var progress []string
	if rate, _ := Compliance(readings, profile); rate >= goodCompliance {
		progress = append(progress, fmt.Sprintf("目标达标率达到%.1f%%，表现优秀！", rate))
	}
	if n := len(readings); n >= goodWeekReadings {
		progress = append(progress, fmt.Sprintf("本周测量%d次，监测频率良好", n))
	}
	if len(readings) >= trendSample && stdDev(values(readings)) < stableStdDev {
		progress = append(progress, "血糖波动较小，控制稳定")
	}
	return progress
}

// stdDev is the population standard deviation.
func stdDev(vals []float64) float64 {
	mean := average(vals)
	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(vals)))
}

// Summary is the computed weekly report.
type Summary struct {
	Window            Window
	TotalMeasurements int
	Average           *float64
	FastingAverage    *float64
	PostMealAverage   *float64
	ComplianceRate    *float64
	Patterns          []Pattern
	ActionItems       []string
	PositiveProgress  []string
	MealCount         int
	ExerciseCount     int
}

// Empty reports whether the week had no readings.
func (s Summary) Empty() bool {
	return s.TotalMeasurements == 0
}

// Build computes the summary for the window. Records outside it are ignored.
func Build(w Window, readings []domain.GlucoseReading, meals []domain.MealEntry, exercises []domain.ExerciseRecord, profile *domain.User) Summary {
	var inWeek []domain.GlucoseReading
	for _, r := range readings {
		if w.Contains(r.Timestamp) {
			inWeek = append(inWeek, r)
		}
	}
	sort.SliceStable(inWeek, func(i, j int) bool {
		return inWeek[i].Timestamp.Before(inWeek[j].Timestamp)
	})

	var weekMeals []domain.MealEntry
	for _, m := range meals {
		if w.Contains(m.Timestamp) {
			weekMeals = append(weekMeals, m)
		}
	}
	var weekExercises []domain.ExerciseRecord
	for _, e := range exercises {
		if w.Contains(e.Timestamp) {
			weekExercises = append(weekExercises, e)
		}
	}

	s := Summary{
		Window:            w,
		TotalMeasurements: len(inWeek),
		MealCount:         len(weekMeals),
		ExerciseCount:     len(weekExercises),
	}
	if s.Empty() {
		return s
	}

	avg := average(values(inWeek))
	s.Average = &avg
	s.FastingAverage = contextAverage(inWeek, domain.ContextFasting)
	s.PostMealAverage = contextAverage(inWeek, domain.ContextPostMeal)
	if rate, ok := Compliance(inWeek, profile); ok {
		s.ComplianceRate = &rate
	}
	s.Patterns = Patterns(inWeek, weekMeals, weekExercises)
	s.ActionItems = ActionItems(inWeek, profile, s.Patterns)
	s.PositiveProgress = PositiveProgress(inWeek, profile)
	return s
}

func contextAverage(readings []domain.GlucoseReading, mctx domain.MeasurementContext) *float64 {
	var vals []float64
	for _, r := range readings {
		if r.Context == mctx {
			vals = append(vals, r.Value)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	avg := average(vals)
	return &avg
}

// PatternTexts returns the display text of each pattern.
func (s Summary) PatternTexts() []string {
	texts := make([]string, 0, len(s.Patterns))
	for _, p := range s.Patterns {
		texts = append(texts, p.Text)
	}
	return texts
}

// Render produces the user-facing report.
func (s Summary) Render() string {
	if s.Empty() {
		return NoDataMessage
	}

	lines := []string{
		"📊 【本周血糖管理报告】",
		fmt.Sprintf("报告周期：%s 至 %s\n", s.Window.Start.Format(time.DateOnly), s.Window.End.Format(time.DateOnly)),
		"【统计数据】",
		fmt.Sprintf("• 总测量次数：%d次", s.TotalMeasurements),
		fmt.Sprintf("• 平均血糖：%.1f mmol/L", *s.Average),
	}
	if s.FastingAverage != nil {
		lines = append(lines, fmt.Sprintf("• 空腹平均：%.1f mmol/L", *s.FastingAverage))
	}
	if s.PostMealAverage != nil {
		lines = append(lines, fmt.Sprintf("• 餐后平均：%.1f mmol/L", *s.PostMealAverage))
	}
	var rate float64
	if s.ComplianceRate != nil {
		rate = *s.ComplianceRate
	}
	lines = append(lines, fmt.Sprintf("• 目标达标率：%.1f%%\n", rate))

	if len(s.Patterns) > 0 {
		lines = append(lines, "【模式识别】")
		for _, text := range s.PatternTexts() {
			lines = append(lines, "• "+text)
		}
		lines = append(lines, "")
	}
	if len(s.PositiveProgress) > 0 {
		lines = append(lines, "【正面进展】")
		for _, p := range s.PositiveProgress {
			lines = append(lines, "• "+p)
		}
		lines = append(lines, "")
	}
	if len(s.ActionItems) > 0 {
		lines = append(lines, "【行动建议】")
		for i, item := range s.ActionItems {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
		}
		lines = append(lines, "")
	}
	if s.MealCount > 0 {
		lines = append(lines, fmt.Sprintf("【饮食记录】本周共记录%d次饮食", s.MealCount))
	}
	if s.ExerciseCount > 0 {
		lines = append(lines, fmt.Sprintf("【运动记录】本周共记录%d次运动", s.ExerciseCount))
	}
	return strings.Join(lines, "\n")
}

// Record converts a non-empty summary into a row for persistence.
func (s Summary) Record(userID uint) *domain.WeeklyReport {
	return &domain.WeeklyReport{
		UserID:               userID,
		WeekStart:            s.Window.Start,
		WeekEnd:              s.Window.End,
		TotalMeasurements:    s.TotalMeasurements,
		AverageGlucose:       s.Average,
		FastingAverage:       s.FastingAverage,
		PostMealAverage:      s.PostMealAverage,
		TargetComplianceRate: s.ComplianceRate,
		Patterns:             domain.JSONList(s.PatternTexts()),
		ActionItems:          domain.JSONList(s.ActionItems),
		PositiveProgress:     domain.JSONList(s.PositiveProgress),
	}
}
