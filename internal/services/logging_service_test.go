package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
)

func TestLogGlucose_NoValue(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})

	res, err := f.logging.LogGlucose(context.Background(), u.ID, "今天感觉还行", nil)
	if err != nil {
		t.Fatalf("LogGlucose: %v", err)
	}
	if res.Success || res.RecordID != nil {
		t.Errorf("result = %+v, want failure without record", res)
	}
	if !slices.Equal(res.MissingInfo, []string{"血糖数值"}) {
		t.Errorf("missing = %v", res.MissingInfo)
	}

	latest, _ := f.store.Readings.LatestReading(context.Background(), u.ID)
	if latest != nil {
		t.Error("nothing should be stored")
	}
}

func TestLogGlucose_Inference(t *testing.T) {
	morning := time.Date(2025, 6, 18, 7, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		text     string
		value    float64
		ctx      domain.MeasurementContext
		meal     domain.MealType
		missing  []string
		contains string
	}{
		{
			name:     "keyword fasting",
			now:      afternoon,
			text:     "今天空腹测的血糖5.2",
			value:    5.2,
			ctx:      domain.ContextFasting,
			meal:     domain.MealSnack,
			missing:  []string{},
			contains: "已为您记录血糖值：5.2 mmol/L（5.2 mmol/L），测量类型：fasting",
		},
		{
			name:     "clock fallback afternoon",
			now:      afternoon,
			text:     "血糖3.5",
			value:    3.5,
			ctx:      domain.ContextRandom,
			meal:     domain.MealSnack,
			missing:  []string{"测量上下文（空腹/餐后）"},
			contains: "。还需要补充：测量上下文（空腹/餐后）",
		},
		{
			name:    "clock fallback morning",
			now:     morning,
			text:    "血糖6.0",
			value:   6.0,
			ctx:     domain.ContextFasting,
			meal:    domain.MealBreakfast,
			missing: []string{},
		},
		{
			name:     "mg/dL converted",
			now:      afternoon,
			text:     "午餐后2小时 180 mg/dL",
			value:    10.0,
			ctx:      domain.ContextPostMeal,
			meal:     domain.MealLunch,
			missing:  []string{},
			contains: "180 mg/dL（10.0 mmol/L）",
		},
		{
			name:    "post meal without hours",
			now:     afternoon,
			text:    "饭后测了 9.1",
			value:   9.1,
			ctx:     domain.ContextPostMeal,
			meal:    domain.MealSnack,
			missing: []string{"餐后时长"},
		},
		{
			name:    "colloquial before keywords",
			now:     afternoon,
			text:    "没吃早饭那会测的 6.3",
			value:   6.3,
			ctx:     domain.ContextFasting,
			meal:    domain.MealBreakfast,
			missing: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.now)
			u := f.user(t, Targets{})

			res, err := f.logging.LogGlucose(context.Background(), u.ID, tt.text, nil)
			if err != nil {
				t.Fatalf("LogGlucose: %v", err)
			}
			if !res.Success || res.RecordID == nil {
				t.Fatalf("result = %+v", res)
			}
			if res.Context != tt.ctx {
				t.Errorf("context = %v, want %v", res.Context, tt.ctx)
			}
			if !slices.Equal(res.MissingInfo, tt.missing) {
				t.Errorf("missing = %v, want %v", res.MissingInfo, tt.missing)
			}
			if tt.contains != "" && !strings.Contains(res.Message, tt.contains) {
				t.Errorf("message %q should contain %q", res.Message, tt.contains)
			}

			stored, err := f.store.Readings.LatestReading(context.Background(), u.ID)
			if err != nil || stored == nil {
				t.Fatalf("LatestReading: %v, %v", stored, err)
			}
			if diff := stored.Value - tt.value; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("stored value = %v, want %v", stored.Value, tt.value)
			}
			if stored.Unit != domain.UnitMmolL {
				t.Errorf("stored unit = %v", stored.Unit)
			}
			if stored.MealType == nil || *stored.MealType != tt.meal {
				t.Errorf("meal type = %v, want %v", stored.MealType, tt.meal)
			}
		})
	}
}

func TestLogGlucose_ClockUsesLocation(t *testing.T) {
	f := newFixture(t, afternoon)
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 02:00 UTC is 10:00 in Shanghai.
	early := time.Date(2025, 6, 18, 2, 0, 0, 0, time.UTC)
	svc := NewLoggingService(f.store.Users, f.store.Readings, f.store.Journal, shanghai, logger.Discard()).
		WithClock(func() time.Time { return early })
	u := f.user(t, Targets{})

	res, err := svc.LogGlucose(context.Background(), u.ID, "血糖6.1", nil)
	if err != nil {
		t.Fatalf("LogGlucose: %v", err)
	}
	if res.Context != domain.ContextRandom {
		t.Errorf("context = %v, want random at 10:00 local", res.Context)
	}
}

func TestLogGlucose_Overrides(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})
	at := afternoon.Add(-2 * time.Hour)

	res, err := f.logging.LogGlucose(context.Background(), u.ID, "测了 7.4", &GlucoseOverrides{
		Timestamp:      &at,
		Context:        domain.ContextPostMeal,
		MealType:       domain.MealLunch,
		HoursAfterMeal: ptr(2.0),
	})
	if err != nil {
		t.Fatalf("LogGlucose: %v", err)
	}
	if len(res.MissingInfo) != 0 {
		t.Errorf("missing = %v", res.MissingInfo)
	}
	stored, _ := f.store.Readings.LatestReading(context.Background(), u.ID)
	if !stored.Timestamp.Equal(at) || *stored.MealType != domain.MealLunch || *stored.HoursAfterMeal != 2 {
		t.Errorf("stored = %+v", stored)
	}
}

func TestLogGlucose_PersistenceFailure(t *testing.T) {
	f := newFixture(t, afternoon)
	svc := NewLoggingService(f.store.Users, failingReadings{f.store.Readings}, f.store.Journal, time.UTC, logger.Discard())
	u := f.user(t, Targets{})

	_, err := svc.LogGlucose(context.Background(), u.ID, "血糖5.5", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if apperrors.TypeOf(err) != apperrors.ErrorTypeDatabase {
		t.Errorf("error type = %v", apperrors.TypeOf(err))
	}
	if apperrors.UserMessage(err) != apperrors.GenericUserMessage {
		t.Errorf("user message = %q", apperrors.UserMessage(err))
	}
}

func TestLogging_UnknownUserWritesNothing(t *testing.T) {
	f := newFixture(t, afternoon)
	ctx := context.Background()

	calls := []struct {
		name string
		run  func() (*LogResult, error)
	}{
		{"glucose", func() (*LogResult, error) { return f.logging.LogGlucose(ctx, 999, "血糖5.5", nil) }},
		{"meal", func() (*LogResult, error) { return f.logging.LogMeal(ctx, 999, "吃了一碗面", nil) }},
		{"exercise", func() (*LogResult, error) { return f.logging.LogExercise(ctx, 999, "跑步30分钟") }},
		{"medication", func() (*LogResult, error) { return f.logging.LogMedication(ctx, 999, "吃药 500mg") }},
	}
	for _, c := range calls {
		t.Run(c.name, func(t *testing.T) {
			res, err := c.run()
			if !errors.Is(err, apperrors.ErrUserNotFound) {
				t.Fatalf("err = %v, want ErrUserNotFound", err)
			}
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
		})
	}

	var readings int64
	f.store.GetDB().Model(&domain.GlucoseReading{}).Count(&readings)
	if readings != 0 {
		t.Errorf("stored %d readings without an owner", readings)
	}
}

func TestLogResult_Err(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})

	res, err := f.logging.LogGlucose(context.Background(), u.ID, "今天感觉还行", nil)
	if err != nil {
		t.Fatalf("LogGlucose: %v", err)
	}
	extractErr := res.Err()
	if apperrors.TypeOf(extractErr) != apperrors.ErrorTypeExtraction {
		t.Fatalf("type = %v, want extraction", apperrors.TypeOf(extractErr))
	}
	if apperrors.UserMessage(extractErr) != res.Message {
		t.Errorf("user message = %q, want clarification %q", apperrors.UserMessage(extractErr), res.Message)
	}

	res, err = f.logging.LogGlucose(context.Background(), u.ID, "血糖5.5", nil)
	if err != nil {
		t.Fatalf("LogGlucose: %v", err)
	}
	if res.Err() != nil {
		t.Errorf("stored reading reported %v", res.Err())
	}
}

type stubEstimator struct {
	est   *MealEstimate
	calls int
}

func (s *stubEstimator) EstimateMeal(context.Context, string) (*MealEstimate, error) {
	s.calls++
	return s.est, nil
}

func TestLogMeal(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})
	ctx := context.Background()

	res, err := f.logging.LogMeal(ctx, u.ID, "午饭吃了一碗面", nil)
	if err != nil {
		t.Fatalf("LogMeal: %v", err)
	}
	if res.Message != "已为您记录饮食：午饭吃了一碗面。如需更准确的分析，请补充份量信息。" {
		t.Errorf("message = %q", res.Message)
	}
	if !slices.Equal(res.MissingInfo, []string{"份量"}) {
		t.Errorf("missing = %v", res.MissingInfo)
	}

	later := afternoon.Add(time.Minute)
	res, err = f.logging.LogMeal(ctx, u.ID, "晚餐 面包", &MealOverrides{Timestamp: &later, PortionSize: ptr("两片")})
	if err != nil {
		t.Fatalf("LogMeal: %v", err)
	}
	if len(res.MissingInfo) != 0 || res.Message != "已为您记录饮食：晚餐 面包" {
		t.Errorf("result = %+v", res)
	}

	meals, err := f.store.Journal.MealsBetween(ctx, u.ID, afternoon.Add(-time.Hour), afternoon.Add(time.Hour))
	if err != nil || len(meals) != 2 {
		t.Fatalf("meals = %v, %v", meals, err)
	}
	if meals[0].MealType != domain.MealLunch || *meals[0].EstimatedCarbs != 50 {
		t.Errorf("noodle meal = %+v", meals[0])
	}
	if meals[1].MealType != domain.MealDinner || *meals[1].EstimatedGI != 70 || *meals[1].EstimatedGL != 21 {
		t.Errorf("bread meal = %+v", meals[1])
	}
}

func TestLogMeal_EstimatorFallback(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})
	est := &stubEstimator{est: &MealEstimate{Carbs: 20, GI: 50}}
	f.logging.WithMealEstimator(est)

	if _, err := f.logging.LogMeal(context.Background(), u.ID, "吃了一碗面", nil); err != nil {
		t.Fatal(err)
	}
	if est.calls != 0 {
		t.Error("known staples should not call the estimator")
	}

	if _, err := f.logging.LogMeal(context.Background(), u.ID, "吃了一份沙拉", nil); err != nil {
		t.Fatal(err)
	}
	if est.calls != 1 {
		t.Errorf("estimator calls = %d", est.calls)
	}
	meals, _ := f.store.Journal.MealsBetween(context.Background(), u.ID, afternoon.Add(-time.Hour), afternoon.Add(time.Hour))
	for _, m := range meals {
		if m.Description != "吃了一份沙拉" {
			continue
		}
		if m.EstimatedGL == nil || *m.EstimatedGL != 10 {
			t.Errorf("salad estimate = %+v", m)
		}
	}
}

func TestLogExerciseAndMedication(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})
	ctx := context.Background()

	res, err := f.logging.LogExercise(ctx, u.ID, "晚饭后跑步30分钟")
	if err != nil {
		t.Fatalf("LogExercise: %v", err)
	}
	if res.Message != "已记录运动：跑步" {
		t.Errorf("message = %q", res.Message)
	}
	exercises, _ := f.store.Journal.ExercisesBetween(ctx, u.ID, afternoon.Add(-time.Hour), afternoon.Add(time.Hour))
	if len(exercises) != 1 || *exercises[0].DurationMinutes != 30 || exercises[0].Intensity != "moderate" {
		t.Errorf("exercises = %+v", exercises)
	}

	res, err = f.logging.LogMedication(ctx, u.ID, "吃药 二甲双胍 500mg")
	if err != nil {
		t.Fatalf("LogMedication: %v", err)
	}
	if res.Message != "已记录用药：吃药 二甲双胍 500mg" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestLogging_History(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})
	ctx := context.Background()

	for i, v := range []float64{5.5, 6.5, 7.5} {
		r := &domain.GlucoseReading{UserID: u.ID, Value: v, Unit: domain.UnitMmolL, Context: domain.ContextRandom, Timestamp: afternoon.Add(time.Duration(i-3) * time.Hour)}
		if err := f.store.Readings.CreateReading(ctx, r); err != nil {
			t.Fatalf("CreateReading: %v", err)
		}
	}

	got, err := f.logging.History(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 3 || got[0].Value != 7.5 {
		t.Errorf("history = %+v, want newest first", got)
	}

	if _, err := f.logging.History(ctx, u.ID, 10000); apperrors.TypeOf(err) != apperrors.ErrorTypeValidation {
		t.Errorf("oversized limit = %v, want validation error", err)
	}
	if _, err := f.logging.History(ctx, 999, 10); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("unknown user = %v, want ErrUserNotFound", err)
	}
}
