package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

func TestGenerateWeeklyReport_NoData(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})

	res, err := f.reports.GenerateWeeklyReport(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GenerateWeeklyReport: %v", err)
	}
	if res.Success || res.ReportID != nil {
		t.Errorf("result = %+v", res)
	}
	if res.Content != "本周还没有血糖记录，请开始记录您的血糖数据。" {
		t.Errorf("content = %q", res.Content)
	}
	stored, _ := f.store.Reports.ListReports(context.Background(), u.ID, 0)
	if len(stored) != 0 {
		t.Errorf("stored = %d, want 0", len(stored))
	}
}

func TestGenerateWeeklyReport_PersistsEveryCall(t *testing.T) {
	f := newFixture(t, afternoon)
	u := f.user(t, Targets{})
	ctx := context.Background()

	monday := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	for i, v := range []float64{5.0, 6.0, 7.0} {
		r := &domain.GlucoseReading{
			UserID:    u.ID,
			Value:     v,
			Unit:      domain.UnitMmolL,
			Timestamp: monday.Add(time.Duration(i*24+8) * time.Hour),
			Context:   domain.ContextFasting,
		}
		if err := f.store.Readings.CreateReading(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	// Last week's reading stays out of the report.
	old := &domain.GlucoseReading{UserID: u.ID, Value: 15, Unit: domain.UnitMmolL, Timestamp: monday.Add(-time.Hour), Context: domain.ContextRandom}
	if err := f.store.Readings.CreateReading(ctx, old); err != nil {
		t.Fatal(err)
	}
	if _, err := f.logging.LogExercise(ctx, u.ID, "走路40分钟"); err != nil {
		t.Fatal(err)
	}

	res, err := f.reports.GenerateWeeklyReport(ctx, u.ID)
	if err != nil {
		t.Fatalf("GenerateWeeklyReport: %v", err)
	}
	if !res.Success || res.ReportID == nil || res.TotalMeasurements != 3 {
		t.Fatalf("result = %+v", res)
	}
	if *res.AverageGlucose != 6.0 || *res.FastingAverage != 6.0 || res.PostMealAverage != nil {
		t.Errorf("averages = %v/%v/%v", *res.AverageGlucose, *res.FastingAverage, res.PostMealAverage)
	}
	if *res.TargetComplianceRate != 100 {
		t.Errorf("compliance = %v", *res.TargetComplianceRate)
	}
	if !res.WeekStart.Equal(monday) {
		t.Errorf("week start = %v", res.WeekStart)
	}
	for _, want := range []string{"• 总测量次数：3次", "本周进行了1次运动，继续保持", "【运动记录】本周共记录1次运动"} {
		if !strings.Contains(res.Content, want) {
			t.Errorf("content missing %q:\n%s", want, res.Content)
		}
	}

	if _, err := f.reports.GenerateWeeklyReport(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	stored, err := f.reports.ListReports(ctx, u.ID, 0)
	if err != nil || len(stored) != 2 {
		t.Fatalf("stored = %d, %v; want 2", len(stored), err)
	}
	patterns, _ := domain.DecodeList(stored[0].Patterns)
	if len(patterns) == 0 {
		t.Error("patterns should be stored")
	}
}
