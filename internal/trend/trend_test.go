package trend

import (
	"math"
	"testing"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

var now = time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

func reading(v float64, daysAgo float64, c domain.MeasurementContext) domain.GlucoseReading {
	return domain.GlucoseReading{
		Value:     v,
		Context:   c,
		Timestamp: now.Add(-time.Duration(daysAgo * float64(24*time.Hour))),
	}
}

func TestAnalyze(t *testing.T) {
	history := []domain.GlucoseReading{
		reading(6.0, 1, domain.ContextFasting),
		reading(6.0, 3, domain.ContextFasting),
		reading(12.0, 2, domain.ContextPostMeal),
		reading(20.0, 9, domain.ContextFasting), // outside 7 days
	}

	tests := []struct {
		name    string
		current float64
		ctx     domain.MeasurementContext
		want    domain.TrendDirection
	}{
		{"up", 6.7, domain.ContextFasting, domain.TrendUp},
		{"down", 5.3, domain.ContextFasting, domain.TrendDown},
		{"stable upper edge", 6.6, domain.ContextFasting, domain.TrendStable},
		{"stable lower edge", 5.4, domain.ContextFasting, domain.TrendStable},
		{"no context uses all", 8.0, "", domain.TrendStable},
		{"insufficient for context", 8.0, domain.ContextPostMeal, domain.TrendInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(history, tt.current, tt.ctx, now)
			if got.Direction != tt.want {
				t.Errorf("direction = %v, want %v (avg %v)", got.Direction, tt.want, got.Average)
			}
			if got.Message == "" {
				t.Error("message should be set")
			}
			if tt.want == domain.TrendInsufficientData {
				if got.Average != nil || got.Message != "数据不足，无法分析趋势" {
					t.Errorf("insufficient trend = %+v", got)
				}
			} else if got.Period != "7d" || got.Average == nil {
				t.Errorf("trend = %+v, want 7d period with average", got)
			}
		})
	}
}

func TestAnalyze_EmptyHistory(t *testing.T) {
	got := Analyze(nil, 5.0, domain.ContextFasting, now)
	if got.Direction != domain.TrendInsufficientData {
		t.Errorf("direction = %v", got.Direction)
	}
}

func TestCompare(t *testing.T) {
	history := []domain.GlucoseReading{
		reading(10.0, 10, domain.ContextFasting),
		reading(6.0, 20, domain.ContextFasting),
		reading(8.0, 40, domain.ContextFasting), // outside every window
	}

	got := Compare(history, domain.ContextFasting, now)
	if got.Period != "14d" {
		t.Errorf("period = %q, want 14d (7d has no data)", got.Period)
	}
	if got.Average == nil || *got.Average != 10.0 {
		t.Errorf("average = %v, want 10", got.Average)
	}
	if _, ok := got.AllPeriods["7d"]; ok {
		t.Error("7d should be absent")
	}
	if math.Abs(got.AllPeriods["30d"]-8.0) > 1e-9 {
		t.Errorf("30d = %v, want 8", got.AllPeriods["30d"])
	}

	recent := append(history, reading(5.0, 1, domain.ContextFasting))
	got = Compare(recent, domain.ContextFasting, now)
	if got.Period != "7d" || *got.Average != 5.0 {
		t.Errorf("with recent data: %+v", got)
	}

	empty := Compare(history, domain.ContextPostMeal, now)
	if empty.Period != "7d" || empty.Average != nil || len(empty.AllPeriods) != 0 {
		t.Errorf("empty comparison = %+v", empty)
	}
}
