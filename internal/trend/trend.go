// Package trend compares a new reading against the user's own history.
package trend

import (
	"fmt"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

const (
	// MinPoints is the history size needed before a direction is reported.
	MinPoints = 2
	riseRatio = 1.10
	fallRatio = 0.90
)

// Window is a trailing comparison period.
type Window struct {
	Name string
	Span time.Duration
}

// Windows are ordered narrowest first.
var Windows = []Window{
	{"7d", 7 * 24 * time.Hour},
	{"14d", 14 * 24 * time.Hour},
	{"30d", 30 * 24 * time.Hour},
}

// Trend is the direction of the current value against the 7 day average.
type Trend struct {
	Direction domain.TrendDirection `json:"direction"`
	Message   string                `json:"message"`
	Average   *float64              `json:"average,omitempty"`
	Period    string                `json:"period,omitempty"`
}

// Comparison holds the average of each trailing window that has data.
type Comparison struct {
	Period     string             `json:"period"`
	Average    *float64           `json:"average,omitempty"`
	AllPeriods map[string]float64 `json:"all_periods"`
}

// filter keeps readings at or after since and, when mctx is set, in that context.
func filter(history []domain.GlucoseReading, since time.Time, mctx domain.MeasurementContext) []float64 {
	var values []float64
	for _, r := range history {
		if r.Timestamp.Before(since) {
			continue
		}
		if mctx != "" && r.Context != mctx {
			continue
		}
		values = append(values, r.Value)
	}
	return values
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Analyze compares current with the trailing 7 day average of history.
// history may include the current reading itself.
func Analyze(history []domain.GlucoseReading, current float64, mctx domain.MeasurementContext, now time.Time) Trend {
	values := filter(history, now.Add(-Windows[0].Span), mctx)
	if len(values) < MinPoints {
		return Trend{
			Direction: domain.TrendInsufficientData,
			Message:   "数据不足，无法分析趋势",
		}
	}

	avg := mean(values)
	t := Trend{Average: &avg, Period: Windows[0].Name}
	switch {
	case current > avg*riseRatio:
		t.Direction = domain.TrendUp
		t.Message = fmt.Sprintf("较近7天平均值(%.1f mmol/L)有所上升", avg)
	case current < avg*fallRatio:
		t.Direction = domain.TrendDown
		t.Message = fmt.Sprintf("较近7天平均值(%.1f mmol/L)有所下降", avg)
	default:
		t.Direction = domain.TrendStable
		t.Message = fmt.Sprintf("与近7天平均值(%.1f mmol/L)基本一致", avg)
	}
	return t
}

// Compare averages each window. The active period is the narrowest window
// with data; with no data at all it stays "7d" with a nil average.
func Compare(history []domain.GlucoseReading, mctx domain.MeasurementContext, now time.Time) Comparison {
	c := Comparison{Period: Windows[0].Name, AllPeriods: make(map[string]float64)}
	for _, w := range Windows {
		values := filter(history, now.Add(-w.Span), mctx)
		if len(values) == 0 {
			continue
		}
		avg := mean(values)
		c.AllPeriods[w.Name] = avg
		if c.Average == nil {
			c.Period = w.Name
			c.Average = &avg
		}
	}
	return c
}

// HistorySpan is how far back callers need to load readings for Compare.
func HistorySpan() time.Duration {
	return Windows[len(Windows)-1].Span
}
