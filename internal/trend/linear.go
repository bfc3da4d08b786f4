package trend

import (
	"fmt"
	"math"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

// Default limits for flagging outliers in a series, mmol/L.
const (
	seriesFastingMax  = 7.0
	seriesPostMealMax = 10.0
	seriesFloor       = 3.9

	// NoData is the Series.Trend value for an empty window.
	NoData = "no_data"

	flatSlope      = 0.01
	notableChange  = 0.1
	anomalyReason  = "超出目标范围"
	noDataSentence = "暂无数据"
)

// Anomaly is a point outside the user's target band.
type Anomaly struct {
	Index  int       `json:"index"`
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	Reason string    `json:"reason"`
}

// Chart holds the plotted series and its fitted line.
type Chart struct {
	Dates     []time.Time `json:"dates"`
	Values    []float64   `json:"values"`
	TrendLine []float64   `json:"trend_line"`
	Anomalies []Anomaly   `json:"anomalies"`
}

// Stats summarises a series. StdDev is the sample deviation.
type Stats struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	StdDev  float64 `json:"std_dev"`
}

// Series is a least-squares trend over a window of readings.
type Series struct {
	Trend          string                `json:"trend"`
	Direction      domain.TrendDirection `json:"trend_direction"`
	Text           string                `json:"trend_text,omitempty"`
	Slope          float64               `json:"slope"`
	AverageChange  float64               `json:"average_change"`
	Interpretation string                `json:"interpretation"`
	Chart          Chart                 `json:"chart_data"`
	Stats          *Stats                `json:"stats,omitempty"`
}

// Fit regresses values on their position in readings, which must be in
// timestamp order. days only feeds the interpretation sentence.
func Fit(readings []domain.GlucoseReading, profile *domain.User, days int) Series {
	s := Series{
		Chart: Chart{
			Dates:     []time.Time{},
			Values:    []float64{},
			TrendLine: []float64{},
			Anomalies: []Anomaly{},
		},
	}
	if len(readings) == 0 {
		s.Trend = NoData
		s.Direction = domain.TrendStable
		s.Interpretation = noDataSentence
		return s
	}

	n := len(readings)
	values := make([]float64, n)
	for i, r := range readings {
		values[i] = r.Value
		s.Chart.Dates = append(s.Chart.Dates, r.Timestamp)
	}
	s.Chart.Values = values

	xMean := float64(n-1) / 2
	yMean := mean(values)
	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den != 0 {
		s.Slope = num / den
	}
	intercept := yMean - s.Slope*xMean
	for i := range values {
		s.Chart.TrendLine = append(s.Chart.TrendLine, s.Slope*float64(i)+intercept)
	}

	s.Chart.Anomalies = anomalies(readings, profile)

	switch {
	case math.Abs(s.Slope) < flatSlope:
		s.Direction, s.Text = domain.TrendStable, "平稳"
	case s.Slope > 0:
		s.Direction, s.Text = domain.TrendUp, "上升"
	default:
		s.Direction, s.Text = domain.TrendDown, "下降"
	}
	s.Trend = string(s.Direction)

	var change float64
	if n >= 2 {
		change = mean(values[n/2:]) - mean(values[:n/2])
	}
	s.AverageChange = round2(change)

	s.Interpretation = fmt.Sprintf("近%d天血糖数据呈%s趋势", days, s.Text)
	if math.Abs(change) > notableChange {
		s.Interpretation += fmt.Sprintf("，平均变化%.2f mmol/L", math.Abs(change))
	}
	if k := len(s.Chart.Anomalies); k > 0 {
		s.Interpretation += fmt.Sprintf("，发现%d个异常值", k)
	}

	s.Stats = &Stats{
		Average: round2(yMean),
		Max:     values[0],
		Min:     values[0],
		StdDev:  round2(sampleStdDev(values, yMean)),
	}
	for _, v := range values[1:] {
		s.Stats.Max = math.Max(s.Stats.Max, v)
		s.Stats.Min = math.Min(s.Stats.Min, v)
	}
	return s
}

func anomalies(readings []domain.GlucoseReading, profile *domain.User) []Anomaly {
	fastingMax, postMealMax, floor := seriesFastingMax, seriesPostMealMax, seriesFloor
	if profile != nil {
		fastingMax = orDefault(profile.FastingTargetMax, fastingMax)
		postMealMax = orDefault(profile.PostMealTargetMax, postMealMax)
		floor = orDefault(profile.FastingTargetMin, floor)
	}

	out := []Anomaly{}
	for i, r := range readings {
		var flagged bool
		switch {
		case r.Context == domain.ContextFasting && r.Value > fastingMax:
			flagged = true
		case r.Context == domain.ContextPostMeal && r.Value > postMealMax:
			flagged = true
		case r.Value < floor:
			flagged = true
		}
		if flagged {
			out = append(out, Anomaly{Index: i, Date: r.Timestamp, Value: r.Value, Reason: anomalyReason})
		}
	}
	return out
}

func orDefault(v *float64, def float64) float64 {
	if v == nil || *v == 0 {
		return def
	}
	return *v
}

func sampleStdDev(values []float64, avg float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - avg) * (v - avg)
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
