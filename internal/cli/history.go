package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
	"github.com/Caooin/DigiGlucose-Insight/internal/trend"
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent glucose readings",
		Run:   runHistory,
	}
	historyCmd.Flags().Int("limit", services.DefaultHistoryLimit, "Max readings to show")

	trendCmd := &cobra.Command{
		Use:   "trend",
		Short: "Fit a trend line over recent readings",
		Run:   runTrend,
	}
	trendCmd.Flags().Int("days", services.DefaultTrendDays, "Window in days")
	trendCmd.Flags().StringP("context", "c", "", "Only readings of this context")

	RootCmd.AddCommand(historyCmd, trendCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	readings, err := a.Logging.History(cmd.Context(), userFlag, limit)
	if err != nil {
		exitErr("history", err)
	}
	output(readings, formatHistory(readings))
}

func formatHistory(readings []domain.GlucoseReading) string {
	if len(readings) == 0 {
		return "暂无血糖记录"
	}
	var b strings.Builder
	for _, r := range readings {
		fmt.Fprintf(&b, "#%d  %s  %.1f %s  %s", r.ID, r.Timestamp.Format("2006-01-02 15:04"), r.Value, r.Unit, r.Context)
		if r.RiskLevel != nil {
			fmt.Fprintf(&b, "  [%s]", *r.RiskLevel)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func runTrend(cmd *cobra.Command, args []string) {
	days, _ := cmd.Flags().GetInt("days")
	mctx, _ := cmd.Flags().GetString("context")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	series, err := a.Analysis.GlucoseTrend(cmd.Context(), userFlag, days, domain.MeasurementContext(mctx))
	if err != nil {
		exitErr("trend", err)
	}
	output(series, formatSeries(series))
}

func formatSeries(s *trend.Series) string {
	lines := []string{s.Interpretation}
	if s.Stats != nil {
		lines = append(lines, fmt.Sprintf("平均 %.2f  最高 %.1f  最低 %.1f  标准差 %.2f", s.Stats.Average, s.Stats.Max, s.Stats.Min, s.Stats.StdDev))
	}
	for _, an := range s.Chart.Anomalies {
		lines = append(lines, fmt.Sprintf("  ! %s  %.1f  %s", an.Date.Format("01-02 15:04"), an.Value, an.Reason))
	}
	return strings.Join(lines, "\n")
}
