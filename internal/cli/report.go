package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build this week's report",
		Run:   runReport,
	}
	cmd.Flags().BoolP("list", "l", false, "List stored reports instead")
	cmd.Flags().Int("limit", 10, "Max reports to list")

	RootCmd.AddCommand(cmd)
}

func runReport(cmd *cobra.Command, args []string) {
	list, _ := cmd.Flags().GetBool("list")
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	if list {
		reports, err := a.Reports.ListReports(cmd.Context(), userFlag, limit)
		if err != nil {
			exitErr("list reports", err)
		}
		var b strings.Builder
		for _, r := range reports {
			fmt.Fprintf(&b, "#%d  %s ~ %s  %d次测量", r.ID, r.WeekStart.Format("2006-01-02"), r.WeekEnd.Format("2006-01-02"), r.TotalMeasurements)
			if r.AverageGlucose != nil {
				fmt.Fprintf(&b, "  平均 %.1f mmol/L", *r.AverageGlucose)
			}
			b.WriteString("\n")
		}
		if len(reports) == 0 {
			b.WriteString("暂无报告")
		}
		output(reports, strings.TrimRight(b.String(), "\n"))
		return
	}

	res, err := a.Reports.GenerateWeeklyReport(cmd.Context(), userFlag)
	if err != nil {
		exitErr("report", err)
	}
	output(res, res.Content)
}
