package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

func init() {
	logCmd := &cobra.Command{
		Use:   "log [text]",
		Short: "Record a glucose reading and analyze it",
		Args:  cobra.MinimumNArgs(1),
		Run:   runLog,
	}
	logCmd.Flags().String("unit", "", "Unit: mmol/L or mg/dL")
	logCmd.Flags().StringP("context", "c", "", "Context: fasting, post_meal, pre_meal, random")
	logCmd.Flags().String("meal", "", "Meal: breakfast, lunch, dinner, snack")
	logCmd.Flags().Float64("hours", 0, "Hours after meal")
	logCmd.Flags().Bool("no-analyze", false, "Only store the reading")

	mealCmd := &cobra.Command{
		Use:   "meal [text]",
		Short: "Record a meal",
		Args:  cobra.MinimumNArgs(1),
		Run:   runMeal,
	}
	mealCmd.Flags().String("meal", "", "Meal: breakfast, lunch, dinner, snack")
	mealCmd.Flags().String("portion", "", "Portion size")

	RootCmd.AddCommand(logCmd, mealCmd)
}

type logOutput struct {
	Reading  *services.LogResult `json:"reading"`
	Analysis *services.Analysis  `json:"analysis,omitempty"`
}

func runLog(cmd *cobra.Command, args []string) {
	unit, _ := cmd.Flags().GetString("unit")
	mctx, _ := cmd.Flags().GetString("context")
	meal, _ := cmd.Flags().GetString("meal")
	noAnalyze, _ := cmd.Flags().GetBool("no-analyze")

	o := &services.GlucoseOverrides{
		Unit:     domain.Unit(unit),
		Context:  domain.MeasurementContext(mctx),
		MealType: domain.MealType(meal),
	}
	if o.Unit != "" && !o.Unit.Valid() {
		exitErr("log", apperrors.NewValidationError(fmt.Sprintf("不支持的单位 %q", unit)))
	}
	if o.Context != "" && !o.Context.Valid() {
		exitErr("log", apperrors.NewValidationError(fmt.Sprintf("不支持的测量类型 %q", mctx)))
	}
	if cmd.Flags().Changed("hours") {
		hours, _ := cmd.Flags().GetFloat64("hours")
		o.HoursAfterMeal = &hours
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	res, err := a.Logging.LogGlucose(cmd.Context(), userFlag, argText(args), o)
	if err != nil {
		exitErr("log", err)
	}
	if err := res.Err(); err != nil {
		exitErr("log", err)
	}
	out := logOutput{Reading: res}
	parts := []string{res.Message}

	if !noAnalyze {
		analysis, err := a.Analysis.AnalyzeGlucose(cmd.Context(), userFlag, *res.Value, res.Context, res.RecordID)
		if err != nil {
			exitErr("analyze", err)
		}
		out.Analysis = analysis
		parts = append(parts, analysis.Format())
	}
	output(out, strings.Join(parts, "\n\n"))
}

func runMeal(cmd *cobra.Command, args []string) {
	meal, _ := cmd.Flags().GetString("meal")

	o := &services.MealOverrides{MealType: domain.MealType(meal)}
	if cmd.Flags().Changed("portion") {
		portion, _ := cmd.Flags().GetString("portion")
		o.PortionSize = &portion
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	res, err := a.Logging.LogMeal(cmd.Context(), userFlag, argText(args), o)
	if err != nil {
		exitErr("meal", err)
	}
	output(res, res.Message)
}
