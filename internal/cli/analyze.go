package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze <mmol/L>",
		Short: "Assess a glucose value without storing it",
		Args:  cobra.ExactArgs(1),
		Run:   runAnalyze,
	}
	cmd.Flags().StringP("context", "c", "", "Context: fasting, post_meal, pre_meal, random")

	RootCmd.AddCommand(cmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	mctx, _ := cmd.Flags().GetString("context")

	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil || value <= 0 {
		exitErr("analyze", apperrors.NewValidationError("血糖值必须是大于0的数字"))
	}
	c := domain.MeasurementContext(mctx)
	if c != "" && !c.Valid() {
		exitErr("analyze", apperrors.NewValidationError("不支持的测量类型"))
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	analysis, err := a.Analysis.AnalyzeGlucose(cmd.Context(), userFlag, value, c, nil)
	if err != nil {
		exitErr("analyze", err)
	}
	output(analysis, analysis.Format())
}
