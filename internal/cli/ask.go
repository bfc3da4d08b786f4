package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a diabetes education question",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	}
	askCmd.Flags().Bool("personal", false, "Add advice based on your latest reading")

	supportCmd := &cobra.Command{
		Use:   "support [text]",
		Short: "Get an empathetic response for how you feel",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSupport,
	}

	RootCmd.AddCommand(askCmd, supportCmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	personal, _ := cmd.Flags().GetBool("personal")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	var userID *uint
	if personal {
		userID = &userFlag
	}
	ans := a.Education.AnswerQuestion(cmd.Context(), argText(args), userID)

	parts := []string{ans.Answer}
	for _, s := range []string{ans.RelatedInfo, ans.Personalized} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	output(ans, strings.Join(parts, "\n\n"))
}

func runSupport(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	res := a.Support.ProvideSupport(argText(args))
	parts := []string{res.Empathy, res.Encouragement}
	if len(res.NextSteps) > 0 {
		parts = append(parts, "建议：\n• "+strings.Join(res.NextSteps, "\n• "))
	}
	output(res, strings.Join(parts, "\n\n"))
}
