package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

func init() {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user profiles",
	}

	createCmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		Run:   runUserCreate,
	}
	addTargetFlags(createCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the profile selected by --user",
		Run:   runUserShow,
	}

	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "Update personal glucose targets",
		Run:   runUserTargets,
	}
	addTargetFlags(targetsCmd)

	userCmd.AddCommand(createCmd, showCmd, targetsCmd)
	RootCmd.AddCommand(userCmd)
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("fasting-min", 0, "Fasting target minimum (mmol/L)")
	cmd.Flags().Float64("fasting-max", 0, "Fasting target maximum (mmol/L)")
	cmd.Flags().Float64("post-meal-max", 0, "Post-meal target maximum (mmol/L)")
}

// targetsFromFlags only sets the targets whose flags were given.
func targetsFromFlags(cmd *cobra.Command) services.Targets {
	get := func(name string) *float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetFloat64(name)
		return &v
	}
	return services.Targets{
		FastingMin:  get("fasting-min"),
		FastingMax:  get("fasting-max"),
		PostMealMax: get("post-meal-max"),
	}
}

func formatUser(u *domain.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", u.ID, u.Username)
	if u.FastingTargetMin != nil || u.FastingTargetMax != nil {
		b.WriteString("\n空腹目标: ")
		b.WriteString(formatBound(u.FastingTargetMin))
		b.WriteString(" - ")
		b.WriteString(formatBound(u.FastingTargetMax))
	}
	if u.PostMealTargetMax != nil {
		fmt.Fprintf(&b, "\n餐后目标: < %.1f", *u.PostMealTargetMax)
	}
	return b.String()
}

func formatBound(v *float64) string {
	if v == nil {
		return "默认"
	}
	return fmt.Sprintf("%.1f", *v)
}

func runUserCreate(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	u, err := a.Users.RegisterUser(cmd.Context(), args[0], targetsFromFlags(cmd))
	if err != nil {
		exitErr("create user", err)
	}
	output(u, formatUser(u))
}

func runUserShow(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	u, err := a.Users.GetProfile(cmd.Context(), userFlag)
	if err != nil {
		exitErr("show user", err)
	}
	output(u, formatUser(u))
}

func runUserTargets(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	u, err := a.Users.UpdateTargets(cmd.Context(), userFlag, targetsFromFlags(cmd))
	if err != nil {
		exitErr("update targets", err)
	}
	output(u, formatUser(u))
}
