package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

func init() {
	remindCmd := &cobra.Command{
		Use:   "remind",
		Short: "Manage reminders",
		Run:   runRemindList,
	}

	addCmd := &cobra.Command{
		Use:   "add HH:MM [title]",
		Short: "Add a reminder",
		Args:  cobra.MinimumNArgs(2),
		Run:   runRemindAdd,
	}
	addCmd.Flags().StringP("type", "t", string(domain.ReminderGlucose), "glucose_measurement, medication, diet_control or appointment")
	addCmd.Flags().StringP("repeat", "r", string(domain.RepeatDaily), "daily, weekly, monthly or once")
	addCmd.Flags().IntSlice("days", nil, "Weekdays 1-7 for weekly reminders")
	addCmd.Flags().String("date", "", "Date for one-off reminders, YYYY-MM-DD")
	addCmd.Flags().String("content", "", "Longer description")

	doneCmd := &cobra.Command{
		Use:   "done [id]",
		Short: "Mark a reminder completed",
		Args:  cobra.ExactArgs(1),
		Run:   runRemindDone,
	}
	doneCmd.Flags().Bool("undo", false, "Clear the completed mark")

	rmCmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a reminder",
		Args:  cobra.ExactArgs(1),
		Run:   runRemindRemove,
	}

	remindCmd.AddCommand(addCmd, doneCmd, rmCmd)
	RootCmd.AddCommand(remindCmd)
}

func reminderArg(arg string) uint {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		exitErr("remind", apperrors.NewValidationError("无效的提醒ID "+arg))
	}
	return uint(id)
}

func runRemindList(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	reminders, err := a.Reminders.ListReminders(cmd.Context(), userFlag)
	if err != nil {
		exitErr("list reminders", err)
	}
	lines := make([]string, 0, len(reminders))
	for i := range reminders {
		lines = append(lines, services.FormatReminder(&reminders[i]))
	}
	if len(lines) == 0 {
		lines = append(lines, "暂无提醒")
	}
	output(reminders, strings.Join(lines, "\n"))
}

func runRemindAdd(cmd *cobra.Command, args []string) {
	in := services.ReminderInput{
		ReminderTime: &args[0],
	}
	title := strings.Join(args[1:], " ")
	in.Title = &title

	kind, _ := cmd.Flags().GetString("type")
	rt := domain.ReminderType(kind)
	in.ReminderType = &rt
	repeat, _ := cmd.Flags().GetString("repeat")
	rp := domain.RepeatType(repeat)
	in.RepeatType = &rp
	if cmd.Flags().Changed("days") {
		days, _ := cmd.Flags().GetIntSlice("days")
		in.RepeatDays = &days
	}
	if cmd.Flags().Changed("date") {
		date, _ := cmd.Flags().GetString("date")
		in.ReminderDate = &date
	}
	if cmd.Flags().Changed("content") {
		content, _ := cmd.Flags().GetString("content")
		in.Content = &content
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	r, err := a.Reminders.CreateReminder(cmd.Context(), userFlag, in)
	if err != nil {
		exitErr("add reminder", err)
	}
	output(r, "已设置提醒："+services.FormatReminder(r))
}

func runRemindDone(cmd *cobra.Command, args []string) {
	id := reminderArg(args[0])
	undo, _ := cmd.Flags().GetBool("undo")
	completed := !undo

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	r, err := a.Reminders.UpdateReminder(cmd.Context(), userFlag, id, services.ReminderInput{Completed: &completed})
	if err != nil {
		exitErr("update reminder", err)
	}
	output(r, services.FormatReminder(r))
}

func runRemindRemove(cmd *cobra.Command, args []string) {
	id := reminderArg(args[0])

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	if err := a.Reminders.DeleteReminder(cmd.Context(), userFlag, id); err != nil {
		exitErr("delete reminder", err)
	}
	output(map[string]uint{"deleted": id}, "已删除提醒 #"+strconv.FormatUint(uint64(id), 10))
}
