package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Caooin/DigiGlucose-Insight/internal/bot/menus"
	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

const (
	unknownCommandText = "未知命令，请使用 /help 查看可用命令。"
	remindUsageText    = "用法：/remind HH:MM 提醒内容，例如 /remind 07:00 空腹测血糖"
	noRemindersText    = "您还没有设置提醒。使用 /remind HH:MM 内容 添加一个吧。"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	api  Sender
	deps Dependencies
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(api Sender, deps Dependencies) *CommandHandler {
	return &CommandHandler{api: api, deps: deps}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *domain.User) error {
	h.deps.Logger.InfoContext(ctx, "Handling command", "command", message.Command(), "user_id", user.ID)

	switch message.Command() {
	case "start":
		return menus.SendMainMenu(h.api, message.Chat.ID)
	case "help":
		return menus.SendWithBack(h.api, message.Chat.ID, menus.HelpText)
	case "report":
		return sendWeeklyReport(ctx, h.api, h.deps, message.Chat.ID, user)
	case "reminders":
		return h.listReminders(ctx, message.Chat.ID, user)
	case "remind":
		return h.addReminder(ctx, message.Chat.ID, user, message.CommandArguments())
	default:
		return sendText(h.api, message.Chat.ID, unknownCommandText)
	}
}

// sendWeeklyReport generates a report directly, bypassing intent detection.
func sendWeeklyReport(ctx context.Context, api Sender, deps Dependencies, chatID int64, user *domain.User) error {
	res, err := deps.Reports.GenerateWeeklyReport(ctx, user.ID)
	if err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to generate weekly report", "user_id", user.ID, "error", err)
		return sendText(api, chatID, apperrors.UserMessage(err))
	}
	return sendText(api, chatID, res.Content)
}

func (h *CommandHandler) listReminders(ctx context.Context, chatID int64, user *domain.User) error {
	reminders, err := h.deps.Reminders.ListReminders(ctx, user.ID)
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to list reminders", "user_id", user.ID, "error", err)
		return sendText(h.api, chatID, apperrors.UserMessage(err))
	}
	if len(reminders) == 0 {
		return sendText(h.api, chatID, noRemindersText)
	}
	lines := make([]string, 0, len(reminders)+1)
	lines = append(lines, "您的提醒：")
	for i := range reminders {
		lines = append(lines, services.FormatReminder(&reminders[i]))
	}
	return sendText(h.api, chatID, strings.Join(lines, "\n"))
}

// addReminder creates a daily glucose reminder from "HH:MM title".
func (h *CommandHandler) addReminder(ctx context.Context, chatID int64, user *domain.User, args string) error {
	clock, title, _ := strings.Cut(strings.TrimSpace(args), " ")
	title = strings.TrimSpace(title)
	if clock == "" || title == "" {
		return sendText(h.api, chatID, remindUsageText)
	}

	kind := domain.ReminderGlucose
	reminder, err := h.deps.Reminders.CreateReminder(ctx, user.ID, services.ReminderInput{
		ReminderType: &kind,
		Title:        &title,
		ReminderTime: &clock,
	})
	if err != nil {
		h.deps.Logger.WarnContext(ctx, "Reminder not created", "user_id", user.ID, "error", err)
		return sendText(h.api, chatID, apperrors.UserMessage(err))
	}
	return sendText(h.api, chatID, "已设置提醒："+services.FormatReminder(reminder))
}
