package keyboards

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data sent by the menu buttons.
const (
	ActionWeeklyReport = "weekly_report"
	ActionLogHint      = "log_hint"
	ActionHelp         = "help"
	ActionMainMenu     = "main_menu"
)

// MainMenu creates the main menu keyboard
func MainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🩸 如何记录血糖", ActionLogHint),
			tgbotapi.NewInlineKeyboardButtonData("📊 本周周报", ActionWeeklyReport),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ 使用帮助", ActionHelp),
		),
	)
}

// BackMenu has a single button returning to the main menu.
func BackMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ 主菜单", ActionMainMenu),
		),
	)
}
