package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Caooin/DigiGlucose-Insight/internal/bot/keyboards"
	"github.com/Caooin/DigiGlucose-Insight/internal/bot/menus"
	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

const unknownCallbackText = "未知操作，请重新选择。"

// CallbackHandler handles callback query messages
type CallbackHandler struct {
	api  Sender
	deps Dependencies
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(api Sender, deps Dependencies) *CallbackHandler {
	return &CallbackHandler{api: api, deps: deps}
}

// Handle processes a callback query
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery, user *domain.User) error {
	// Answer the callback query first
	if _, err := h.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		return err
	}
	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID

	switch query.Data {
	case keyboards.ActionWeeklyReport:
		return sendWeeklyReport(ctx, h.api, h.deps, chatID, user)
	case keyboards.ActionLogHint:
		return menus.SendWithBack(h.api, chatID, menus.LogHintText)
	case keyboards.ActionHelp:
		return menus.SendWithBack(h.api, chatID, menus.HelpText)
	case keyboards.ActionMainMenu:
		return menus.SendMainMenu(h.api, chatID)
	default:
		return sendText(h.api, chatID, unknownCallbackText)
	}
}
