package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
)

// Telegram rejects messages longer than 4096 characters.
const maxMessageRunes = 4000

// TextHandler routes free text into the conversation pipeline.
type TextHandler struct {
	api  Sender
	deps Dependencies
}

// NewTextHandler creates a new text handler
func NewTextHandler(api Sender, deps Dependencies) *TextHandler {
	return &TextHandler{api: api, deps: deps}
}

// SessionID scopes a chat to one session per local calendar day.
func SessionID(chatID int64, at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("tg:%d:%s", chatID, at.In(loc).Format(time.DateOnly))
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *domain.User) error {
	return h.process(ctx, message.Chat.ID, user, message.Text)
}

func (h *TextHandler) process(ctx context.Context, chatID int64, user *domain.User, text string) error {
	session := SessionID(chatID, h.deps.now(), h.deps.Location)

	resp, err := h.deps.Orchestrator.Process(ctx, user.ID, session, text)
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to process message",
			"user_id", user.ID,
			"session_id", session,
			"error", err)
		return sendText(h.api, chatID, apperrors.UserMessage(err))
	}

	h.deps.Logger.DebugContext(ctx, "Message answered",
		"user_id", user.ID,
		"intent", resp.Intent,
		"actions", resp.ActionsTaken)
	return sendText(h.api, chatID, resp.Reply)
}

// sendText sends plain text, split into several messages when too long.
func sendText(api Sender, chatID int64, text string) error {
	for _, chunk := range splitMessage(text, maxMessageRunes) {
		if _, err := api.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

// splitMessage cuts text into pieces of at most limit runes, preferring
// to break after a newline.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if i := strings.LastIndex(string(runes[:limit]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:i+1])
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
