package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

const photoWithoutCaptionText = "暂不支持识别图片内容，请在图片说明里用文字描述，例如\"午餐吃了米饭和鱼\"。"

// PhotoHandler handles photo messages. Only the caption is used.
type PhotoHandler struct {
	api  Sender
	text *TextHandler
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(api Sender, text *TextHandler) *PhotoHandler {
	return &PhotoHandler{api: api, text: text}
}

// Handle processes a photo message
func (h *PhotoHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *domain.User) error {
	caption := strings.TrimSpace(message.Caption)
	if caption == "" {
		return sendText(h.api, message.Chat.ID, photoWithoutCaptionText)
	}
	return h.text.process(ctx, message.Chat.ID, user, caption)
}
