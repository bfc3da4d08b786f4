package handlers

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/orchestrator"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
)

// Sender is the part of *tgbotapi.BotAPI the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Processor runs one conversational turn.
type Processor interface {
	Process(ctx context.Context, userID uint, sessionID, text string) (*orchestrator.Response, error)
}

type UserRegistrar interface {
	RegisterTelegramUser(ctx context.Context, telegramID int64, username string) (*domain.User, error)
}

type Reporter interface {
	GenerateWeeklyReport(ctx context.Context, userID uint) (*services.ReportResult, error)
}

// ReminderManager creates and lists a user's reminders.
type ReminderManager interface {
	CreateReminder(ctx context.Context, userID uint, in services.ReminderInput) (*domain.Reminder, error)
	ListReminders(ctx context.Context, userID uint) ([]domain.Reminder, error)
}

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	Users        UserRegistrar
	Orchestrator Processor
	Reports      Reporter
	Reminders    ReminderManager
	// Location decides which calendar day a chat session belongs to.
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

func (d Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
