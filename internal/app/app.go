// Package app wires storage, services and the conversation pipeline from
// configuration. Both the server and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Caooin/DigiGlucose-Insight/internal/config"
	"github.com/Caooin/DigiGlucose-Insight/internal/database"
	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/notify"
	"github.com/Caooin/DigiGlucose-Insight/internal/orchestrator"
	"github.com/Caooin/DigiGlucose-Insight/internal/repository"
	"github.com/Caooin/DigiGlucose-Insight/internal/services"
	"github.com/Caooin/DigiGlucose-Insight/internal/state"
)

// App holds the wired backends and services for one process.
type App struct {
	Config        *config.Config
	Store         *repository.Store
	Conversations domain.ConversationStore
	Notifier      domain.AlertNotifier
	AI            *services.AIService

	Logging      *services.LoggingService
	Analysis     *services.AnalysisService
	Reports      *services.ReportService
	Education    *services.EducationService
	Support      *services.SupportService
	Users        *services.UserService
	Reminders    *services.ReminderService
	Orchestrator *orchestrator.Orchestrator

	logger  *slog.Logger
	closers []func() error
}

// New connects every backend named in cfg. On error, anything already
// opened is closed again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("Services initialized",
		"state_backend", cfg.State.Backend,
		"nats", cfg.NATS.URL != "",
		"ai", a.AI != nil,
		"smooth_replies", cfg.SmoothReplies)
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.Config, a.logger

	db, err := database.NewDB(cfg.DB, logger)
	if err != nil {
		return err
	}
	a.Store = repository.New(db)
	a.closers = append(a.closers, a.Store.Close)

	if err := a.initConversations(); err != nil {
		return err
	}
	if err := a.initNotifier(); err != nil {
		return err
	}
	if err := a.initAI(ctx); err != nil {
		return err
	}

	a.Logging = services.NewLoggingService(a.Store.Users, a.Store.Readings, a.Store.Journal, cfg.Timezone, logger)
	if a.AI != nil {
		a.Logging.WithMealEstimator(a.AI)
	}
	a.Analysis = services.NewAnalysisService(a.Store.Users, a.Store.Readings, a.Store.Analyses, a.Notifier, logger)
	a.Reports = services.NewReportService(a.Store.Users, a.Store.Readings, a.Store.Journal, a.Store.Reports, logger)
	a.Support = services.NewSupportService(nil)
	a.Users = services.NewUserService(a.Store.Users)
	a.Reminders = services.NewReminderService(a.Store.Users, a.Store.Reminders, logger)
	a.Education, err = services.NewEducationService(a.Store.Users, a.Store.Readings, logger)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	a.Orchestrator = orchestrator.New(a.Conversations, a.Store.Readings, orchestrator.Services{
		Logging:   a.Logging,
		Analysis:  a.Analysis,
		Reports:   a.Reports,
		Education: a.Education,
		Support:   a.Support,
	}, logger)
	if cfg.SmoothReplies && a.AI != nil {
		a.Orchestrator.WithSmoother(a.AI)
	}
	return nil
}

func (a *App) initConversations() error {
	switch a.Config.State.Backend {
	case "redis":
		rs, err := state.NewRedisStore(a.Config.Redis)
		if err != nil {
			return err
		}
		a.Conversations = rs
		a.closers = append(a.closers, rs.Close)
	case "memory":
		a.Conversations = state.NewMemoryStore()
	default:
		a.Conversations = a.Store.Conversations
	}
	return nil
}

func (a *App) initNotifier() error {
	if a.Config.NATS.URL == "" {
		a.Notifier = notify.NewLogNotifier(a.logger)
		return nil
	}
	n, err := notify.NewNATSNotifier(a.Config.NATS.URL, a.Config.NATS.Token, a.Config.NATS.AlertSubject, a.logger)
	if err != nil {
		return err
	}
	a.Notifier = n
	a.closers = append(a.closers, func() error {
		n.Close()
		return nil
	})
	return nil
}

func (a *App) initAI(ctx context.Context) error {
	if a.Config.GeminiAPIKey == "" && a.Config.OpenAIAPIKey == "" {
		return nil
	}
	ai, err := services.NewAIService(ctx, a.Config.GeminiAPIKey, a.Config.OpenAIAPIKey, a.logger)
	if err != nil {
		return err
	}
	a.AI = ai
	a.closers = append(a.closers, ai.Close)
	return nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
