package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Caooin/DigiGlucose-Insight/internal/api"
	"github.com/Caooin/DigiGlucose-Insight/internal/app"
	"github.com/Caooin/DigiGlucose-Insight/internal/bot"
	"github.com/Caooin/DigiGlucose-Insight/internal/bot/handlers"
	"github.com/Caooin/DigiGlucose-Insight/internal/config"
	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// fine in containers where env comes from the runtime
		_ = err
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}
	logger.Info("Starting DigiGlucose Insight", "db_driver", cfg.DB.Driver, "api_port", cfg.API.Port)
	logger.Debug("Configuration loaded",
		"state_backend", cfg.State.Backend,
		"timezone", cfg.Timezone.String(),
		"nats", cfg.NATS.URL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.WithFields("service", "digiglucose")
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.Fatal("Failed to initialize application", "error", err)
	}
	defer a.Close()

	var wg sync.WaitGroup

	srv := api.NewServer(cfg.API.Port, api.Deps{
		Orchestrator: a.Orchestrator,
		Logging:      a.Logging,
		Analysis:     a.Analysis,
		Reports:      a.Reports,
		Education:    a.Education,
		Support:      a.Support,
		Users:        a.Users,
		Reminders:    a.Reminders,
	}, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(ctx); err != nil {
			logger.Error("HTTP server stopped with error", "error", err)
			stop()
		}
	}()

	if cfg.TelegramToken != "" {
		telegramBot, err := bot.NewBot(cfg.TelegramToken, handlers.Dependencies{
			Users:        a.Users,
			Orchestrator: a.Orchestrator,
			Reports:      a.Reports,
			Reminders:    a.Reminders,
			Location:     cfg.Timezone,
			Logger:       log,
		})
		if err != nil {
			logger.Fatal("Failed to create bot", "error", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Bot stopped with error", "error", err)
			}
		}()
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, running without the Telegram bot")
	}

	logger.Info("Service is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info("Shutting down")
	wg.Wait()
	logger.Info("Stopped")
}
