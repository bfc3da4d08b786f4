// Package cli implements the glucosectl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Caooin/DigiGlucose-Insight/internal/app"
	"github.com/Caooin/DigiGlucose-Insight/internal/config"
	apperrors "github.com/Caooin/DigiGlucose-Insight/internal/errors"
	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
)

var (
	dbPath     string
	formatFlag string
	userFlag   uint
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "glucosectl",
	Short: "Glucose logging and analysis from the terminal",
	Long:  "Log readings, ask questions and build weekly reports against the same storage the bot uses.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides DB_DRIVER and SQLITE_PATH)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
	RootCmd.PersistentFlags().UintVarP(&userFlag, "user", "u", 1, "User ID")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write logs to stderr")
}

// loadConfig reads .env and the environment, then applies flag overrides.
// State stays in memory so one-shot commands do not leave sessions behind.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DB.Driver = "sqlite"
		cfg.DB.SQLitePath = dbPath
	}
	if cfg.State.Backend == "db" {
		cfg.State.Backend = "memory"
	}
	cfg.SmoothReplies = false
	cfg.Logger = config.LoggerConfig{Level: logger.LevelWarn, OutputPath: "stderr", Format: "text"}
	if verbose {
		cfg.Logger.Level = logger.LevelDebug
	}
	return cfg, cfg.Validate()
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

func argText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// output writes v as JSON when --format=json, otherwise the text rendering.
func output(v any, text string) {
	if formatFlag == "json" {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Println(text)
}

func exitErr(msg string, err error) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeExtraction, apperrors.ErrorTypeNotFound:
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", msg, apperrors.UserMessage(err))
	default:
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	}
	os.Exit(1)
}
