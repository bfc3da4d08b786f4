package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	SmoothReplies bool
	Timezone      *time.Location
	DB            DBConfig
	State         StateConfig
	Redis         RedisConfig
	NATS          NATSConfig
	API           APIConfig
	Logger        LoggerConfig
}

type DBConfig struct {
	Driver     string // "postgres" or "sqlite"
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// StateConfig selects where per-session conversation state lives.
type StateConfig struct {
	Backend string // "db", "redis" or "memory"
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	StateTTL time.Duration
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type NATSConfig struct {
	URL          string
	Token        string
	AlertSubject string
}

type APIConfig struct {
	Port string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func Load() (*Config, error) {
	loc, err := time.LoadLocation(getEnvOrDefault("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		SmoothReplies: getEnvBool("SMOOTH_REPLIES", false),
		Timezone:      loc,
		DB: DBConfig{
			Driver:     strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
			Host:       getEnvOrDefault("DB_HOST", "localhost"),
			Port:       getEnvOrDefault("DB_PORT", "5432"),
			User:       getEnvOrDefault("DB_USER", "postgres"),
			Password:   getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:     getEnvOrDefault("DB_NAME", "digiglucose"),
			SQLitePath: getEnvOrDefault("SQLITE_PATH", "data/digiglucose.db"),
		},
		State: StateConfig{
			Backend: strings.ToLower(getEnvOrDefault("STATE_BACKEND", "db")),
		},
		Redis: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			StateTTL: getEnvDuration("REDIS_STATE_TTL", 24*time.Hour),
		},
		NATS: NATSConfig{
			URL:          os.Getenv("NATS_URL"),
			Token:        os.Getenv("NATS_TOKEN"),
			AlertSubject: getEnvOrDefault("NATS_ALERT_SUBJECT", "glucose.alert.critical"),
		},
		API: APIConfig{
			Port: getEnvOrDefault("API_PORT", "8080"),
		},
		Logger: LoggerConfig{
			Level:      logger.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}, nil
}

// Validate reports every setting that is missing or inconsistent.
func (c *Config) Validate() error {
	var problems []string

	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.DBName == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for postgres")
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.DB.Driver))
	}

	switch c.State.Backend {
	case "db", "redis", "memory":
	default:
		problems = append(problems, fmt.Sprintf("unsupported STATE_BACKEND %q", c.State.Backend))
	}

	if c.SmoothReplies && c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		problems = append(problems, "SMOOTH_REPLIES needs GEMINI_API_KEY or OPENAI_API_KEY")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
