package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Caooin/DigiGlucose-Insight/internal/config"
)

func main() {
	fmt.Println("🔍 检查配置...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  未找到 .env 文件: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ 配置加载失败:\n%v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ 配置校验失败:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ 配置有效!")
	fmt.Printf("📋 配置详情:\n")
	fmt.Printf("  - Telegram Token: %s\n", maskToken(cfg.TelegramToken))
	fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.GeminiAPIKey))
	fmt.Printf("  - OpenAI API Key: %s\n", maskToken(cfg.OpenAIAPIKey))
	fmt.Printf("  - Smooth Replies: %v\n", cfg.SmoothReplies)
	fmt.Printf("  - Timezone: %s\n", cfg.Timezone)
	fmt.Printf("  - DB Driver: %s\n", cfg.DB.Driver)
	if cfg.DB.Driver == "sqlite" {
		fmt.Printf("  - SQLite Path: %s\n", cfg.DB.SQLitePath)
	} else {
		fmt.Printf("  - DB Host: %s:%s\n", cfg.DB.Host, cfg.DB.Port)
		fmt.Printf("  - DB User: %s\n", cfg.DB.User)
		fmt.Printf("  - DB Name: %s\n", cfg.DB.DBName)
	}
	fmt.Printf("  - State Backend: %s\n", cfg.State.Backend)
	if cfg.State.Backend == "redis" {
		fmt.Printf("  - Redis: %s (db %d, ttl %s)\n", cfg.Redis.Addr(), cfg.Redis.DB, cfg.Redis.StateTTL)
	}
	if cfg.NATS.URL != "" {
		fmt.Printf("  - NATS: %s -> %s\n", cfg.NATS.URL, cfg.NATS.AlertSubject)
	} else {
		fmt.Printf("  - NATS: <未配置，危急提醒仅写日志>\n")
	}
	fmt.Printf("  - API Port: %s\n", cfg.API.Port)
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<未设置>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
