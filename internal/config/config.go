package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Telegram TelegramConfig
	Database DatabaseConfig
	HTTP     HTTPConfig
	S3       S3Config

	AssetsDir     string
	SweepInterval time.Duration
}

type TelegramConfig struct {
	BotToken string
	AdminID  int64

	PublicChannelUsername string
	PrivateChannelLink    string
	// 0 — приватный канал не задан, удаление из канала пропускается
	PrivateChannelID int64
}

type DatabaseConfig struct {
	Driver      string
	URL         string
	File        string
	AutoMigrate bool
}

type HTTPConfig struct {
	Port       string
	AdminToken string
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Telegram: TelegramConfig{
			BotToken:              os.Getenv("BOT_TOKEN"),
			PublicChannelUsername: getEnv("PUBLIC_CHANNEL_USERNAME", "ForexNews"),
			PrivateChannelLink:    strings.TrimSpace(getEnv("PRIVATE_CHANNEL_LINK", "https://t.me/ForexNews24hours")),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite3"),
			URL:    os.Getenv("DATABASE_URL"),
			File:   getEnv("DB_FILE", "subscriptions.db"),
		},
		HTTP: HTTPConfig{
			Port:       getEnv("PORT", "8080"),
			AdminToken: os.Getenv("ADMIN_API_TOKEN"),
		},
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    os.Getenv("S3_REGION"),
		},
		AssetsDir: getEnv("ASSETS_DIR", "assets"),
	}

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is missing in environment variables")
	}

	adminRaw := os.Getenv("ADMIN_ID")
	if adminRaw == "" {
		return nil, fmt.Errorf("ADMIN_ID is missing in environment variables")
	}
	adminID, err := strconv.ParseInt(adminRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_ID must be numeric: %w", err)
	}
	cfg.Telegram.AdminID = adminID

	if raw := os.Getenv("PRIVATE_CHANNEL_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("PRIVATE_CHANNEL_ID must be numeric: %w", err)
		}
		cfg.Telegram.PrivateChannelID = id
	}

	if cfg.Database.Driver == "postgres" && cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.Database.AutoMigrate, err = strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("DB_AUTO_MIGRATE: %w", err)
	}

	cfg.SweepInterval, err = time.ParseDuration(getEnv("SWEEP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
