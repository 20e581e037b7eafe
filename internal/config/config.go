package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration

	GuestSessionTTL time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	BotAPIURL     string
	BotAPITimeout time.Duration

	DeadlineSweepInterval time.Duration
	ChatRateLimit         time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		BotAPIURL: os.Getenv("BOT_API_URL"),
	}

	var err error
	cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.GuestSessionTTL, err = parseDuration(getEnv("GUEST_SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid GUEST_SESSION_TTL: %w", err)
	}
	cfg.BotAPITimeout, err = parseDuration(getEnv("BOT_API_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOT_API_TIMEOUT: %w", err)
	}
	cfg.DeadlineSweepInterval, err = parseDuration(getEnv("DEADLINE_SWEEP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEADLINE_SWEEP_INTERVAL: %w", err)
	}
	cfg.ChatRateLimit, err = parseDuration(getEnv("CHAT_RATE_LIMIT", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_RATE_LIMIT: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
