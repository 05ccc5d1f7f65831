package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DBDriver       string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPath         string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	GraphCacheTTL  time.Duration
	JWTSecret      string
	BotAPIKey      string
	ServerPort     string
	WebhookBaseURL string
	BotRefresh     time.Duration
	BotStateTTL    time.Duration
}

func Load() *Config {
	return &Config{
		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "surveybot"),
		DBPath:         getEnv("DB_PATH", "surveybot.db"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		GraphCacheTTL:  getEnvDuration("GRAPH_CACHE_TTL", 10*time.Minute),
		JWTSecret:      getEnv("JWT_SECRET", "super-secret-key-change-me"),
		BotAPIKey:      getEnv("BOT_API_KEY", "bot-api-key-change-me"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", ""),
		BotRefresh:     getEnvDuration("BOT_REFRESH_INTERVAL", 30*time.Second),
		BotStateTTL:    getEnvDuration("BOT_STATE_TTL", 24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
