package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DISPLAY_TZ must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

type Config struct {
	Environment string
	LogLevel    string

	Storage    string
	DBDSN      string
	SQLitePath string

	TelegramToken string

	HTTPAddr        string
	ServiceToken    string
	RateLimitPerMin int
	CORSOrigins     []string

	RejectPastSlots bool
	DisplayLocation *time.Location

	SessionTTL    time.Duration
	NotifyWorkers int
	NotifyQueue   int
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults and checks.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:   getenv("ENV"),
		LogLevel:      getenv("LOG_LEVEL"),
		Storage:       strings.ToLower(getenv("STORAGE")),
		DBDSN:         getenv("DB_DSN"),
		SQLitePath:    getenv("SQLITE_PATH"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
		HTTPAddr:      getenv("HTTP_ADDR"),
		ServiceToken:  getenv("SERVICE_TOKEN"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Storage == "" {
		cfg.Storage = StoragePostgres
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "slot_booking.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	var err error
	if cfg.RejectPastSlots, err = boolVar(getenv, "REJECT_PAST_SLOTS", true); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin, err = intVar(getenv, "RATE_LIMIT_PER_MIN", 120); err != nil {
		return nil, err
	}
	if cfg.NotifyWorkers, err = intVar(getenv, "NOTIFY_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.NotifyQueue, err = intVar(getenv, "NOTIFY_QUEUE", 256); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationVar(getenv, "SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	if cfg.CORSOrigins, err = originsVar(getenv, "CORS_ALLOWED_ORIGINS"); err != nil {
		return nil, err
	}

	tz := getenv("DISPLAY_TZ")
	if tz == "" {
		tz = "UTC"
	}
	if cfg.DisplayLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("DISPLAY_TZ: %w", err)
	}

	// Проверяем обязательные поля
	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageSQLite, StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE must be one of postgres, sqlite, memory, got %q", cfg.Storage)
	}
	if cfg.ServiceToken == "" && cfg.TelegramToken == "" {
		return nil, fmt.Errorf("SERVICE_TOKEN or TELEGRAM_TOKEN must be set")
	}

	return cfg, nil
}

// HTTPEnabled reports whether the HTTP API should be served.
func (c *Config) HTTPEnabled() bool {
	return c.ServiceToken != ""
}

// BotEnabled reports whether the Telegram bot should be started.
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

func boolVar(getenv func(string) string, key string, def bool) (bool, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func durationVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// originsVar reads a comma separated origin list. "*" must stand alone.
func originsVar(getenv func(string) string, key string) ([]string, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return nil, nil
	}

	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
			continue
		case o == "*":
		case strings.HasPrefix(o, "http://"), strings.HasPrefix(o, "https://"):
		default:
			return nil, fmt.Errorf("%s: origin %q must start with http:// or https://", key, o)
		}
		origins = append(origins, o)
	}
	if len(origins) > 1 && slices.Contains(origins, "*") {
		return nil, fmt.Errorf("%s: \"*\" cannot be combined with other origins", key)
	}
	return origins, nil
}
