package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DB_DSN":        "postgres://localhost/booking",
		"SERVICE_TOKEN": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.RejectPastSlots)
	assert.Equal(t, time.UTC, cfg.DisplayLocation)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.True(t, cfg.HTTPEnabled())
	assert.False(t, cfg.BotEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"STORAGE":            "SQLite",
		"SQLITE_PATH":        "/tmp/x.db",
		"TELEGRAM_TOKEN":     "123:abc",
		"REJECT_PAST_SLOTS":  "false",
		"DISPLAY_TZ":         "Europe/Moscow",
		"SESSION_TTL":        "5m",
		"RATE_LIMIT_PER_MIN": "10",
	}))
	require.NoError(t, err)

	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.False(t, cfg.RejectPastSlots)
	assert.Equal(t, "Europe/Moscow", cfg.DisplayLocation.String())
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.RateLimitPerMin)
	assert.True(t, cfg.BotEnabled())
	assert.False(t, cfg.HTTPEnabled())
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without dsn", map[string]string{"SERVICE_TOKEN": "s"}},
		{"unknown storage", map[string]string{"STORAGE": "mongo", "SERVICE_TOKEN": "s"}},
		{"no transport", map[string]string{"STORAGE": "memory"}},
		{"bad bool", map[string]string{"STORAGE": "memory", "SERVICE_TOKEN": "s", "REJECT_PAST_SLOTS": "maybe"}},
		{"bad tz", map[string]string{"STORAGE": "memory", "SERVICE_TOKEN": "s", "DISPLAY_TZ": "Mars/Olympus"}},
		{"negative workers", map[string]string{"STORAGE": "memory", "SERVICE_TOKEN": "s", "NOTIFY_WORKERS": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_CORSOrigins(t *testing.T) {
	base := map[string]string{"STORAGE": "memory", "SERVICE_TOKEN": "secret"}

	cfg, err := FromEnv(env(base))
	require.NoError(t, err)
	assert.Empty(t, cfg.CORSOrigins)

	base["CORS_ALLOWED_ORIGINS"] = " https://app.example.com, ,http://localhost:3000 "
	cfg, err = FromEnv(env(base))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.CORSOrigins)

	for _, bad := range []string{"app.example.com", "*,https://a.example.com"} {
		base["CORS_ALLOWED_ORIGINS"] = bad
		_, err = FromEnv(env(base))
		assert.ErrorContains(t, err, "CORS_ALLOWED_ORIGINS", bad)
	}
}
