package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaBaseURL)
	assert.Equal(t, "llama3.2", cfg.OllamaModel)
	assert.Equal(t, 993, cfg.IMAPPort)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_POLL_INTERVAL", "5m")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
}

func TestPollStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("configured date wins", func(t *testing.T) {
		cfg := config.Config{PollStartDate: "2025-06-01"}
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), cfg.PollStart(now))
	})

	t.Run("rfc3339 accepted", func(t *testing.T) {
		cfg := config.Config{PollStartDate: "2025-06-02T08:30:00Z"}
		assert.Equal(t, time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC), cfg.PollStart(now))
	})

	t.Run("unparseable falls back to seven days", func(t *testing.T) {
		cfg := config.Config{PollStartDate: "yesterday"}
		assert.Equal(t, now.AddDate(0, 0, -7), cfg.PollStart(now))
	})

	t.Run("unset falls back to seven days", func(t *testing.T) {
		cfg := config.Config{}
		assert.Equal(t, now.AddDate(0, 0, -7), cfg.PollStart(now))
	})
}
