package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "abcdef")
	t.Setenv("BOT_TOKEN", "123:token")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "https://sarathi.parivahan.gov.in", cfg.TargetBaseURL)
	assert.Equal(t, "JK", cfg.StateCode)
	assert.Equal(t, 30*time.Minute, cfg.CheckInterval)
	assert.Equal(t, 5*time.Minute, cfg.CaptchaReplyTimeout)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GeminiModel)
	assert.Equal(t, 21, cfg.PauseHour)
	assert.Equal(t, 7, cfg.ResumeHour)
	assert.True(t, cfg.QuietHours)
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "abcdef")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("SLOTBOT_ENV", "staging")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsTinyInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("CHECK_INTERVAL", "5s")

	_, err := Load()
	assert.Error(t, err)
}

func TestIsAuthorized(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTHORIZED_USERS", "7,42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsAuthorized(42))
	assert.False(t, cfg.IsAuthorized(99))

	cfg.AuthorizedUsers = nil
	assert.True(t, cfg.IsAuthorized(99))
}
