package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GEMINI_API_KEY", "key")
	for _, name := range []string{
		"GEMINI_MODEL", "GEMINI_TRANSCRIPTION_MODEL", "RESPONSE_BUFFER_SECONDS", "MAX_HISTORY",
		"REQUEST_TIMEOUT_SECONDS", "MODEL_TIMEOUT_SECONDS", "PTAX_MAX_FALLBACK_DAYS",
		"CHAT_DB_PATH", "CURRENCY_CATALOG_PATH", "ADMIN_CHAT_IDS",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, cfg.GeminiModel, cfg.GeminiTranscriptionModel)
	assert.Equal(t, 2500*time.Millisecond, cfg.ResponseBuffer)
	assert.Equal(t, 10, cfg.MaxHistory)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 60*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 7, cfg.PTAXMaxFallbackDays)
	assert.Equal(t, "data/chat.db", cfg.ChatDBPath)
	assert.Empty(t, cfg.AdminChatIDs)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")
	t.Setenv("GEMINI_TRANSCRIPTION_MODEL", "gemini-1.5-flash")
	t.Setenv("RESPONSE_BUFFER_SECONDS", "0.75")
	t.Setenv("MAX_HISTORY", "4")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("PTAX_MAX_FALLBACK_DAYS", "3")
	t.Setenv("CHAT_DB_PATH", MemoryStore)
	t.Setenv("ADMIN_CHAT_IDS", " 10, 20 ,")
	t.Setenv("METRICS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.5-pro", cfg.GeminiModel)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiTranscriptionModel)
	assert.Equal(t, 750*time.Millisecond, cfg.ResponseBuffer)
	assert.Equal(t, 4, cfg.MaxHistory)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.PTAXMaxFallbackDays)
	assert.Equal(t, MemoryStore, cfg.ChatDBPath)
	assert.Equal(t, []int64{10, 20}, cfg.AdminChatIDs)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadClampsToMinimum(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_HISTORY", "0")
	t.Setenv("PTAX_MAX_FALLBACK_DAYS", "-2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxHistory)
	assert.Equal(t, 1, cfg.PTAXMaxFallbackDays)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"RESPONSE_BUFFER_SECONDS": "-1",
		"MAX_HISTORY":             "dez",
		"ADMIN_CHAT_IDS":          "10,abc",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(name, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("GEMINI_API_KEY", "")
	_, err := Load()
	assert.Error(t, err)

	setRequired(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", " ")
	_, err = Load()
	assert.Error(t, err)
}
