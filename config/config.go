package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MemoryStore CHAT_DB_PATH qiymati: holat faqat xotirada
const MemoryStore = "memory"

// Config ilovaning konfiguratsiyasi
type Config struct {
	TelegramToken            string
	GeminiAPIKey             string
	GeminiModel              string
	GeminiTranscriptionModel string
	ResponseBuffer           time.Duration
	MaxHistory               int
	RequestTimeout           time.Duration
	ModelTimeout             time.Duration
	PTAXMaxFallbackDays      int
	ChatDBPath               string
	CurrencyCatalogPath      string
	AdminChatIDs             []int64
	MetricsAddr              string
}

// Load konfiguratsiyani yuklash
func Load() (*Config, error) {
	// .env faylini yuklash (mavjud bo'lsa)
	_ = godotenv.Load()

	config := &Config{
		TelegramToken:       strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:         "gemini-2.0-flash",
		ResponseBuffer:      2500 * time.Millisecond,
		MaxHistory:          10, // Default qiymat
		RequestTimeout:      20 * time.Second,
		ModelTimeout:        60 * time.Second,
		PTAXMaxFallbackDays: 7,
		ChatDBPath:          "data/chat.db",
		CurrencyCatalogPath: strings.TrimSpace(os.Getenv("CURRENCY_CATALOG_PATH")),
		MetricsAddr:         ":9090",
	}

	if model := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); model != "" {
		config.GeminiModel = model
	}
	config.GeminiTranscriptionModel = config.GeminiModel
	if model := strings.TrimSpace(os.Getenv("GEMINI_TRANSCRIPTION_MODEL")); model != "" {
		config.GeminiTranscriptionModel = model
	}

	if raw := strings.TrimSpace(os.Getenv("RESPONSE_BUFFER_SECONDS")); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return nil, fmt.Errorf("RESPONSE_BUFFER_SECONDS noto'g'ri formatda: %q", raw)
		}
		config.ResponseBuffer = time.Duration(seconds * float64(time.Second))
	}

	var err error
	if config.MaxHistory, err = intEnv("MAX_HISTORY", config.MaxHistory, 1); err != nil {
		return nil, err
	}
	seconds, err := intEnv("REQUEST_TIMEOUT_SECONDS", 20, 1)
	if err != nil {
		return nil, err
	}
	config.RequestTimeout = time.Duration(seconds) * time.Second

	if seconds, err = intEnv("MODEL_TIMEOUT_SECONDS", 60, 1); err != nil {
		return nil, err
	}
	config.ModelTimeout = time.Duration(seconds) * time.Second

	if config.PTAXMaxFallbackDays, err = intEnv("PTAX_MAX_FALLBACK_DAYS", config.PTAXMaxFallbackDays, 1); err != nil {
		return nil, err
	}

	if dbPath := strings.TrimSpace(os.Getenv("CHAT_DB_PATH")); dbPath != "" {
		config.ChatDBPath = dbPath
	}

	if addr, ok := os.LookupEnv("METRICS_ADDR"); ok {
		config.MetricsAddr = strings.TrimSpace(addr)
	}

	if config.AdminChatIDs, err = parseChatIDs(os.Getenv("ADMIN_CHAT_IDS")); err != nil {
		return nil, err
	}

	// Validatsiya
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable bo'sh")
	}
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable bo'sh")
	}

	return config, nil
}

// intEnv butun son; min dan kichik qiymat min ga tenglanadi
func intEnv(name string, def, min int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s noto'g'ri formatda: %v", name, err)
	}
	if v < min {
		v = min
	}
	return v, nil
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_CHAT_IDS noto'g'ri formatda: %v", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
