package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yourusername/currency-relay-bot/config"
	httpdelivery "github.com/yourusername/currency-relay-bot/internal/delivery/http"
	"github.com/yourusername/currency-relay-bot/internal/delivery/telegram"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
	"github.com/yourusername/currency-relay-bot/internal/infrastructure/awesomeapi"
	"github.com/yourusername/currency-relay-bot/internal/infrastructure/gemini"
	"github.com/yourusername/currency-relay-bot/internal/infrastructure/metrics"
	"github.com/yourusername/currency-relay-bot/internal/infrastructure/parser"
	"github.com/yourusername/currency-relay-bot/internal/infrastructure/ptax"
	"github.com/yourusername/currency-relay-bot/internal/infrastructure/storage"
	"github.com/yourusername/currency-relay-bot/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Konfiguratsiyani yuklashda xatolik: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New("currency_relay", registry)

	// Chat holati
	store, err := openChatStore(cfg)
	if err != nil {
		log.Fatalf("Chat storage ochilmadi: %v", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}
	if ids, err := store.ListChatIDs(ctx); err == nil {
		log.Printf("Saqlangan chatlar: %d ta", len(ids))
	}

	// Gemini
	ai, err := gemini.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTranscriptionModel)
	if err != nil {
		log.Fatalf("Gemini client yaratilmadi: %v", err)
	}
	defer ai.Close()

	// Valyuta
	detector := usecase.NewCurrencyDetector(time.Now)
	catalogUseCase := usecase.NewCatalogUseCase(
		storage.NewMemoryCurrencyCatalogRepository(),
		parser.NewExcelParser(),
		detector,
		cfg.AdminChatIDs,
	)
	if cfg.CurrencyCatalogPath != "" {
		if count, err := catalogUseCase.LoadFile(ctx, cfg.CurrencyCatalogPath); err != nil {
			log.Printf("Katalogni yuklab bo'lmadi (%s): %v", cfg.CurrencyCatalogPath, err)
		} else {
			log.Printf("Katalog yuklandi: %d ta alias", count)
		}
	}

	currencyUseCase := usecase.NewCurrencyUseCase(
		detector,
		usecase.NewRealtimeRateResolver(awesomeapi.NewClient("", cfg.RequestTimeout), recorder),
		usecase.NewHistoricalRateResolver(ptax.NewClient("", cfg.RequestTimeout), cfg.PTAXMaxFallbackDays, recorder),
		usecase.NewContextAssembler(),
		cfg.RequestTimeout,
		recorder,
	)

	// Telegram
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Bot yaratilmadi: %v", err)
	}

	buffer := usecase.NewConversationBuffer(store, cfg.MaxHistory, cfg.ResponseBuffer)
	chatUseCase := usecase.NewChatUseCase(ai, buffer, currencyUseCase, telegram.NewSender(bot), recorder, cfg.ModelTimeout)

	handler := telegram.NewBotHandler(bot, chatUseCase, currencyUseCase, catalogUseCase, ai, recorder, cfg.RequestTimeout)

	if cfg.MetricsAddr != "" {
		ops := httpdelivery.NewServer(cfg.MetricsAddr, recorder.Handler())
		go func() {
			if err := ops.Start(ctx); err != nil {
				log.Printf("Ops server xatolik: %v", err)
			}
		}()
	}

	log.Printf("Buffer oynasi: %s, tarix: %d", cfg.ResponseBuffer, cfg.MaxHistory)
	if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Bot xatolik bilan to'xtadi: %v", err)
	}

	handler.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ModelTimeout+5*time.Second)
	defer cancel()
	if err := chatUseCase.Close(shutdownCtx); err != nil {
		log.Printf("Buffer yopilmadi: %v", err)
	}
	log.Println("Bot to'xtatildi")
}

func openChatStore(cfg *config.Config) (repository.ChatStateRepository, error) {
	if cfg.ChatDBPath == config.MemoryStore {
		return storage.NewMemoryChatRepository(cfg.MaxHistory), nil
	}
	return storage.NewSQLiteChatRepository(cfg.ChatDBPath, cfg.MaxHistory)
}
