package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

// DefaultSnapshotCodes currencies shown by the quick quote menu.
var DefaultSnapshotCodes = []string{"USD", "EUR", "GBP"}

// ErrNoQuotes the live collaborator answered but had none of the symbols.
var ErrNoQuotes = errors.New("no quotes available")

// CurrencyUseCase valyuta konteksti bilan bog'liq business logic
type CurrencyUseCase interface {
	// BuildContext never fails: an empty string means no context for this text.
	BuildContext(ctx context.Context, text string) string

	// Snapshot joriy kurslar ro'yxati (menu uchun)
	Snapshot(ctx context.Context, codes []string) ([]string, error)
}

type currencyUseCase struct {
	detector   *CurrencyDetector
	live       *RealtimeRateResolver
	historical *HistoricalRateResolver
	assembler  *ContextAssembler
	timeout    time.Duration
	metrics    repository.MetricsRecorder
}

// NewCurrencyUseCase yangi CurrencyUseCase yaratish
func NewCurrencyUseCase(
	detector *CurrencyDetector,
	live *RealtimeRateResolver,
	historical *HistoricalRateResolver,
	assembler *ContextAssembler,
	timeout time.Duration,
	metrics repository.MetricsRecorder,
) CurrencyUseCase {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &currencyUseCase{
		detector:   detector,
		live:       live,
		historical: historical,
		assembler:  assembler,
		timeout:    timeout,
		metrics:    metrics,
	}
}

// BuildContext detect -> resolve -> assemble
func (u *currencyUseCase) BuildContext(ctx context.Context, text string) string {
	det := u.detector.Detect(text)
	if !det.HasCurrencies() {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if det.ReferenceDate != nil {
		if det.FutureDate {
			u.recordError("currency_context_future")
			return u.assembler.FutureDate(*det.ReferenceDate)
		}

		res := u.historical.ResolveMany(ctx, det.Codes, *det.ReferenceDate)
		if len(res.Quotes) == 0 {
			u.recordError("currency_context_ptax_empty")
		}
		return u.assembler.Historical(res)
	}

	quotes, err := u.live.ResolveMany(ctx, det.Codes)
	if err != nil {
		log.Printf("Kurslarni olishda xatolik: %v", err)
		u.recordError("currency_context")
		return u.assembler.LiveUnavailable()
	}
	return u.assembler.Live(det.Codes, quotes)
}

// Snapshot joriy kurslarni qatorlar ko'rinishida qaytarish
func (u *currencyUseCase) Snapshot(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		codes = DefaultSnapshotCodes
	}
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	quotes, err := u.live.ResolveMany(ctx, codes)
	if err != nil {
		u.recordError("currency_lookup")
		return nil, err
	}
	lines, _ := u.assembler.LiveLines(normalizeCodes(codes), quotes)
	if len(lines) == 0 {
		u.recordError("currency_lookup_empty")
		return nil, ErrNoQuotes
	}
	return lines, nil
}

func (u *currencyUseCase) recordError(kind string) {
	if u.metrics != nil {
		u.metrics.RecordError(kind)
	}
}
