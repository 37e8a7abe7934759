package usecase

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
	"golang.org/x/sync/errgroup"
)

const historicalFanOut = 4

// HistoricalRateResolver bounded walk-back over the historical collaborator.
type HistoricalRateResolver struct {
	repo        repository.HistoricalRateRepository
	maxAttempts int
	metrics     repository.MetricsRecorder
}

// NewHistoricalRateResolver yangi resolver yaratish
func NewHistoricalRateResolver(repo repository.HistoricalRateRepository, maxAttempts int, metrics repository.MetricsRecorder) *HistoricalRateResolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultLookbackAttempts
	}
	return &HistoricalRateResolver{repo: repo, maxAttempts: maxAttempts, metrics: metrics}
}

// Resolve returns the quote of the closest day with data on or before date.
// The quote's ValidFor is the actual day, which may differ from date.
func (r *HistoricalRateResolver) Resolve(ctx context.Context, code string, date time.Time) (entity.RateQuote, error) {
	res, err := SearchBack(ctx, date, r.maxAttempts, func(ctx context.Context, day time.Time) (*entity.RateQuote, bool, error) {
		q, err := r.repo.QuoteOn(ctx, code, day)
		if err != nil {
			return nil, false, &entity.ExternalError{Op: "historical rate " + code, Err: err}
		}
		return q, q != nil, nil
	})
	if err != nil {
		r.record("historical", err)
		return entity.RateQuote{}, err
	}
	r.record("historical", nil)

	quote := *res.Value
	quote.Code = code
	quote.ValidFor = res.Day
	quote.Provenance = entity.ProvenanceHistorical
	quote.WalkBack = res.Steps
	if quote.Base == "" {
		quote.Base = "BRL"
	}
	return quote, nil
}

// HistoricalResult per-currency outcome of a batch historical lookup.
type HistoricalResult struct {
	Requested time.Time
	Quotes    map[string]entity.RateQuote
	// Missing currencies without data inside the lookback window.
	Missing []string
	// Failed currencies whose lookup hit an external error.
	Failed []string
}

// ResolveMany resolves every code independently; one failure never aborts the others.
func (r *HistoricalRateResolver) ResolveMany(ctx context.Context, codes []string, date time.Time) HistoricalResult {
	result := HistoricalResult{Requested: dateOf(date), Quotes: make(map[string]entity.RateQuote)}
	codes = normalizeCodes(codes)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historicalFanOut)
	for _, code := range codes {
		g.Go(func() error {
			quote, err := r.Resolve(gctx, code, date)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Quotes[code] = quote
			case errors.Is(err, entity.ErrRateNotFound):
				result.Missing = append(result.Missing, code)
			default:
				log.Printf("PTAX %s uchun xatolik: %v", code, err)
				result.Failed = append(result.Failed, code)
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(result.Missing)
	sort.Strings(result.Failed)

	return result
}

func (r *HistoricalRateResolver) record(kind string, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordRateLookup(kind, lookupResult(err))
}

// RealtimeRateResolver one batched call to the live collaborator.
type RealtimeRateResolver struct {
	repo    repository.LiveRateRepository
	metrics repository.MetricsRecorder
}

// NewRealtimeRateResolver yangi resolver yaratish
func NewRealtimeRateResolver(repo repository.LiveRateRepository, metrics repository.MetricsRecorder) *RealtimeRateResolver {
	return &RealtimeRateResolver{repo: repo, metrics: metrics}
}

// ResolveMany symbols the collaborator could not quote are omitted from the map.
func (r *RealtimeRateResolver) ResolveMany(ctx context.Context, codes []string) (map[string]entity.RateQuote, error) {
	codes = normalizeCodes(codes)
	if len(codes) == 0 {
		return map[string]entity.RateQuote{}, nil
	}

	quotes, err := r.repo.LatestQuotes(ctx, codes)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordRateLookup("live", "error")
		}
		return nil, &entity.ExternalError{Op: "live rates " + strings.Join(codes, ","), Err: err}
	}

	out := make(map[string]entity.RateQuote, len(codes))
	for _, code := range codes {
		q, ok := quotes[code]
		if !ok {
			continue
		}
		q.Code = code
		q.Provenance = entity.ProvenanceLive
		if q.Base == "" {
			q.Base = "BRL"
		}
		out[code] = q
	}
	if r.metrics != nil {
		r.metrics.RecordRateLookup("live", lookupResult(nil))
	}
	return out, nil
}

func lookupResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case entity.IsExternal(err):
		return "error"
	default:
		return "not_found"
	}
}

// normalizeCodes trims, uppercases and de-duplicates keeping order.
func normalizeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
