package repository

import (
	"context"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

// LiveRateRepository joriy kurslar manbasi
type LiveRateRepository interface {
	// LatestQuotes symbols missing upstream are simply absent from the map.
	LatestQuotes(ctx context.Context, codes []string) (map[string]entity.RateQuote, error)
}

// HistoricalRateRepository tarixiy kurslar manbasi
type HistoricalRateRepository interface {
	// QuoteOn returns nil, nil when the day has no data (weekend, holiday).
	QuoteOn(ctx context.Context, code string, day time.Time) (*entity.RateQuote, error)
}
