package usecase

import (
	"context"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

// DefaultLookbackAttempts ceiling for the backward trading-day search.
const DefaultLookbackAttempts = 7

// SearchProbe reports found=false for a day without data; an error aborts the search.
type SearchProbe[T any] func(ctx context.Context, day time.Time) (T, bool, error)

// SearchResult a successful backward search.
type SearchResult[T any] struct {
	Value T
	Day   time.Time
	// Steps days walked back from the start, 0 when the start day had data.
	Steps int
}

// SearchBack probes start, start-1d, ... for at most maxAttempts days.
// The candidate sequence only depends on start and maxAttempts.
func SearchBack[T any](ctx context.Context, start time.Time, maxAttempts int, probe SearchProbe[T]) (SearchResult[T], error) {
	var zero SearchResult[T]
	day := dateOf(start)

	for step := 0; step < maxAttempts; step++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, found, err := probe(ctx, day)
		if err != nil {
			return zero, err
		}
		if found {
			return SearchResult[T]{Value: value, Day: day, Steps: step}, nil
		}
		day = day.AddDate(0, 0, -1)
	}

	return zero, entity.ErrRateNotFound
}
