package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

func TestSearchBackFindsStartDay(t *testing.T) {
	res, err := SearchBack(context.Background(), day(2024, time.June, 3), 7,
		func(ctx context.Context, d time.Time) (string, bool, error) {
			return d.Format("2006-01-02"), true, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, "2024-06-03", res.Value)
}

func TestSearchBackBoundedAttempts(t *testing.T) {
	var probed []time.Time
	_, err := SearchBack(context.Background(), day(2024, time.June, 10), DefaultLookbackAttempts,
		func(ctx context.Context, d time.Time) (int, bool, error) {
			probed = append(probed, d)
			return 0, false, nil
		})

	assert.ErrorIs(t, err, entity.ErrRateNotFound)
	require.Len(t, probed, DefaultLookbackAttempts)
	assert.True(t, probed[0].Equal(day(2024, time.June, 10)))
	assert.True(t, probed[6].Equal(day(2024, time.June, 4)))
}

func TestSearchBackAbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := SearchBack(context.Background(), day(2024, time.June, 10), 7,
		func(ctx context.Context, d time.Time) (int, bool, error) {
			calls++
			return 0, false, boom
		})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestSearchBackHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SearchBack(ctx, day(2024, time.June, 10), 7,
		func(ctx context.Context, d time.Time) (int, bool, error) {
			t.Fatal("probe must not run on a cancelled context")
			return 0, false, nil
		})
	assert.ErrorIs(t, err, context.Canceled)
}
