package quote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KabuScope/internal/model"
)

func testSeries(symbol string) model.Series {
	return model.NewSeries(symbol, model.IntervalDaily, []model.Bar{
		{Time: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Open: 100, High: 105, Low: 99, Close: 102, Volume: 1000},
	})
}

func countingFetch(calls *atomic.Int32, err error) FetchFunc {
	return func(_ context.Context, symbol string, _ model.Period, _ model.Interval) (model.Series, error) {
		calls.Add(1)
		if err != nil {
			return model.Series{}, err
		}
		return testSeries(symbol), nil
	}
}

func TestCache_HitWithinTTLFetchesOnce(t *testing.T) {
	c := NewCache(300*time.Second, nil)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var calls atomic.Int32
	fetch := countingFetch(&calls, nil)
	ctx := context.Background()

	s1, err := c.GetOrFetch(ctx, "7203.T", model.Period1Year, model.IntervalDaily, fetch)
	require.NoError(t, err)
	require.False(t, s1.Empty())

	now = now.Add(299 * time.Second)
	s2, err := c.GetOrFetch(ctx, "7203.T", model.Period1Year, model.IntervalDaily, fetch)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, int32(1), calls.Load(), "second call within TTL must not fetch")

	// Third call after expiry fetches again.
	now = now.Add(2 * time.Second)
	_, err = c.GetOrFetch(ctx, "7203.T", model.Period1Year, model.IntervalDaily, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_KeyIsFullTuple(t *testing.T) {
	c := NewCache(300*time.Second, nil)
	var calls atomic.Int32
	fetch := countingFetch(&calls, nil)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, "7203.T", model.Period1Year, model.IntervalDaily, fetch)
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, "7203.T", model.Period1Year, model.IntervalWeekly, fetch)
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, "7203.T", model.Period6Month, model.IntervalDaily, fetch)
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load(), "requests differing only in period or interval are independent entries")
	assert.Equal(t, 3, c.Len())
}

func TestCache_FailuresAreNeverStored(t *testing.T) {
	c := NewCache(300*time.Second, nil)
	var calls atomic.Int32
	boom := errors.New("upstream down")
	fetch := countingFetch(&calls, boom)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, "7203.T", model.Period1Year, model.IntervalDaily, fetch)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	_, err = c.GetOrFetch(ctx, "7203.T", model.Period1Year, model.IntervalDaily, fetch)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), calls.Load(), "a failure must not poison the key")
}

func TestCache_ConcurrentMissesCollapse(t *testing.T) {
	c := NewCache(300*time.Second, nil)
	var calls atomic.Int32
	fetch := func(_ context.Context, symbol string, _ model.Period, _ model.Interval) (model.Series, error) {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond)
		return testSeries(symbol), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrFetch(context.Background(), "7203.T", model.Period1Year, model.IntervalDaily, fetch)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "simultaneous misses for one key must trigger at most one fetch")
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache(300*time.Second, nil)
	var calls atomic.Int32
	fetch := countingFetch(&calls, nil)
	ctx := context.Background()

	_, _ = c.GetOrFetch(ctx, "7203.T", model.Period1Year, model.IntervalDaily, fetch)
	_, _ = c.GetOrFetch(ctx, "7203.T", model.Period6Month, model.IntervalDaily, fetch)
	_, _ = c.GetOrFetch(ctx, "6758.T", model.Period1Year, model.IntervalDaily, fetch)
	require.Equal(t, 3, c.Len())

	c.Invalidate("7203.T")
	assert.Equal(t, 1, c.Len(), "both 7203.T entries dropped, 6758.T kept")

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}
