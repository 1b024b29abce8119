package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KabuScope/internal/catalog"
	"KabuScope/internal/model"
	"KabuScope/internal/quote"
)

// stubFetcher delegates to a function, so each test controls failures and latency.
type stubFetcher struct {
	fn func(ctx context.Context, symbol string, period model.Period, interval model.Interval) (model.Series, error)
}

func (s *stubFetcher) Name() string { return "stub" }

func (s *stubFetcher) FetchBars(ctx context.Context, symbol string, period model.Period, interval model.Interval) (model.Series, error) {
	return s.fn(ctx, symbol, period, interval)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okSeries(symbol string) model.Series {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 30)
	for i := range bars {
		p := 100 + float64(i)
		bars[i] = model.Bar{
			Time: base.AddDate(0, 0, i),
			Open: p, High: p + 2, Low: p - 2, Close: p + 1, Volume: 1000,
		}
	}
	return model.NewSeries(symbol, model.IntervalDaily, bars)
}

func newOrchestrator(f quote.Fetcher, workers int, timeout time.Duration) *Orchestrator {
	cache := quote.NewCache(time.Minute, discard())
	return New(f, cache, nil, workers, timeout, discard())
}

func codes(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%04d", i+1)
	}
	return out
}

func TestFetchBatch_SingleFailureDoesNotAbortBatch(t *testing.T) {
	f := &stubFetcher{fn: func(_ context.Context, symbol string, _ model.Period, _ model.Interval) (model.Series, error) {
		if symbol == "0007.T" {
			return model.Series{}, &model.FetchError{Symbol: symbol, Err: errors.New("boom")}
		}
		return okSeries(symbol), nil
	}}
	o := newOrchestrator(f, 4, time.Minute)

	in := codes(12)
	results, err := o.FetchBatch(context.Background(), in, model.Period1Year, model.IntervalDaily, 20)
	require.NoError(t, err)
	require.Len(t, results, 12)

	for i, res := range results {
		assert.Equal(t, in[i], res.Code, "output order must match input order")
		if i == 6 {
			assert.Nil(t, res.Series)
			assert.Error(t, res.Err)
		} else {
			assert.NoError(t, res.Err)
			require.NotNil(t, res.Series, "code %s", res.Code)
			assert.NotEmpty(t, res.Series.Bars)
		}
	}
}

func TestFetchBatch_EmptyBatch(t *testing.T) {
	o := newOrchestrator(&stubFetcher{}, 4, time.Minute)
	results, err := o.FetchBatch(context.Background(), nil, model.Period1Year, model.IntervalDaily, 20)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFetchBatch_TooLargeFailsBeforeAnyFetch(t *testing.T) {
	var calls atomic.Int32
	f := &stubFetcher{fn: func(_ context.Context, symbol string, _ model.Period, _ model.Interval) (model.Series, error) {
		calls.Add(1)
		return okSeries(symbol), nil
	}}
	o := newOrchestrator(f, 4, time.Minute)

	_, err := o.FetchBatch(context.Background(), codes(13), model.Period1Year, model.IntervalDaily, 20)
	assert.ErrorIs(t, err, model.ErrBatchTooLarge)
	assert.Equal(t, int32(0), calls.Load(), "no I/O before the size check")
}

func TestFetchBatch_InvalidParamsFailFast(t *testing.T) {
	o := newOrchestrator(&stubFetcher{}, 4, time.Minute)

	_, err := o.FetchBatch(context.Background(), codes(2), model.Period1Year, model.IntervalUnknown, 20)
	assert.ErrorIs(t, err, model.ErrUnsupportedInterval)

	_, err = o.FetchBatch(context.Background(), codes(2), model.Period1Year, model.IntervalDaily, -1)
	assert.ErrorIs(t, err, model.ErrInvalidWindow)
}

func TestFetchBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	f := &stubFetcher{fn: func(_ context.Context, symbol string, _ model.Period, _ model.Interval) (model.Series, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return okSeries(symbol), nil
	}}
	o := newOrchestrator(f, 4, time.Minute)

	_, err := o.FetchBatch(context.Background(), codes(12), model.Period1Year, model.IntervalDaily, 20)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4), "worker budget must bound concurrent fetches")
}

func TestFetchBatch_TimeoutConvertsOutstandingFetches(t *testing.T) {
	f := &stubFetcher{fn: func(ctx context.Context, symbol string, _ model.Period, _ model.Interval) (model.Series, error) {
		if symbol == "0001.T" {
			return okSeries(symbol), nil
		}
		select {
		case <-ctx.Done():
			return model.Series{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return okSeries(symbol), nil
		}
	}}
	o := newOrchestrator(f, 4, 100*time.Millisecond)

	results, err := o.FetchBatch(context.Background(), codes(3), model.Period1Year, model.IntervalDaily, 20)
	require.NoError(t, err, "a timeout never fails the batch as a whole")
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err, "completed results are retained")
	require.NotNil(t, results[0].Series)
	for _, res := range results[1:] {
		assert.ErrorIs(t, res.Err, model.ErrTimeout)
		assert.Nil(t, res.Series)
	}
}

func TestFetchBatch_ResolvesDisplayNames(t *testing.T) {
	registry := strings.NewReader("code,name,segment,sector\n7203,Toyota Motor,Prime,Transportation Equipment\n")
	cat, err := catalog.Load(registry)
	require.NoError(t, err)

	f := &stubFetcher{fn: func(_ context.Context, symbol string, _ model.Period, _ model.Interval) (model.Series, error) {
		return okSeries(symbol), nil
	}}
	o := New(f, quote.NewCache(time.Minute, discard()), cat, 2, time.Minute, discard())

	results, err := o.FetchBatch(context.Background(), []string{"7203", "9999"}, model.Period1Year, model.IntervalDaily, 20)
	require.NoError(t, err)
	assert.Equal(t, "Toyota Motor", results[0].Name)
	assert.Empty(t, results[1].Name, "unknown codes are fetched anyway, without a display name")
	assert.NoError(t, results[1].Err)
}

func TestFetchBatch_AttachesBands(t *testing.T) {
	f := &stubFetcher{fn: func(_ context.Context, symbol string, _ model.Period, _ model.Interval) (model.Series, error) {
		return okSeries(symbol), nil
	}}
	o := newOrchestrator(f, 2, time.Minute)

	results, err := o.FetchBatch(context.Background(), []string{"7203"}, model.Period1Year, model.IntervalDaily, 5)
	require.NoError(t, err)
	require.NotNil(t, results[0].Series)

	bars := results[0].Series.Bars
	require.Len(t, bars, 30)
	assert.False(t, bars[0].HasBands)
	assert.False(t, bars[3].HasBands)
	assert.True(t, bars[4].HasBands)
	last := bars[len(bars)-1]
	assert.True(t, last.HasBands)
	assert.Greater(t, last.Upper2, last.Upper1)
	assert.Greater(t, last.Upper1, last.Lower1)
}
