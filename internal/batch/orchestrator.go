// Package batch fetches and derives banded series for bounded batches of
// instruments with a fixed worker pool, partial-failure tolerance, and
// order-preserving aggregation.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"KabuScope/internal/bands"
	"KabuScope/internal/catalog"
	"KabuScope/internal/model"
	"KabuScope/internal/quote"
	"KabuScope/internal/resample"
)

const (
	// DefaultWorkers is the fetch concurrency budget, independent of batch size.
	DefaultWorkers = 6
	// DefaultTimeout bounds one whole batch.
	DefaultTimeout = 45 * time.Second
)

// Orchestrator resolves each instrument through the cache, resamples the
// raw bars to the requested granularity, and attaches VWAP bands.
type Orchestrator struct {
	fetcher quote.Fetcher
	cache   *quote.Cache
	catalog *catalog.Catalog // may be nil; display names are then left empty
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an orchestrator. Zero workers or timeout select the defaults.
func New(fetcher quote.Fetcher, cache *quote.Cache, cat *catalog.Catalog, workers int, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher: fetcher,
		cache:   cache,
		catalog: cat,
		workers: workers,
		timeout: timeout,
		logger:  logger,
	}
}

// FetchBatch fetches up to model.MaxBatchSize instruments and returns one
// result per input code, in input order. One instrument's failure is
// recorded on its own result and never aborts the batch. Instruments
// still outstanding when the batch deadline elapses are reported with
// model.ErrTimeout; completed results are retained.
//
// An empty batch returns an empty slice. A batch larger than the cap, an
// unsupported interval, or an invalid window fail fast before any fetch.
func (o *Orchestrator) FetchBatch(ctx context.Context, codes []string, period model.Period, interval model.Interval, window int) ([]model.BatchResult, error) {
	if len(codes) == 0 {
		return []model.BatchResult{}, nil
	}
	if len(codes) > model.MaxBatchSize {
		return nil, fmt.Errorf("batch of %d: %w", len(codes), model.ErrBatchTooLarge)
	}
	if !interval.Supported() {
		return nil, model.ErrUnsupportedInterval
	}
	if window == 0 {
		window = bands.DefaultWindow
	}
	if window < 1 {
		return nil, model.ErrInvalidWindow
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	results := make([]model.BatchResult, len(codes))
	jobs := make(chan int)

	workers := o.workers
	if workers > len(codes) {
		workers = len(codes)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.fetchOne(ctx, codes[i], period, interval, window)
			}
		}()
	}
	for i := range codes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, nil
}

// fetchOne runs the full pipeline for a single instrument. The fetch is
// the only blocking step; resampling and banding are pure computations
// run on the worker goroutine.
func (o *Orchestrator) fetchOne(ctx context.Context, code string, period model.Period, interval model.Interval, window int) model.BatchResult {
	res := model.BatchResult{Code: code}
	if o.catalog != nil {
		if ins, err := o.catalog.Lookup(code); err == nil {
			res.Name = ins.Name
		}
		// Unknown codes are fetched anyway: watchlists may reference
		// instruments no longer in the registry.
	}

	if err := ctx.Err(); err != nil {
		res.Err = classify(code, err)
		return res
	}

	symbol := catalog.Canonicalize(code)
	raw, err := o.cache.GetOrFetch(ctx, symbol, period, interval, o.fetcher.FetchBars)
	if err != nil {
		res.Err = classify(code, err)
		o.logger.Warn("fetch failed", "code", code, "err", err)
		return res
	}
	if raw.Empty() {
		res.Err = &model.FetchError{Symbol: symbol, Err: errors.New("no bars returned")}
		return res
	}

	series, err := resample.Resample(raw, interval)
	if err != nil {
		res.Err = err
		return res
	}
	banded, err := bands.Attach(series, window)
	if err != nil {
		res.Err = err
		return res
	}
	res.Series = &banded
	return res
}

// classify maps deadline expiry onto the per-instrument timeout error and
// wraps anything else that is not already a fetch error.
func classify(code string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", code, model.ErrTimeout)
	}
	var fe *model.FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &model.FetchError{Symbol: code, Err: err}
}
