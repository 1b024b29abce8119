// Package scheduler drives the periodic watchlist refresh.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"KabuScope/internal/batch"
	"KabuScope/internal/model"
	"KabuScope/internal/store"
)

// Scheduler runs cron-driven refresh passes over every stored watchlist,
// warming the quote cache and recording band snapshots.
type Scheduler struct {
	Cron         *cron.Cron
	Orchestrator *batch.Orchestrator
	Store        *store.Store
	Recorder     store.Recorder
	Period       model.Period
	Interval     model.Interval
	Window       int
	Ctx          context.Context
	Logger       *slog.Logger
}

// New creates a new Scheduler.
func New(ctx context.Context, orch *batch.Orchestrator, st *store.Store, rec store.Recorder, period model.Period, interval model.Interval, window int, logger *slog.Logger) *Scheduler {
	if rec == nil {
		rec = store.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds()),
		Orchestrator: orch,
		Store:        st,
		Recorder:     rec,
		Period:       period,
		Interval:     interval,
		Window:       window,
		Ctx:          ctx,
		Logger:       logger,
	}
}

// Register registers the refresh task under the given cron expression.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	s.Logger.Info("scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	names, err := s.Store.ListNames()
	if err != nil {
		s.Logger.Error("list watchlists", "err", err)
		return
	}
	for _, name := range names {
		if err := s.refreshWatchlist(name); err != nil {
			s.Logger.Error("refresh watchlist", "name", name, "err", err)
		}
	}
}

// refreshWatchlist fetches one watchlist's batch and records snapshots of
// the successful members. The 12-member cap is enforced here, at the
// consumption boundary, not in storage.
func (s *Scheduler) refreshWatchlist(name string) error {
	members, err := s.Store.Load(name)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	if len(members) > model.MaxBatchSize {
		s.Logger.Warn("watchlist over batch cap, truncating",
			"name", name, "members", len(members), "cap", model.MaxBatchSize)
		members = members[:model.MaxBatchSize]
	}

	results, err := s.Orchestrator.FetchBatch(s.Ctx, members, s.Period, s.Interval, s.Window)
	if err != nil {
		return fmt.Errorf("fetch batch %q: %w", name, err)
	}

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			if errors.Is(res.Err, model.ErrTimeout) {
				s.Logger.Warn("instrument timed out", "watchlist", name, "code", res.Code)
			} else {
				s.Logger.Warn("instrument unavailable", "watchlist", name, "code", res.Code, "err", res.Err)
			}
			continue
		}
		if err := s.Recorder.RecordSnapshot(res); err != nil {
			s.Logger.Error("record snapshot", "code", res.Code, "err", err)
		}
	}
	s.Logger.Info("watchlist refreshed", "name", name, "ok", len(results)-failed, "failed", failed)
	return nil
}
