package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"KabuScope/internal/batch"
	"KabuScope/internal/catalog"
	"KabuScope/internal/config"
	"KabuScope/internal/logging"
	"KabuScope/internal/model"
	"KabuScope/internal/quote"
	"KabuScope/internal/scheduler"
	"KabuScope/internal/store"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal("load config: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		fatal("config validation: " + err.Error())
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.File)
	logger.Info("KabuScope starting")

	// Registry catalog
	regFile, err := os.Open(cfg.Registry.Path)
	if err != nil {
		logger.Error("open registry", "path", cfg.Registry.Path, "err", err)
		os.Exit(1)
	}
	cat, err := catalog.Load(regFile)
	regFile.Close()
	if err != nil {
		logger.Error("load registry", "err", err)
		os.Exit(1)
	}
	logger.Info("registry loaded", "instruments", cat.Len())

	// Quote source
	var fetcher quote.Fetcher
	switch cfg.DataSource.Kind {
	case "replay":
		fetcher = quote.NewReplayFetcher(cfg.DataSource.ReplayDir)
	case "mock":
		fetcher = &quote.MockFetcher{Price: 1000}
	default:
		fetcher = quote.NewYahooFetcher(cfg.Proxy)
	}
	logger.Info("data source selected", "source", fetcher.Name())

	cache := quote.NewCache(time.Duration(cfg.Quote.TTLSeconds)*time.Second, logger)

	// Watchlist + snapshot store
	st, err := store.Open(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	orch := batch.New(fetcher, cache, cat,
		cfg.Quote.Workers, time.Duration(cfg.Quote.TimeoutSeconds)*time.Second, logger)

	period := model.Period(cfg.Quote.Period)
	interval, err := model.ParseInterval(cfg.Quote.Interval)
	if err != nil {
		logger.Error("parse interval", "err", err)
		os.Exit(1)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx, orch, st, st, period, interval, cfg.Quote.Window, logger)
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		logger.Error("register cron task", "err", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, refreshing now")
		go sched.RunRefreshNow()
	}

	logger.Info("KabuScope is running")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping")
	cancel()
	logger.Info("KabuScope stopped")
}

func fatal(msg string) {
	os.Stderr.WriteString(msg + "\n")
	os.Exit(1)
}
