package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/wingsum93/dropit-fetcher/internal/config"
	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"github.com/wingsum93/dropit-fetcher/internal/logger"
	"github.com/wingsum93/dropit-fetcher/internal/ratelimit"
	"github.com/wingsum93/dropit-fetcher/internal/service"
	"github.com/wingsum93/dropit-fetcher/internal/source/freshop"
	"github.com/wingsum93/dropit-fetcher/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "dropit-fetch",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	deptWorkers := flag.Int("dept-workers", 0, "Department listing concurrency (0 = from config)")
	detailWorkers := flag.Int("detail-workers", 0, "Detail fetch concurrency (0 = from config)")
	resume := flag.Bool("resume", true, "Only re-visit unfinished department jobs when picking up a run")
	dryRun := flag.Bool("dry-run", false, "Fetch without writing catalog data")
	since := flag.String("since", "", "Only list items modified at or after this RFC3339 time")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	opts := domain.FetchOptions{
		DeptConcurrency:   cfg.Fetch.DeptConcurrency,
		DetailConcurrency: cfg.Fetch.DetailConcurrency,
		Resume:            *resume,
		DryRun:            *dryRun || cfg.Fetch.DryRun,
	}
	if *deptWorkers > 0 {
		opts.DeptConcurrency = *deptWorkers
	}
	if *detailWorkers > 0 {
		opts.DetailConcurrency = *detailWorkers
	}
	if *since != "" {
		t, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			appLogger.WithError(err).Fatal("Invalid -since value")
		}
		opts.Since = &t
	}

	// Initialize storage
	store, err := storage.New(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	defer store.Close()

	// Build the rate-limit aware transport chain
	transport, err := buildTransport(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build transport")
	}

	client := freshop.NewClient(&cfg.Grocery, transport, appLogger)

	fetchService := service.NewFetchService(store, client, appLogger, &service.FetchServiceConfig{
		StoreID:           cfg.Grocery.StoreID,
		BufferSize:        cfg.Fetch.BufferSize,
		ResumeAllStatuses: cfg.Fetch.ResumeAllStatuses,
	})

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	runID := uuid.New().String()
	ctx = logger.SetRunID(ctx, runID)

	report, err := fetchService.Run(ctx, opts)
	if err != nil {
		appLogger.WithFields(logger.Fields{
			"run_id":      runID,
			"departments": report.Departments,
			"items":       report.Items,
			"details":     report.Details,
			"failed":      report.Failed,
		}).WithError(err).Fatal("Fetch run failed")
	}

	appLogger.WithFields(logger.Fields{
		"run_id":      runID,
		"departments": report.Departments,
		"items":       report.Items,
		"details":     report.Details,
		"failed":      report.Failed,
		"duration_ms": report.DurationMs,
	}).Info("Fetch run completed")
}

// buildTransport chains the backoff transport over the default HTTP
// transport, with the serialized throttle stacked on top when configured.
func buildTransport(cfg *config.Config, log *logger.Logger) (http.RoundTripper, error) {
	rlCfg := &ratelimit.Config{
		MaxRetries:        cfg.RateLimit.MaxRetries,
		BaseDelay:         time.Duration(cfg.RateLimit.BaseDelayMs) * time.Millisecond,
		MaxDelay:          time.Duration(cfg.RateLimit.MaxDelayMs) * time.Millisecond,
		JitterRatio:       cfg.RateLimit.JitterRatio,
		RespectRetryAfter: cfg.RateLimit.RespectRetryAfter,
		BackoffMultiplier: cfg.RateLimit.BackoffMultiplier,
		StatusCodes:       cfg.RateLimit.StatusCodes,
	}
	transport, err := ratelimit.NewTransport(rlCfg, http.DefaultTransport)
	if err != nil {
		return nil, err
	}

	if cfg.Fetch.Pacing == string(domain.PacingSerialized) {
		interval := time.Duration(cfg.Fetch.ThrottleIntervalMs) * time.Millisecond
		if interval <= 0 {
			interval = ratelimit.DefaultThrottleInterval
		}
		log.WithField("interval", interval.String()).Info("Serialized pacing enabled")
		return ratelimit.NewThrottle(interval, transport), nil
	}
	return transport, nil
}
