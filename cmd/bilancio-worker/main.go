package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bilancio/internal/backend"
	"bilancio/internal/cli"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger("info", applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(boot.Logger)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend selected, the worker will not see the server's data")
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	exporter, err := backend.NewExporter(context.Background(), cfg, res.Backend, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err)
		os.Exit(1)
	}

	consumer, err := backend.NewPublisher(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	// The server's month cache is in another process, so this view reads
	// the store directly.
	view := services.NewMonthView(res.Backend, services.NewGapFiller(res.Backend), nil)
	w := worker.NewBudgetWorker(view, exporter)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		if consumer != nil {
			_ = consumer.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend close error", applog.FieldError, err)
		}
	})

	logger.Info("Starting bilancio worker",
		"sync_interval", cfg.SyncInterval.String(),
		"amqp_enabled", consumer != nil,
		"sheets_enabled", exporter != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, cfg.SyncInterval)
	})
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeBudgetEvents(gctx, w.HandleBudgetEvent)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
