package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/cli"
	"bilancio/internal/core"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger("info", applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot.Logger)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

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

	var publisher services.EventPublisher
	amqpClient, err := backend.NewPublisher(cfg, logger.Logger)
	if err != nil {
		logger.Warn("Continuing without budget events", applog.FieldError, err)
	} else if amqpClient != nil {
		publisher = amqpClient
	}

	monthCache := cache.NewLRUCache[core.YearMonth, core.MonthOverview](cfg.MonthCacheSize, cfg.MonthCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(monthCache)
	cacheManager.StartCleanup(cfg.MonthCacheTTL)

	store := res.Backend
	view := services.NewMonthView(store, services.NewGapFiller(store), monthCache)
	budgets := services.NewBudgetService(store,
		services.NewPropagator(store, cfg.HorizonYears),
		services.NewSplitController(store),
		publisher,
		view)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Budgets:  budgets,
		Months:   view,
		Taxonomy: store,
		Ready: func(ctx context.Context) error {
			_, err := store.HasTaxonomy(ctx)
			return err
		},
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend close error", applog.FieldError, err)
		}
	})

	logger.Info("Starting bilancio server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"horizon_years", cfg.HorizonYears,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
