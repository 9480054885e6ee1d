package backend

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/sheets"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/storage"
	"bilancio/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store and seeds the default taxonomy
// when asked to.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var res *BackendResult
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend",
			applog.FieldComponent, applog.ComponentBackend,
			"db_path", config.SQLiteDBPath)
		res = &BackendResult{Backend: repo, Cleanup: repo.Close}
	case MemoryBackend:
		f.logger.Info("Initialized memory backend", applog.FieldComponent, applog.ComponentBackend)
		res = &BackendResult{Backend: memory.New()}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.SeedDefaults {
		if _, err := services.NewTaxonomyInitializer(res.Backend).Run(ctx); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("failed to seed taxonomy: %w", err)
		}
	}
	return res, nil
}

// NewPublisher connects to the broker when AMQP is configured. A nil client
// and nil error mean events are disabled.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP not configured, budget events disabled", applog.FieldComponent, applog.ComponentAMQP)
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	logger.Info("Initialized AMQP client",
		applog.FieldComponent, applog.ComponentAMQP,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}

// NewExporter builds the Google Sheets exporter when a spreadsheet is
// configured. A nil exporter and nil error mean exporting is disabled.
func NewExporter(ctx context.Context, cfg *config.Config, labeler sheets.Labeler, logger *slog.Logger) (sheets.MonthExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets not configured, export disabled", applog.FieldComponent, applog.ComponentSheets)
		return nil, nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	}, labeler)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	logger.Info("Initialized Google Sheets exporter",
		applog.FieldComponent, applog.ComponentSheets,
		"spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
