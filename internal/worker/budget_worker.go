// Package worker materializes and exports budget months in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/sheets"
)

// ExportError reports a month that was materialized but not exported.
type ExportError struct {
	Month core.YearMonth
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Month, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// BudgetWorker reacts to budget events and keeps the current month
// materialized. Exporting is skipped when no exporter is configured.
type BudgetWorker struct {
	view     *services.MonthView
	exporter sheets.MonthExporter
	now      func() time.Time
}

func NewBudgetWorker(view *services.MonthView, exporter sheets.MonthExporter) *BudgetWorker {
	return &BudgetWorker{view: view, exporter: exporter, now: time.Now}
}

// HandleBudgetEvent refreshes the event month and the current month. A
// store error makes the message go back to the queue. Export failures are
// only logged, the next Tick exports the current month again.
func (w *BudgetWorker) HandleBudgetEvent(ctx context.Context, msg *amqp.BudgetEventMessage) error {
	slog.InfoContext(ctx, "Processing budget event",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldEventKind, msg.Kind,
		applog.FieldDeclarationID, msg.DeclarationID,
		applog.FieldYear, msg.Year,
		applog.FieldMonth, msg.Month)

	months := []core.YearMonth{msg.YearMonth()}
	if cur := w.currentMonth(); cur != months[0] {
		months = append(months, cur)
	}
	for _, ym := range months {
		err := w.refresh(ctx, ym)
		var exportErr *ExportError
		switch {
		case errors.As(err, &exportErr):
			slog.WarnContext(ctx, "Export failed, leaving it to the periodic sync",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldYear, ym.Year,
				applog.FieldMonth, ym.Month,
				applog.FieldError, exportErr.Err)
		case err != nil:
			return err
		}
	}
	return nil
}

// Tick refreshes the current month.
func (w *BudgetWorker) Tick(ctx context.Context) error {
	return w.refresh(ctx, w.currentMonth())
}

// Run calls Tick every interval until ctx is done. Tick failures are logged.
func (w *BudgetWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.Tick(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sync failed", applog.FieldComponent, applog.ComponentWorker, applog.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed",
					applog.FieldComponent, applog.ComponentWorker,
					applog.FieldError, err)
			}
		}
	}
}

func (w *BudgetWorker) refresh(ctx context.Context, ym core.YearMonth) error {
	res := w.view.Sync(ctx, ym)
	if res.Err != nil {
		return fmt.Errorf("sync %s: %w", ym, res.Err)
	}

	o, err := w.view.Month(ctx, ym)
	if err != nil {
		return fmt.Errorf("load %s: %w", ym, err)
	}
	if w.exporter == nil {
		slog.DebugContext(ctx, "No exporter configured, skipping export",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldYear, ym.Year,
			applog.FieldMonth, ym.Month)
		return nil
	}

	ref, err := w.exporter.ExportMonth(ctx, o)
	if err != nil {
		return &ExportError{Month: ym, Err: err}
	}
	slog.InfoContext(ctx, "Month refreshed",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldYear, ym.Year,
		applog.FieldMonth, ym.Month,
		applog.FieldCreated, res.CopiedCount,
		applog.FieldSheetsRef, ref)
	return nil
}

func (w *BudgetWorker) currentMonth() core.YearMonth {
	t := w.now()
	return core.NewYearMonth(t.Year(), int(t.Month()))
}
