// Package services provides business logic and orchestration services.
//
// This file implements forward propagation of Recurring and Installment
// declarations into the months that follow them.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/store"
)

// DefaultHorizonYears is how many calendar years past the origin year a
// recurring declaration is materialized.
const DefaultHorizonYears = 2

// ErrInvalidSeriesState marks a series whose records cannot be propagated.
// It is logged, never returned to callers.
var ErrInvalidSeriesState = errors.New("invalid series state")

// Propagator forward-fills series declarations.
type Propagator struct {
	store        store.Store
	horizonYears int
}

// NewPropagator creates a propagator. A non-positive horizon falls back to
// DefaultHorizonYears.
func NewPropagator(s store.Store, horizonYears int) *Propagator {
	if horizonYears <= 0 {
		horizonYears = DefaultHorizonYears
	}
	return &Propagator{store: s, horizonYears: horizonYears}
}

// Horizon returns the last month a recurring origin in ym is propagated to.
func (p *Propagator) Horizon(ym core.YearMonth) core.YearMonth {
	return core.NewYearMonth(ym.Year+p.horizonYears, 12)
}

// Propagate dispatches on the declaration mode and returns how many
// declarations were created. Unique declarations are never propagated.
func (p *Propagator) Propagate(ctx context.Context, d core.Declaration) (int, error) {
	switch d.Mode {
	case core.Recurring:
		return p.PropagateRecurring(ctx, d)
	case core.Installment:
		return p.PropagateInstallment(ctx, d)
	default:
		return 0, nil
	}
}

// PropagateRecurring copies a Recurring origin into every following month up
// to the horizon, skipping months that already hold a declaration for the key.
func (p *Propagator) PropagateRecurring(ctx context.Context, origin core.Declaration) (int, error) {
	if origin.Mode != core.Recurring {
		return 0, nil
	}
	start := origin.YearMonth()
	last := p.Horizon(start)

	created := 0
	for ym := start.AddMonths(1); !last.Before(ym); ym = ym.AddMonths(1) {
		ok, err := p.createIfMissing(ctx, origin.At(ym))
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	slog.InfoContext(ctx, "Recurring declaration propagated",
		applog.NewFields().
			WithComponent(applog.ComponentPropagation).
			WithOperation(applog.OpPropagate).
			WithDeclaration(origin).
			ToSlice()...,
	)
	slog.DebugContext(ctx, "Recurring propagation window",
		"from", start.AddMonths(1).String(),
		"to", last.String(),
		applog.FieldCreated, created)

	return created, nil
}

// PropagateInstallment creates the installments that follow origin, one per
// month, up to InstallmentsTotal.
func (p *Propagator) PropagateInstallment(ctx context.Context, origin core.Declaration) (int, error) {
	if origin.Mode != core.Installment {
		return 0, nil
	}
	total, index := origin.InstallmentsTotal, origin.InstallmentIndex
	if total < 2 || index < 1 || index > total {
		slog.WarnContext(ctx, "Skipping installment propagation",
			applog.NewFields().
				WithComponent(applog.ComponentPropagation).
				WithDeclaration(origin).
				WithError(ErrInvalidSeriesState).
				ToSlice()...,
		)
		return 0, nil
	}

	start := origin.YearMonth()
	created := 0
	for o := 1; o <= total-index; o++ {
		next := origin.At(start.AddMonths(o))
		next.InstallmentIndex = index + o
		ok, err := p.createIfMissing(ctx, next)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	slog.InfoContext(ctx, "Installment declaration propagated",
		applog.NewFields().
			WithComponent(applog.ComponentPropagation).
			WithOperation(applog.OpPropagate).
			WithDeclaration(origin).
			ToSlice()...,
	)
	slog.DebugContext(ctx, "Installment propagation done",
		"installments_total", total,
		"installment_index", index,
		applog.FieldCreated, created)

	return created, nil
}

// createIfMissing adds d unless its slot is taken. A duplicate-key rejection
// counts as already satisfied.
func (p *Propagator) createIfMissing(ctx context.Context, d core.Declaration) (bool, error) {
	return createIfMissing(ctx, p.store, d)
}

func createIfMissing(ctx context.Context, s store.Store, d core.Declaration) (bool, error) {
	ym := d.YearMonth()
	_, err := s.GetByKey(ctx, ym, d.Key())
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, store.ErrNotFound):
		return false, fmt.Errorf("lookup %s at %s: %w", d.Key(), ym, err)
	}

	if _, err := s.Add(ctx, d); err != nil {
		if store.IsDuplicate(err) {
			return false, nil
		}
		return false, fmt.Errorf("create %s at %s: %w", d.Key(), ym, err)
	}
	return true, nil
}
