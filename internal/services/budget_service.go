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

// Event kinds published after a mutation.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventPublisher announces committed budget changes.
type EventPublisher interface {
	PublishBudgetEvent(ctx context.Context, kind string, d core.Declaration) error
}

// Invalidator drops derived month data after a mutation.
type Invalidator interface {
	Purge()
}

// EditResult reports the effect of an edit.
type EditResult struct {
	Declaration core.Declaration
	Split       SplitResult
	Propagated  int
}

// BudgetService orchestrates declaration mutations: store writes, series
// split and propagation, cache invalidation and change events.
type BudgetService struct {
	store       store.Store
	propagator  *Propagator
	splitter    *SplitController
	publisher   EventPublisher
	invalidator Invalidator
}

func NewBudgetService(s store.Store, propagator *Propagator, splitter *SplitController, publisher EventPublisher, invalidator Invalidator) *BudgetService {
	return &BudgetService{
		store:       s,
		propagator:  propagator,
		splitter:    splitter,
		publisher:   publisher,
		invalidator: invalidator,
	}
}

// Create stores d and propagates it. A taken slot is returned as
// store.ErrDuplicateKey. Propagation failures are logged, not returned.
func (s *BudgetService) Create(ctx context.Context, d core.Declaration) (core.Declaration, int, error) {
	d.ID = 0
	if err := d.Validate(); err != nil {
		return core.Declaration{}, 0, err
	}

	id, err := s.store.Add(ctx, d)
	if err != nil {
		return core.Declaration{}, 0, fmt.Errorf("save declaration: %w", err)
	}
	d.ID = id

	created := s.propagate(ctx, d)
	s.afterMutation(ctx, EventCreated, d)
	return d, created, nil
}

// Edit replaces the declaration id with updated, keeping its month. Series
// declarations are split at that month first so history keeps the old amount.
func (s *BudgetService) Edit(ctx context.Context, id int64, updated core.Declaration) (EditResult, error) {
	var res EditResult

	old, err := s.store.GetByID(ctx, id)
	if err != nil {
		return res, fmt.Errorf("load declaration %d: %w", id, err)
	}
	ref := old.YearMonth()
	updated = updated.At(ref)
	if err := updated.Validate(); err != nil {
		return res, err
	}
	if updated.Key() != old.Key() {
		if err := s.slotFree(ctx, updated); err != nil {
			return res, err
		}
	}

	if old.Mode.IsSeries() {
		res.Split, err = s.splitter.SplitAndRetract(ctx, old.Key(), ref, old.Amount)
		if err != nil {
			return res, fmt.Errorf("split series: %w", err)
		}
		newID, err := s.store.Add(ctx, updated)
		if err != nil {
			return res, fmt.Errorf("save edited declaration: %w", err)
		}
		updated.ID = newID
	} else if updated.Key() == old.Key() {
		if err := s.store.Update(ctx, id, patchFrom(updated)); err != nil {
			return res, fmt.Errorf("update declaration %d: %w", id, err)
		}
		updated.ID = id
	} else {
		newID, err := s.store.Add(ctx, updated)
		if err != nil {
			return res, fmt.Errorf("save edited declaration: %w", err)
		}
		if err := s.store.BulkDelete(ctx, []int64{id}); err != nil {
			return res, fmt.Errorf("remove replaced declaration %d: %w", id, err)
		}
		updated.ID = newID
	}

	res.Declaration = updated
	res.Propagated = s.propagate(ctx, updated)
	s.afterMutation(ctx, EventUpdated, updated)
	return res, nil
}

// slotFree fails with store.ErrDuplicateKey when d's month and key are
// already taken. Edits check this before touching the old series.
func (s *BudgetService) slotFree(ctx context.Context, d core.Declaration) error {
	_, err := s.store.GetByKey(ctx, d.YearMonth(), d.Key())
	switch {
	case err == nil:
		return fmt.Errorf("edit to %s at %s: %w", d.Key(), d.YearMonth(), store.ErrDuplicateKey)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check %s at %s: %w", d.Key(), d.YearMonth(), err)
	}
}

// Delete removes the declaration id. For a series this freezes the months
// before it and retracts it and every later month.
func (s *BudgetService) Delete(ctx context.Context, id int64) (SplitResult, error) {
	old, err := s.store.GetByID(ctx, id)
	if err != nil {
		return SplitResult{}, fmt.Errorf("load declaration %d: %w", id, err)
	}

	var res SplitResult
	if old.Mode.IsSeries() {
		res, err = s.splitter.SplitAndRetract(ctx, old.Key(), old.YearMonth(), old.Amount)
		if err != nil {
			return res, fmt.Errorf("split series: %w", err)
		}
	} else {
		if err := s.store.BulkDelete(ctx, []int64{id}); err != nil {
			return res, fmt.Errorf("delete declaration %d: %w", id, err)
		}
		res.FutureDeleted = 1
	}

	s.afterMutation(ctx, EventDeleted, old)
	return res, nil
}

// Import replaces every stored declaration with decls after validating all
// of them.
func (s *BudgetService) Import(ctx context.Context, decls []core.Declaration) error {
	for i, d := range decls {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if err := s.store.Replace(ctx, decls); err != nil {
		return fmt.Errorf("import declarations: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.Purge()
	}
	slog.InfoContext(ctx, "Declarations imported",
		applog.FieldComponent, applog.ComponentBudget,
		applog.FieldOperation, applog.OpImport,
		"count", len(decls))
	return nil
}

// Export returns every stored declaration.
func (s *BudgetService) Export(ctx context.Context) ([]core.Declaration, error) {
	return s.store.GetAll(ctx)
}

func (s *BudgetService) propagate(ctx context.Context, d core.Declaration) int {
	created, err := s.propagator.Propagate(ctx, d)
	if err != nil {
		slog.ErrorContext(ctx, "Propagation failed",
			applog.NewFields().
				WithComponent(applog.ComponentBudget).
				WithOperation(applog.OpPropagate).
				WithDeclaration(d).
				WithError(err).
				ToSlice()...,
		)
	}
	return created
}

func (s *BudgetService) afterMutation(ctx context.Context, kind string, d core.Declaration) {
	if s.invalidator != nil {
		s.invalidator.Purge()
	}
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping budget event", applog.FieldEventKind, kind)
		return
	}
	if err := s.publisher.PublishBudgetEvent(ctx, kind, d); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget event",
			applog.FieldEventKind, kind,
			applog.FieldDeclarationID, d.ID,
			applog.FieldError, err)
	}
}

func patchFrom(d core.Declaration) store.Patch {
	amount, mode := d.Amount, d.Mode
	total, index := d.InstallmentsTotal, d.InstallmentIndex
	return store.Patch{
		Amount:            &amount,
		Mode:              &mode,
		InstallmentsTotal: &total,
		InstallmentIndex:  &index,
	}
}
