package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/store"

	"golang.org/x/sync/singleflight"
)

// SyncResult reports the outcome of a copy-forward pass.
type SyncResult struct {
	Success     bool
	CopiedCount int
	Err         error
}

// GapFiller materializes a month's series declarations on demand from the
// most recent earlier record of each series.
type GapFiller struct {
	store store.Store
	group singleflight.Group
}

func NewGapFiller(s store.Store) *GapFiller {
	return &GapFiller{store: s}
}

// CopyForwardIfMissing fills month ym. Errors are captured in the result and
// logged; they never propagate as a failure of the caller.
func (g *GapFiller) CopyForwardIfMissing(ctx context.Context, ym core.YearMonth) SyncResult {
	if err := ym.Validate(); err != nil {
		return SyncResult{Err: err}
	}

	// The flight is shared and must outlive a cancelled caller.
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := g.group.Do(ym.String(), func() (any, error) {
		return g.copyForward(flightCtx, ym), nil
	})
	res := v.(SyncResult)

	if res.Err != nil {
		slog.ErrorContext(ctx, "Copy-forward failed",
			applog.NewFields().
				WithComponent(applog.ComponentGapFill).
				WithOperation(applog.OpSync).
				WithMonth(ym).
				WithError(res.Err).
				ToSlice()...,
		)
	}
	return res
}

func (g *GapFiller) copyForward(ctx context.Context, ym core.YearMonth) SyncResult {
	all, err := g.store.GetAll(ctx)
	if err != nil {
		return SyncResult{Err: fmt.Errorf("load declarations: %w", err)}
	}

	winners := latestBefore(all, ym)

	copied := 0
	for _, w := range winners {
		next, ok := projectInto(w, ym)
		if !ok {
			continue
		}
		created, err := createIfMissing(ctx, g.store, next)
		if err != nil {
			return SyncResult{CopiedCount: copied, Err: err}
		}
		if created {
			copied++
			slog.DebugContext(ctx, "Copied declaration forward",
				applog.NewFields().
					WithComponent(applog.ComponentGapFill).
					WithDeclaration(next).
					ToSlice()...,
			)
		}
	}

	if copied > 0 {
		slog.InfoContext(ctx, "Copy-forward complete",
			applog.FieldYear, ym.Year,
			applog.FieldMonth, ym.Month,
			applog.FieldCreated, copied,
			"series", len(winners))
	}
	return SyncResult{Success: true, CopiedCount: copied}
}

// latestBefore picks, per series key, the series record with the most recent
// month strictly before ym.
func latestBefore(all []core.Declaration, ym core.YearMonth) []core.Declaration {
	best := make(map[core.SeriesKey]core.Declaration)
	var order []core.SeriesKey
	for _, d := range all {
		if !d.Mode.IsSeries() || !d.YearMonth().Before(ym) {
			continue
		}
		k := d.Key()
		cur, seen := best[k]
		if !seen {
			order = append(order, k)
		}
		if !seen || cur.YearMonth().Before(d.YearMonth()) {
			best[k] = d
		}
	}
	out := make([]core.Declaration, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// projectInto computes the declaration winner implies for ym, if any.
func projectInto(winner core.Declaration, ym core.YearMonth) (core.Declaration, bool) {
	switch winner.Mode {
	case core.Recurring:
		return winner.At(ym), true
	case core.Installment:
		total := winner.InstallmentsTotal
		if total < 2 {
			return core.Declaration{}, false
		}
		index := winner.InstallmentIndex
		if index < 1 {
			index = 1
		}
		due := index + ym.MonthsSince(winner.YearMonth())
		if due > total {
			return core.Declaration{}, false
		}
		next := winner.At(ym)
		next.InstallmentIndex = due
		return next, true
	}
	return core.Declaration{}, false
}
