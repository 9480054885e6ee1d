package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/store"
)

// MonthView serves month overviews, materializing series declarations the
// first time a month is looked at.
type MonthView struct {
	store  store.Reader
	filler *GapFiller
	cache  cache.Cache[core.YearMonth, core.MonthOverview]
}

// NewMonthView creates a month view. c may be nil to disable caching.
func NewMonthView(s store.Reader, filler *GapFiller, c cache.Cache[core.YearMonth, core.MonthOverview]) *MonthView {
	return &MonthView{store: s, filler: filler, cache: c}
}

// Month returns the overview of ym. Gap-fill failures are logged and the
// overview is built from whatever is stored.
func (v *MonthView) Month(ctx context.Context, ym core.YearMonth) (core.MonthOverview, error) {
	if err := ym.Validate(); err != nil {
		return core.MonthOverview{}, err
	}
	if v.cache != nil {
		if o, ok := v.cache.Get(ym); ok {
			return o, nil
		}
	}

	v.filler.CopyForwardIfMissing(ctx, ym)

	decls, err := v.store.ListMonth(ctx, ym)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("list %s: %w", ym, err)
	}
	o := core.Summarize(ym, decls)
	if v.cache != nil {
		v.cache.Set(ym, o)
	}
	return o, nil
}

// Sync forces a copy-forward pass for ym and drops its cached overview.
func (v *MonthView) Sync(ctx context.Context, ym core.YearMonth) SyncResult {
	res := v.filler.CopyForwardIfMissing(ctx, ym)
	if v.cache != nil && res.CopiedCount > 0 {
		v.cache.Delete(ym)
	}
	return res
}

// Purge drops all cached overviews.
func (v *MonthView) Purge() {
	if v.cache == nil {
		return
	}
	v.cache.Purge()
	slog.Debug("Month cache purged", applog.FieldComponent, applog.ComponentCache)
}
