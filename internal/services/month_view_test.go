package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/store/memory"

	"github.com/shopspring/decimal"
)

func TestMonthViewMaterializesAndSummarizes(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	mustAdd(t, s, rent(ym(2024, 1), 1500, core.Recurring))
	mustAdd(t, s, core.Declaration{
		Year: 2024, Month: 1,
		Type:      core.Income,
		Dimension: core.Dimension{SourceID: 1},
		Amount:    decimal.NewFromInt(3000),
		Mode:      core.Recurring,
	})

	c := cache.NewLRUCache[core.YearMonth, core.MonthOverview](8, time.Minute)
	view := NewMonthView(s, NewGapFiller(s), c)

	o, err := view.Month(ctx, ym(2024, 3))
	if err != nil {
		t.Fatalf("Month failed: %v", err)
	}
	if len(o.Declarations) != 2 {
		t.Fatalf("expected 2 materialized declarations, got %d", len(o.Declarations))
	}
	if !o.IncomeTotal.Equal(decimal.NewFromInt(3000)) ||
		!o.ExpenseTotal.Equal(decimal.NewFromInt(1500)) ||
		!o.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("unexpected totals: %+v", o)
	}
	if c.Size() != 1 {
		t.Errorf("expected overview to be cached, size %d", c.Size())
	}
}

func TestMonthViewCacheAndPurge(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c := cache.NewLRUCache[core.YearMonth, core.MonthOverview](8, time.Minute)
	view := NewMonthView(s, NewGapFiller(s), c)

	first, err := view.Month(ctx, ym(2024, 5))
	if err != nil {
		t.Fatalf("Month failed: %v", err)
	}
	if len(first.Declarations) != 0 {
		t.Fatalf("expected an empty month, got %+v", first)
	}

	mustAdd(t, s, rent(ym(2024, 5), 10, core.Unique))
	cached, _ := view.Month(ctx, ym(2024, 5))
	if len(cached.Declarations) != 0 {
		t.Error("expected the cached overview before purge")
	}

	view.Purge()
	fresh, _ := view.Month(ctx, ym(2024, 5))
	if len(fresh.Declarations) != 1 {
		t.Errorf("expected the new declaration after purge, got %d", len(fresh.Declarations))
	}
}

func TestMonthViewWithoutCache(t *testing.T) {
	s := memory.New()
	view := NewMonthView(s, NewGapFiller(s), nil)
	view.Purge()

	if _, err := view.Month(context.Background(), ym(0, 1)); !errors.Is(err, core.ErrInvalidYear) {
		t.Errorf("expected invalid year, got %v", err)
	}
	if _, err := view.Month(context.Background(), ym(2024, 1)); err != nil {
		t.Errorf("Month failed: %v", err)
	}
}

func TestMonthViewSync(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	mustAdd(t, s, rent(ym(2024, 1), 100, core.Recurring))
	view := NewMonthView(s, NewGapFiller(s), cache.NewLRUCache[core.YearMonth, core.MonthOverview](8, time.Minute))

	res := view.Sync(ctx, ym(2024, 2))
	if !res.Success || res.CopiedCount != 1 {
		t.Fatalf("unexpected sync result %+v", res)
	}
	if res := view.Sync(ctx, ym(2024, 2)); res.CopiedCount != 0 {
		t.Errorf("second sync copied %d", res.CopiedCount)
	}
}
