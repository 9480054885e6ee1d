package services

import (
	"context"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store"
	"bilancio/internal/store/memory"

	"github.com/shopspring/decimal"
)

func seedRecurring(t *testing.T, s *memory.Store, origin core.YearMonth, amount int64) core.Declaration {
	t.Helper()
	d := mustAdd(t, s, rent(origin, amount, core.Recurring))
	if _, err := NewPropagator(s, 0).Propagate(context.Background(), d); err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	return d
}

func TestSplitAndRetractFreezesHistory(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedRecurring(t, s, ym(2024, 1), 1000)

	res, err := NewSplitController(s).SplitAndRetract(ctx, rentKey, ym(2024, 4), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("SplitAndRetract failed: %v", err)
	}
	want := SplitResult{PastCreated: 0, PastConverted: 3, FutureDeleted: 33}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}

	months := byMonth(t, s, rentKey)
	if len(months) != 3 {
		t.Fatalf("expected 3 remaining declarations, got %d", len(months))
	}
	for _, at := range []core.YearMonth{ym(2024, 1), ym(2024, 2), ym(2024, 3)} {
		d, ok := months[at]
		if !ok {
			t.Fatalf("missing frozen declaration at %s", at)
		}
		if d.Mode != core.Unique || d.Amount.IntPart() != 1000 {
			t.Errorf("%s: got mode=%s amount=%s", at, d.Mode, d.Amount)
		}
	}
}

func TestSplitAndRetractFillsHoles(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	mustAdd(t, s, rent(ym(2024, 1), 1000, core.Recurring))
	mustAdd(t, s, rent(ym(2024, 3), 1000, core.Recurring))
	mustAdd(t, s, rent(ym(2024, 5), 1000, core.Recurring))

	res, err := NewSplitController(s).SplitAndRetract(ctx, rentKey, ym(2024, 5), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("SplitAndRetract failed: %v", err)
	}
	want := SplitResult{PastCreated: 2, PastConverted: 2, FutureDeleted: 1}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}

	total := decimal.Zero
	months := byMonth(t, s, rentKey)
	for l := ym(2024, 1).Linear(); l < ym(2024, 5).Linear(); l++ {
		d, ok := months[core.FromLinear(l)]
		if !ok || d.Mode != core.Unique {
			t.Fatalf("expected a unique declaration at %s, got %+v", core.FromLinear(l), d)
		}
		total = total.Add(d.Amount)
	}
	if !total.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("history total = %s, want 4000", total)
	}
}

func TestSplitAndRetractKeepsManualOverrides(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedRecurring(t, s, ym(2024, 1), 1000)

	june, err := s.GetByKey(ctx, ym(2024, 6), rentKey)
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	amount := decimal.NewFromInt(1200)
	unique := core.Unique
	if err := s.Update(ctx, june.ID, store.Patch{Amount: &amount, Mode: &unique}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	res, err := NewSplitController(s).SplitAndRetract(ctx, rentKey, ym(2024, 4), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("SplitAndRetract failed: %v", err)
	}
	if res.FutureDeleted != 32 {
		t.Errorf("expected 32 deleted, got %d", res.FutureDeleted)
	}
	got, err := s.GetByID(ctx, june.ID)
	if err != nil {
		t.Fatalf("manual override deleted: %v", err)
	}
	if !got.Amount.Equal(amount) {
		t.Errorf("manual override changed: %+v", got)
	}
}

func TestSplitAndRetractInstallment(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	origin := mustAdd(t, s, loan(ym(2024, 11), 500, 4, 1))
	if _, err := NewPropagator(s, 0).Propagate(ctx, origin); err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}

	res, err := NewSplitController(s).SplitAndRetract(ctx, rentKey, ym(2025, 1), decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("SplitAndRetract failed: %v", err)
	}
	want := SplitResult{PastCreated: 0, PastConverted: 2, FutureDeleted: 2}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}

	months := byMonth(t, s, rentKey)
	for _, at := range []core.YearMonth{ym(2024, 11), ym(2024, 12)} {
		d := months[at]
		if d.Mode != core.Unique || d.InstallmentsTotal != 0 || d.InstallmentIndex != 0 {
			t.Errorf("%s not frozen: %+v", at, d)
		}
	}
	if _, ok := months[ym(2025, 2)]; ok {
		t.Error("last installment should have been retracted")
	}
}

func TestSplitAndRetractInstallmentEnd(t *testing.T) {
	tests := []struct {
		name    string
		records []core.Declaration
		ref     core.YearMonth
		want    SplitResult
		kept    []core.YearMonth
		absent  []core.YearMonth
	}{
		{
			name:    "anchor past first installment",
			records: []core.Declaration{loan(ym(2025, 1), 500, 5, 3)},
			ref:     ym(2025, 6),
			want:    SplitResult{PastCreated: 2, PastConverted: 1},
			kept:    []core.YearMonth{ym(2025, 1), ym(2025, 2), ym(2025, 3)},
			absent:  []core.YearMonth{ym(2025, 4), ym(2025, 5)},
		},
		{
			name: "total carried by a later record",
			records: []core.Declaration{
				loan(ym(2024, 1), 500, 0, 0),
				loan(ym(2024, 3), 500, 3, 2),
			},
			ref:    ym(2024, 6),
			want:   SplitResult{PastCreated: 2, PastConverted: 2},
			kept:   []core.YearMonth{ym(2024, 1), ym(2024, 2), ym(2024, 3), ym(2024, 4)},
			absent: []core.YearMonth{ym(2024, 5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			for _, d := range tt.records {
				mustAdd(t, s, d)
			}

			res, err := NewSplitController(s).SplitAndRetract(context.Background(), rentKey, tt.ref, decimal.NewFromInt(500))
			if err != nil {
				t.Fatalf("SplitAndRetract failed: %v", err)
			}
			if res != tt.want {
				t.Errorf("got %+v, want %+v", res, tt.want)
			}

			months := byMonth(t, s, rentKey)
			for _, at := range tt.kept {
				d, ok := months[at]
				if !ok {
					t.Errorf("missing declaration at %s", at)
					continue
				}
				if d.Mode != core.Unique || d.Amount.IntPart() != 500 {
					t.Errorf("%s: got mode=%s amount=%s", at, d.Mode, d.Amount)
				}
			}
			for _, at := range tt.absent {
				if _, ok := months[at]; ok {
					t.Errorf("%s is past the end of the series", at)
				}
			}
		})
	}
}

func TestSplitAndRetractUnknownSeries(t *testing.T) {
	s := memory.New()
	mustAdd(t, s, rent(ym(2024, 1), 1000, core.Unique))

	res, err := NewSplitController(s).SplitAndRetract(context.Background(), rentKey, ym(2024, 4), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != (SplitResult{}) {
		t.Errorf("expected no changes, got %+v", res)
	}
}
