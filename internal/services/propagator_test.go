package services

import (
	"context"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store/memory"
)

func TestNewPropagatorHorizon(t *testing.T) {
	tests := []struct {
		name    string
		horizon int
		origin  core.YearMonth
		want    core.YearMonth
	}{
		{"default", 0, ym(2024, 1), ym(2026, 12)},
		{"negative falls back", -3, ym(2024, 12), ym(2026, 12)},
		{"custom", 5, ym(2030, 6), ym(2035, 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPropagator(memory.New(), tt.horizon)
			if got := p.Horizon(tt.origin); got != tt.want {
				t.Errorf("Horizon(%s) = %s, want %s", tt.origin, got, tt.want)
			}
		})
	}
}

func TestPropagateRecurringToHorizon(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	origin := mustAdd(t, s, rent(ym(2024, 1), 1500, core.Recurring))

	created, err := NewPropagator(s, 0).Propagate(ctx, origin)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if created != 35 {
		t.Fatalf("expected 35 created, got %d", created)
	}

	months := byMonth(t, s, rentKey)
	for l := ym(2024, 1).Linear(); l <= ym(2026, 12).Linear(); l++ {
		at := core.FromLinear(l)
		d, ok := months[at]
		if !ok {
			t.Fatalf("missing declaration at %s", at)
		}
		if d.Mode != core.Recurring || !d.Amount.Equal(origin.Amount) {
			t.Errorf("%s: got mode=%s amount=%s", at, d.Mode, d.Amount)
		}
	}
	if _, ok := months[ym(2027, 1)]; ok {
		t.Error("propagation must stop at the horizon")
	}
	if len(months) != 36 {
		t.Errorf("expected 36 declarations, got %d", len(months))
	}
}

func TestPropagateRecurringDecemberOrigin(t *testing.T) {
	s := memory.New()
	origin := mustAdd(t, s, rent(ym(2024, 12), 80, core.Recurring))

	created, err := NewPropagator(s, 0).Propagate(context.Background(), origin)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if created != 24 {
		t.Errorf("expected 24 created, got %d", created)
	}
}

func TestPropagateSkipsOccupiedMonths(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	origin := mustAdd(t, s, rent(ym(2024, 1), 1500, core.Recurring))
	override := mustAdd(t, s, rent(ym(2024, 6), 900, core.Unique))

	p := NewPropagator(s, 0)
	created, err := p.Propagate(ctx, origin)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if created != 34 {
		t.Errorf("expected 34 created, got %d", created)
	}

	got, err := s.GetByID(ctx, override.ID)
	if err != nil {
		t.Fatalf("override lost: %v", err)
	}
	if got.Mode != core.Unique || got.Amount.IntPart() != 900 {
		t.Errorf("override was modified: %+v", got)
	}

	again, err := p.Propagate(ctx, origin)
	if err != nil {
		t.Fatalf("second Propagate failed: %v", err)
	}
	if again != 0 {
		t.Errorf("second propagation created %d, want 0", again)
	}
}

func TestPropagateInstallment(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	origin := mustAdd(t, s, loan(ym(2024, 11), 500, 4, 1))

	created, err := NewPropagator(s, 0).Propagate(ctx, origin)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 created, got %d", created)
	}

	months := byMonth(t, s, rentKey)
	want := map[core.YearMonth]int{
		ym(2024, 11): 1,
		ym(2024, 12): 2,
		ym(2025, 1):  3,
		ym(2025, 2):  4,
	}
	for at, index := range want {
		d, ok := months[at]
		if !ok {
			t.Fatalf("missing installment at %s", at)
		}
		if d.InstallmentIndex != index || d.InstallmentsTotal != 4 {
			t.Errorf("%s: got %d/%d, want %d/4", at, d.InstallmentIndex, d.InstallmentsTotal, index)
		}
	}
	if _, ok := months[ym(2025, 3)]; ok {
		t.Error("no installment expected after the last one")
	}
}

func TestPropagateInstallmentFromMiddle(t *testing.T) {
	s := memory.New()
	origin := mustAdd(t, s, loan(ym(2025, 3), 200, 6, 4))

	created, err := NewPropagator(s, 0).Propagate(context.Background(), origin)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if created != 2 {
		t.Errorf("expected 2 created, got %d", created)
	}
	if d := byMonth(t, s, rentKey)[ym(2025, 5)]; d.InstallmentIndex != 6 {
		t.Errorf("expected last installment #6 at 2025-05, got %+v", d)
	}
}

func TestPropagateIgnoresUniqueAndBadInstallments(t *testing.T) {
	tests := []struct {
		name string
		decl core.Declaration
	}{
		{"unique", rent(ym(2024, 1), 10, core.Unique)},
		{"installment without total", loan(ym(2024, 1), 10, 0, 1)},
		{"index past total", loan(ym(2024, 1), 10, 3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			created, err := NewPropagator(s, 0).Propagate(context.Background(), tt.decl)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if created != 0 {
				t.Errorf("expected nothing created, got %d", created)
			}
		})
	}
}
