package services

import (
	"context"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store/memory"

	"github.com/shopspring/decimal"
)

var rentKey = core.ExpenseKey(1, 2)

func ym(year, month int) core.YearMonth {
	return core.NewYearMonth(year, month)
}

func rent(at core.YearMonth, amount int64, mode core.Mode) core.Declaration {
	return core.Declaration{
		Year:      at.Year,
		Month:     at.Month,
		Type:      core.Expense,
		Dimension: core.Dimension{GroupID: 1, SubgroupID: 2},
		Amount:    decimal.NewFromInt(amount),
		Mode:      mode,
	}
}

func loan(at core.YearMonth, amount int64, total, index int) core.Declaration {
	d := rent(at, amount, core.Installment)
	d.InstallmentsTotal = total
	d.InstallmentIndex = index
	return d
}

func mustAdd(t *testing.T, s *memory.Store, d core.Declaration) core.Declaration {
	t.Helper()
	id, err := s.Add(context.Background(), d)
	if err != nil {
		t.Fatalf("Add(%s %s) failed: %v", d.Key(), d.YearMonth(), err)
	}
	d.ID = id
	return d
}

// byMonth indexes the declarations of key by month.
func byMonth(t *testing.T, s *memory.Store, key core.SeriesKey) map[core.YearMonth]core.Declaration {
	t.Helper()
	all, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	out := make(map[core.YearMonth]core.Declaration)
	for _, d := range all {
		if d.Key() == key {
			out[d.YearMonth()] = d
		}
	}
	return out
}
