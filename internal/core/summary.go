package core

import "github.com/shopspring/decimal"

// MonthOverview is the budget picture of one month.
type MonthOverview struct {
	Year         int
	Month        int // 1-12
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
	Balance      decimal.Decimal
	Declarations []Declaration
}

// Summarize totals the declarations of a month.
func Summarize(ym YearMonth, decls []Declaration) MonthOverview {
	ov := MonthOverview{
		Year:         ym.Year,
		Month:        ym.Month,
		IncomeTotal:  decimal.Zero,
		ExpenseTotal: decimal.Zero,
		Declarations: decls,
	}
	for _, d := range decls {
		switch d.Type {
		case Income:
			ov.IncomeTotal = ov.IncomeTotal.Add(d.Amount)
		case Expense:
			ov.ExpenseTotal = ov.ExpenseTotal.Add(d.Amount)
		}
	}
	ov.Balance = ov.IncomeTotal.Sub(ov.ExpenseTotal)
	return ov
}
