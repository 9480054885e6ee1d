package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  BudgetType = "income"
	Expense BudgetType = "expense"
)

const (
	Unique      Mode = "unique"
	Recurring   Mode = "recurring"
	Installment Mode = "installment"
)

type (
	BudgetType string

	// Mode says whether a declaration stands alone or belongs to a series.
	Mode string

	// Dimension locates a declaration: a source for income, a group and an
	// optional subgroup for expenses. Zero means none.
	Dimension struct {
		SourceID   int64
		GroupID    int64
		SubgroupID int64
	}

	// Declaration is one stored budget row for a specific month.
	Declaration struct {
		ID                int64
		Year              int
		Month             int
		Type              BudgetType
		Dimension         Dimension
		Amount            decimal.Decimal
		Mode              Mode
		InstallmentsTotal int // Installment mode only
		InstallmentIndex  int // Installment mode only, 1-based
	}

	Source struct {
		ID   int64
		Name string
	}

	Group struct {
		ID        int64
		Name      string
		Subgroups []Subgroup
	}

	Subgroup struct {
		ID      int64
		GroupID int64
		Name    string
	}
)

var (
	ErrInvalidYear         = errors.New("invalid year")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("invalid budget type")
	ErrInvalidMode         = errors.New("invalid mode")
	ErrInvalidInstallments = errors.New("invalid installments")
	ErrMissingDimension    = errors.New("missing dimension")
	ErrEmptyName           = errors.New("empty name")
)

func (t BudgetType) Valid() bool {
	return t == Income || t == Expense
}

func (m Mode) Valid() bool {
	switch m {
	case Unique, Recurring, Installment:
		return true
	}
	return false
}

// IsSeries reports whether declarations in this mode form a series.
func (m Mode) IsSeries() bool {
	return m == Recurring || m == Installment
}

// NormalizeMode folds the legacy recurrence flag into the tri-state mode.
// An explicit mode always wins over the flag.
func NormalizeMode(mode string, isRecurrent bool) Mode {
	m := Mode(strings.ToLower(strings.TrimSpace(mode)))
	if m.Valid() {
		return m
	}
	if isRecurrent {
		return Recurring
	}
	return Unique
}

// YearMonth returns the month the declaration denotes.
func (d Declaration) YearMonth() YearMonth {
	return YearMonth{Year: d.Year, Month: d.Month}
}

// At returns a copy of d moved to ym with no ID.
func (d Declaration) At(ym YearMonth) Declaration {
	out := d
	out.ID = 0
	out.Year = ym.Year
	out.Month = ym.Month
	return out
}

// AsUnique returns a copy of d frozen out of its series.
func (d Declaration) AsUnique() Declaration {
	out := d
	out.Mode = Unique
	out.InstallmentsTotal = 0
	out.InstallmentIndex = 0
	return out
}

func (d Declaration) Validate() error {
	if err := d.YearMonth().Validate(); err != nil {
		return err
	}
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	switch d.Type {
	case Income:
		if d.Dimension.SourceID <= 0 {
			return ErrMissingDimension
		}
	case Expense:
		if d.Dimension.GroupID <= 0 || d.Dimension.SubgroupID < 0 {
			return ErrMissingDimension
		}
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Mode.Valid() {
		return ErrInvalidMode
	}
	if d.Mode == Installment {
		if d.InstallmentsTotal < 2 || d.InstallmentIndex < 1 || d.InstallmentIndex > d.InstallmentsTotal {
			return ErrInvalidInstallments
		}
	} else if d.InstallmentsTotal != 0 || d.InstallmentIndex != 0 {
		return ErrInvalidInstallments
	}
	return nil
}

func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
