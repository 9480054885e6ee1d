// Package store defines the persistence ports the budget engine consumes.
package store

import (
	"context"
	"errors"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateKey means a declaration already exists for the same
	// (year, month, series key).
	ErrDuplicateKey = errors.New("duplicate budget key")
	ErrNotFound     = errors.New("budget not found")
)

// Patch describes an in-place change to a declaration. Nil fields are left
// untouched. Mode carries the installment fields with it: switching to a
// non-installment mode clears them.
type Patch struct {
	Amount            *decimal.Decimal
	Mode              *core.Mode
	InstallmentsTotal *int
	InstallmentIndex  *int
}

// Ports for the declaration store.
type (
	Reader interface {
		GetAll(ctx context.Context) ([]core.Declaration, error)
		GetByID(ctx context.Context, id int64) (core.Declaration, error)
		// GetByKey returns ErrNotFound when no declaration occupies the slot.
		GetByKey(ctx context.Context, ym core.YearMonth, key core.SeriesKey) (core.Declaration, error)
		ListMonth(ctx context.Context, ym core.YearMonth) ([]core.Declaration, error)
	}

	Writer interface {
		// Add returns ErrDuplicateKey instead of overwriting.
		Add(ctx context.Context, d core.Declaration) (int64, error)
		Update(ctx context.Context, id int64, p Patch) error
		BulkDelete(ctx context.Context, ids []int64) error
	}

	// Replacer swaps the whole declaration set in one operation.
	Replacer interface {
		Replace(ctx context.Context, decls []core.Declaration) error
	}

	Store interface {
		Reader
		Writer
		Replacer
	}

	// Taxonomy holds the income sources and expense groups declarations
	// refer to.
	Taxonomy interface {
		ListSources(ctx context.Context) ([]core.Source, error)
		ListGroups(ctx context.Context) ([]core.Group, error)
		AddSource(ctx context.Context, name string) (int64, error)
		AddGroup(ctx context.Context, name string) (int64, error)
		AddSubgroup(ctx context.Context, groupID int64, name string) (int64, error)
		HasTaxonomy(ctx context.Context) (bool, error)
	}
)

// IsDuplicate reports whether err is a duplicate-key rejection.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
