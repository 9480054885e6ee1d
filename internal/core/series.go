package core

import "fmt"

// SeriesKey identifies the dimension a series is declared on. It is either
// Income{SourceID} or Expense{GroupID, SubgroupID}; fields that do not belong
// to the variant are always zero, so keys compare with == and index maps.
type SeriesKey struct {
	Type       BudgetType
	SourceID   int64
	GroupID    int64
	SubgroupID int64
}

// IncomeKey builds the key of an income series.
func IncomeKey(sourceID int64) SeriesKey {
	return SeriesKey{Type: Income, SourceID: sourceID}
}

// ExpenseKey builds the key of an expense series. subgroupID may be zero.
func ExpenseKey(groupID, subgroupID int64) SeriesKey {
	return SeriesKey{Type: Expense, GroupID: groupID, SubgroupID: subgroupID}
}

// KeyOf canonicalizes a type and dimension into a SeriesKey.
func KeyOf(t BudgetType, dim Dimension) SeriesKey {
	switch t {
	case Income:
		return IncomeKey(dim.SourceID)
	case Expense:
		return ExpenseKey(dim.GroupID, dim.SubgroupID)
	}
	return SeriesKey{Type: t}
}

// Key returns the series key of the declaration.
func (d Declaration) Key() SeriesKey {
	return KeyOf(d.Type, d.Dimension)
}

// Dimension expands the key back into a declaration dimension.
func (k SeriesKey) Dimension() Dimension {
	return Dimension{SourceID: k.SourceID, GroupID: k.GroupID, SubgroupID: k.SubgroupID}
}

func (k SeriesKey) String() string {
	if k.Type == Income {
		return fmt.Sprintf("income{source=%d}", k.SourceID)
	}
	return fmt.Sprintf("%s{group=%d,subgroup=%d}", k.Type, k.GroupID, k.SubgroupID)
}
