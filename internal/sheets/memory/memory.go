// Package memory keeps exported month overviews in process, for tests and
// for running without a spreadsheet.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

// Ensure interface conformance
var _ sheets.MonthExporter = (*Exporter)(nil)

type Exporter struct {
	mu      sync.Mutex
	months  map[core.YearMonth]core.MonthOverview
	exports int
}

func New() *Exporter {
	return &Exporter{months: make(map[core.YearMonth]core.MonthOverview)}
}

// ExportMonth stores o, replacing any earlier export of the same month.
func (e *Exporter) ExportMonth(_ context.Context, o core.MonthOverview) (string, error) {
	ym := core.NewYearMonth(o.Year, o.Month)
	if err := ym.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.months[ym] = o
	e.exports++
	return fmt.Sprintf("mem:%s", ym), nil
}

// Month returns the last export of ym.
func (e *Exporter) Month(ym core.YearMonth) (core.MonthOverview, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.months[ym]
	return o, ok
}

// Exports counts ExportMonth calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
