package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/store"

	"github.com/shopspring/decimal"
)

// SplitResult reports what a split did to a series.
type SplitResult struct {
	PastCreated   int
	PastConverted int
	FutureDeleted int
}

// SplitController freezes a series' history and retracts its future when a
// series declaration is edited or deleted.
type SplitController struct {
	store store.Store
}

func NewSplitController(s store.Store) *SplitController {
	return &SplitController{store: s}
}

// SplitAndRetract splits the series identified by key at ref. Months before
// ref keep their amounts as Unique declarations, with holes since the series
// origin filled using preAmount. Series records at or after ref are deleted.
func (c *SplitController) SplitAndRetract(ctx context.Context, key core.SeriesKey, ref core.YearMonth, preAmount decimal.Decimal) (SplitResult, error) {
	var res SplitResult

	all, err := c.store.GetAll(ctx)
	if err != nil {
		return res, fmt.Errorf("load series %s: %w", key, err)
	}
	series := seriesOf(all, key)
	if len(series) == 0 {
		return res, nil
	}

	originStart := series[0].YearMonth().Linear()
	for _, d := range series[1:] {
		if l := d.YearMonth().Linear(); l < originStart {
			originStart = l
		}
	}
	seriesEnd := c.seriesEnd(ctx, series, key)
	refLinear := ref.Linear()

	var past, future []core.Declaration
	for _, d := range series {
		l := d.YearMonth().Linear()
		if l >= seriesEnd {
			continue
		}
		if l < refLinear {
			past = append(past, d)
		} else {
			future = append(future, d)
		}
	}

	covered := make(map[int]bool, len(past))
	for _, d := range past {
		covered[d.YearMonth().Linear()] = true
	}

	template := core.Declaration{
		Type:      key.Type,
		Dimension: key.Dimension(),
		Amount:    preAmount,
		Mode:      core.Unique,
	}
	for l := originStart; l < refLinear && l < seriesEnd; l++ {
		if covered[l] {
			continue
		}
		created, err := createIfMissing(ctx, c.store, template.At(core.FromLinear(l)))
		if err != nil {
			return res, fmt.Errorf("materialize history of %s: %w", key, err)
		}
		if created {
			res.PastCreated++
		}
	}

	freeze := store.Freeze()
	for _, d := range past {
		if err := c.store.Update(ctx, d.ID, freeze); err != nil {
			return res, fmt.Errorf("freeze declaration %d: %w", d.ID, err)
		}
		res.PastConverted++
	}

	if len(future) > 0 {
		ids := make([]int64, len(future))
		for i, d := range future {
			ids[i] = d.ID
		}
		if err := c.store.BulkDelete(ctx, ids); err != nil {
			return res, fmt.Errorf("retract future of %s: %w", key, err)
		}
		res.FutureDeleted = len(ids)
	}

	slog.InfoContext(ctx, "Series split",
		applog.FieldComponent, applog.ComponentSplit,
		applog.FieldSeriesKey, key.String(),
		applog.FieldYear, ref.Year,
		applog.FieldMonth, ref.Month,
		"past_created", res.PastCreated,
		"past_converted", res.PastConverted,
		"future_deleted", res.FutureDeleted)

	return res, nil
}

// seriesEnd returns the first linear month past an installment series, or
// MaxInt for open-ended series. The anchor is the record nearest the start
// that carries InstallmentsTotal.
func (c *SplitController) seriesEnd(ctx context.Context, series []core.Declaration, key core.SeriesKey) int {
	installment := false
	var anchor *core.Declaration
	for i := range series {
		d := &series[i]
		if d.Mode != core.Installment {
			continue
		}
		installment = true
		if d.InstallmentsTotal <= 0 {
			continue
		}
		if anchor == nil || d.YearMonth().Before(anchor.YearMonth()) {
			anchor = d
		}
	}
	if !installment {
		return math.MaxInt
	}
	if anchor == nil {
		slog.WarnContext(ctx, "Installment series has no total, treating as open-ended",
			applog.FieldComponent, applog.ComponentSplit,
			applog.FieldSeriesKey, key.String(),
			applog.FieldError, ErrInvalidSeriesState.Error())
		return math.MaxInt
	}
	index := anchor.InstallmentIndex
	if index < 1 {
		index = 1
	}
	return anchor.YearMonth().Linear() - (index - 1) + anchor.InstallmentsTotal
}

// seriesOf returns the Recurring/Installment records of key.
func seriesOf(all []core.Declaration, key core.SeriesKey) []core.Declaration {
	var out []core.Declaration
	for _, d := range all {
		if d.Mode.IsSeries() && d.Key() == key {
			out = append(out, d)
		}
	}
	return out
}
