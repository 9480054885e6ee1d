package core

import "fmt"

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

// Linearize maps (year, month) onto a totally ordered integer.
func Linearize(year, month int) int {
	return year*12 + month
}

// Delinearize is the inverse of Linearize. A zero remainder is December of
// the preceding year.
func Delinearize(n int) (year, month int) {
	year = floorDiv(n, 12)
	month = n - year*12
	if month == 0 {
		year--
		month = 12
	}
	return year, month
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// NewYearMonth builds a YearMonth without validating it.
func NewYearMonth(year, month int) YearMonth {
	return YearMonth{Year: year, Month: month}
}

// FromLinear converts a linear month index back to a YearMonth.
func FromLinear(n int) YearMonth {
	y, m := Delinearize(n)
	return YearMonth{Year: y, Month: m}
}

// Linear returns the linear month index.
func (ym YearMonth) Linear() int {
	return Linearize(ym.Year, ym.Month)
}

// AddMonths returns the month n months away, rolling across years.
func (ym YearMonth) AddMonths(n int) YearMonth {
	return FromLinear(ym.Linear() + n)
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Linear() < other.Linear()
}

// MonthsSince returns how many months separate other from ym (ym - other).
func (ym YearMonth) MonthsSince(other YearMonth) int {
	return ym.Linear() - other.Linear()
}

func (ym YearMonth) Validate() error {
	if ym.Year < 1 || ym.Year > 9999 {
		return ErrInvalidYear
	}
	if ym.Month < 1 || ym.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// String formats the month as YYYY-MM.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}
