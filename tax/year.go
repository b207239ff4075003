package tax

import (
	"fmt"
	"time"
)

// FinancialYear returns the Australian financial year (July 1 - June 30)
// containing asOf, identified by its ending year: a date in August 2025
// falls in FY 2025-26, returned as 2026.
//
// The caller threads asOf and the location explicitly; this package never
// reads the system clock.
func FinancialYear(asOf time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	t := asOf.In(loc)
	if t.Month() >= time.July {
		return t.Year() + 1
	}
	return t.Year()
}

// FinancialYearLabel renders a tax year as its conventional label,
// e.g. 2026 -> "2025-26".
func FinancialYearLabel(taxYear int) string {
	return fmt.Sprintf("%d-%02d", taxYear-1, taxYear%100)
}
