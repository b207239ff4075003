/*
brackets.go - Tax bracket resolver

PURPOSE:
  Looks up the coefficient row for (taxYear, scale, earnings) in a
  bracket table.

YEAR FALLBACK:
  If the requested tax year has no rows for the scale, the most recent
  earlier year that does is used instead, and the caller is told a
  fallback happened so it can surface a warning. There is no forward
  fallback: next year's table never applies retroactively.

BRACKET MATCH:
  Within the chosen year, the row whose [EarningsFrom, EarningsTo)
  half-open range contains the earnings wins; a nil EarningsTo is the
  open-ended top bracket. No row matching is a hard NoBracketFound error.
*/
package tax

import (
	"github.com/shopspring/decimal"
)

// LookupCoefficient finds the PAYG bracket row for the given year, scale
// and per-period earnings. fellBack reports that an earlier year's table
// was used because the requested year had none.
func LookupCoefficient(rows []Coefficient, taxYear int, scale Scale, earnings decimal.Decimal) (Coefficient, bool, error) {
	row, fellBack, ok := lookup(rows, taxYear, scale, earnings)
	if !ok {
		return Coefficient{}, false, &NoBracketError{TaxYear: taxYear, Scale: scale, Earnings: earnings, Table: "payg"}
	}
	return row, fellBack, nil
}

// LookupStslRate finds the STSL bracket row using the same mechanism as
// LookupCoefficient, against the study-loan table.
func LookupStslRate(rows []StslRate, taxYear int, scale Scale, earnings decimal.Decimal) (StslRate, bool, error) {
	converted := make([]Coefficient, len(rows))
	for i, r := range rows {
		converted[i] = Coefficient(r)
	}
	row, fellBack, ok := lookup(converted, taxYear, scale, earnings)
	if !ok {
		return StslRate{}, false, &NoBracketError{TaxYear: taxYear, Scale: scale, Earnings: earnings, Table: "stsl"}
	}
	return StslRate(row), fellBack, nil
}

func lookup(rows []Coefficient, taxYear int, scale Scale, earnings decimal.Decimal) (Coefficient, bool, bool) {
	// Pick the effective year: exact match, else the most recent year
	// at or before the requested one that has rows for this scale.
	effectiveYear := 0
	for _, r := range rows {
		if r.Scale != scale || r.TaxYear > taxYear {
			continue
		}
		if r.TaxYear > effectiveYear {
			effectiveYear = r.TaxYear
		}
	}
	if effectiveYear == 0 {
		return Coefficient{}, false, false
	}

	for _, r := range rows {
		if r.Scale != scale || r.TaxYear != effectiveYear {
			continue
		}
		if earnings.LessThan(r.EarningsFrom) {
			continue
		}
		if r.EarningsTo != nil && !earnings.LessThan(*r.EarningsTo) {
			continue
		}
		return r, effectiveYear != taxYear, true
	}
	return Coefficient{}, false, false
}
