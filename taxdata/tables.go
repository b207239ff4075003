/*
Package taxdata ships default withholding reference tables.

PURPOSE:
  Provides built-in PAYG coefficient rows, STSL bracket rows, and
  Medicare rate configs for recent Australian tax years, so a fresh
  install can withhold sensibly before the user loads official tables.

SHAPE:
  All rows are per-week earnings brackets. Coefficients follow the
  linear formula a*earnings - b, with b chosen so adjacent brackets
  join continuously (withholding is monotonic in earnings).

  The PAYG coefficients exclude the Medicare levy; the levy is itemized
  from RateConfig by the tax package. The medicare-exempt scales
  therefore share the threshold-claimed coefficients - the exemption
  only changes the itemized levy.

  Tables are immutable reference data: build once, share freely.
*/
package taxdata

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/tax"
)

// DefaultTables returns the built-in tables for tax years 2024-25 and
// 2025-26. The resident rate structure is unchanged between the two, so
// both years carry the same rows; lookups for later years fall back to
// 2025-26 with a warning.
func DefaultTables() tax.Tables {
	var t tax.Tables
	for _, year := range []int{2025, 2026} {
		t.Coefficients = append(t.Coefficients, coefficientsForYear(year)...)
		t.StslRates = append(t.StslRates, stslForYear(year)...)
	}
	t.RateConfigs = []tax.RateConfig{
		{TaxYear: 2025, MedicareRate: d("0.02"), MedicareLowThreshold: d("515"), MedicareHighThreshold: d("644")},
		{TaxYear: 2026, MedicareRate: d("0.02"), MedicareLowThreshold: d("526"), MedicareHighThreshold: d("657")},
	}
	return t
}

// bracket is a compact literal for one coefficient row. An empty "to"
// means the open-ended top bracket.
type bracket struct {
	from, to string
	a, b     string
}

// Weekly resident brackets with the tax-free threshold claimed,
// derived from the annual rate structure (18,200 / 45,000 / 135,000 /
// 190,000 at 0/16/30/37/45 per cent) divided by 52.
var thresholdClaimed = []bracket{
	{"0", "350", "0", "0"},
	{"350", "865.38", "0.16", "56.00"},
	{"865.38", "2596.15", "0.30", "177.1532"},
	{"2596.15", "3653.85", "0.37", "358.8837"},
	{"3653.85", "", "0.45", "651.1917"},
}

// Without the threshold every dollar is taxed from the first bracket up.
var thresholdNotClaimed = []bracket{
	{"0", "515.38", "0.16", "0"},
	{"515.38", "2246.15", "0.30", "72.1532"},
	{"2246.15", "3303.85", "0.37", "229.3837"},
	{"3303.85", "", "0.45", "493.6917"},
}

// Foreign residents: no tax-free threshold, no Medicare.
var foreignResident = []bracket{
	{"0", "2596.15", "0.30", "0"},
	{"2596.15", "3653.85", "0.37", "181.7305"},
	{"3653.85", "", "0.45", "474.0385"},
}

// No TFN quoted: flat top-rate withholding.
var noTFN = []bracket{
	{"0", "", "0.47", "0"},
}

func coefficientsForYear(year int) []tax.Coefficient {
	var rows []tax.Coefficient
	add := func(scale tax.Scale, brackets []bracket) {
		for _, br := range brackets {
			rows = append(rows, tax.Coefficient{
				TaxYear:      year,
				Scale:        scale,
				EarningsFrom: d(br.from),
				EarningsTo:   dptr(br.to),
				CoefficientA: d(br.a),
				CoefficientB: d(br.b),
			})
		}
	}
	add(tax.ScaleThresholdClaimed, thresholdClaimed)
	add(tax.ScaleThresholdNotClaimed, thresholdNotClaimed)
	add(tax.ScaleForeignResident, foreignResident)
	add(tax.ScaleNoTFN, noTFN)
	// Exempt scales share the claimed coefficients; only the itemized
	// levy differs.
	add(tax.ScaleMedicareExemptFull, thresholdClaimed)
	add(tax.ScaleMedicareExemptHalf, thresholdClaimed)
	return rows
}

// STSL repayment brackets, weekly, as flat percentages of earnings.
var stslBrackets = []bracket{
	{"0", "1046", "0", "0"},
	{"1046", "1208", "0.01", "0"},
	{"1208", "1281", "0.02", "0"},
	{"1281", "1358", "0.025", "0"},
	{"1358", "1439", "0.03", "0"},
	{"1439", "1525", "0.035", "0"},
	{"1525", "1617", "0.04", "0"},
	{"1617", "1713", "0.045", "0"},
	{"1713", "1816", "0.05", "0"},
	{"1816", "1925", "0.055", "0"},
	{"1925", "2165", "0.06", "0"},
	{"2165", "2435", "0.07", "0"},
	{"2435", "2736", "0.08", "0"},
	{"2736", "3076", "0.09", "0"},
	{"3076", "", "0.10", "0"},
}

func stslForYear(year int) []tax.StslRate {
	scales := []tax.Scale{
		tax.ScaleThresholdClaimed,
		tax.ScaleThresholdNotClaimed,
		tax.ScaleForeignResident,
		tax.ScaleNoTFN,
		tax.ScaleMedicareExemptFull,
		tax.ScaleMedicareExemptHalf,
	}
	var rows []tax.StslRate
	for _, scale := range scales {
		for _, br := range stslBrackets {
			rows = append(rows, tax.StslRate{
				TaxYear:      year,
				Scale:        scale,
				EarningsFrom: d(br.from),
				EarningsTo:   dptr(br.to),
				CoefficientA: d(br.a),
				CoefficientB: d(br.b),
			})
		}
	}
	return rows
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dptr(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	v := decimal.RequireFromString(s)
	return &v
}
