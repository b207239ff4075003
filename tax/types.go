/*
Package tax computes payroll withholding for a pay period.

PURPOSE:
  Given a period's aggregate gross pay and the taxpayer's declarations,
  this package selects a tax scale, looks up the bracket coefficients for
  the tax year, and computes PAYG withholding, Medicare levy, and STSL
  (study loan) withholding.

KEY CONCEPTS:
  - Scale: Named bracket selector derived from taxpayer declarations
  - Coefficient: One bracket row of the linear PAYG formula a*x - b
  - StslRate: Same shape, for the study-loan table
  - RateConfig: Per-year Medicare rate and income thresholds

DESIGN PRINCIPLES:
  1. Purity: No clock reads. The caller passes the tax year explicitly.
  2. Reference data: Tables are loaded once per year and never mutated,
     so concurrent calculations can share them freely.
  3. Hard failures: A missing bracket is an error surfaced to the caller,
     never a silent default.

SEE ALSO:
  - scale.go: Scale selection from taxpayer settings
  - brackets.go: Year/bracket lookup with fallback policy
  - withholding.go: The PAYG/Medicare/STSL math
  - year.go: Australian financial year resolution
*/
package tax

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// TAXPAYER SETTINGS
// =============================================================================

type MedicareExemption string

const (
	MedicareExemptionNone MedicareExemption = "none"
	MedicareExemptionHalf MedicareExemption = "half"
	MedicareExemptionFull MedicareExemption = "full"
)

// Settings holds the taxpayer declarations that drive scale selection.
type Settings struct {
	ClaimedTaxFreeThreshold bool
	ForeignResident         bool
	HasTaxFileNumber        bool
	MedicareExemption       MedicareExemption

	// HasSTSL marks an outstanding study/training loan (HECS/HELP).
	// STSL withholding is only computed when set.
	HasSTSL bool
}

// =============================================================================
// SCALES
// =============================================================================

// Scale names one bracket table. Exactly one scale is selected per
// taxpayer per calculation.
type Scale string

const (
	ScaleNoTFN               Scale = "no-tfn"
	ScaleForeignResident     Scale = "foreign-resident"
	ScaleMedicareExemptFull  Scale = "medicare-exempt-full"
	ScaleMedicareExemptHalf  Scale = "medicare-exempt-half"
	ScaleThresholdClaimed    Scale = "threshold-claimed"
	ScaleThresholdNotClaimed Scale = "threshold-not-claimed"
)

// =============================================================================
// BRACKET TABLES - immutable reference data
// =============================================================================

// Coefficient is one PAYG bracket row: for earnings in
// [EarningsFrom, EarningsTo) the withholding is CoefficientA*earnings -
// CoefficientB. A nil EarningsTo means the open-ended top bracket.
//
// TaxYear is the ending year of the Australian financial year
// (2026 means 2025-26).
type Coefficient struct {
	TaxYear      int
	Scale        Scale
	EarningsFrom decimal.Decimal
	EarningsTo   *decimal.Decimal
	CoefficientA decimal.Decimal
	CoefficientB decimal.Decimal
}

// StslRate is one STSL bracket row, same shape as Coefficient but looked
// up against the study-loan table.
type StslRate Coefficient

// RateConfig carries the per-year Medicare levy parameters. Thresholds
// are per-period earnings amounts, matching the bracket tables.
type RateConfig struct {
	TaxYear               int
	MedicareRate          decimal.Decimal
	MedicareLowThreshold  decimal.Decimal
	MedicareHighThreshold decimal.Decimal
}

// Tables bundles the reference data for withholding calculations. Treat
// as immutable once loaded; it is safe for concurrent readers.
type Tables struct {
	Coefficients []Coefficient
	StslRates    []StslRate
	RateConfigs  []RateConfig
}

// RateConfigFor returns the rate config for a tax year, falling back to
// the most recent earlier year (same policy as bracket lookup).
func (t Tables) RateConfigFor(taxYear int) (RateConfig, bool) {
	var best RateConfig
	found := false
	for _, rc := range t.RateConfigs {
		if rc.TaxYear > taxYear {
			continue
		}
		if !found || rc.TaxYear > best.TaxYear {
			best = rc
			found = true
		}
	}
	return best, found
}
