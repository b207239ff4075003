/*
withholding.go - Withholding calculator

PURPOSE:
  Computes PAYG withholding, Medicare levy, and STSL withholding from a
  pay period's gross pay.

MEDICARE POLICY:
  The levy is ITEMIZED, not folded into the PAYG coefficients. The
  bracket tables are treated as excluding Medicare; the levy is computed
  from the per-year RateConfig (nothing below the low threshold, a
  10-cents-per-dollar shade-in between the thresholds, the flat rate
  above) and halved or zeroed by the taxpayer's exemption. This one
  policy applies everywhere - mixing the two approaches would count
  Medicare twice.

FORMULAS:
  payg     = max(0, round(a*gross - b, 2))
  medicare = min(rate*gross, 0.10*(gross - lowThreshold)), floored at 0
  stsl     = max(0, round(a*gross - b, 2)) against the STSL table
  net      = gross - (payg + medicare + stsl), floored at 0
*/
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Withholding is the complete withholding result for one pay period.
type Withholding struct {
	Scale   Scale
	TaxYear int

	PaygWithholding   decimal.Decimal
	MedicareLevy      decimal.Decimal
	StslAmount        decimal.Decimal
	TotalWithholdings decimal.Decimal
	NetPay            decimal.Decimal

	// Warnings surface non-fatal anomalies: a bracket-year fallback, or
	// a net pay that had to be floored at zero.
	Warnings []string
}

// medicareShadeInRate is the phase-in rate applied to earnings above the
// low threshold until the full levy takes over.
var medicareShadeInRate = decimal.NewFromFloat(0.10)

// ComputeWithholding runs the full withholding calculation for a period's
// gross pay. Tables are read-only reference data; the same Tables value
// may serve many concurrent calls.
func ComputeWithholding(grossPay decimal.Decimal, settings Settings, tables Tables, taxYear int) (*Withholding, error) {
	scale := ResolveScale(settings)
	result := &Withholding{
		Scale:        scale,
		TaxYear:      taxYear,
		MedicareLevy: decimal.Zero,
		StslAmount:   decimal.Zero,
	}

	coeff, fellBack, err := LookupCoefficient(tables.Coefficients, taxYear, scale, grossPay)
	if err != nil {
		return nil, err
	}
	if fellBack {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no PAYG table for %s; using %s", FinancialYearLabel(taxYear), FinancialYearLabel(coeff.TaxYear)))
	}
	result.PaygWithholding = floorZero(coeff.CoefficientA.Mul(grossPay).Sub(coeff.CoefficientB).Round(2))

	result.MedicareLevy = medicareLevy(grossPay, settings, scale, tables, taxYear, result)

	if settings.HasSTSL {
		row, stslFellBack, err := LookupStslRate(tables.StslRates, taxYear, scale, grossPay)
		if err != nil {
			return nil, err
		}
		if stslFellBack {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no STSL table for %s; using %s", FinancialYearLabel(taxYear), FinancialYearLabel(row.TaxYear)))
		}
		result.StslAmount = floorZero(row.CoefficientA.Mul(grossPay).Sub(row.CoefficientB).Round(2))
	}

	result.TotalWithholdings = result.PaygWithholding.Add(result.MedicareLevy).Add(result.StslAmount)

	net := grossPay.Sub(result.TotalWithholdings)
	if net.IsNegative() {
		result.Warnings = append(result.Warnings,
			"net pay would be negative; floored at 0 - check bracket configuration")
		net = decimal.Zero
	}
	result.NetPay = net

	return result, nil
}

// medicareLevy computes the itemized levy. Scales that carry no Medicare
// obligation (no TFN, foreign resident, full exemption) pay nothing.
func medicareLevy(grossPay decimal.Decimal, settings Settings, scale Scale, tables Tables, taxYear int, result *Withholding) decimal.Decimal {
	switch scale {
	case ScaleNoTFN, ScaleForeignResident, ScaleMedicareExemptFull:
		return decimal.Zero
	}

	rc, ok := tables.RateConfigFor(taxYear)
	if !ok {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no Medicare rate config for %s; levy omitted", FinancialYearLabel(taxYear)))
		return decimal.Zero
	}

	if !grossPay.GreaterThan(rc.MedicareLowThreshold) {
		return decimal.Zero
	}

	full := rc.MedicareRate.Mul(grossPay)
	levy := full
	if grossPay.LessThan(rc.MedicareHighThreshold) {
		// Shade-in region: the levy phases in at 10c per dollar over the
		// low threshold until it reaches the full rate.
		shadeIn := medicareShadeInRate.Mul(grossPay.Sub(rc.MedicareLowThreshold))
		levy = decimal.Min(full, shadeIn)
	}

	if settings.MedicareExemption == MedicareExemptionHalf {
		levy = levy.Div(decimal.NewFromInt(2))
	}
	return floorZero(levy.Round(2))
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
