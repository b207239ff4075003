/*
aggregate.go - Pay period aggregator

PURPOSE:
  The one entry point that ties the engine together: per-shift pay
  calculation, extras, and a single withholding computation on the
  period total.

CONCURRENCY:
  Shifts within a period are independent, so the per-shift calculations
  fan out to goroutines (bounded by shift count). Each goroutine owns
  its slot in the results slice, so no locking is needed. The tax
  computation runs once, sequentially, after all shifts are summed.

ATOMICITY:
  Aggregate is pure - it never persists anything. The first error wins
  and nothing partial escapes; the caller writes back the whole Totals
  in one store transaction or not at all.
*/
package payperiod

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/shiftpay"
	"github.com/warp/payroll-engine/tax"
)

// Input carries everything one aggregation run needs. The aggregator
// never reads the system clock; AsOf anchors tax year resolution and
// defaults to the period's end date.
type Input struct {
	Period   PayPeriod
	Shifts   []shiftpay.Shift
	Extras   []Extra
	Guides   map[string]*shiftpay.PayGuide
	Settings *tax.Settings
	Tables   tax.Tables

	// TaxYear overrides financial year resolution when non-zero.
	TaxYear int
	AsOf    time.Time
}

// Aggregate computes the full period breakdown. It fails fast with
// ErrPeriodLocked, ErrNoShiftsToCalculate, ErrMissingTaxSettings, or the
// first per-shift error, and returns nothing partial.
func Aggregate(in Input) (*Totals, error) {
	if in.Period.Status.Locked() {
		return nil, &LockedError{PeriodID: in.Period.ID, Status: in.Period.Status}
	}
	if len(in.Shifts) == 0 && len(in.Extras) == 0 {
		return nil, fmt.Errorf("pay period %s: %w", in.Period.ID, ErrNoShiftsToCalculate)
	}
	if in.Settings == nil {
		return nil, fmt.Errorf("pay period %s: %w", in.Period.ID, tax.ErrMissingTaxSettings)
	}
	for _, s := range in.Shifts {
		if _, ok := in.Guides[s.PayGuideID]; !ok {
			return nil, fmt.Errorf("shift %s: %w: %s", s.ID, ErrGuideNotFound, s.PayGuideID)
		}
	}

	results, err := calculateShifts(in.Shifts, in.Guides)
	if err != nil {
		return nil, err
	}

	totals := &Totals{
		TotalHours:    decimal.Zero,
		GrossPay:      decimal.Zero,
		TaxableExtras: decimal.Zero,
		UntaxedExtras: decimal.Zero,
		Shifts:        results,
	}
	for _, r := range results {
		totals.TotalHours = totals.TotalHours.Add(r.TotalHours)
		totals.GrossPay = totals.GrossPay.Add(r.GrossPay)
	}
	for _, e := range in.Extras {
		if e.Taxable {
			totals.TaxableExtras = totals.TaxableExtras.Add(e.Amount)
		} else {
			totals.UntaxedExtras = totals.UntaxedExtras.Add(e.Amount)
		}
	}

	// Withholding runs once on the cumulative period income, never
	// per shift.
	taxableGross := totals.GrossPay.Add(totals.TaxableExtras)
	taxYear := in.TaxYear
	if taxYear == 0 {
		taxYear = resolveTaxYear(in)
	}

	withholding, err := tax.ComputeWithholding(taxableGross, *in.Settings, in.Tables, taxYear)
	if err != nil {
		return nil, err
	}

	totals.TaxYear = taxYear
	totals.Scale = withholding.Scale
	totals.PaygWithholding = withholding.PaygWithholding
	totals.MedicareLevy = withholding.MedicareLevy
	totals.StslAmount = withholding.StslAmount
	totals.TotalWithheld = withholding.TotalWithholdings
	totals.NetPay = withholding.NetPay.Add(totals.UntaxedExtras)
	totals.Warnings = withholding.Warnings

	return totals, nil
}

// calculateShifts fans the per-shift calculations out to goroutines.
// Each goroutine writes only its own slot; the first error by shift
// order wins so failures are deterministic.
func calculateShifts(shifts []shiftpay.Shift, guides map[string]*shiftpay.PayGuide) ([]*shiftpay.ShiftPay, error) {
	results := make([]*shiftpay.ShiftPay, len(shifts))
	errs := make([]error, len(shifts))

	var wg sync.WaitGroup
	for i, s := range shifts {
		wg.Add(1)
		go func(i int, s shiftpay.Shift) {
			defer wg.Done()
			guide := guides[s.PayGuideID]
			results[i], errs[i] = shiftpay.Calculate(guide, guide.Holidays, s)
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// resolveTaxYear anchors the financial year on AsOf (or the period end)
// in the first guide's declared timezone.
func resolveTaxYear(in Input) int {
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = in.Period.EndDate
	}
	loc := time.UTC
	for _, s := range in.Shifts {
		if g, ok := in.Guides[s.PayGuideID]; ok {
			if l, err := g.Location(); err == nil {
				loc = l
				break
			}
		}
	}
	return tax.FinancialYear(asOf, loc)
}

// Transition applies a forward status move, returning the updated period.
func Transition(p PayPeriod, next Status) (PayPeriod, error) {
	if !p.Status.CanTransitionTo(next) {
		return p, &TransitionError{PeriodID: p.ID, From: p.Status, To: next}
	}
	p.Status = next
	return p, nil
}

// Reopen moves a paid or verified period back to open so it can be
// recalculated. This is the only way out of the verified state.
func Reopen(p PayPeriod) (PayPeriod, error) {
	if !p.Status.CanReopen() {
		return p, &TransitionError{PeriodID: p.ID, From: p.Status, To: StatusOpen}
	}
	p.Status = StatusOpen
	p.Verified = false
	return p, nil
}
