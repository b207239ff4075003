package payperiod_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payperiod"
	"github.com/warp/payroll-engine/shiftpay"
	"github.com/warp/payroll-engine/tax"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// TEST FIXTURES
// =============================================================================

func testGuide() *shiftpay.PayGuide {
	return &shiftpay.PayGuide{
		ID:       "guide-1",
		Name:     "Test Guide",
		BaseRate: dec("25"),
		Active:   true,
	}
}

func testSettings() *tax.Settings {
	return &tax.Settings{
		ClaimedTaxFreeThreshold: true,
		HasTaxFileNumber:        true,
		MedicareExemption:       tax.MedicareExemptionNone,
	}
}

// flatTables withholds a*gross - b on the threshold-claimed scale and
// nothing else, keeping expected values easy to derive by hand.
func flatTables(a, b string) tax.Tables {
	return tax.Tables{
		Coefficients: []tax.Coefficient{
			{TaxYear: 2026, Scale: tax.ScaleThresholdClaimed, EarningsFrom: dec("0"), CoefficientA: dec(a), CoefficientB: dec(b)},
		},
	}
}

func openPeriod() payperiod.PayPeriod {
	return payperiod.PayPeriod{
		ID:        "period-1",
		StartDate: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
		Status:    payperiod.StatusOpen,
	}
}

func eightHourShift(id string, day int) shiftpay.Shift {
	return shiftpay.Shift{
		ID:         id,
		PayGuideID: "guide-1",
		Start:      time.Date(2026, time.March, day, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2026, time.March, day, 17, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// FAILURE MODES
// =============================================================================

func TestAggregate_EmptyPeriodFails(t *testing.T) {
	// GIVEN: A period with no shifts and no extras
	// WHEN: Aggregating
	// THEN: NoShiftsToCalculate

	_, err := payperiod.Aggregate(payperiod.Input{
		Period:   openPeriod(),
		Settings: testSettings(),
		Tables:   flatTables("0.19", "0"),
		TaxYear:  2026,
	})
	if !errors.Is(err, payperiod.ErrNoShiftsToCalculate) {
		t.Errorf("expected ErrNoShiftsToCalculate, got %v", err)
	}
}

func TestAggregate_MissingSettingsFails(t *testing.T) {
	_, err := payperiod.Aggregate(payperiod.Input{
		Period:  openPeriod(),
		Shifts:  []shiftpay.Shift{eightHourShift("s1", 2)},
		Guides:  map[string]*shiftpay.PayGuide{"guide-1": testGuide()},
		Tables:  flatTables("0.19", "0"),
		TaxYear: 2026,
	})
	if !errors.Is(err, tax.ErrMissingTaxSettings) {
		t.Errorf("expected ErrMissingTaxSettings, got %v", err)
	}
}

func TestAggregate_LockedPeriodFails(t *testing.T) {
	// GIVEN: A paid period that has not been reopened
	// WHEN: Aggregating
	// THEN: ErrPeriodLocked with the period and status in the error

	period := openPeriod()
	period.Status = payperiod.StatusPaid

	_, err := payperiod.Aggregate(payperiod.Input{
		Period:   period,
		Shifts:   []shiftpay.Shift{eightHourShift("s1", 2)},
		Guides:   map[string]*shiftpay.PayGuide{"guide-1": testGuide()},
		Settings: testSettings(),
		Tables:   flatTables("0.19", "0"),
		TaxYear:  2026,
	})
	if !errors.Is(err, payperiod.ErrPeriodLocked) {
		t.Fatalf("expected ErrPeriodLocked, got %v", err)
	}
	var locked *payperiod.LockedError
	if !errors.As(err, &locked) || locked.Status != payperiod.StatusPaid {
		t.Errorf("locked error detail wrong: %v", err)
	}
}

func TestAggregate_UnknownGuideFails(t *testing.T) {
	_, err := payperiod.Aggregate(payperiod.Input{
		Period:   openPeriod(),
		Shifts:   []shiftpay.Shift{eightHourShift("s1", 2)},
		Guides:   map[string]*shiftpay.PayGuide{},
		Settings: testSettings(),
		Tables:   flatTables("0.19", "0"),
		TaxYear:  2026,
	})
	if !errors.Is(err, payperiod.ErrGuideNotFound) {
		t.Errorf("expected ErrGuideNotFound, got %v", err)
	}
}

func TestAggregate_FirstShiftErrorWins(t *testing.T) {
	// GIVEN: Two shifts where the first is invalid
	// WHEN: Aggregating
	// THEN: The invalid shift's error surfaces; nothing partial escapes

	bad := eightHourShift("bad", 2)
	bad.End = bad.Start.Add(-time.Hour)

	totals, err := payperiod.Aggregate(payperiod.Input{
		Period:   openPeriod(),
		Shifts:   []shiftpay.Shift{bad, eightHourShift("good", 3)},
		Guides:   map[string]*shiftpay.PayGuide{"guide-1": testGuide()},
		Settings: testSettings(),
		Tables:   flatTables("0.19", "0"),
		TaxYear:  2026,
	})
	if !errors.Is(err, shiftpay.ErrInvalidShiftRange) {
		t.Errorf("expected ErrInvalidShiftRange, got %v", err)
	}
	if totals != nil {
		t.Error("expected no partial totals on failure")
	}
}

// =============================================================================
// TOTALS
// =============================================================================

func TestAggregate_SumsShiftsAndWithholdsOnce(t *testing.T) {
	// GIVEN: Two 8h shifts at $25/hr and a 19% flat table
	// WHEN: Aggregating
	// THEN: Gross 400.00, withholding computed on the period total

	totals, err := payperiod.Aggregate(payperiod.Input{
		Period:   openPeriod(),
		Shifts:   []shiftpay.Shift{eightHourShift("s1", 2), eightHourShift("s2", 3)},
		Guides:   map[string]*shiftpay.PayGuide{"guide-1": testGuide()},
		Settings: testSettings(),
		Tables:   flatTables("0.19", "0"),
		TaxYear:  2026,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !totals.TotalHours.Equal(dec("16")) {
		t.Errorf("expected 16 hours, got %s", totals.TotalHours)
	}
	if !totals.GrossPay.Equal(dec("400")) {
		t.Errorf("expected gross 400.00, got %s", totals.GrossPay)
	}
	// 0.19 * 400 = 76.00, on the period total rather than per shift
	if !totals.PaygWithholding.Equal(dec("76")) {
		t.Errorf("expected payg 76.00, got %s", totals.PaygWithholding)
	}
	if !totals.NetPay.Equal(dec("324")) {
		t.Errorf("expected net 324.00, got %s", totals.NetPay)
	}
	if len(totals.Shifts) != 2 {
		t.Errorf("expected 2 shift breakdowns, got %d", len(totals.Shifts))
	}
	if totals.Scale != tax.ScaleThresholdClaimed || totals.TaxYear != 2026 {
		t.Errorf("scale/year wrong: %s/%d", totals.Scale, totals.TaxYear)
	}
}

func TestAggregate_ExtrasSplitByTaxability(t *testing.T) {
	// GIVEN: One shift (gross 200), a taxable $50 bonus and a $30 reimbursement
	// WHEN: Aggregating
	// THEN: Withholding runs on 250; the reimbursement lands straight on net

	totals, err := payperiod.Aggregate(payperiod.Input{
		Period: openPeriod(),
		Shifts: []shiftpay.Shift{eightHourShift("s1", 2)},
		Extras: []payperiod.Extra{
			{ID: "e1", Description: "bonus", Amount: dec("50"), Taxable: true},
			{ID: "e2", Description: "parking", Amount: dec("30"), Taxable: false},
		},
		Guides:   map[string]*shiftpay.PayGuide{"guide-1": testGuide()},
		Settings: testSettings(),
		Tables:   flatTables("0.20", "0"),
		TaxYear:  2026,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !totals.TaxableExtras.Equal(dec("50")) || !totals.UntaxedExtras.Equal(dec("30")) {
		t.Errorf("extras split wrong: taxable=%s untaxed=%s", totals.TaxableExtras, totals.UntaxedExtras)
	}
	// 0.20 * 250 = 50.00
	if !totals.PaygWithholding.Equal(dec("50")) {
		t.Errorf("expected payg 50.00 on taxable gross 250, got %s", totals.PaygWithholding)
	}
	// net = 250 - 50 + 30
	if !totals.NetPay.Equal(dec("230")) {
		t.Errorf("expected net 230.00, got %s", totals.NetPay)
	}
}

func TestAggregate_ExtrasOnlyPeriod(t *testing.T) {
	// A period with no shifts but an extra still aggregates.
	totals, err := payperiod.Aggregate(payperiod.Input{
		Period: openPeriod(),
		Extras: []payperiod.Extra{
			{ID: "e1", Description: "bonus", Amount: dec("100"), Taxable: true},
		},
		Settings: testSettings(),
		Tables:   flatTables("0.10", "0"),
		TaxYear:  2026,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.NetPay.Equal(dec("90")) {
		t.Errorf("expected net 90.00, got %s", totals.NetPay)
	}
}

func TestAggregate_ResolvesTaxYearFromPeriodEnd(t *testing.T) {
	// GIVEN: No explicit tax year and a period ending in July
	// WHEN: Aggregating
	// THEN: The new financial year is used

	period := openPeriod()
	period.EndDate = time.Date(2026, time.July, 5, 0, 0, 0, 0, time.UTC)

	shift := shiftpay.Shift{
		ID:         "s1",
		PayGuideID: "guide-1",
		Start:      time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2026, time.July, 1, 17, 0, 0, 0, time.UTC),
	}

	tables := flatTables("0.19", "0")
	tables.Coefficients[0].TaxYear = 2027

	totals, err := payperiod.Aggregate(payperiod.Input{
		Period:   period,
		Shifts:   []shiftpay.Shift{shift},
		Guides:   map[string]*shiftpay.PayGuide{"guide-1": testGuide()},
		Settings: testSettings(),
		Tables:   tables,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.TaxYear != 2027 {
		t.Errorf("expected tax year 2027, got %d", totals.TaxYear)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	in := payperiod.Input{
		Period:   openPeriod(),
		Shifts:   []shiftpay.Shift{eightHourShift("s1", 2), eightHourShift("s2", 3), eightHourShift("s3", 4)},
		Guides:   map[string]*shiftpay.PayGuide{"guide-1": testGuide()},
		Settings: testSettings(),
		Tables:   flatTables("0.19", "3.4615"),
		TaxYear:  2026,
	}

	first, err := payperiod.Aggregate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := payperiod.Aggregate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.GrossPay.Equal(second.GrossPay) || !first.NetPay.Equal(second.NetPay) ||
		!first.TotalWithheld.Equal(second.TotalWithheld) {
		t.Errorf("aggregation is not idempotent: %+v vs %+v", first, second)
	}
}

// =============================================================================
// STATUS MACHINE
// =============================================================================

func TestTransition_ForwardMoves(t *testing.T) {
	cases := []struct {
		from, to payperiod.Status
		ok       bool
	}{
		{payperiod.StatusOpen, payperiod.StatusProcessing, true},
		{payperiod.StatusProcessing, payperiod.StatusPaid, true},
		{payperiod.StatusProcessing, payperiod.StatusOpen, true},
		{payperiod.StatusPaid, payperiod.StatusVerified, true},
		{payperiod.StatusOpen, payperiod.StatusPaid, false},
		{payperiod.StatusPaid, payperiod.StatusOpen, false},
		{payperiod.StatusVerified, payperiod.StatusPaid, false},
		{payperiod.StatusVerified, payperiod.StatusOpen, false},
	}

	for _, tc := range cases {
		p := openPeriod()
		p.Status = tc.from
		updated, err := payperiod.Transition(p, tc.to)
		if tc.ok {
			if err != nil {
				t.Errorf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
			}
			if updated.Status != tc.to {
				t.Errorf("%s -> %s did not apply", tc.from, tc.to)
			}
		} else {
			if !errors.Is(err, payperiod.ErrInvalidTransition) {
				t.Errorf("%s -> %s should be rejected, got %v", tc.from, tc.to, err)
			}
		}
	}
}

func TestReopen_FromPaidAndVerified(t *testing.T) {
	// GIVEN: A verified period
	// WHEN: Reopening
	// THEN: Back to open with verification cleared

	p := openPeriod()
	p.Status = payperiod.StatusVerified
	p.Verified = true

	updated, err := payperiod.Reopen(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != payperiod.StatusOpen || updated.Verified {
		t.Errorf("reopen did not reset the period: %+v", updated)
	}

	// An open period cannot be reopened.
	if _, err := payperiod.Reopen(openPeriod()); !errors.Is(err, payperiod.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for reopening an open period, got %v", err)
	}
}

func TestStatus_LockedStates(t *testing.T) {
	if payperiod.StatusOpen.Locked() || payperiod.StatusProcessing.Locked() {
		t.Error("open/processing must not be locked")
	}
	if !payperiod.StatusPaid.Locked() || !payperiod.StatusVerified.Locked() {
		t.Error("paid/verified must be locked")
	}
}
