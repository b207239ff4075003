/*
Package payperiod aggregates shift pay into pay period totals.

PURPOSE:
  Runs the shift pay calculator once per shift in a period, sums shift
  gross pay with ad hoc extras, then runs the withholding calculation
  once on the period total - tax brackets apply to cumulative period
  income, never per-shift income.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: The period lifecycle (open -> processing -> paid -> verified)
  - Extra: A taxable or non-taxable ad hoc amount attached to a period
  - PayPeriod: The period record with its computed aggregates
  - Totals: The result of one aggregation run

SEE ALSO:
  - aggregate.go: The aggregation itself
*/
package payperiod

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/shiftpay"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// PERIOD STATUS - lifecycle state machine
// =============================================================================

// Status is a pay period's lifecycle state. Verified is terminal except
// for an explicit reopen back to open.
type Status string

const (
	StatusOpen       Status = "open"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusVerified   Status = "verified"
)

// transitions lists the allowed forward moves. Reopen (paid/verified back
// to open) is modelled explicitly rather than as a normal transition.
var transitions = map[Status][]Status{
	StatusOpen:       {StatusProcessing},
	StatusProcessing: {StatusPaid, StatusOpen},
	StatusPaid:       {StatusVerified},
	StatusVerified:   {},
}

// CanTransitionTo reports whether the forward move s -> next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Locked reports whether the period rejects recalculation. Paid and
// verified periods must be explicitly reopened first.
func (s Status) Locked() bool {
	return s == StatusPaid || s == StatusVerified
}

// CanReopen reports whether an explicit reopen (back to open) is allowed.
func (s Status) CanReopen() bool {
	return s == StatusPaid || s == StatusVerified
}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusProcessing, StatusPaid, StatusVerified:
		return true
	}
	return false
}

// =============================================================================
// EXTRAS - ad hoc amounts attached to a period
// =============================================================================

// Extra is an ad hoc amount on a period: a taxable bonus, or a
// non-taxable reimbursement. Taxable extras join the period gross before
// withholding; non-taxable extras are added straight onto net pay.
type Extra struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Taxable     bool
}

// =============================================================================
// PAY PERIOD
// =============================================================================

// PayPeriod is the period record. The aggregate fields are written back
// by the aggregator; ActualPay and Verified are user-entered.
type PayPeriod struct {
	ID        string
	StartDate time.Time
	EndDate   time.Time
	Status    Status

	TotalHours        decimal.Decimal
	TotalPay          decimal.Decimal
	PaygWithholding   decimal.Decimal
	MedicareLevy      decimal.Decimal
	StslAmount        decimal.Decimal
	TotalWithholdings decimal.Decimal
	NetPay            decimal.Decimal

	ActualPay *decimal.Decimal
	Verified  bool
}

// =============================================================================
// AGGREGATION RESULT
// =============================================================================

// Totals is the outcome of one aggregation run: period-level figures plus
// the per-shift breakdowns for atomic writeback and audit display.
type Totals struct {
	TotalHours      decimal.Decimal
	GrossPay        decimal.Decimal
	TaxableExtras   decimal.Decimal
	UntaxedExtras   decimal.Decimal
	TaxYear         int
	Scale           tax.Scale
	PaygWithholding decimal.Decimal
	MedicareLevy    decimal.Decimal
	StslAmount      decimal.Decimal
	TotalWithheld   decimal.Decimal
	NetPay          decimal.Decimal

	Shifts   []*shiftpay.ShiftPay
	Warnings []string
}
