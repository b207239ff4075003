/*
calculate.go - Shift pay calculator

PURPOSE:
  Drives segmentation and rate resolution, then turns the resolved
  segments into the ShiftPay breakdown: base/penalty/overtime hours and
  pay, plus per-window applied lists for the audit trail.

CLASSIFICATION:
  A segment inside an overtime window counts as overtime (even when a
  penalty window also covers it - the overtime rate stacks on top of the
  penalty multiplier rather than replacing it). Otherwise a segment with
  a resolved penalty multiplier above 1.0 counts as penalty time.
  Everything else is base time at 1.0x.

ROUNDING:
  All intermediate math is exact decimal. Only the monetary outputs are
  rounded, to 2 decimal places, at the very end. Hours are reported as
  exact minute fractions so baseHours+penaltyHours+overtimeHours always
  reconciles with totalHours.
*/
package shiftpay

import (
	"time"

	"github.com/shopspring/decimal"
)

// Span is one contiguous stretch of time a window was applied to.
type Span struct {
	Start time.Time
	End   time.Time
}

// AppliedPenalty reports one penalty window that actually contributed pay,
// aggregated across all (possibly non-contiguous) segments it won.
type AppliedPenalty struct {
	WindowID   string
	Name       string
	Multiplier decimal.Decimal
	Spans      []Span
	Hours      decimal.Decimal
	Pay        decimal.Decimal
}

// AppliedOvertime reports one overtime window that actually contributed
// pay, aggregated across segments, with the tier split broken out.
type AppliedOvertime struct {
	WindowID       string
	Name           string
	FirstTierMult  decimal.Decimal
	AfterTierMult  decimal.Decimal
	Spans          []Span
	FirstTierHours decimal.Decimal
	AfterTierHours decimal.Decimal
	Hours          decimal.Decimal
	Pay            decimal.Decimal
}

// ShiftPay is the full breakdown for one shift. The applied lists are
// complete enough for a presentation layer to rebuild a human-readable
// audit trail without recomputing anything.
type ShiftPay struct {
	ShiftID string

	BaseHours decimal.Decimal
	BaseRate  decimal.Decimal
	BasePay   decimal.Decimal

	PenaltyHours decimal.Decimal
	PenaltyPay   decimal.Decimal

	OvertimeHours decimal.Decimal
	OvertimePay   decimal.Decimal

	TotalHours   decimal.Decimal
	TotalMinutes int
	GrossPay     decimal.Decimal

	AppliedPenalties []AppliedPenalty
	AppliedOvertimes []AppliedOvertime
}

var sixty = decimal.NewFromInt(60)

func minutesToHours(m int) decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(sixty)
}

// Calculate computes the pay breakdown for one shift against a pay guide.
// A shift whose working time is fully covered by breaks yields an
// all-zero result, not an error.
func Calculate(guide *PayGuide, holidays []PublicHoliday, shift Shift) (*ShiftPay, error) {
	segments, err := SegmentShift(guide, holidays, shift)
	if err != nil {
		return nil, err
	}

	result := &ShiftPay{
		ShiftID:       shift.ID,
		BaseRate:      guide.BaseRate,
		BaseHours:     decimal.Zero,
		BasePay:       decimal.Zero,
		PenaltyHours:  decimal.Zero,
		PenaltyPay:    decimal.Zero,
		OvertimeHours: decimal.Zero,
		OvertimePay:   decimal.Zero,
		TotalHours:    decimal.Zero,
		GrossPay:      decimal.Zero,
	}

	one := decimal.NewFromInt(1)
	tally := overtimeTally{}
	penalties := newAppliedPenaltySet()
	overtimes := newAppliedOvertimeSet()

	var baseMinutes, penaltyMinutes, overtimeMinutes int
	basePay, penaltyPay, overtimePay := decimal.Zero, decimal.Zero, decimal.Zero

	for _, seg := range segments {
		minutes := seg.Minutes()
		if minutes == 0 {
			continue
		}

		penalty := pickPenalty(seg.Penalties)
		overtime := pickOvertime(seg.Overtimes)

		penaltyMult := one
		if penalty != nil {
			penaltyMult = penalty.Multiplier
		}

		switch {
		case overtime != nil:
			// Overtime stacks multiplicatively on a simultaneous penalty.
			firstTier, afterTier := tally.consume(overtime.ID, minutes)
			overtimeMinutes += minutes

			cursor := seg.Start
			if firstTier > 0 {
				hours := minutesToHours(firstTier)
				pay := guide.BaseRate.Mul(penaltyMult).Mul(overtime.FirstTierMult).Mul(hours)
				overtimePay = overtimePay.Add(pay)
				end := cursor.Add(time.Duration(firstTier) * time.Minute)
				overtimes.add(overtime, Span{Start: cursor, End: end}, hours, decimal.Zero, pay)
				cursor = end
			}
			if afterTier > 0 {
				hours := minutesToHours(afterTier)
				pay := guide.BaseRate.Mul(penaltyMult).Mul(overtime.AfterTierMult).Mul(hours)
				overtimePay = overtimePay.Add(pay)
				end := cursor.Add(time.Duration(afterTier) * time.Minute)
				overtimes.add(overtime, Span{Start: cursor, End: end}, decimal.Zero, hours, pay)
			}

		case penalty != nil && penalty.Multiplier.GreaterThan(one):
			penaltyMinutes += minutes
			hours := minutesToHours(minutes)
			pay := guide.BaseRate.Mul(penalty.Multiplier).Mul(hours)
			penaltyPay = penaltyPay.Add(pay)
			penalties.add(penalty, Span{Start: seg.Start, End: seg.End}, hours, pay)

		default:
			// No matching window: base rate. This fallback is deliberate.
			baseMinutes += minutes
			basePay = basePay.Add(guide.BaseRate.Mul(minutesToHours(minutes)))
		}
	}

	totalMinutes := baseMinutes + penaltyMinutes + overtimeMinutes

	result.BaseHours = minutesToHours(baseMinutes)
	result.BasePay = basePay.Round(2)
	result.PenaltyHours = minutesToHours(penaltyMinutes)
	result.PenaltyPay = penaltyPay.Round(2)
	result.OvertimeHours = minutesToHours(overtimeMinutes)
	result.OvertimePay = overtimePay.Round(2)
	result.TotalMinutes = totalMinutes
	result.TotalHours = minutesToHours(totalMinutes)
	result.GrossPay = basePay.Add(penaltyPay).Add(overtimePay).Round(2)
	result.AppliedPenalties = penalties.list()
	result.AppliedOvertimes = overtimes.list()

	return result, nil
}

// =============================================================================
// APPLIED WINDOW AGGREGATION - per distinct window id, across segments
// =============================================================================

type appliedPenaltySet struct {
	order []string
	byID  map[string]*AppliedPenalty
}

func newAppliedPenaltySet() *appliedPenaltySet {
	return &appliedPenaltySet{byID: make(map[string]*AppliedPenalty)}
}

func (s *appliedPenaltySet) add(w *PenaltyWindow, span Span, hours, pay decimal.Decimal) {
	app, ok := s.byID[w.ID]
	if !ok {
		app = &AppliedPenalty{
			WindowID:   w.ID,
			Name:       w.Name,
			Multiplier: w.Multiplier,
			Hours:      decimal.Zero,
			Pay:        decimal.Zero,
		}
		s.byID[w.ID] = app
		s.order = append(s.order, w.ID)
	}
	app.Spans = mergeSpan(app.Spans, span)
	app.Hours = app.Hours.Add(hours)
	app.Pay = app.Pay.Add(pay)
}

func (s *appliedPenaltySet) list() []AppliedPenalty {
	var out []AppliedPenalty
	for _, id := range s.order {
		app := *s.byID[id]
		app.Pay = app.Pay.Round(2)
		out = append(out, app)
	}
	return out
}

type appliedOvertimeSet struct {
	order []string
	byID  map[string]*AppliedOvertime
}

func newAppliedOvertimeSet() *appliedOvertimeSet {
	return &appliedOvertimeSet{byID: make(map[string]*AppliedOvertime)}
}

func (s *appliedOvertimeSet) add(w *OvertimeWindow, span Span, firstHours, afterHours, pay decimal.Decimal) {
	app, ok := s.byID[w.ID]
	if !ok {
		app = &AppliedOvertime{
			WindowID:       w.ID,
			Name:           w.Name,
			FirstTierMult:  w.FirstTierMult,
			AfterTierMult:  w.AfterTierMult,
			FirstTierHours: decimal.Zero,
			AfterTierHours: decimal.Zero,
			Hours:          decimal.Zero,
			Pay:            decimal.Zero,
		}
		s.byID[w.ID] = app
		s.order = append(s.order, w.ID)
	}
	app.Spans = mergeSpan(app.Spans, span)
	app.FirstTierHours = app.FirstTierHours.Add(firstHours)
	app.AfterTierHours = app.AfterTierHours.Add(afterHours)
	app.Hours = app.Hours.Add(firstHours).Add(afterHours)
	app.Pay = app.Pay.Add(pay)
}

func (s *appliedOvertimeSet) list() []AppliedOvertime {
	var out []AppliedOvertime
	for _, id := range s.order {
		app := *s.byID[id]
		app.Pay = app.Pay.Round(2)
		out = append(out, app)
	}
	return out
}

// mergeSpan appends a span, coalescing with the previous one when they
// touch. Segments arrive chronologically, so only the tail can merge.
func mergeSpan(spans []Span, next Span) []Span {
	if n := len(spans); n > 0 && spans[n-1].End.Equal(next.Start) {
		spans[n-1].End = next.End
		return spans
	}
	return append(spans, next)
}
