/*
Package shiftpay computes pay for a single work shift.

PURPOSE:
  This package contains the shift pay engine: it splits a raw shift
  (start/end plus breaks) into disjoint minute-granular segments, matches
  penalty and overtime windows against each segment, and turns the
  resolved segments into base/penalty/overtime pay amounts.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeOfDay: A wall-clock time (HH:MM) independent of any date
  - Window: The shared shape of a rate window (time range, day-of-week,
    public-holiday flag, priority)
  - PenaltyWindow / OvertimeWindow: The two rate window variants
  - PayGuide: Base rate plus the windows and holidays that apply to it
  - Shift / BreakPeriod: The raw timesheet input

DESIGN PRINCIPLES:
  1. Purity: No clock reads, no I/O. Everything is a function of its inputs.
  2. Precision: Uses decimal.Decimal for all money and hours arithmetic.
  3. Shared windowing: Penalty and overtime windows share one Window shape
     so segmentation is written once; only the pay math dispatches on kind.

SEE ALSO:
  - segment.go: Splits a shift into annotated segments
  - resolve.go: Picks the winning window per segment
  - calculate.go: Produces the ShiftPay breakdown
*/
package shiftpay

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME OF DAY - Wall-clock time for window boundaries
// =============================================================================

// TimeOfDay is a wall-clock time (no date, no zone). Windows are defined
// in the pay guide's timezone using these.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: out of range", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// MinuteOfDay returns minutes since midnight.
func (t TimeOfDay) MinuteOfDay() int { return t.Hour*60 + t.Minute }

// On anchors the wall-clock time onto a calendar day in a location.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// =============================================================================
// RATE WINDOWS - Shared windowing trait plus the two variants
// =============================================================================

// Window is the shared shape of penalty and overtime time frames: when the
// window applies, independent of what it pays.
//
// Start/End are times of day in the pay guide's timezone. An End at or
// before Start means the window wraps past midnight (e.g. 22:00-06:00).
// DayOfWeek nil means the window applies every day. When PublicHolidayOnly
// is set the window only applies on a date listed as a PublicHoliday.
type Window struct {
	ID                string
	Name              string
	Start             TimeOfDay
	End               TimeOfDay
	DayOfWeek         *time.Weekday
	PublicHolidayOnly bool
	Priority          int
	Active            bool
}

// AppliesOn reports whether the window is applicable to a calendar day.
func (w Window) AppliesOn(day time.Time, holidays HolidaySet) bool {
	if !w.Active {
		return false
	}
	if w.DayOfWeek != nil && *w.DayOfWeek != day.Weekday() {
		return false
	}
	if w.PublicHolidayOnly && !holidays.Contains(day) {
		return false
	}
	return true
}

// wraps reports whether the window crosses midnight.
func (w Window) wraps() bool { return w.End.MinuteOfDay() <= w.Start.MinuteOfDay() }

// PenaltyWindow pays a flat multiplier (>= 1.0) on the base rate for the
// time it covers.
type PenaltyWindow struct {
	Window
	Multiplier decimal.Decimal
}

// OvertimeWindow pays tiered multipliers: the first overtimeTierMinutes of
// cumulative time inside this window within one shift pay FirstTierMult,
// anything beyond pays AfterTierMult.
type OvertimeWindow struct {
	Window
	FirstTierMult decimal.Decimal
	AfterTierMult decimal.Decimal
}

// overtimeTierMinutes is the cumulative per-window threshold separating the
// first overtime tier from the second (3 hours).
const overtimeTierMinutes = 180

// =============================================================================
// PUBLIC HOLIDAYS
// =============================================================================

// PublicHoliday marks a calendar date as a public holiday for a pay guide.
type PublicHoliday struct {
	ID     string
	Date   time.Time
	Name   string
	Active bool
}

// HolidaySet is a date-keyed lookup over active public holidays.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a lookup from active holidays. Dates are keyed by
// calendar day; the caller supplies dates already in guide-local time.
func NewHolidaySet(holidays []PublicHoliday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		if h.Active {
			set[h.Date.Format("2006-01-02")] = struct{}{}
		}
	}
	return set
}

func (s HolidaySet) Contains(day time.Time) bool {
	_, ok := s[day.Format("2006-01-02")]
	return ok
}

// =============================================================================
// PAY GUIDE
// =============================================================================

// PayGuide is the configured rate card a shift is paid against. It owns its
// penalty windows, overtime windows, and public holidays; deleting a guide
// deletes them with it.
type PayGuide struct {
	ID                string
	Name              string
	BaseRate          decimal.Decimal
	MinimumShiftHours *decimal.Decimal
	MaximumShiftHours *decimal.Decimal
	EffectiveFrom     *time.Time
	EffectiveTo       *time.Time
	Timezone          string
	Active            bool

	Penalties []PenaltyWindow
	Overtimes []OvertimeWindow
	Holidays  []PublicHoliday
}

// Location resolves the guide's declared timezone. An empty timezone means
// UTC; an unknown one is an error rather than a silent fallback.
func (g *PayGuide) Location() (*time.Location, error) {
	if g.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, fmt.Errorf("pay guide %s: %w", g.ID, err)
	}
	return loc, nil
}

// =============================================================================
// SHIFT
// =============================================================================

// BreakPeriod is an unpaid interval inside a shift. Breaks are removed
// entirely before segmentation; they produce no segments.
type BreakPeriod struct {
	Start time.Time
	End   time.Time
}

// Shift is a raw timesheet entry. Breaks may be given either as explicit
// BreakPeriods or as an unanchored BreakMinutes total; when only
// BreakMinutes is set, a single break of that length is carved out of the
// middle of the shift so the deduction stays deterministic.
type Shift struct {
	ID           string
	PayGuideID   string
	Start        time.Time
	End          time.Time
	Breaks       []BreakPeriod
	BreakMinutes int
}

// effectiveBreaks returns the break list to subtract, synthesising the
// centered break when only BreakMinutes was supplied.
func (s Shift) effectiveBreaks() []BreakPeriod {
	if len(s.Breaks) > 0 || s.BreakMinutes <= 0 {
		return s.Breaks
	}
	total := s.End.Sub(s.Start)
	length := time.Duration(s.BreakMinutes) * time.Minute
	if length > total {
		length = total
	}
	mid := s.Start.Add(total / 2)
	start := mid.Add(-length / 2)
	return []BreakPeriod{{Start: start, End: start.Add(length)}}
}

// =============================================================================
// SEGMENT - One disjoint slice of working time
// =============================================================================

// Segment is a disjoint sub-interval of a shift's working time, annotated
// with every rate window that overlaps it. Resolution (picking the winner)
// happens later, in resolve.go.
type Segment struct {
	Start time.Time
	End   time.Time

	// Day is the calendar day (guide-local) the segment starts on. A shift
	// that crosses midnight yields segments on different days.
	Day time.Time

	Penalties []PenaltyWindow
	Overtimes []OvertimeWindow
}

func (s Segment) Minutes() int { return int(s.End.Sub(s.Start) / time.Minute) }

func (s Segment) Duration() time.Duration { return s.End.Sub(s.Start) }
