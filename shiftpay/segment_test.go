package shiftpay_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/shiftpay"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testGuide(rate string) *shiftpay.PayGuide {
	return &shiftpay.PayGuide{
		ID:       "guide-1",
		Name:     "Test Guide",
		BaseRate: decimal.RequireFromString(rate),
		Active:   true,
	}
}

// at builds a UTC instant on a fixed test week.
// 2026-03-06 is a Friday, 2026-03-07 a Saturday.
func at(day int, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, time.UTC)
}

func penalty(id, start, end string, dow *time.Weekday, mult string, priority int) shiftpay.PenaltyWindow {
	return shiftpay.PenaltyWindow{
		Window: shiftpay.Window{
			ID:        id,
			Name:      id,
			Start:     shiftpay.MustParseTimeOfDay(start),
			End:       shiftpay.MustParseTimeOfDay(end),
			DayOfWeek: dow,
			Priority:  priority,
			Active:    true,
		},
		Multiplier: decimal.RequireFromString(mult),
	}
}

func weekday(d time.Weekday) *time.Weekday { return &d }

func totalMinutes(segments []shiftpay.Segment) int {
	total := 0
	for _, s := range segments {
		total += s.Minutes()
	}
	return total
}

// =============================================================================
// SEGMENTATION TESTS
// =============================================================================

func TestSegmentShift_NoWindows_SingleSegment(t *testing.T) {
	// GIVEN: An 8-hour shift with no breaks and no windows
	// WHEN: Segmenting
	// THEN: One segment covering the whole shift

	guide := testGuide("25")
	shift := shiftpay.Shift{ID: "s1", Start: at(6, 9, 0), End: at(6, 17, 0)}

	segments, err := shiftpay.SegmentShift(guide, nil, shift)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if got := segments[0].Minutes(); got != 480 {
		t.Errorf("expected 480 minutes, got %d", got)
	}
}

func TestSegmentShift_BreakRemoved(t *testing.T) {
	// GIVEN: An 8-hour shift with a 30-minute break
	// WHEN: Segmenting
	// THEN: Two segments around the break, covering shift minus break

	guide := testGuide("25")
	shift := shiftpay.Shift{
		ID:    "s1",
		Start: at(6, 9, 0),
		End:   at(6, 17, 0),
		Breaks: []shiftpay.BreakPeriod{
			{Start: at(6, 12, 0), End: at(6, 12, 30)},
		},
	}

	segments, err := shiftpay.SegmentShift(guide, nil, shift)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if got := totalMinutes(segments); got != 450 {
		t.Errorf("expected 450 working minutes, got %d", got)
	}
	if !segments[0].End.Equal(at(6, 12, 0)) || !segments[1].Start.Equal(at(6, 12, 30)) {
		t.Errorf("segments do not abut the break: %v / %v", segments[0], segments[1])
	}
}

func TestSegmentShift_BreakCoversWholeShift(t *testing.T) {
	// GIVEN: A break spanning the entire shift
	// WHEN: Segmenting
	// THEN: No segments and no error

	guide := testGuide("25")
	shift := shiftpay.Shift{
		ID:    "s1",
		Start: at(6, 9, 0),
		End:   at(6, 10, 0),
		Breaks: []shiftpay.BreakPeriod{
			{Start: at(6, 9, 0), End: at(6, 10, 0)},
		},
	}

	segments, err := shiftpay.SegmentShift(guide, nil, shift)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("expected no segments, got %d", len(segments))
	}
}

func TestSegmentShift_BreakMinutesCenteredDeduction(t *testing.T) {
	// GIVEN: A shift with only an unanchored 60-minute break total
	// WHEN: Segmenting
	// THEN: A single synthesized break is carved out of the shift middle

	guide := testGuide("25")
	shift := shiftpay.Shift{
		ID:           "s1",
		Start:        at(6, 9, 0),
		End:          at(6, 17, 0),
		BreakMinutes: 60,
	}

	segments, err := shiftpay.SegmentShift(guide, nil, shift)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := totalMinutes(segments); got != 420 {
		t.Errorf("expected 420 working minutes, got %d", got)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if !segments[0].End.Equal(at(6, 12, 30)) || !segments[1].Start.Equal(at(6, 13, 30)) {
		t.Errorf("break not centered: gap is %v to %v", segments[0].End, segments[1].Start)
	}
}

func TestSegmentShift_MidnightCrossing_SplitsAtWindowEdge(t *testing.T) {
	// GIVEN: A Friday 22:00 - Saturday 06:00 shift, penalty Sat 00:00-06:00
	// WHEN: Segmenting
	// THEN: Split at midnight; only the Saturday segment carries the window

	guide := testGuide("20")
	guide.Penalties = []shiftpay.PenaltyWindow{
		penalty("sat-early", "00:00", "06:00", weekday(time.Saturday), "1.5", 0),
	}
	shift := shiftpay.Shift{ID: "s1", Start: at(6, 22, 0), End: at(7, 6, 0)}

	segments, err := shiftpay.SegmentShift(guide, nil, shift)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	friday, saturday := segments[0], segments[1]
	if len(friday.Penalties) != 0 {
		t.Errorf("friday segment should carry no windows, got %d", len(friday.Penalties))
	}
	if len(saturday.Penalties) != 1 {
		t.Fatalf("saturday segment should carry the penalty window, got %d", len(saturday.Penalties))
	}
	if friday.Minutes() != 120 || saturday.Minutes() != 360 {
		t.Errorf("expected 120/360 minute split, got %d/%d", friday.Minutes(), saturday.Minutes())
	}
	if friday.Day.Day() != 6 || saturday.Day.Day() != 7 {
		t.Errorf("segment days wrong: %v / %v", friday.Day, saturday.Day)
	}
}

func TestSegmentShift_WrappingWindowReachesFromPreviousDay(t *testing.T) {
	// GIVEN: A Friday 22:00-06:00 wrapping window and a Saturday 03:00-05:00 shift
	// WHEN: Segmenting
	// THEN: The Friday-anchored window still covers the early Saturday hours

	guide := testGuide("20")
	guide.Penalties = []shiftpay.PenaltyWindow{
		penalty("fri-night", "22:00", "06:00", weekday(time.Friday), "1.75", 0),
	}
	shift := shiftpay.Shift{ID: "s1", Start: at(7, 3, 0), End: at(7, 5, 0)}

	segments, err := shiftpay.SegmentShift(guide, nil, shift)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if len(segments[0].Penalties) != 1 {
		t.Errorf("expected the wrapping window to cover the segment")
	}
}

func TestSegmentShift_PublicHolidayOnlyWindow(t *testing.T) {
	// GIVEN: A holiday-only penalty window and one listed holiday date
	// WHEN: Segmenting a shift on the holiday and one the day after
	// THEN: The window applies on the holiday only

	guide := testGuide("20")
	guide.Penalties = []shiftpay.PenaltyWindow{
		{
			Window: shiftpay.Window{
				ID:                "ph",
				Name:              "Public holiday",
				Start:             shiftpay.MustParseTimeOfDay("00:00"),
				End:               shiftpay.MustParseTimeOfDay("00:00"),
				PublicHolidayOnly: true,
				Active:            true,
			},
			Multiplier: decimal.RequireFromString("2.5"),
		},
	}
	holidays := []shiftpay.PublicHoliday{
		{ID: "h1", Date: at(6, 0, 0), Name: "Test Day", Active: true},
	}

	onHoliday := shiftpay.Shift{ID: "s1", Start: at(6, 9, 0), End: at(6, 17, 0)}
	segments, err := shiftpay.SegmentShift(guide, holidays, onHoliday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 || len(segments[0].Penalties) != 1 {
		t.Errorf("holiday window should cover the holiday shift")
	}

	offHoliday := shiftpay.Shift{ID: "s2", Start: at(8, 9, 0), End: at(8, 17, 0)}
	segments, err = shiftpay.SegmentShift(guide, holidays, offHoliday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, seg := range segments {
		if len(seg.Penalties) != 0 {
			t.Errorf("holiday window must not apply off the holiday")
		}
	}
}

func TestSegmentShift_InactiveWindowIgnored(t *testing.T) {
	// GIVEN: An inactive penalty window covering the whole shift
	// WHEN: Segmenting
	// THEN: The window is ignored

	guide := testGuide("20")
	p := penalty("off", "00:00", "00:00", nil, "2", 0)
	p.Active = false
	guide.Penalties = []shiftpay.PenaltyWindow{p}

	shift := shiftpay.Shift{ID: "s1", Start: at(6, 9, 0), End: at(6, 17, 0)}
	segments, err := shiftpay.SegmentShift(guide, nil, shift)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, seg := range segments {
		if len(seg.Penalties) != 0 {
			t.Errorf("inactive window must not annotate segments")
		}
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestSegmentShift_InvalidRanges(t *testing.T) {
	guide := testGuide("20")

	cases := []struct {
		name  string
		shift shiftpay.Shift
	}{
		{
			name:  "end before start",
			shift: shiftpay.Shift{ID: "s1", Start: at(6, 17, 0), End: at(6, 9, 0)},
		},
		{
			name:  "zero length",
			shift: shiftpay.Shift{ID: "s2", Start: at(6, 9, 0), End: at(6, 9, 0)},
		},
		{
			name: "break outside shift",
			shift: shiftpay.Shift{
				ID: "s3", Start: at(6, 9, 0), End: at(6, 17, 0),
				Breaks: []shiftpay.BreakPeriod{{Start: at(6, 8, 0), End: at(6, 10, 0)}},
			},
		},
		{
			name: "inverted break",
			shift: shiftpay.Shift{
				ID: "s4", Start: at(6, 9, 0), End: at(6, 17, 0),
				Breaks: []shiftpay.BreakPeriod{{Start: at(6, 13, 0), End: at(6, 12, 0)}},
			},
		},
		{
			name: "overlapping breaks",
			shift: shiftpay.Shift{
				ID: "s5", Start: at(6, 9, 0), End: at(6, 17, 0),
				Breaks: []shiftpay.BreakPeriod{
					{Start: at(6, 12, 0), End: at(6, 13, 0)},
					{Start: at(6, 12, 30), End: at(6, 14, 0)},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := shiftpay.SegmentShift(guide, nil, tc.shift)
			if !errors.Is(err, shiftpay.ErrInvalidShiftRange) {
				t.Errorf("expected ErrInvalidShiftRange, got %v", err)
			}
		})
	}
}

func TestSegmentShift_UnknownTimezoneFails(t *testing.T) {
	guide := testGuide("20")
	guide.Timezone = "Mars/Olympus_Mons"

	shift := shiftpay.Shift{ID: "s1", Start: at(6, 9, 0), End: at(6, 17, 0)}
	if _, err := shiftpay.SegmentShift(guide, nil, shift); err == nil {
		t.Error("expected an error for an unknown timezone")
	}
}
