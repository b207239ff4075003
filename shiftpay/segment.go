/*
segment.go - Time segmentation engine

PURPOSE:
  Splits a shift's effective working time (shift minus breaks) into an
  ordered, disjoint sequence of segments, each annotated with every
  penalty/overtime window that overlaps it.

ALGORITHM:
  1. Validate the shift (end after start, breaks inside, no overlap).
  2. Project every active, applicable window onto each calendar day the
     shift touches (plus the day before, so a wrapping window like
     22:00-06:00 started yesterday still covers the shift's first hour).
  3. Collect boundary instants: shift edges, break edges, projected
     window edges. Sort, deduplicate, form consecutive intervals.
  4. Drop intervals covered by a break and zero-length intervals.
  5. Annotate each surviving interval with the window instances that
     fully contain it (they always do or don't - window edges are
     themselves boundaries).

  The same partition falls out of a shift crossing midnight or a shift
  spanning a penalty/non-penalty edge mid-shift.

SEE ALSO:
  - types.go: Window, Segment, Shift
  - resolve.go: Picks one winner among the annotated windows
*/
package shiftpay

import (
	"sort"
	"time"
)

// windowInstance is one projection of a window onto a concrete day,
// clipped to the shift.
type windowInstance struct {
	start, end time.Time
	penalty    *PenaltyWindow
	overtime   *OvertimeWindow
}

// SegmentShift splits the shift into annotated, disjoint segments covering
// exactly its working time. Segments are returned in chronological order.
func SegmentShift(guide *PayGuide, holidays []PublicHoliday, shift Shift) ([]Segment, error) {
	loc, err := guide.Location()
	if err != nil {
		return nil, err
	}
	if err := validateShift(shift); err != nil {
		return nil, err
	}

	start := shift.Start.In(loc)
	end := shift.End.In(loc)
	breaks := shift.effectiveBreaks()
	holidaySet := NewHolidaySet(holidays)

	instances := projectWindows(guide, holidaySet, start, end, loc)

	// Boundary instants: shift edges, break edges, window edges.
	bounds := []time.Time{start, end}
	for _, b := range breaks {
		bounds = append(bounds, b.Start.In(loc), b.End.In(loc))
	}
	for _, inst := range instances {
		bounds = append(bounds, inst.start, inst.end)
	}
	bounds = sortedUnique(clampAll(bounds, start, end))

	var segments []Segment
	for i := 0; i < len(bounds)-1; i++ {
		segStart, segEnd := bounds[i], bounds[i+1]
		if !segEnd.After(segStart) {
			continue
		}
		if insideBreak(segStart, segEnd, breaks) {
			continue
		}
		seg := Segment{
			Start: segStart,
			End:   segEnd,
			Day:   dayOf(segStart, loc),
		}
		for _, inst := range instances {
			if !inst.start.After(segStart) && !inst.end.Before(segEnd) {
				if inst.penalty != nil {
					seg.Penalties = append(seg.Penalties, *inst.penalty)
				}
				if inst.overtime != nil {
					seg.Overtimes = append(seg.Overtimes, *inst.overtime)
				}
			}
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// projectWindows turns every applicable window into absolute intervals
// clipped to [start, end). A window is projected per calendar day so
// day-of-week and public-holiday applicability are evaluated per day,
// which is what makes midnight-crossing shifts come out right.
func projectWindows(guide *PayGuide, holidays HolidaySet, start, end time.Time, loc *time.Location) []windowInstance {
	var instances []windowInstance

	firstDay := dayOf(start, loc).AddDate(0, 0, -1) // wrapping windows reach forward from yesterday
	lastDay := dayOf(end, loc)

	for i := range guide.Penalties {
		p := &guide.Penalties[i]
		for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
			if !p.AppliesOn(day, holidays) {
				continue
			}
			if s, e, ok := instantiate(p.Window, day, loc, start, end); ok {
				instances = append(instances, windowInstance{start: s, end: e, penalty: p})
			}
		}
	}
	for i := range guide.Overtimes {
		o := &guide.Overtimes[i]
		for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
			if !o.AppliesOn(day, holidays) {
				continue
			}
			if s, e, ok := instantiate(o.Window, day, loc, start, end); ok {
				instances = append(instances, windowInstance{start: s, end: e, overtime: o})
			}
		}
	}
	return instances
}

// instantiate anchors a window onto a day and clips it to the shift.
// Returns ok=false when the projection misses the shift entirely.
func instantiate(w Window, day time.Time, loc *time.Location, clipStart, clipEnd time.Time) (time.Time, time.Time, bool) {
	ws := w.Start.On(day, loc)
	we := w.End.On(day, loc)
	if w.wraps() {
		we = we.AddDate(0, 0, 1)
	}
	if ws.Before(clipStart) {
		ws = clipStart
	}
	if we.After(clipEnd) {
		we = clipEnd
	}
	if !we.After(ws) {
		return time.Time{}, time.Time{}, false
	}
	return ws, we, true
}

func validateShift(shift Shift) error {
	if !shift.End.After(shift.Start) {
		return &ShiftRangeError{ShiftID: shift.ID, Reason: "end is not after start"}
	}
	breaks := append([]BreakPeriod(nil), shift.Breaks...)
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start.Before(breaks[j].Start) })
	for i, b := range breaks {
		if !b.End.After(b.Start) {
			return &ShiftRangeError{ShiftID: shift.ID, Reason: "break end is not after break start"}
		}
		if b.Start.Before(shift.Start) || b.End.After(shift.End) {
			return &ShiftRangeError{ShiftID: shift.ID, Reason: "break outside shift bounds"}
		}
		if i > 0 && b.Start.Before(breaks[i-1].End) {
			return &ShiftRangeError{ShiftID: shift.ID, Reason: "breaks overlap"}
		}
	}
	return nil
}

// insideBreak reports whether [segStart, segEnd) is covered by a break.
// Break edges are boundaries, so a segment is either fully inside a break
// or fully outside every break.
func insideBreak(segStart, segEnd time.Time, breaks []BreakPeriod) bool {
	for _, b := range breaks {
		if !b.Start.After(segStart) && !b.End.Before(segEnd) {
			return true
		}
	}
	return false
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func clampAll(ts []time.Time, min, max time.Time) []time.Time {
	out := ts[:0]
	for _, t := range ts {
		if t.Before(min) {
			t = min
		}
		if t.After(max) {
			t = max
		}
		out = append(out, t)
	}
	return out
}

func sortedUnique(ts []time.Time) []time.Time {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	out := ts[:0]
	for i, t := range ts {
		if i == 0 || !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}
