/*
resolve.go - Rate rule resolver

PURPOSE:
  Given a segment annotated with overlapping windows, picks exactly one
  penalty window and one overtime window (independently), and tracks the
  cumulative overtime tier state across a shift.

TIE-BREAKS:
  Highest priority wins. On a priority tie, the higher multiplier wins.
  A final ID comparison makes the pick fully deterministic regardless of
  the order windows were loaded in.

OVERTIME TIERS:
  The multiplier an overtime minute earns depends on how many minutes of
  that same window the shift has already consumed, contiguous or not.
  The tally is threaded through the chronological fold as a plain value
  keyed by window ID - no shared mutable state.
*/
package shiftpay

// pickPenalty selects the winning penalty window for a segment, or nil
// when no window matched (the segment then pays the base rate - a
// documented fallback, not an error).
func pickPenalty(candidates []PenaltyWindow) *PenaltyWindow {
	var best *PenaltyWindow
	for i := range candidates {
		c := &candidates[i]
		if best == nil || penaltyBeats(c, best) {
			best = c
		}
	}
	return best
}

func penaltyBeats(a, b *PenaltyWindow) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.Multiplier.Equal(b.Multiplier) {
		return a.Multiplier.GreaterThan(b.Multiplier)
	}
	return a.ID < b.ID
}

// pickOvertime selects the winning overtime window for a segment, using
// the same priority-then-multiplier tie-break (compared on the first
// tier's multiplier).
func pickOvertime(candidates []OvertimeWindow) *OvertimeWindow {
	var best *OvertimeWindow
	for i := range candidates {
		c := &candidates[i]
		if best == nil || overtimeBeats(c, best) {
			best = c
		}
	}
	return best
}

func overtimeBeats(a, b *OvertimeWindow) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.FirstTierMult.Equal(b.FirstTierMult) {
		return a.FirstTierMult.GreaterThan(b.FirstTierMult)
	}
	return a.ID < b.ID
}

// overtimeTally tracks cumulative minutes consumed per overtime window
// within a single shift. Segments must be folded in chronological order.
type overtimeTally map[string]int

// consume attributes minutes to a window and splits them across the two
// tiers: minutes up to the cumulative threshold land in the first tier,
// the rest in the second. A segment spanning the threshold is split.
func (t overtimeTally) consume(windowID string, minutes int) (firstTier, afterTier int) {
	already := t[windowID]
	t[windowID] = already + minutes

	remainingFirst := overtimeTierMinutes - already
	if remainingFirst <= 0 {
		return 0, minutes
	}
	if minutes <= remainingFirst {
		return minutes, 0
	}
	return remainingFirst, minutes - remainingFirst
}
