/*
errors.go - Error types for the shift pay engine

PURPOSE:
  Sentinel errors for errors.Is checks, plus structured errors that carry
  enough context for the API layer to build a useful response.

USAGE:
  if errors.Is(err, shiftpay.ErrInvalidShiftRange) {
      // 400, not 500
  }
*/
package shiftpay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShiftRange is returned when a shift's end is not after its
	// start, or when a break falls outside the shift or overlaps another.
	ErrInvalidShiftRange = errors.New("invalid shift range")
)

// ShiftRangeError describes why a shift failed validation.
type ShiftRangeError struct {
	ShiftID string
	Reason  string
}

func (e *ShiftRangeError) Error() string {
	return fmt.Sprintf("shift %s: %s", e.ShiftID, e.Reason)
}

func (e *ShiftRangeError) Unwrap() error { return ErrInvalidShiftRange }
