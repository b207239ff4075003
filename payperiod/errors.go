package payperiod

import (
	"errors"
	"fmt"
)

var (
	// ErrNoShiftsToCalculate is returned when a period has no shifts and
	// no extras - there is nothing to aggregate.
	ErrNoShiftsToCalculate = errors.New("no shifts to calculate")

	// ErrPeriodLocked is returned when recalculating a paid or verified
	// period that has not been explicitly reopened.
	ErrPeriodLocked = errors.New("pay period is locked")

	// ErrInvalidTransition is returned for a status move the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrGuideNotFound is returned when a shift references a pay guide
	// that was not supplied to the aggregation.
	ErrGuideNotFound = errors.New("pay guide not found")
)

// LockedError reports which period rejected recalculation and why.
type LockedError struct {
	PeriodID string
	Status   Status
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("pay period %s is %s; reopen it before recalculating", e.PeriodID, e.Status)
}

func (e *LockedError) Unwrap() error { return ErrPeriodLocked }

// TransitionError reports a rejected status move.
type TransitionError struct {
	PeriodID string
	From     Status
	To       Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("pay period %s: cannot move from %s to %s", e.PeriodID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
