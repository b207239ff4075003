package tax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoBracketFound is returned when no table row covers the requested
	// tax year, scale, and earnings. This is a hard failure: withholding
	// is never defaulted.
	ErrNoBracketFound = errors.New("no tax bracket found")

	// ErrMissingTaxSettings is returned when the taxpayer has no settings
	// record to resolve a scale from.
	ErrMissingTaxSettings = errors.New("missing tax settings")
)

// NoBracketError carries the lookup that failed.
type NoBracketError struct {
	TaxYear  int
	Scale    Scale
	Earnings decimal.Decimal
	Table    string // "payg" or "stsl"
}

func (e *NoBracketError) Error() string {
	return fmt.Sprintf("no %s bracket for year %d scale %s earnings %s",
		e.Table, e.TaxYear, e.Scale, e.Earnings)
}

func (e *NoBracketError) Unwrap() error { return ErrNoBracketFound }
