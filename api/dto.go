/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND HOURS:
  Decimal fields are serialized as JSON strings ("22.50"), never as
  floats. shopspring/decimal marshals to a bare number by default, so
  the DTOs carry pre-formatted strings built by the handlers.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup
*/
package api

// =============================================================================
// PAY GUIDES
// =============================================================================

// PenaltyFrameDTO is one penalty window of a pay guide.
type PenaltyFrameDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	DayOfWeek         *int   `json:"day_of_week,omitempty"`
	PublicHolidayOnly bool   `json:"public_holiday_only"`
	Priority          int    `json:"priority"`
	Multiplier        string `json:"multiplier"`
	Active            bool   `json:"active"`
}

// OvertimeFrameDTO is one overtime window of a pay guide.
type OvertimeFrameDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	DayOfWeek         *int   `json:"day_of_week,omitempty"`
	PublicHolidayOnly bool   `json:"public_holiday_only"`
	Priority          int    `json:"priority"`
	FirstTierMult     string `json:"first_tier_multiplier"`
	AfterTierMult     string `json:"after_tier_multiplier"`
	Active            bool   `json:"active"`
}

// PublicHolidayDTO is one public holiday attached to a pay guide.
type PublicHolidayDTO struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// PayGuideDTO represents a pay guide with its windows and holidays.
type PayGuideDTO struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	BaseRate          string             `json:"base_rate"`
	MinimumShiftHours *string            `json:"minimum_shift_hours,omitempty"`
	MaximumShiftHours *string            `json:"maximum_shift_hours,omitempty"`
	EffectiveFrom     *string            `json:"effective_from,omitempty"`
	EffectiveTo       *string            `json:"effective_to,omitempty"`
	Timezone          string             `json:"timezone"`
	Active            bool               `json:"active"`
	Penalties         []PenaltyFrameDTO  `json:"penalties,omitempty"`
	Overtimes         []OvertimeFrameDTO `json:"overtimes,omitempty"`
	Holidays          []PublicHolidayDTO `json:"holidays,omitempty"`
}

// SavePayGuideRequest creates or replaces a pay guide. Child windows and
// holidays are replaced wholesale with what the request carries.
type SavePayGuideRequest struct {
	Name              string             `json:"name"`
	BaseRate          string             `json:"base_rate"`
	MinimumShiftHours *string            `json:"minimum_shift_hours,omitempty"`
	MaximumShiftHours *string            `json:"maximum_shift_hours,omitempty"`
	EffectiveFrom     *string            `json:"effective_from,omitempty"`
	EffectiveTo       *string            `json:"effective_to,omitempty"`
	Timezone          string             `json:"timezone"`
	Active            *bool              `json:"active,omitempty"`
	Penalties         []PenaltyFrameDTO  `json:"penalties,omitempty"`
	Overtimes         []OvertimeFrameDTO `json:"overtimes,omitempty"`
	Holidays          []PublicHolidayDTO `json:"holidays,omitempty"`
}

// =============================================================================
// SHIFTS
// =============================================================================

// BreakPeriodDTO is one explicit break inside a shift.
type BreakPeriodDTO struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ShiftDTO represents a shift, with computed pay fields when present.
type ShiftDTO struct {
	ID           string           `json:"id"`
	PayGuideID   string           `json:"pay_guide_id"`
	PeriodID     string           `json:"period_id,omitempty"`
	StartTime    string           `json:"start_time"`
	EndTime      string           `json:"end_time"`
	Breaks       []BreakPeriodDTO `json:"breaks,omitempty"`
	BreakMinutes int              `json:"break_minutes,omitempty"`
}

// SaveShiftRequest creates or replaces a shift. Breaks may be explicit
// periods or a bare minute total, not both.
type SaveShiftRequest struct {
	PayGuideID   string           `json:"pay_guide_id"`
	PeriodID     string           `json:"period_id,omitempty"`
	StartTime    string           `json:"start_time"`
	EndTime      string           `json:"end_time"`
	Breaks       []BreakPeriodDTO `json:"breaks,omitempty"`
	BreakMinutes int              `json:"break_minutes,omitempty"`
}

// SpanDTO is one contiguous stretch a window applied to.
type SpanDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AppliedPenaltyDTO is the audit row for one penalty window.
type AppliedPenaltyDTO struct {
	WindowID   string    `json:"window_id"`
	Name       string    `json:"name"`
	Multiplier string    `json:"multiplier"`
	Spans      []SpanDTO `json:"spans"`
	Hours      string    `json:"hours"`
	Pay        string    `json:"pay"`
}

// AppliedOvertimeDTO is the audit row for one overtime window, with the
// tier split broken out.
type AppliedOvertimeDTO struct {
	WindowID       string    `json:"window_id"`
	Name           string    `json:"name"`
	FirstTierMult  string    `json:"first_tier_multiplier"`
	AfterTierMult  string    `json:"after_tier_multiplier"`
	Spans          []SpanDTO `json:"spans"`
	FirstTierHours string    `json:"first_tier_hours"`
	AfterTierHours string    `json:"after_tier_hours"`
	Hours          string    `json:"hours"`
	Pay            string    `json:"pay"`
}

// ShiftPayDTO is the full pay breakdown for one shift.
type ShiftPayDTO struct {
	ShiftID          string               `json:"shift_id"`
	BaseHours        string               `json:"base_hours"`
	BaseRate         string               `json:"base_rate"`
	BasePay          string               `json:"base_pay"`
	PenaltyHours     string               `json:"penalty_hours"`
	PenaltyPay       string               `json:"penalty_pay"`
	OvertimeHours    string               `json:"overtime_hours"`
	OvertimePay      string               `json:"overtime_pay"`
	TotalHours       string               `json:"total_hours"`
	TotalMinutes     int                  `json:"total_minutes"`
	GrossPay         string               `json:"gross_pay"`
	AppliedPenalties []AppliedPenaltyDTO  `json:"applied_penalties"`
	AppliedOvertimes []AppliedOvertimeDTO `json:"applied_overtimes"`
}

// =============================================================================
// PAY PERIODS
// =============================================================================

// ExtraDTO is an ad hoc amount on a period.
type ExtraDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Taxable     bool   `json:"taxable"`
}

// PayPeriodDTO represents a pay period with its stored aggregates.
type PayPeriodDTO struct {
	ID                string  `json:"id"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	Status            string  `json:"status"`
	TotalHours        string  `json:"total_hours"`
	TotalPay          string  `json:"total_pay"`
	PaygWithholding   string  `json:"payg_withholding"`
	MedicareLevy      string  `json:"medicare_levy"`
	StslAmount        string  `json:"stsl_amount"`
	TotalWithholdings string  `json:"total_withholdings"`
	NetPay            string  `json:"net_pay"`
	ActualPay         *string `json:"actual_pay,omitempty"`
	Verified          bool    `json:"verified"`
}

// SavePayPeriodRequest creates or updates a pay period.
type SavePayPeriodRequest struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	ActualPay *string `json:"actual_pay,omitempty"`
}

// StatusChangeRequest moves a period through its lifecycle.
type StatusChangeRequest struct {
	Status string `json:"status"`
}

// AddExtraRequest attaches an ad hoc amount to a period.
type AddExtraRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Taxable     bool   `json:"taxable"`
}

// RecalculateResponse is the outcome of one aggregation run.
type RecalculateResponse struct {
	Period        PayPeriodDTO  `json:"period"`
	TaxYear       string        `json:"tax_year"`
	Scale         string        `json:"scale"`
	GrossPay      string        `json:"gross_pay"`
	TaxableExtras string        `json:"taxable_extras"`
	UntaxedExtras string        `json:"untaxed_extras"`
	Shifts        []ShiftPayDTO `json:"shifts"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// =============================================================================
// TAX
// =============================================================================

// TaxSettingsDTO carries the taxpayer's withholding declaration.
type TaxSettingsDTO struct {
	ClaimedTaxFreeThreshold bool   `json:"claimed_tax_free_threshold"`
	ForeignResident         bool   `json:"foreign_resident"`
	HasTaxFileNumber        bool   `json:"has_tax_file_number"`
	MedicareExemption       string `json:"medicare_exemption"`
	HasSTSL                 bool   `json:"has_stsl"`
}

// BracketDTO is one coefficient or STSL bracket row.
type BracketDTO struct {
	TaxYear      int     `json:"tax_year"`
	Scale        string  `json:"scale"`
	EarningsFrom string  `json:"earnings_from"`
	EarningsTo   *string `json:"earnings_to,omitempty"`
	CoefficientA string  `json:"coefficient_a"`
	CoefficientB string  `json:"coefficient_b"`
}

// RateConfigDTO is the per-year Medicare levy configuration.
type RateConfigDTO struct {
	TaxYear               int    `json:"tax_year"`
	MedicareRate          string `json:"medicare_rate"`
	MedicareLowThreshold  string `json:"medicare_low_threshold"`
	MedicareHighThreshold string `json:"medicare_high_threshold"`
}

// TaxTablesDTO carries a full set of withholding reference tables.
type TaxTablesDTO struct {
	Coefficients []BracketDTO    `json:"coefficients"`
	StslRates    []BracketDTO    `json:"stsl_rates"`
	RateConfigs  []RateConfigDTO `json:"rate_configs"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
