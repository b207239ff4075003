/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the shift pay and withholding engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  Pay guides:
    GET    /api/guides                 List all pay guides
    POST   /api/guides                 Create pay guide
    GET    /api/guides/{id}            Get guide with windows and holidays
    PUT    /api/guides/{id}            Replace guide (children wholesale)
    DELETE /api/guides/{id}            Delete guide (children cascade)

  Shifts:
    POST   /api/shifts                 Create shift
    GET    /api/shifts/{id}            Get shift
    PUT    /api/shifts/{id}            Update shift
    DELETE /api/shifts/{id}            Delete shift
    GET    /api/shifts/{id}/pay        Preview the pay breakdown

  Periods:
    GET    /api/periods                List periods
    POST   /api/periods                Create period
    GET    /api/periods/{id}           Get period
    GET    /api/periods/{id}/shifts    List the period's shifts
    POST   /api/periods/{id}/recalculate  Aggregate and write back
    POST   /api/periods/{id}/status    Forward status move
    POST   /api/periods/{id}/reopen    Paid/verified back to open
    GET    /api/periods/{id}/extras    List extras
    POST   /api/periods/{id}/extras    Attach an extra
    DELETE /api/periods/{id}/extras/{extraID}

  Tax:
    GET/PUT /api/tax/settings          Taxpayer declaration
    GET/PUT /api/tax/tables            Withholding reference tables

ARCHITECTURE:
  Handler struct holds the store plus an in-memory copy of the tax
  tables. Tables are reference data loaded once and replaced atomically
  when the client uploads a new set.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, missing tax settings
  - 404: Record not found
  - 409: Locked period, invalid status transition
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payperiod"
	"github.com/warp/payroll-engine/shiftpay"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// Tax tables are immutable reference data; cache them so every
	// recalculation does not re-read hundreds of bracket rows.
	mu     sync.RWMutex
	tables tax.Tables
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// LoadTaxTables primes the in-memory table cache from the store.
func (h *Handler) LoadTaxTables(ctx context.Context) error {
	tables, err := h.Store.LoadTaxTables(ctx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.tables = tables
	h.mu.Unlock()
	return nil
}

func (h *Handler) taxTables() tax.Tables {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tables
}

// =============================================================================
// PAY GUIDE HANDLERS
// =============================================================================

// ListPayGuides returns all pay guides, without their children.
func (h *Handler) ListPayGuides(w http.ResponseWriter, r *http.Request) {
	guides, err := h.Store.ListPayGuides(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pay guides", err)
		return
	}

	dtos := make([]PayGuideDTO, len(guides))
	for i, g := range guides {
		dtos[i] = guideToDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayGuide returns a single guide with windows and holidays.
func (h *Handler) GetPayGuide(w http.ResponseWriter, r *http.Request) {
	guide, err := h.Store.GetPayGuide(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Pay guide not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pay guide", err)
		return
	}
	writeJSON(w, http.StatusOK, guideToDTO(guide))
}

// CreatePayGuide creates a new pay guide.
func (h *Handler) CreatePayGuide(w http.ResponseWriter, r *http.Request) {
	h.savePayGuide(w, r, "")
}

// UpdatePayGuide replaces an existing guide and its children.
func (h *Handler) UpdatePayGuide(w http.ResponseWriter, r *http.Request) {
	h.savePayGuide(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) savePayGuide(w http.ResponseWriter, r *http.Request, id string) {
	var req SavePayGuideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	guide, err := guideFromRequest(id, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pay guide", err)
		return
	}

	if err := h.Store.SavePayGuide(r.Context(), guide); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pay guide", err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, guideToDTO(guide))
}

// DeletePayGuide removes a guide; windows and holidays cascade.
func (h *Handler) DeletePayGuide(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePayGuide(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete pay guide", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// CreateShift records a new shift.
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	h.saveShift(w, r, "")
}

// UpdateShift replaces an existing shift.
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	h.saveShift(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveShift(w http.ResponseWriter, r *http.Request, id string) {
	var req SaveShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	shift, err := shiftFromRequest(id, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return
	}

	// Reject shifts that the engine would reject, before persisting.
	guide, err := h.Store.GetPayGuide(r.Context(), shift.PayGuideID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusBadRequest, "Unknown pay guide", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pay guide", err)
		return
	}
	if _, err := shiftpay.Calculate(guide, guide.Holidays, *shift); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return
	}

	if err := h.Store.SaveShift(r.Context(), shift, req.PeriodID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, shiftToDTO(*shift, req.PeriodID))
}

// GetShift returns a single shift.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Store.GetShift(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Shift not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, shiftToDTO(*shift, ""))
}

// DeleteShift removes a shift and its breaks.
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteShift(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete shift", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewShiftPay runs the pay calculation for one shift without
// persisting anything.
func (h *Handler) PreviewShiftPay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shift, err := h.Store.GetShift(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Shift not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get shift", err)
		return
	}

	guide, err := h.Store.GetPayGuide(ctx, shift.PayGuideID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pay guide", err)
		return
	}

	pay, err := shiftpay.Calculate(guide, guide.Holidays, *shift)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to calculate shift pay", err)
		return
	}
	writeJSON(w, http.StatusOK, shiftPayToDTO(pay))
}

// =============================================================================
// PAY PERIOD HANDLERS
// =============================================================================

// ListPayPeriods returns all periods, newest first.
func (h *Handler) ListPayPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.ListPayPeriods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pay periods", err)
		return
	}

	dtos := make([]PayPeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = periodToDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePayPeriod creates a new open period.
func (h *Handler) CreatePayPeriod(w http.ResponseWriter, r *http.Request) {
	var req SavePayPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end_date must be after start_date", nil)
		return
	}

	period := &payperiod.PayPeriod{
		StartDate: start,
		EndDate:   end,
		Status:    payperiod.StatusOpen,
	}
	if req.ActualPay != nil {
		actual, err := decimal.NewFromString(*req.ActualPay)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid actual_pay", err)
			return
		}
		period.ActualPay = &actual
	}

	if err := h.Store.SavePayPeriod(r.Context(), period); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pay period", err)
		return
	}
	writeJSON(w, http.StatusCreated, periodToDTO(period))
}

// GetPayPeriod returns a single period with its stored aggregates.
func (h *Handler) GetPayPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Store.GetPayPeriod(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Pay period not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pay period", err)
		return
	}
	writeJSON(w, http.StatusOK, periodToDTO(period))
}

// ListPeriodShifts returns a period's shifts in chronological order.
func (h *Handler) ListPeriodShifts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	shifts, err := h.Store.ListShiftsForPeriod(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = shiftToDTO(s, id)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecalculatePeriod runs the full aggregation for a period and writes
// the results back atomically.
func (h *Handler) RecalculatePeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	period, err := h.Store.GetPayPeriod(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Pay period not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pay period", err)
		return
	}

	shifts, err := h.Store.ListShiftsForPeriod(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	extras, err := h.Store.ListExtrasForPeriod(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list extras", err)
		return
	}
	settings, err := h.Store.GetTaxSettings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tax settings", err)
		return
	}

	guides := make(map[string]*shiftpay.PayGuide)
	for _, s := range shifts {
		if _, ok := guides[s.PayGuideID]; ok {
			continue
		}
		guide, err := h.Store.GetPayGuide(ctx, s.PayGuideID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load pay guide", err)
			return
		}
		guides[s.PayGuideID] = guide
	}

	totals, err := payperiod.Aggregate(payperiod.Input{
		Period:   *period,
		Shifts:   shifts,
		Extras:   extras,
		Guides:   guides,
		Settings: settings,
		Tables:   h.taxTables(),
	})
	if err != nil {
		writeError(w, statusForError(err), "Failed to recalculate pay period", err)
		return
	}

	if err := h.Store.WritePeriodTotals(ctx, id, totals); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to write back totals", err)
		return
	}

	period, err = h.Store.GetPayPeriod(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload pay period", err)
		return
	}

	resp := RecalculateResponse{
		Period:        periodToDTO(period),
		TaxYear:       tax.FinancialYearLabel(totals.TaxYear),
		Scale:         string(totals.Scale),
		GrossPay:      totals.GrossPay.StringFixed(2),
		TaxableExtras: totals.TaxableExtras.StringFixed(2),
		UntaxedExtras: totals.UntaxedExtras.StringFixed(2),
		Warnings:      totals.Warnings,
	}
	for _, sp := range totals.Shifts {
		resp.Shifts = append(resp.Shifts, shiftPayToDTO(sp))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChangePeriodStatus applies a forward lifecycle move.
func (h *Handler) ChangePeriodStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req StatusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	next := payperiod.Status(req.Status)
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status", nil)
		return
	}

	period, err := h.Store.GetPayPeriod(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Pay period not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pay period", err)
		return
	}

	updated, err := payperiod.Transition(*period, next)
	if err != nil {
		writeError(w, http.StatusConflict, "Invalid status transition", err)
		return
	}
	if err := h.Store.UpdatePeriodStatus(ctx, id, updated.Status, updated.Verified); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, periodToDTO(&updated))
}

// ReopenPeriod moves a paid or verified period back to open.
func (h *Handler) ReopenPeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	period, err := h.Store.GetPayPeriod(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Pay period not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pay period", err)
		return
	}

	updated, err := payperiod.Reopen(*period)
	if err != nil {
		writeError(w, http.StatusConflict, "Cannot reopen period", err)
		return
	}
	if err := h.Store.UpdatePeriodStatus(ctx, id, updated.Status, updated.Verified); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, periodToDTO(&updated))
}

// ListExtras returns a period's ad hoc amounts.
func (h *Handler) ListExtras(w http.ResponseWriter, r *http.Request) {
	extras, err := h.Store.ListExtrasForPeriod(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list extras", err)
		return
	}

	dtos := make([]ExtraDTO, len(extras))
	for i, e := range extras {
		dtos[i] = ExtraDTO{ID: e.ID, Description: e.Description, Amount: e.Amount.StringFixed(2), Taxable: e.Taxable}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddExtra attaches an ad hoc amount to a period.
func (h *Handler) AddExtra(w http.ResponseWriter, r *http.Request) {
	var req AddExtraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	extra := &payperiod.Extra{Description: req.Description, Amount: amount, Taxable: req.Taxable}
	if err := h.Store.SaveExtra(r.Context(), chi.URLParam(r, "id"), extra); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save extra", err)
		return
	}
	writeJSON(w, http.StatusCreated, ExtraDTO{
		ID: extra.ID, Description: extra.Description, Amount: extra.Amount.StringFixed(2), Taxable: extra.Taxable,
	})
}

// DeleteExtra removes an ad hoc amount.
func (h *Handler) DeleteExtra(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteExtra(r.Context(), chi.URLParam(r, "extraID")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete extra", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

// GetTaxSettings returns the taxpayer declaration, or 404 when none is
// recorded yet.
func (h *Handler) GetTaxSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.GetTaxSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tax settings", err)
		return
	}
	if settings == nil {
		writeError(w, http.StatusNotFound, "Tax settings not configured", nil)
		return
	}
	writeJSON(w, http.StatusOK, TaxSettingsDTO{
		ClaimedTaxFreeThreshold: settings.ClaimedTaxFreeThreshold,
		ForeignResident:         settings.ForeignResident,
		HasTaxFileNumber:        settings.HasTaxFileNumber,
		MedicareExemption:       string(settings.MedicareExemption),
		HasSTSL:                 settings.HasSTSL,
	})
}

// SaveTaxSettings replaces the taxpayer declaration.
func (h *Handler) SaveTaxSettings(w http.ResponseWriter, r *http.Request) {
	var req TaxSettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	exemption := tax.MedicareExemption(req.MedicareExemption)
	if req.MedicareExemption == "" {
		exemption = tax.MedicareExemptionNone
	}
	switch exemption {
	case tax.MedicareExemptionNone, tax.MedicareExemptionHalf, tax.MedicareExemptionFull:
	default:
		writeError(w, http.StatusBadRequest, "Unknown medicare_exemption", nil)
		return
	}

	settings := tax.Settings{
		ClaimedTaxFreeThreshold: req.ClaimedTaxFreeThreshold,
		ForeignResident:         req.ForeignResident,
		HasTaxFileNumber:        req.HasTaxFileNumber,
		MedicareExemption:       exemption,
		HasSTSL:                 req.HasSTSL,
	}
	if err := h.Store.SaveTaxSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save tax settings", err)
		return
	}
	req.MedicareExemption = string(exemption)
	writeJSON(w, http.StatusOK, req)
}

// GetTaxTables returns the cached withholding reference tables.
func (h *Handler) GetTaxTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tablesToDTO(h.taxTables()))
}

// ReplaceTaxTables swaps in a new full set of reference tables, both in
// the store and in the cache.
func (h *Handler) ReplaceTaxTables(w http.ResponseWriter, r *http.Request) {
	var req TaxTablesDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tables, err := tablesFromDTO(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tax tables", err)
		return
	}

	if err := h.Store.ReplaceTaxTables(r.Context(), tables); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save tax tables", err)
		return
	}

	h.mu.Lock()
	h.tables = tables
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, tablesToDTO(tables))
}

// =============================================================================
// DOMAIN <-> DTO CONVERSION
// =============================================================================

func guideFromRequest(id string, req SavePayGuideRequest) (*shiftpay.PayGuide, error) {
	baseRate, err := decimal.NewFromString(req.BaseRate)
	if err != nil {
		return nil, err
	}

	guide := &shiftpay.PayGuide{
		ID:       id,
		Name:     req.Name,
		BaseRate: baseRate,
		Timezone: req.Timezone,
		Active:   true,
	}
	if req.Active != nil {
		guide.Active = *req.Active
	}
	if guide.MinimumShiftHours, err = decimalPtr(req.MinimumShiftHours); err != nil {
		return nil, err
	}
	if guide.MaximumShiftHours, err = decimalPtr(req.MaximumShiftHours); err != nil {
		return nil, err
	}
	if guide.EffectiveFrom, err = datePtr(req.EffectiveFrom); err != nil {
		return nil, err
	}
	if guide.EffectiveTo, err = datePtr(req.EffectiveTo); err != nil {
		return nil, err
	}
	if _, err := guide.Location(); err != nil {
		return nil, err
	}

	for _, p := range req.Penalties {
		window, err := windowFromDTO(p.ID, p.Name, p.StartTime, p.EndTime, p.DayOfWeek, p.PublicHolidayOnly, p.Priority, p.Active)
		if err != nil {
			return nil, err
		}
		mult, err := decimal.NewFromString(p.Multiplier)
		if err != nil {
			return nil, err
		}
		guide.Penalties = append(guide.Penalties, shiftpay.PenaltyWindow{Window: window, Multiplier: mult})
	}
	for _, o := range req.Overtimes {
		window, err := windowFromDTO(o.ID, o.Name, o.StartTime, o.EndTime, o.DayOfWeek, o.PublicHolidayOnly, o.Priority, o.Active)
		if err != nil {
			return nil, err
		}
		first, err := decimal.NewFromString(o.FirstTierMult)
		if err != nil {
			return nil, err
		}
		after, err := decimal.NewFromString(o.AfterTierMult)
		if err != nil {
			return nil, err
		}
		guide.Overtimes = append(guide.Overtimes, shiftpay.OvertimeWindow{Window: window, FirstTierMult: first, AfterTierMult: after})
	}
	for _, hd := range req.Holidays {
		date, err := time.Parse("2006-01-02", hd.Date)
		if err != nil {
			return nil, err
		}
		guide.Holidays = append(guide.Holidays, shiftpay.PublicHoliday{ID: hd.ID, Date: date, Name: hd.Name, Active: hd.Active})
	}
	return guide, nil
}

func windowFromDTO(id, name, start, end string, dayOfWeek *int, holidayOnly bool, priority int, active bool) (shiftpay.Window, error) {
	startTime, err := shiftpay.ParseTimeOfDay(start)
	if err != nil {
		return shiftpay.Window{}, err
	}
	endTime, err := shiftpay.ParseTimeOfDay(end)
	if err != nil {
		return shiftpay.Window{}, err
	}
	window := shiftpay.Window{
		ID:                id,
		Name:              name,
		Start:             startTime,
		End:               endTime,
		PublicHolidayOnly: holidayOnly,
		Priority:          priority,
		Active:            active,
	}
	if dayOfWeek != nil {
		wd := time.Weekday(*dayOfWeek)
		window.DayOfWeek = &wd
	}
	return window, nil
}

func guideToDTO(g *shiftpay.PayGuide) PayGuideDTO {
	dto := PayGuideDTO{
		ID:       g.ID,
		Name:     g.Name,
		BaseRate: g.BaseRate.String(),
		Timezone: g.Timezone,
		Active:   g.Active,
	}
	if g.MinimumShiftHours != nil {
		dto.MinimumShiftHours = strPtr(g.MinimumShiftHours.String())
	}
	if g.MaximumShiftHours != nil {
		dto.MaximumShiftHours = strPtr(g.MaximumShiftHours.String())
	}
	if g.EffectiveFrom != nil {
		dto.EffectiveFrom = strPtr(g.EffectiveFrom.Format("2006-01-02"))
	}
	if g.EffectiveTo != nil {
		dto.EffectiveTo = strPtr(g.EffectiveTo.Format("2006-01-02"))
	}
	for _, p := range g.Penalties {
		dto.Penalties = append(dto.Penalties, PenaltyFrameDTO{
			ID:                p.ID,
			Name:              p.Name,
			StartTime:         p.Start.String(),
			EndTime:           p.End.String(),
			DayOfWeek:         weekdayInt(p.DayOfWeek),
			PublicHolidayOnly: p.PublicHolidayOnly,
			Priority:          p.Priority,
			Multiplier:        p.Multiplier.String(),
			Active:            p.Active,
		})
	}
	for _, o := range g.Overtimes {
		dto.Overtimes = append(dto.Overtimes, OvertimeFrameDTO{
			ID:                o.ID,
			Name:              o.Name,
			StartTime:         o.Start.String(),
			EndTime:           o.End.String(),
			DayOfWeek:         weekdayInt(o.DayOfWeek),
			PublicHolidayOnly: o.PublicHolidayOnly,
			Priority:          o.Priority,
			FirstTierMult:     o.FirstTierMult.String(),
			AfterTierMult:     o.AfterTierMult.String(),
			Active:            o.Active,
		})
	}
	for _, hd := range g.Holidays {
		dto.Holidays = append(dto.Holidays, PublicHolidayDTO{
			ID:     hd.ID,
			Date:   hd.Date.Format("2006-01-02"),
			Name:   hd.Name,
			Active: hd.Active,
		})
	}
	return dto
}

func shiftFromRequest(id string, req SaveShiftRequest) (*shiftpay.Shift, error) {
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return nil, err
	}

	shift := &shiftpay.Shift{
		ID:           id,
		PayGuideID:   req.PayGuideID,
		Start:        start,
		End:          end,
		BreakMinutes: req.BreakMinutes,
	}
	for _, b := range req.Breaks {
		bs, err := time.Parse(time.RFC3339, b.StartTime)
		if err != nil {
			return nil, err
		}
		be, err := time.Parse(time.RFC3339, b.EndTime)
		if err != nil {
			return nil, err
		}
		shift.Breaks = append(shift.Breaks, shiftpay.BreakPeriod{Start: bs, End: be})
	}
	return shift, nil
}

func shiftToDTO(s shiftpay.Shift, periodID string) ShiftDTO {
	dto := ShiftDTO{
		ID:           s.ID,
		PayGuideID:   s.PayGuideID,
		PeriodID:     periodID,
		StartTime:    s.Start.UTC().Format(time.RFC3339),
		EndTime:      s.End.UTC().Format(time.RFC3339),
		BreakMinutes: s.BreakMinutes,
	}
	for _, b := range s.Breaks {
		dto.Breaks = append(dto.Breaks, BreakPeriodDTO{
			StartTime: b.Start.UTC().Format(time.RFC3339),
			EndTime:   b.End.UTC().Format(time.RFC3339),
		})
	}
	return dto
}

func shiftPayToDTO(p *shiftpay.ShiftPay) ShiftPayDTO {
	dto := ShiftPayDTO{
		ShiftID:          p.ShiftID,
		BaseHours:        p.BaseHours.String(),
		BaseRate:         p.BaseRate.String(),
		BasePay:          p.BasePay.StringFixed(2),
		PenaltyHours:     p.PenaltyHours.String(),
		PenaltyPay:       p.PenaltyPay.StringFixed(2),
		OvertimeHours:    p.OvertimeHours.String(),
		OvertimePay:      p.OvertimePay.StringFixed(2),
		TotalHours:       p.TotalHours.String(),
		TotalMinutes:     p.TotalMinutes,
		GrossPay:         p.GrossPay.StringFixed(2),
		AppliedPenalties: []AppliedPenaltyDTO{},
		AppliedOvertimes: []AppliedOvertimeDTO{},
	}
	for _, ap := range p.AppliedPenalties {
		dto.AppliedPenalties = append(dto.AppliedPenalties, AppliedPenaltyDTO{
			WindowID:   ap.WindowID,
			Name:       ap.Name,
			Multiplier: ap.Multiplier.String(),
			Spans:      spansToDTO(ap.Spans),
			Hours:      ap.Hours.String(),
			Pay:        ap.Pay.StringFixed(2),
		})
	}
	for _, ao := range p.AppliedOvertimes {
		dto.AppliedOvertimes = append(dto.AppliedOvertimes, AppliedOvertimeDTO{
			WindowID:       ao.WindowID,
			Name:           ao.Name,
			FirstTierMult:  ao.FirstTierMult.String(),
			AfterTierMult:  ao.AfterTierMult.String(),
			Spans:          spansToDTO(ao.Spans),
			FirstTierHours: ao.FirstTierHours.String(),
			AfterTierHours: ao.AfterTierHours.String(),
			Hours:          ao.Hours.String(),
			Pay:            ao.Pay.StringFixed(2),
		})
	}
	return dto
}

func spansToDTO(spans []shiftpay.Span) []SpanDTO {
	out := make([]SpanDTO, len(spans))
	for i, s := range spans {
		out[i] = SpanDTO{Start: s.Start.UTC().Format(time.RFC3339), End: s.End.UTC().Format(time.RFC3339)}
	}
	return out
}

func periodToDTO(p *payperiod.PayPeriod) PayPeriodDTO {
	dto := PayPeriodDTO{
		ID:                p.ID,
		StartDate:         p.StartDate.Format("2006-01-02"),
		EndDate:           p.EndDate.Format("2006-01-02"),
		Status:            string(p.Status),
		TotalHours:        p.TotalHours.String(),
		TotalPay:          p.TotalPay.StringFixed(2),
		PaygWithholding:   p.PaygWithholding.StringFixed(2),
		MedicareLevy:      p.MedicareLevy.StringFixed(2),
		StslAmount:        p.StslAmount.StringFixed(2),
		TotalWithholdings: p.TotalWithholdings.StringFixed(2),
		NetPay:            p.NetPay.StringFixed(2),
		Verified:          p.Verified,
	}
	if p.ActualPay != nil {
		dto.ActualPay = strPtr(p.ActualPay.StringFixed(2))
	}
	return dto
}

func tablesToDTO(t tax.Tables) TaxTablesDTO {
	dto := TaxTablesDTO{
		Coefficients: []BracketDTO{},
		StslRates:    []BracketDTO{},
		RateConfigs:  []RateConfigDTO{},
	}
	for _, c := range t.Coefficients {
		dto.Coefficients = append(dto.Coefficients, bracketToDTO(c))
	}
	for _, r := range t.StslRates {
		dto.StslRates = append(dto.StslRates, bracketToDTO(tax.Coefficient(r)))
	}
	for _, rc := range t.RateConfigs {
		dto.RateConfigs = append(dto.RateConfigs, RateConfigDTO{
			TaxYear:               rc.TaxYear,
			MedicareRate:          rc.MedicareRate.String(),
			MedicareLowThreshold:  rc.MedicareLowThreshold.String(),
			MedicareHighThreshold: rc.MedicareHighThreshold.String(),
		})
	}
	return dto
}

func bracketToDTO(c tax.Coefficient) BracketDTO {
	dto := BracketDTO{
		TaxYear:      c.TaxYear,
		Scale:        string(c.Scale),
		EarningsFrom: c.EarningsFrom.String(),
		CoefficientA: c.CoefficientA.String(),
		CoefficientB: c.CoefficientB.String(),
	}
	if c.EarningsTo != nil {
		dto.EarningsTo = strPtr(c.EarningsTo.String())
	}
	return dto
}

func tablesFromDTO(dto TaxTablesDTO) (tax.Tables, error) {
	var tables tax.Tables
	for _, b := range dto.Coefficients {
		c, err := bracketFromDTO(b)
		if err != nil {
			return tables, err
		}
		tables.Coefficients = append(tables.Coefficients, c)
	}
	for _, b := range dto.StslRates {
		c, err := bracketFromDTO(b)
		if err != nil {
			return tables, err
		}
		tables.StslRates = append(tables.StslRates, tax.StslRate(c))
	}
	for _, rc := range dto.RateConfigs {
		rate, err := decimal.NewFromString(rc.MedicareRate)
		if err != nil {
			return tables, err
		}
		low, err := decimal.NewFromString(rc.MedicareLowThreshold)
		if err != nil {
			return tables, err
		}
		high, err := decimal.NewFromString(rc.MedicareHighThreshold)
		if err != nil {
			return tables, err
		}
		tables.RateConfigs = append(tables.RateConfigs, tax.RateConfig{
			TaxYear:               rc.TaxYear,
			MedicareRate:          rate,
			MedicareLowThreshold:  low,
			MedicareHighThreshold: high,
		})
	}
	return tables, nil
}

func bracketFromDTO(b BracketDTO) (tax.Coefficient, error) {
	from, err := decimal.NewFromString(b.EarningsFrom)
	if err != nil {
		return tax.Coefficient{}, err
	}
	a, err := decimal.NewFromString(b.CoefficientA)
	if err != nil {
		return tax.Coefficient{}, err
	}
	cb, err := decimal.NewFromString(b.CoefficientB)
	if err != nil {
		return tax.Coefficient{}, err
	}
	c := tax.Coefficient{
		TaxYear:      b.TaxYear,
		Scale:        tax.Scale(b.Scale),
		EarningsFrom: from,
		CoefficientA: a,
		CoefficientB: cb,
	}
	if b.EarningsTo != nil {
		to, err := decimal.NewFromString(*b.EarningsTo)
		if err != nil {
			return tax.Coefficient{}, err
		}
		c.EarningsTo = &to
	}
	return c, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// statusForError maps the engine's sentinel errors onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, payperiod.ErrPeriodLocked):
		return http.StatusConflict
	case errors.Is(err, payperiod.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, payperiod.ErrNoShiftsToCalculate),
		errors.Is(err, payperiod.ErrGuideNotFound),
		errors.Is(err, tax.ErrMissingTaxSettings),
		errors.Is(err, tax.ErrNoBracketFound),
		errors.Is(err, shiftpay.ErrInvalidShiftRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func strPtr(s string) *string { return &s }

func weekdayInt(w *time.Weekday) *int {
	if w == nil {
		return nil
	}
	n := int(*w)
	return &n
}

func decimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func datePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
