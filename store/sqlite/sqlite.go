/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Stores pay guides (with their penalty/overtime frames and public
  holidays), shifts (with break periods), pay periods (with extras), the
  taxpayer's settings, and the withholding reference tables. The engine
  packages never touch the database; handlers load from here, run the
  pure calculations, and write results back.

OWNERSHIP:
  Frames and holidays belong to their pay guide, breaks to their shift,
  extras to their period - all enforced with ON DELETE CASCADE.

ATOMIC WRITEBACK:
  WritePeriodTotals updates every shift's computed fields and the
  period's aggregates inside one SQL transaction: either the whole
  period's results land or none do.

DECIMALS:
  Money and hours are stored as TEXT and round-tripped through
  shopspring/decimal, never through float columns.

WAL MODE:
  SQLite is opened with WAL and foreign keys on. A sync.RWMutex
  serializes writers; this is a single-user system.

SEE ALSO:
  - shiftpay/types.go: The domain types persisted here
  - api/handlers.go: The only consumer
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payperiod"
	"github.com/warp/payroll-engine/shiftpay"
	"github.com/warp/payroll-engine/tax"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = sql.ErrNoRows

// Store implements all persistence for the payroll engine.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pay_guides (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_rate TEXT NOT NULL,
		min_shift_hours TEXT,
		max_shift_hours TEXT,
		effective_from TEXT,
		effective_to TEXT,
		timezone TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS penalty_time_frames (
		id TEXT PRIMARY KEY,
		guide_id TEXT NOT NULL REFERENCES pay_guides(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		day_of_week INTEGER,
		public_holiday_only BOOLEAN NOT NULL DEFAULT FALSE,
		priority INTEGER NOT NULL DEFAULT 0,
		multiplier TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE INDEX IF NOT EXISTS idx_penalty_frames_guide ON penalty_time_frames(guide_id);

	CREATE TABLE IF NOT EXISTS overtime_time_frames (
		id TEXT PRIMARY KEY,
		guide_id TEXT NOT NULL REFERENCES pay_guides(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		day_of_week INTEGER,
		public_holiday_only BOOLEAN NOT NULL DEFAULT FALSE,
		priority INTEGER NOT NULL DEFAULT 0,
		first_tier_mult TEXT NOT NULL,
		after_tier_mult TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE INDEX IF NOT EXISTS idx_overtime_frames_guide ON overtime_time_frames(guide_id);

	CREATE TABLE IF NOT EXISTS public_holidays (
		id TEXT PRIMARY KEY,
		guide_id TEXT NOT NULL REFERENCES pay_guides(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE INDEX IF NOT EXISTS idx_public_holidays_guide ON public_holidays(guide_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_public_holidays_unique ON public_holidays(guide_id, date, name);

	CREATE TABLE IF NOT EXISTS pay_periods (
		id TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		total_hours TEXT NOT NULL DEFAULT '0',
		total_pay TEXT NOT NULL DEFAULT '0',
		payg_withholding TEXT NOT NULL DEFAULT '0',
		medicare_levy TEXT NOT NULL DEFAULT '0',
		stsl_amount TEXT NOT NULL DEFAULT '0',
		total_withholdings TEXT NOT NULL DEFAULT '0',
		net_pay TEXT NOT NULL DEFAULT '0',
		actual_pay TEXT,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		pay_guide_id TEXT NOT NULL REFERENCES pay_guides(id),
		period_id TEXT REFERENCES pay_periods(id) ON DELETE SET NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		total_hours TEXT,
		base_pay TEXT,
		penalty_pay TEXT,
		overtime_pay TEXT,
		total_pay TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_shifts_period ON shifts(period_id);
	CREATE INDEX IF NOT EXISTS idx_shifts_start ON shifts(start_time);

	CREATE TABLE IF NOT EXISTS break_periods (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_break_periods_shift ON break_periods(shift_id);

	CREATE TABLE IF NOT EXISTS extras (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL REFERENCES pay_periods(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		taxable BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE INDEX IF NOT EXISTS idx_extras_period ON extras(period_id);

	CREATE TABLE IF NOT EXISTS tax_settings (
		id TEXT PRIMARY KEY,
		claimed_tax_free_threshold BOOLEAN NOT NULL DEFAULT TRUE,
		foreign_resident BOOLEAN NOT NULL DEFAULT FALSE,
		has_tax_file_number BOOLEAN NOT NULL DEFAULT TRUE,
		medicare_exemption TEXT NOT NULL DEFAULT 'none',
		has_stsl BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS tax_coefficients (
		tax_year INTEGER NOT NULL,
		scale TEXT NOT NULL,
		earnings_from TEXT NOT NULL,
		earnings_to TEXT,
		coefficient_a TEXT NOT NULL,
		coefficient_b TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tax_coefficients_year_scale ON tax_coefficients(tax_year, scale);

	CREATE TABLE IF NOT EXISTS stsl_rates (
		tax_year INTEGER NOT NULL,
		scale TEXT NOT NULL,
		earnings_from TEXT NOT NULL,
		earnings_to TEXT,
		coefficient_a TEXT NOT NULL,
		coefficient_b TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stsl_rates_year_scale ON stsl_rates(tax_year, scale);

	CREATE TABLE IF NOT EXISTS tax_rate_configs (
		tax_year INTEGER PRIMARY KEY,
		medicare_rate TEXT NOT NULL,
		medicare_low_threshold TEXT NOT NULL,
		medicare_high_threshold TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PAY GUIDES
// =============================================================================

// SavePayGuide inserts or replaces a guide together with its frames and
// holidays, in one transaction. Missing IDs are generated.
func (s *Store) SavePayGuide(ctx context.Context, g *shiftpay.PayGuide) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pay_guides
		(id, name, base_rate, min_shift_hours, max_shift_hours, effective_from, effective_to, timezone, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_rate = excluded.base_rate,
			min_shift_hours = excluded.min_shift_hours,
			max_shift_hours = excluded.max_shift_hours,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to,
			timezone = excluded.timezone,
			active = excluded.active
	`, g.ID, g.Name, g.BaseRate.String(),
		nullDecimal(g.MinimumShiftHours), nullDecimal(g.MaximumShiftHours),
		nullTime(g.EffectiveFrom), nullTime(g.EffectiveTo),
		g.Timezone, g.Active, now())
	if err != nil {
		return fmt.Errorf("failed to save pay guide: %w", err)
	}

	// Children are replaced wholesale; the guide owns them.
	for _, table := range []string{"penalty_time_frames", "overtime_time_frames", "public_holidays"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE guide_id = ?", g.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i := range g.Penalties {
		p := &g.Penalties[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO penalty_time_frames
			(id, guide_id, name, start_time, end_time, day_of_week, public_holiday_only, priority, multiplier, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, g.ID, p.Name, p.Start.String(), p.End.String(),
			nullWeekday(p.DayOfWeek), p.PublicHolidayOnly, p.Priority, p.Multiplier.String(), p.Active)
		if err != nil {
			return fmt.Errorf("failed to save penalty frame: %w", err)
		}
	}
	for i := range g.Overtimes {
		o := &g.Overtimes[i]
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO overtime_time_frames
			(id, guide_id, name, start_time, end_time, day_of_week, public_holiday_only, priority, first_tier_mult, after_tier_mult, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, o.ID, g.ID, o.Name, o.Start.String(), o.End.String(),
			nullWeekday(o.DayOfWeek), o.PublicHolidayOnly, o.Priority,
			o.FirstTierMult.String(), o.AfterTierMult.String(), o.Active)
		if err != nil {
			return fmt.Errorf("failed to save overtime frame: %w", err)
		}
	}
	for i := range g.Holidays {
		h := &g.Holidays[i]
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO public_holidays (id, guide_id, date, name, active)
			VALUES (?, ?, ?, ?, ?)
		`, h.ID, g.ID, h.Date.Format("2006-01-02"), h.Name, h.Active)
		if err != nil {
			return fmt.Errorf("failed to save public holiday: %w", err)
		}
	}

	return tx.Commit()
}

// GetPayGuide loads a guide with its frames and holidays.
func (s *Store) GetPayGuide(ctx context.Context, id string) (*shiftpay.PayGuide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := &shiftpay.PayGuide{ID: id}
	var baseRate string
	var minHours, maxHours, effFrom, effTo sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT name, base_rate, min_shift_hours, max_shift_hours, effective_from, effective_to, timezone, active
		FROM pay_guides WHERE id = ?
	`, id).Scan(&g.Name, &baseRate, &minHours, &maxHours, &effFrom, &effTo, &g.Timezone, &g.Active)
	if err != nil {
		return nil, err
	}

	g.BaseRate = mustDecimal(baseRate)
	g.MinimumShiftHours = decimalPtr(minHours)
	g.MaximumShiftHours = decimalPtr(maxHours)
	g.EffectiveFrom = timePtr(effFrom)
	g.EffectiveTo = timePtr(effTo)

	if err := s.loadFrames(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) loadFrames(ctx context.Context, g *shiftpay.PayGuide) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_time, end_time, day_of_week, public_holiday_only, priority, multiplier, active
		FROM penalty_time_frames WHERE guide_id = ? ORDER BY priority DESC, id
	`, g.ID)
	if err != nil {
		return fmt.Errorf("failed to query penalty frames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p shiftpay.PenaltyWindow
		var start, end, mult string
		var dow sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &start, &end, &dow, &p.PublicHolidayOnly, &p.Priority, &mult, &p.Active); err != nil {
			return fmt.Errorf("failed to scan penalty frame: %w", err)
		}
		p.Start, p.End = mustTimeOfDay(start), mustTimeOfDay(end)
		p.DayOfWeek = weekdayPtr(dow)
		p.Multiplier = mustDecimal(mult)
		g.Penalties = append(g.Penalties, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	otRows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_time, end_time, day_of_week, public_holiday_only, priority, first_tier_mult, after_tier_mult, active
		FROM overtime_time_frames WHERE guide_id = ? ORDER BY priority DESC, id
	`, g.ID)
	if err != nil {
		return fmt.Errorf("failed to query overtime frames: %w", err)
	}
	defer otRows.Close()
	for otRows.Next() {
		var o shiftpay.OvertimeWindow
		var start, end, first, after string
		var dow sql.NullInt64
		if err := otRows.Scan(&o.ID, &o.Name, &start, &end, &dow, &o.PublicHolidayOnly, &o.Priority, &first, &after, &o.Active); err != nil {
			return fmt.Errorf("failed to scan overtime frame: %w", err)
		}
		o.Start, o.End = mustTimeOfDay(start), mustTimeOfDay(end)
		o.DayOfWeek = weekdayPtr(dow)
		o.FirstTierMult = mustDecimal(first)
		o.AfterTierMult = mustDecimal(after)
		g.Overtimes = append(g.Overtimes, o)
	}
	if err := otRows.Err(); err != nil {
		return err
	}

	hRows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name, active FROM public_holidays WHERE guide_id = ? ORDER BY date
	`, g.ID)
	if err != nil {
		return fmt.Errorf("failed to query public holidays: %w", err)
	}
	defer hRows.Close()
	for hRows.Next() {
		var h shiftpay.PublicHoliday
		var date string
		if err := hRows.Scan(&h.ID, &date, &h.Name, &h.Active); err != nil {
			return fmt.Errorf("failed to scan public holiday: %w", err)
		}
		h.Date, _ = time.Parse("2006-01-02", date)
		g.Holidays = append(g.Holidays, h)
	}
	return hRows.Err()
}

// ListPayGuides returns all guides, without their children.
func (s *Store) ListPayGuides(ctx context.Context) ([]*shiftpay.PayGuide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, base_rate, timezone, active FROM pay_guides ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pay guides: %w", err)
	}
	defer rows.Close()

	var guides []*shiftpay.PayGuide
	for rows.Next() {
		g := &shiftpay.PayGuide{}
		var baseRate string
		if err := rows.Scan(&g.ID, &g.Name, &baseRate, &g.Timezone, &g.Active); err != nil {
			return nil, fmt.Errorf("failed to scan pay guide: %w", err)
		}
		g.BaseRate = mustDecimal(baseRate)
		guides = append(guides, g)
	}
	return guides, rows.Err()
}

// DeletePayGuide removes a guide; frames and holidays cascade with it.
func (s *Store) DeletePayGuide(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM pay_guides WHERE id = ?", id)
	return err
}

// =============================================================================
// SHIFTS
// =============================================================================

// SaveShift inserts or replaces a shift and its break periods. An empty
// periodID leaves the shift unassigned.
func (s *Store) SaveShift(ctx context.Context, shift *shiftpay.Shift, periodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shifts (id, pay_guide_id, period_id, start_time, end_time, break_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pay_guide_id = excluded.pay_guide_id,
			period_id = excluded.period_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			break_minutes = excluded.break_minutes
	`, shift.ID, shift.PayGuideID, nullString(periodID),
		shift.Start.UTC().Format(time.RFC3339), shift.End.UTC().Format(time.RFC3339),
		shift.BreakMinutes, now())
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM break_periods WHERE shift_id = ?", shift.ID); err != nil {
		return fmt.Errorf("failed to clear break periods: %w", err)
	}
	for _, b := range shift.Breaks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO break_periods (id, shift_id, start_time, end_time) VALUES (?, ?, ?, ?)
		`, uuid.NewString(), shift.ID, b.Start.UTC().Format(time.RFC3339), b.End.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to save break period: %w", err)
		}
	}

	return tx.Commit()
}

// GetShift loads one shift with its breaks.
func (s *Store) GetShift(ctx context.Context, id string) (*shiftpay.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift := &shiftpay.Shift{ID: id}
	var start, end string
	err := s.db.QueryRowContext(ctx, `
		SELECT pay_guide_id, start_time, end_time, break_minutes FROM shifts WHERE id = ?
	`, id).Scan(&shift.PayGuideID, &start, &end, &shift.BreakMinutes)
	if err != nil {
		return nil, err
	}
	shift.Start = mustTime(start)
	shift.End = mustTime(end)

	if err := s.loadBreaks(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// ListShiftsForPeriod returns a period's shifts in chronological order.
func (s *Store) ListShiftsForPeriod(ctx context.Context, periodID string) ([]shiftpay.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pay_guide_id, start_time, end_time, break_minutes
		FROM shifts WHERE period_id = ? ORDER BY start_time
	`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []shiftpay.Shift
	for rows.Next() {
		var shift shiftpay.Shift
		var start, end string
		if err := rows.Scan(&shift.ID, &shift.PayGuideID, &start, &end, &shift.BreakMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shift.Start = mustTime(start)
		shift.End = mustTime(end)
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range shifts {
		if err := s.loadBreaks(ctx, &shifts[i]); err != nil {
			return nil, err
		}
	}
	return shifts, nil
}

func (s *Store) loadBreaks(ctx context.Context, shift *shiftpay.Shift) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_time, end_time FROM break_periods WHERE shift_id = ? ORDER BY start_time
	`, shift.ID)
	if err != nil {
		return fmt.Errorf("failed to query break periods: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return fmt.Errorf("failed to scan break period: %w", err)
		}
		shift.Breaks = append(shift.Breaks, shiftpay.BreakPeriod{Start: mustTime(start), End: mustTime(end)})
	}
	return rows.Err()
}

func (s *Store) DeleteShift(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM shifts WHERE id = ?", id)
	return err
}

// =============================================================================
// PAY PERIODS AND EXTRAS
// =============================================================================

func (s *Store) SavePayPeriod(ctx context.Context, p *payperiod.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = payperiod.StatusOpen
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pay_periods (id, start_date, end_date, status, actual_pay, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status,
			actual_pay = excluded.actual_pay,
			verified = excluded.verified
	`, p.ID, p.StartDate.UTC().Format(time.RFC3339), p.EndDate.UTC().Format(time.RFC3339),
		string(p.Status), nullDecimal(p.ActualPay), p.Verified, now())
	if err != nil {
		return fmt.Errorf("failed to save pay period: %w", err)
	}
	return nil
}

func (s *Store) GetPayPeriod(ctx context.Context, id string) (*payperiod.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanPayPeriod(ctx, id)
}

func (s *Store) scanPayPeriod(ctx context.Context, id string) (*payperiod.PayPeriod, error) {
	p := &payperiod.PayPeriod{ID: id}
	var start, end, status string
	var totalHours, totalPay, payg, medicare, stsl, withheld, net string
	var actualPay sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT start_date, end_date, status, total_hours, total_pay, payg_withholding,
		       medicare_levy, stsl_amount, total_withholdings, net_pay, actual_pay, verified
		FROM pay_periods WHERE id = ?
	`, id).Scan(&start, &end, &status, &totalHours, &totalPay, &payg,
		&medicare, &stsl, &withheld, &net, &actualPay, &p.Verified)
	if err != nil {
		return nil, err
	}
	p.StartDate = mustTime(start)
	p.EndDate = mustTime(end)
	p.Status = payperiod.Status(status)
	p.TotalHours = mustDecimal(totalHours)
	p.TotalPay = mustDecimal(totalPay)
	p.PaygWithholding = mustDecimal(payg)
	p.MedicareLevy = mustDecimal(medicare)
	p.StslAmount = mustDecimal(stsl)
	p.TotalWithholdings = mustDecimal(withheld)
	p.NetPay = mustDecimal(net)
	p.ActualPay = decimalPtr(actualPay)
	return p, nil
}

func (s *Store) ListPayPeriods(ctx context.Context) ([]*payperiod.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM pay_periods ORDER BY start_date DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query pay periods: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var periods []*payperiod.PayPeriod
	for _, id := range ids {
		p, err := s.scanPayPeriod(ctx, id)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// UpdatePeriodStatus persists a status change (including reopen).
func (s *Store) UpdatePeriodStatus(ctx context.Context, id string, status payperiod.Status, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"UPDATE pay_periods SET status = ?, verified = ? WHERE id = ?", string(status), verified, id)
	return err
}

func (s *Store) SaveExtra(ctx context.Context, periodID string, e *payperiod.Extra) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extras (id, period_id, description, amount, taxable)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			amount = excluded.amount,
			taxable = excluded.taxable
	`, e.ID, periodID, e.Description, e.Amount.String(), e.Taxable)
	return err
}

func (s *Store) ListExtrasForPeriod(ctx context.Context, periodID string) ([]payperiod.Extra, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, amount, taxable FROM extras WHERE period_id = ? ORDER BY id
	`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query extras: %w", err)
	}
	defer rows.Close()

	var extras []payperiod.Extra
	for rows.Next() {
		var e payperiod.Extra
		var amount string
		if err := rows.Scan(&e.ID, &e.Description, &amount, &e.Taxable); err != nil {
			return nil, fmt.Errorf("failed to scan extra: %w", err)
		}
		e.Amount = mustDecimal(amount)
		extras = append(extras, e)
	}
	return extras, rows.Err()
}

func (s *Store) DeleteExtra(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM extras WHERE id = ?", id)
	return err
}

// =============================================================================
// ATOMIC PERIOD WRITEBACK
// =============================================================================

// WritePeriodTotals persists one aggregation run: every shift's computed
// fields plus the period aggregates, in a single transaction. Either the
// whole period updates or none of it does.
func (s *Store) WritePeriodTotals(ctx context.Context, periodID string, totals *payperiod.Totals) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, sp := range totals.Shifts {
		_, err := tx.ExecContext(ctx, `
			UPDATE shifts SET total_hours = ?, base_pay = ?, penalty_pay = ?, overtime_pay = ?, total_pay = ?
			WHERE id = ?
		`, sp.TotalHours.String(), sp.BasePay.String(), sp.PenaltyPay.String(),
			sp.OvertimePay.String(), sp.GrossPay.String(), sp.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to write back shift %s: %w", sp.ShiftID, err)
		}
	}

	grossWithExtras := totals.GrossPay.Add(totals.TaxableExtras).Add(totals.UntaxedExtras)
	_, err = tx.ExecContext(ctx, `
		UPDATE pay_periods SET
			total_hours = ?, total_pay = ?, payg_withholding = ?, medicare_levy = ?,
			stsl_amount = ?, total_withholdings = ?, net_pay = ?
		WHERE id = ?
	`, totals.TotalHours.String(), grossWithExtras.String(),
		totals.PaygWithholding.String(), totals.MedicareLevy.String(),
		totals.StslAmount.String(), totals.TotalWithheld.String(),
		totals.NetPay.String(), periodID)
	if err != nil {
		return fmt.Errorf("failed to write back period totals: %w", err)
	}

	return tx.Commit()
}

// =============================================================================
// TAX SETTINGS AND TABLES
// =============================================================================

// The single-user system keeps one settings row.
const taxSettingsID = "default"

func (s *Store) SaveTaxSettings(ctx context.Context, settings tax.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tax_settings
		(id, claimed_tax_free_threshold, foreign_resident, has_tax_file_number, medicare_exemption, has_stsl)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			claimed_tax_free_threshold = excluded.claimed_tax_free_threshold,
			foreign_resident = excluded.foreign_resident,
			has_tax_file_number = excluded.has_tax_file_number,
			medicare_exemption = excluded.medicare_exemption,
			has_stsl = excluded.has_stsl
	`, taxSettingsID, settings.ClaimedTaxFreeThreshold, settings.ForeignResident,
		settings.HasTaxFileNumber, string(settings.MedicareExemption), settings.HasSTSL)
	return err
}

// GetTaxSettings returns nil (no error) when no settings are recorded;
// the aggregator turns that into ErrMissingTaxSettings.
func (s *Store) GetTaxSettings(ctx context.Context) (*tax.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var settings tax.Settings
	var exemption string
	err := s.db.QueryRowContext(ctx, `
		SELECT claimed_tax_free_threshold, foreign_resident, has_tax_file_number, medicare_exemption, has_stsl
		FROM tax_settings WHERE id = ?
	`, taxSettingsID).Scan(&settings.ClaimedTaxFreeThreshold, &settings.ForeignResident,
		&settings.HasTaxFileNumber, &exemption, &settings.HasSTSL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	settings.MedicareExemption = tax.MedicareExemption(exemption)
	return &settings, nil
}

// ReplaceTaxTables swaps in a full set of reference tables atomically.
func (s *Store) ReplaceTaxTables(ctx context.Context, tables tax.Tables) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"tax_coefficients", "stsl_rates", "tax_rate_configs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, c := range tables.Coefficients {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tax_coefficients (tax_year, scale, earnings_from, earnings_to, coefficient_a, coefficient_b)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.TaxYear, string(c.Scale), c.EarningsFrom.String(), nullDecimal(c.EarningsTo),
			c.CoefficientA.String(), c.CoefficientB.String())
		if err != nil {
			return fmt.Errorf("failed to save tax coefficient: %w", err)
		}
	}
	for _, r := range tables.StslRates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stsl_rates (tax_year, scale, earnings_from, earnings_to, coefficient_a, coefficient_b)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.TaxYear, string(r.Scale), r.EarningsFrom.String(), nullDecimal(r.EarningsTo),
			r.CoefficientA.String(), r.CoefficientB.String())
		if err != nil {
			return fmt.Errorf("failed to save stsl rate: %w", err)
		}
	}
	for _, rc := range tables.RateConfigs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tax_rate_configs (tax_year, medicare_rate, medicare_low_threshold, medicare_high_threshold)
			VALUES (?, ?, ?, ?)
		`, rc.TaxYear, rc.MedicareRate.String(), rc.MedicareLowThreshold.String(), rc.MedicareHighThreshold.String())
		if err != nil {
			return fmt.Errorf("failed to save rate config: %w", err)
		}
	}

	return tx.Commit()
}

// LoadTaxTables reads the full reference tables. Callers load once per
// process and treat the result as immutable.
func (s *Store) LoadTaxTables(ctx context.Context) (tax.Tables, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tables tax.Tables

	rows, err := s.db.QueryContext(ctx, `
		SELECT tax_year, scale, earnings_from, earnings_to, coefficient_a, coefficient_b
		FROM tax_coefficients ORDER BY tax_year, scale, earnings_from
	`)
	if err != nil {
		return tables, fmt.Errorf("failed to query tax coefficients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanBracket(rows)
		if err != nil {
			return tables, err
		}
		tables.Coefficients = append(tables.Coefficients, c)
	}
	if err := rows.Err(); err != nil {
		return tables, err
	}

	stslRows, err := s.db.QueryContext(ctx, `
		SELECT tax_year, scale, earnings_from, earnings_to, coefficient_a, coefficient_b
		FROM stsl_rates ORDER BY tax_year, scale, earnings_from
	`)
	if err != nil {
		return tables, fmt.Errorf("failed to query stsl rates: %w", err)
	}
	defer stslRows.Close()
	for stslRows.Next() {
		c, err := scanBracket(stslRows)
		if err != nil {
			return tables, err
		}
		tables.StslRates = append(tables.StslRates, tax.StslRate(c))
	}
	if err := stslRows.Err(); err != nil {
		return tables, err
	}

	rcRows, err := s.db.QueryContext(ctx, `
		SELECT tax_year, medicare_rate, medicare_low_threshold, medicare_high_threshold
		FROM tax_rate_configs ORDER BY tax_year
	`)
	if err != nil {
		return tables, fmt.Errorf("failed to query rate configs: %w", err)
	}
	defer rcRows.Close()
	for rcRows.Next() {
		var rc tax.RateConfig
		var rate, low, high string
		if err := rcRows.Scan(&rc.TaxYear, &rate, &low, &high); err != nil {
			return tables, fmt.Errorf("failed to scan rate config: %w", err)
		}
		rc.MedicareRate = mustDecimal(rate)
		rc.MedicareLowThreshold = mustDecimal(low)
		rc.MedicareHighThreshold = mustDecimal(high)
		tables.RateConfigs = append(tables.RateConfigs, rc)
	}
	return tables, rcRows.Err()
}

// HasTaxTables reports whether any coefficient rows exist, so startup
// knows whether to seed the defaults.
func (s *Store) HasTaxTables(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tax_coefficients").Scan(&count)
	return count > 0, err
}

func scanBracket(rows *sql.Rows) (tax.Coefficient, error) {
	var c tax.Coefficient
	var scale, from, a, b string
	var to sql.NullString
	if err := rows.Scan(&c.TaxYear, &scale, &from, &to, &a, &b); err != nil {
		return c, fmt.Errorf("failed to scan bracket row: %w", err)
	}
	c.Scale = tax.Scale(scale)
	c.EarningsFrom = mustDecimal(from)
	c.EarningsTo = decimalPtr(to)
	c.CoefficientA = mustDecimal(a)
	c.CoefficientB = mustDecimal(b)
	return c, nil
}

// =============================================================================
// SCAN/NULL HELPERS
// =============================================================================

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func mustTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func mustTimeOfDay(s string) shiftpay.TimeOfDay {
	t, _ := shiftpay.ParseTimeOfDay(s)
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullWeekday(w *time.Weekday) any {
	if w == nil {
		return nil
	}
	return int(*w)
}

func decimalPtr(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func timePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func weekdayPtr(n sql.NullInt64) *time.Weekday {
	if !n.Valid {
		return nil
	}
	w := time.Weekday(n.Int64)
	return &w
}
