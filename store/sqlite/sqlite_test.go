package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payperiod"
	"github.com/warp/payroll-engine/shiftpay"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/tax"
	"github.com/warp/payroll-engine/taxdata"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func saturday() *time.Weekday {
	d := time.Saturday
	return &d
}

func fullGuide() *shiftpay.PayGuide {
	min := dec("3")
	return &shiftpay.PayGuide{
		Name:              "Retail Award",
		BaseRate:          dec("25.80"),
		MinimumShiftHours: &min,
		Timezone:          "Australia/Sydney",
		Active:            true,
		Penalties: []shiftpay.PenaltyWindow{
			{
				Window: shiftpay.Window{
					Name:      "Saturday",
					Start:     shiftpay.MustParseTimeOfDay("00:00"),
					End:       shiftpay.MustParseTimeOfDay("00:00"),
					DayOfWeek: saturday(),
					Priority:  5,
					Active:    true,
				},
				Multiplier: dec("1.5"),
			},
		},
		Overtimes: []shiftpay.OvertimeWindow{
			{
				Window: shiftpay.Window{
					Name:   "Late night",
					Start:  shiftpay.MustParseTimeOfDay("22:00"),
					End:    shiftpay.MustParseTimeOfDay("06:00"),
					Active: true,
				},
				FirstTierMult: dec("1.5"),
				AfterTierMult: dec("2"),
			},
		},
		Holidays: []shiftpay.PublicHoliday{
			{Date: time.Date(2026, time.April, 25, 0, 0, 0, 0, time.UTC), Name: "Anzac Day", Active: true},
		},
	}
}

// =============================================================================
// PAY GUIDES
// =============================================================================

func TestPayGuideRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	guide := fullGuide()
	require.NoError(t, store.SavePayGuide(ctx, guide))
	require.NotEmpty(t, guide.ID, "save should assign an id")

	loaded, err := store.GetPayGuide(ctx, guide.ID)
	require.NoError(t, err)

	assert.Equal(t, "Retail Award", loaded.Name)
	assert.True(t, loaded.BaseRate.Equal(dec("25.80")))
	require.NotNil(t, loaded.MinimumShiftHours)
	assert.True(t, loaded.MinimumShiftHours.Equal(dec("3")))
	assert.Nil(t, loaded.MaximumShiftHours)
	assert.Equal(t, "Australia/Sydney", loaded.Timezone)

	require.Len(t, loaded.Penalties, 1)
	p := loaded.Penalties[0]
	assert.Equal(t, "Saturday", p.Name)
	assert.Equal(t, "00:00", p.Start.String())
	require.NotNil(t, p.DayOfWeek)
	assert.Equal(t, time.Saturday, *p.DayOfWeek)
	assert.True(t, p.Multiplier.Equal(dec("1.5")))

	require.Len(t, loaded.Overtimes, 1)
	o := loaded.Overtimes[0]
	assert.Equal(t, "22:00", o.Start.String())
	assert.Nil(t, o.DayOfWeek)
	assert.True(t, o.FirstTierMult.Equal(dec("1.5")))
	assert.True(t, o.AfterTierMult.Equal(dec("2")))

	require.Len(t, loaded.Holidays, 1)
	assert.Equal(t, "Anzac Day", loaded.Holidays[0].Name)
	assert.Equal(t, "2026-04-25", loaded.Holidays[0].Date.Format("2006-01-02"))
}

func TestSavePayGuide_ReplacesChildrenWholesale(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	guide := fullGuide()
	require.NoError(t, store.SavePayGuide(ctx, guide))

	guide.Penalties = nil
	guide.Holidays = append(guide.Holidays, shiftpay.PublicHoliday{
		Date: time.Date(2026, time.December, 25, 0, 0, 0, 0, time.UTC), Name: "Christmas", Active: true,
	})
	require.NoError(t, store.SavePayGuide(ctx, guide))

	loaded, err := store.GetPayGuide(ctx, guide.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Penalties)
	assert.Len(t, loaded.Holidays, 2)
}

func TestDeletePayGuide_CascadesChildren(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	guide := fullGuide()
	require.NoError(t, store.SavePayGuide(ctx, guide))
	require.NoError(t, store.DeletePayGuide(ctx, guide.ID))

	_, err := store.GetPayGuide(ctx, guide.ID)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)

	guides, err := store.ListPayGuides(ctx)
	require.NoError(t, err)
	assert.Empty(t, guides)
}

// =============================================================================
// SHIFTS AND PERIODS
// =============================================================================

func TestShiftRoundTripWithBreaks(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	guide := fullGuide()
	require.NoError(t, store.SavePayGuide(ctx, guide))

	shift := &shiftpay.Shift{
		PayGuideID: guide.ID,
		Start:      time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2026, time.March, 6, 17, 0, 0, 0, time.UTC),
		Breaks: []shiftpay.BreakPeriod{
			{
				Start: time.Date(2026, time.March, 6, 12, 0, 0, 0, time.UTC),
				End:   time.Date(2026, time.March, 6, 12, 30, 0, 0, time.UTC),
			},
		},
	}
	require.NoError(t, store.SaveShift(ctx, shift, ""))

	loaded, err := store.GetShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, guide.ID, loaded.PayGuideID)
	assert.True(t, loaded.Start.Equal(shift.Start))
	require.Len(t, loaded.Breaks, 1)
	assert.True(t, loaded.Breaks[0].End.Equal(shift.Breaks[0].End))
}

func TestListShiftsForPeriod_ChronologicalOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	guide := fullGuide()
	require.NoError(t, store.SavePayGuide(ctx, guide))

	period := &payperiod.PayPeriod{
		StartDate: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SavePayPeriod(ctx, period))

	// Insert out of order.
	for _, day := range []int{10, 4, 7} {
		shift := &shiftpay.Shift{
			PayGuideID: guide.ID,
			Start:      time.Date(2026, time.March, day, 9, 0, 0, 0, time.UTC),
			End:        time.Date(2026, time.March, day, 17, 0, 0, 0, time.UTC),
		}
		require.NoError(t, store.SaveShift(ctx, shift, period.ID))
	}

	shifts, err := store.ListShiftsForPeriod(ctx, period.ID)
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	assert.Equal(t, 4, shifts[0].Start.Day())
	assert.Equal(t, 7, shifts[1].Start.Day())
	assert.Equal(t, 10, shifts[2].Start.Day())
}

func TestPayPeriodStatusUpdate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	period := &payperiod.PayPeriod{
		StartDate: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SavePayPeriod(ctx, period))

	loaded, err := store.GetPayPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.Equal(t, payperiod.StatusOpen, loaded.Status)

	require.NoError(t, store.UpdatePeriodStatus(ctx, period.ID, payperiod.StatusProcessing, false))
	loaded, err = store.GetPayPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.Equal(t, payperiod.StatusProcessing, loaded.Status)
}

func TestWritePeriodTotals_Atomic(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	guide := fullGuide()
	require.NoError(t, store.SavePayGuide(ctx, guide))

	period := &payperiod.PayPeriod{
		StartDate: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SavePayPeriod(ctx, period))

	shift := &shiftpay.Shift{
		PayGuideID: guide.ID,
		Start:      time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2026, time.March, 6, 17, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveShift(ctx, shift, period.ID))

	totals := &payperiod.Totals{
		TotalHours:      dec("8"),
		GrossPay:        dec("206.40"),
		TaxableExtras:   dec("50"),
		UntaxedExtras:   dec("30"),
		PaygWithholding: dec("20.92"),
		MedicareLevy:    dec("0"),
		StslAmount:      dec("0"),
		TotalWithheld:   dec("20.92"),
		NetPay:          dec("265.48"),
		Shifts: []*shiftpay.ShiftPay{
			{
				ShiftID:    shift.ID,
				TotalHours: dec("8"),
				BasePay:    dec("206.40"),
				PenaltyPay: dec("0"),
				OvertimePay: dec("0"),
				GrossPay:   dec("206.40"),
			},
		},
	}
	require.NoError(t, store.WritePeriodTotals(ctx, period.ID, totals))

	loaded, err := store.GetPayPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.True(t, loaded.TotalHours.Equal(dec("8")))
	// Stored total pay includes all extras.
	assert.True(t, loaded.TotalPay.Equal(dec("286.40")), "got %s", loaded.TotalPay)
	assert.True(t, loaded.PaygWithholding.Equal(dec("20.92")))
	assert.True(t, loaded.NetPay.Equal(dec("265.48")))
}

func TestExtrasRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	period := &payperiod.PayPeriod{
		StartDate: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SavePayPeriod(ctx, period))

	extra := &payperiod.Extra{Description: "bonus", Amount: dec("50"), Taxable: true}
	require.NoError(t, store.SaveExtra(ctx, period.ID, extra))
	require.NotEmpty(t, extra.ID)

	extras, err := store.ListExtrasForPeriod(ctx, period.ID)
	require.NoError(t, err)
	require.Len(t, extras, 1)
	assert.Equal(t, "bonus", extras[0].Description)
	assert.True(t, extras[0].Amount.Equal(dec("50")))

	require.NoError(t, store.DeleteExtra(ctx, extra.ID))
	extras, err = store.ListExtrasForPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.Empty(t, extras)
}

// =============================================================================
// TAX SETTINGS AND TABLES
// =============================================================================

func TestTaxSettings_NilWhenUnset(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	settings, err := store.GetTaxSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestTaxSettingsRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	in := tax.Settings{
		ClaimedTaxFreeThreshold: true,
		HasTaxFileNumber:        true,
		MedicareExemption:       tax.MedicareExemptionHalf,
		HasSTSL:                 true,
	}
	require.NoError(t, store.SaveTaxSettings(ctx, in))

	out, err := store.GetTaxSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, *out)

	// Saving again replaces the singleton row.
	in.HasSTSL = false
	require.NoError(t, store.SaveTaxSettings(ctx, in))
	out, err = store.GetTaxSettings(ctx)
	require.NoError(t, err)
	assert.False(t, out.HasSTSL)
}

func TestTaxTablesSeedAndLoad(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	seeded, err := store.HasTaxTables(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	defaults := taxdata.DefaultTables()
	require.NoError(t, store.ReplaceTaxTables(ctx, defaults))

	seeded, err = store.HasTaxTables(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	loaded, err := store.LoadTaxTables(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Coefficients, len(defaults.Coefficients))
	assert.Len(t, loaded.StslRates, len(defaults.StslRates))
	assert.Len(t, loaded.RateConfigs, len(defaults.RateConfigs))

	// The loaded tables drive the same calculation as the in-memory ones.
	row, _, err := tax.LookupCoefficient(loaded.Coefficients, 2026, tax.ScaleThresholdClaimed, dec("1000"))
	require.NoError(t, err)
	assert.True(t, row.CoefficientA.Equal(dec("0.30")))
}
