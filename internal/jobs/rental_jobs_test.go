package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NinePK/back-car/internal/config"
	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/repository/memory"
	"github.com/NinePK/back-car/internal/service"
	"github.com/NinePK/back-car/internal/utils"
)

func newRunner(t *testing.T) (*JobRunner, *memory.Store, service.RentalService) {
	t.Helper()
	store := memory.NewStore()
	rentals := service.NewRentalService(store, nil, nil, utils.OverridePolicy{TolerancePercent: decimal.NewFromInt(10)})
	runner := NewJobRunner(&Services{
		Rental:       rentals,
		Availability: service.NewAvailabilityService(store),
	}, &config.Config{})
	return runner, store, rentals
}

func TestReconcileAvailability(t *testing.T) {
	runner, store, _ := newRunner(t)
	ctx := context.Background()

	v := &domain.Vehicle{ShopID: 4, Brand: "Mazda", Model: "2", DailyRate: decimal.NewFromInt(400)}
	require.NoError(t, store.Vehicles().Create(ctx, v))
	require.NoError(t, store.Vehicles().UpdateStatus(ctx, v.ID, domain.VehicleStatusRented))

	runner.ReconcileAvailability()

	got, err := store.Vehicles().GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusAvailable, got.Status)
}

func TestReportFlaggedPricing(t *testing.T) {
	runner, store, rentals := newRunner(t)
	ctx := context.Background()

	v := &domain.Vehicle{ShopID: 4, Brand: "Mazda", Model: "2", DailyRate: decimal.NewFromInt(400)}
	require.NoError(t, store.Vehicles().Create(ctx, v))
	_, err := rentals.CreateBooking(ctx, domain.Customer(3), service.BookingRequest{
		VehicleID:   v.ID,
		StartDate:   "2024-05-01",
		EndDate:     "2024-05-03",
		ClientTotal: "100",
	})
	require.NoError(t, err)

	flagged, err := rentals.ListPriceFlagged(ctx, flaggedReportLimit)
	require.NoError(t, err)
	require.Len(t, flagged, 1)

	assert.NotPanics(t, runner.ReportFlaggedPricing)
	assert.NotPanics(t, runner.RunAll)
}

func TestRunWithRecovery(t *testing.T) {
	runner, _, _ := newRunner(t)

	assert.True(t, runner.runWithRecovery("ok", func(context.Context) error { return nil }))
	assert.False(t, runner.runWithRecovery("fails", func(context.Context) error { return errors.New("boom") }))
	assert.False(t, runner.runWithRecovery("panics", func(context.Context) error { panic("boom") }))
}
