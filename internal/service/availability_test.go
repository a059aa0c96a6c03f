package service_test

import (
	"context"
	"testing"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityService_VehicleFollowsActiveRentals(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2024-01-01", "2024-01-03")
	b := f.book(t, "2024-01-10", "2024-01-12")
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t))

	_, err := f.rentals.DecideRental(f.ctx, shop, a.ID, boolPtr(true))
	require.NoError(t, err)
	_, err = f.rentals.DecideRental(f.ctx, shop, b.ID, boolPtr(true))
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusRented, f.vehicleStatus(t))

	// One active rental still holds the vehicle.
	_, err = f.rentals.CancelRental(f.ctx, customer, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusRented, f.vehicleStatus(t))

	_, err = f.rentals.CancelRental(f.ctx, customer, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t))
}

func TestAvailabilityService_SetVehicleStatus(t *testing.T) {
	t.Run("Maintenance", func(t *testing.T) {
		f := newFixture(t)
		pending := f.book(t, "2024-01-01", "2024-01-03")

		v, err := f.availability.SetVehicleStatus(f.ctx, shop, f.vehicle.ID, domain.VehicleStatusMaintenance)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusMaintenance, v.Status)

		// A pending booking does not hold the vehicle; leaving it does not
		// touch the shop's status.
		_, err = f.rentals.CancelRental(f.ctx, customer, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusMaintenance, f.vehicleStatus(t))

		v, err = f.availability.SetVehicleStatus(f.ctx, shop, f.vehicle.ID, domain.VehicleStatusAvailable)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusAvailable, v.Status)
	})

	t.Run("InUse", func(t *testing.T) {
		f := newFixture(t)
		rt := f.book(t, "2024-01-01", "2024-01-03")
		_, err := f.rentals.DecideRental(f.ctx, shop, rt.ID, boolPtr(true))
		require.NoError(t, err)

		_, err = f.availability.SetVehicleStatus(f.ctx, shop, f.vehicle.ID, domain.VehicleStatusHidden)
		assert.ErrorIs(t, err, domain.ErrVehicleInUse)
		assert.Equal(t, domain.VehicleStatusRented, f.vehicleStatus(t))
	})

	t.Run("RentedIsDerived", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.availability.SetVehicleStatus(f.ctx, shop, f.vehicle.ID, domain.VehicleStatusRented)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.availability.SetVehicleStatus(f.ctx, shop, f.vehicle.ID, "scrapped")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("NotOwner", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.availability.SetVehicleStatus(f.ctx, otherShop, f.vehicle.ID, domain.VehicleStatusHidden)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = f.availability.SetVehicleStatus(f.ctx, shop, 999, domain.VehicleStatusHidden)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAvailabilityService_DeleteVehicle(t *testing.T) {
	t.Run("Referenced", func(t *testing.T) {
		f := newFixture(t)
		rt := f.book(t, "2024-01-01", "2024-01-03")
		_, err := f.rentals.CancelRental(f.ctx, customer, rt.ID)
		require.NoError(t, err)

		err = f.availability.DeleteVehicle(f.ctx, shop, f.vehicle.ID)
		assert.ErrorIs(t, err, domain.ErrReferentialConflict)

		_, err = f.store.Vehicles().GetByID(f.ctx, f.vehicle.ID)
		assert.NoError(t, err)
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.availability.DeleteVehicle(f.ctx, shop, f.vehicle.ID))

		_, err := f.availability.Reconcile(f.ctx, f.vehicle.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NotOwner", func(t *testing.T) {
		f := newFixture(t)
		err := f.availability.DeleteVehicle(f.ctx, otherShop, f.vehicle.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAvailabilityService_Reconcile(t *testing.T) {
	t.Run("RepairsDrift", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Vehicles().UpdateStatus(f.ctx, f.vehicle.ID, domain.VehicleStatusRented))

		v, err := f.availability.Reconcile(f.ctx, f.vehicle.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusAvailable, v.Status)
		assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t))
	})

	t.Run("KeepsShopStatus", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Vehicles().UpdateStatus(f.ctx, f.vehicle.ID, domain.VehicleStatusHidden))

		v, err := f.availability.Reconcile(f.ctx, f.vehicle.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusHidden, v.Status)
	})

	t.Run("ActiveRentalWins", func(t *testing.T) {
		f := newFixture(t)
		rt := f.book(t, "2024-01-01", "2024-01-03")
		_, err := f.rentals.DecideRental(f.ctx, shop, rt.ID, boolPtr(true))
		require.NoError(t, err)
		require.NoError(t, f.store.Vehicles().UpdateStatus(f.ctx, f.vehicle.ID, domain.VehicleStatusMaintenance))

		v, err := f.availability.Reconcile(f.ctx, f.vehicle.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusRented, v.Status)
	})
}

func TestAvailabilityService_ReconcileAll(t *testing.T) {
	f := newFixture(t)
	second := &domain.Vehicle{
		ShopID:        shop.ID,
		Brand:         "Honda",
		Model:         "City",
		DailyRate:     decimal.NewFromInt(700),
		InsuranceRate: decimal.NewFromInt(0),
		Status:        domain.VehicleStatusRented,
	}
	require.NoError(t, f.store.Vehicles().Create(f.ctx, second))
	third := &domain.Vehicle{ShopID: otherShop.ID, Brand: "Mazda", Model: "2", DailyRate: decimal.NewFromInt(600)}
	require.NoError(t, f.store.Vehicles().Create(f.ctx, third))

	report, err := f.availability.ReconcileAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, service.ReconcileReport{Checked: 3, Repaired: 1}, report)

	v, err := f.store.Vehicles().GetByID(f.ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusAvailable, v.Status)

	report, err = f.availability.ReconcileAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, service.ReconcileReport{Checked: 3}, report)
}

func TestAvailabilityService_ReconcileAllCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	report, err := f.availability.ReconcileAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Repaired)
}
