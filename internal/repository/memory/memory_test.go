package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/repository"
	"github.com/NinePK/back-car/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T) (*memory.Store, *domain.Vehicle) {
	t.Helper()
	store := memory.NewStore()
	v := &domain.Vehicle{ShopID: 4, Brand: "Toyota", Model: "Yaris", DailyRate: decimal.NewFromInt(500)}
	require.NoError(t, store.Vehicles().Create(context.Background(), v))
	return store, v
}

func rental(vehicleID int64, start, end int, status domain.RentalStatus) *domain.Rental {
	return &domain.Rental{
		VehicleID:     vehicleID,
		CustomerID:    3,
		ShopID:        4,
		StartDate:     day(start),
		EndDate:       day(end),
		RentalStatus:  status,
		PaymentStatus: domain.PaymentStatusPending,
	}
}

func TestStore_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		store, v := seed(t)
		err := store.WithTx(ctx, func(tx repository.Store) error {
			return tx.Vehicles().UpdateStatus(ctx, v.ID, domain.VehicleStatusHidden)
		})
		require.NoError(t, err)

		got, err := store.Vehicles().GetByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusHidden, got.Status)
	})

	t.Run("Rollback", func(t *testing.T) {
		store, v := seed(t)
		boom := errors.New("boom")
		err := store.WithTx(ctx, func(tx repository.Store) error {
			require.NoError(t, tx.Vehicles().UpdateStatus(ctx, v.ID, domain.VehicleStatusHidden))
			require.NoError(t, tx.Rentals().Create(ctx, rental(v.ID, 1, 2, domain.RentalStatusPending)))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Vehicles().GetByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusAvailable, got.Status)
		n, err := store.Rentals().CountByVehicle(ctx, v.ID, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("NestedJoinsOuter", func(t *testing.T) {
		store, v := seed(t)
		err := store.WithTx(ctx, func(tx repository.Store) error {
			err := tx.WithTx(ctx, func(inner repository.Store) error {
				return inner.Vehicles().UpdateStatus(ctx, v.ID, domain.VehicleStatusMaintenance)
			})
			require.NoError(t, err)
			return errors.New("outer fails")
		})
		require.Error(t, err)

		got, err := store.Vehicles().GetByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusAvailable, got.Status)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		store, _ := seed(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := store.WithTx(cctx, func(repository.Store) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestRentalRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateRejectsOverlap", func(t *testing.T) {
		store, v := seed(t)
		require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 1, 3, domain.RentalStatusPending)))

		err := store.Rentals().Create(ctx, rental(v.ID, 3, 5, domain.RentalStatusPending))
		assert.ErrorIs(t, err, repository.ErrOverlap)

		require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 4, 5, domain.RentalStatusPending)))
		// Released rentals never block.
		require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 1, 5, domain.RentalStatusCancelled)))
	})

	t.Run("CreateUnknownVehicle", func(t *testing.T) {
		store, _ := seed(t)
		err := store.Rentals().Create(ctx, rental(99, 1, 1, domain.RentalStatusPending))
		assert.ErrorIs(t, err, repository.ErrReferenced)
	})

	t.Run("UpdateStateVersion", func(t *testing.T) {
		store, v := seed(t)
		rt := rental(v.ID, 1, 2, domain.RentalStatusPending)
		require.NoError(t, store.Rentals().Create(ctx, rt))
		assert.Equal(t, 1, rt.Version)

		stale := *rt
		rt.RentalStatus = domain.RentalStatusConfirmed
		require.NoError(t, store.Rentals().UpdateState(ctx, rt))
		assert.Equal(t, 2, rt.Version)

		stale.RentalStatus = domain.RentalStatusCancelled
		assert.ErrorIs(t, store.Rentals().UpdateState(ctx, &stale), repository.ErrStaleWrite)

		got, err := store.Rentals().GetByID(ctx, rt.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusConfirmed, got.RentalStatus)
	})

	t.Run("FindOverlapping", func(t *testing.T) {
		store, v := seed(t)
		late := rental(v.ID, 6, 8, domain.RentalStatusPending)
		early := rental(v.ID, 1, 2, domain.RentalStatusConfirmed)
		gone := rental(v.ID, 3, 4, domain.RentalStatusReturnApproved)
		for _, rt := range []*domain.Rental{late, early, gone} {
			require.NoError(t, store.Rentals().Create(ctx, rt))
		}

		got, err := store.Rentals().FindOverlapping(ctx, v.ID, day(2), day(6), 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, early.ID, got[0].ID)
		assert.Equal(t, late.ID, got[1].ID)

		got, err = store.Rentals().FindOverlapping(ctx, v.ID, day(2), day(6), early.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, late.ID, got[0].ID)
	})

	t.Run("CountAndList", func(t *testing.T) {
		store, v := seed(t)
		require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 1, 2, domain.RentalStatusConfirmed)))
		require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 3, 4, domain.RentalStatusPending)))
		require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 5, 6, domain.RentalStatusOngoing)))

		active, err := store.Rentals().CountByVehicle(ctx, v.ID, domain.ActiveRentalStatuses)
		require.NoError(t, err)
		assert.Equal(t, 2, active)

		page, total, err := store.Rentals().ListByShop(ctx, 4, "", 2, 2)
		require.NoError(t, err)
		assert.Equal(t, int32(3), total)
		require.Len(t, page, 1)
		assert.Equal(t, int64(1), page[0].ID)

		page, total, err = store.Rentals().ListByCustomer(ctx, 3, string(domain.RentalStatusPending), 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int32(1), total)
		assert.Equal(t, int64(2), page[0].ID)
	})
}

func TestVehicleRepository_Delete(t *testing.T) {
	ctx := context.Background()
	store, v := seed(t)
	require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 1, 2, domain.RentalStatusCancelled)))

	assert.ErrorIs(t, store.Vehicles().Delete(ctx, v.ID), repository.ErrReferenced)
	assert.ErrorIs(t, store.Vehicles().Delete(ctx, 99), repository.ErrNotFound)

	other := &domain.Vehicle{ShopID: 4, Brand: "Honda", Model: "Jazz"}
	require.NoError(t, store.Vehicles().Create(ctx, other))
	require.NoError(t, store.Vehicles().Delete(ctx, other.ID))

	ids, err := store.Vehicles().ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{v.ID}, ids)

	_, err = store.Vehicles().GetByIDAndShop(ctx, v.ID, 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPaymentRepository(t *testing.T) {
	ctx := context.Background()
	store, v := seed(t)
	rt := rental(v.ID, 1, 2, domain.RentalStatusPending)
	require.NoError(t, store.Rentals().Create(ctx, rt))

	p := &domain.Payment{RentalID: rt.ID, Amount: decimal.NewFromInt(500), Method: domain.PaymentMethodCash,
		Status: domain.PaymentStatusPendingVerification}
	require.NoError(t, store.Payments().Create(ctx, p))
	assert.ErrorIs(t, store.Payments().Create(ctx, &domain.Payment{RentalID: rt.ID}), repository.ErrStaleWrite)
	assert.ErrorIs(t, store.Payments().Create(ctx, &domain.Payment{RentalID: 99}), repository.ErrReferenced)

	p.Status = domain.PaymentStatusPaid
	require.NoError(t, store.Payments().Update(ctx, p))

	got, err := store.Payments().GetByRental(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, got.Status)

	paid, err := store.Payments().ListByShop(ctx, 4, string(domain.PaymentStatusPaid))
	require.NoError(t, err)
	assert.Len(t, paid, 1)

	_, err = store.Payments().GetByRental(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransitionRepository(t *testing.T) {
	ctx := context.Background()
	store, v := seed(t)
	rt := rental(v.ID, 1, 2, domain.RentalStatusPending)
	require.NoError(t, store.Rentals().Create(ctx, rt))

	actor := domain.Customer(3)
	book := domain.NewTransition(rt.ID, domain.EventBook, actor, domain.State{}, rt.State())
	cancel := domain.NewTransition(rt.ID, domain.EventCancel, actor, rt.State(),
		domain.State{Rental: domain.RentalStatusCancelled, Payment: domain.PaymentStatusPending})
	require.NoError(t, store.Transitions().Append(ctx, book))
	require.NoError(t, store.Transitions().Append(ctx, cancel))
	assert.ErrorIs(t, store.Transitions().Append(ctx, domain.NewTransition(99, domain.EventBook, actor, domain.State{}, domain.State{})),
		repository.ErrReferenced)

	log, err := store.Transitions().ListByRental(ctx, rt.ID)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Less(t, log[0].ID, log[1].ID)

	state, err := domain.ReplayState(log)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusCancelled, state.Rental)
}

func TestContactsAndNotifications(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.PutContact(domain.Contact{UserID: 3, Username: "nina", Email: "nina@example.com"})

	c, err := store.Contacts().GetByUserID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "nina@example.com", c.Email)
	_, err = store.Contacts().GetByUserID(ctx, 4)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Notifications().Create(ctx, &domain.Notification{ID: id, RecipientID: 3}))
	}
	require.NoError(t, store.Notifications().Create(ctx, &domain.Notification{ID: "x", RecipientID: 4}))

	list, total, err := store.Notifications().List(ctx, 3, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(3), total)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)

	list, _, err = store.Notifications().List(ctx, 3, 2, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	list, total, err = store.Notifications().List(ctx, 3, 2, -2)
	require.NoError(t, err)
	assert.Equal(t, int32(3), total)
	assert.Empty(t, list)

	require.NoError(t, store.Notifications().MarkAsRead(ctx, "a", 3))
	assert.ErrorIs(t, store.Notifications().MarkAsRead(ctx, "x", 3), repository.ErrNotFound)
}

func TestRentalRepository_ListPastTheEnd(t *testing.T) {
	ctx := context.Background()
	store, v := seed(t)
	require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 1, 2, domain.RentalStatusPending)))
	require.NoError(t, store.Rentals().Create(ctx, rental(v.ID, 5, 6, domain.RentalStatusPending)))

	list, total, err := store.Rentals().ListByCustomer(ctx, 3, "", 30000000, 100)
	require.NoError(t, err)
	assert.Equal(t, int32(2), total)
	assert.Empty(t, list)

	list, _, err = store.Rentals().ListByShop(ctx, 4, "", 2, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
