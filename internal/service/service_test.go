package service_test

import (
	"context"
	"testing"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/repository/memory"
	"github.com/NinePK/back-car/internal/service"
	"github.com/NinePK/back-car/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	customer      = domain.Customer(3)
	otherCustomer = domain.Customer(5)
	shop          = domain.Shop(4)
	otherShop     = domain.Shop(6)
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotifier) kinds() []domain.NotificationKind {
	var kinds []domain.NotificationKind
	for _, c := range m.Calls {
		if c.Method == "Notify" {
			kinds = append(kinds, c.Arguments.Get(1).(domain.Notification).Kind)
		}
	}
	return kinds
}

type fixture struct {
	ctx          context.Context
	store        *memory.Store
	notifier     *MockNotifier
	rentals      service.RentalService
	payments     service.PaymentService
	availability service.AvailabilityService
	vehicle      *domain.Vehicle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPolicy(t, utils.OverridePolicy{TolerancePercent: decimal.NewFromInt(10)})
}

func newFixtureWithPolicy(t *testing.T, policy utils.OverridePolicy) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	v := &domain.Vehicle{
		ShopID:        shop.ID,
		Brand:         "Toyota",
		Model:         "Yaris",
		DailyRate:     decimal.NewFromInt(500),
		InsuranceRate: decimal.NewFromInt(50),
	}
	require.NoError(t, store.Vehicles().Create(ctx, v))

	return &fixture{
		ctx:          ctx,
		store:        store,
		notifier:     notifier,
		rentals:      service.NewRentalService(store, notifier, nil, policy),
		payments:     service.NewPaymentService(store, notifier),
		availability: service.NewAvailabilityService(store),
		vehicle:      v,
	}
}

func (f *fixture) book(t *testing.T, start, end string) *domain.Rental {
	t.Helper()
	rt, err := f.rentals.CreateBooking(f.ctx, customer, service.BookingRequest{
		VehicleID: f.vehicle.ID,
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	return rt
}

// paidConfirmed books and walks the rental to confirmed with a verified payment.
func (f *fixture) paidConfirmed(t *testing.T, start, end string) *domain.Rental {
	t.Helper()
	rt := f.book(t, start, end)
	_, err := f.rentals.DecideRental(f.ctx, shop, rt.ID, boolPtr(true))
	require.NoError(t, err)
	_, err = f.payments.SubmitProof(f.ctx, customer, rt.ID, service.ProofRequest{ProofRef: "slips/1.png"})
	require.NoError(t, err)
	res, err := f.payments.VerifyPayment(f.ctx, shop, rt.ID, boolPtr(true))
	require.NoError(t, err)
	return res.Rental
}

func (f *fixture) rental(t *testing.T, id int64) *domain.Rental {
	t.Helper()
	rt, err := f.store.Rentals().GetByID(f.ctx, id)
	require.NoError(t, err)
	return rt
}

func (f *fixture) vehicleStatus(t *testing.T) domain.VehicleStatus {
	t.Helper()
	v, err := f.store.Vehicles().GetByID(f.ctx, f.vehicle.ID)
	require.NoError(t, err)
	return v.Status
}

func (f *fixture) history(t *testing.T, id int64) []domain.Transition {
	t.Helper()
	log, err := f.store.Transitions().ListByRental(f.ctx, id)
	require.NoError(t, err)
	return log
}

func boolPtr(b bool) *bool { return &b }
