package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/lock"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/metrics"
	"github.com/NinePK/back-car/internal/notify"
	"github.com/NinePK/back-car/internal/repository"
	"github.com/NinePK/back-car/internal/utils"
)

type rentalService struct {
	*engine
	locker  lock.Locker
	pricing utils.OverridePolicy
}

func NewRentalService(
	store repository.Store,
	notifier notify.Notifier,
	locker lock.Locker,
	pricing utils.OverridePolicy,
) RentalService {
	if locker == nil {
		locker = lock.Nop()
	}
	return &rentalService{
		engine:  &engine{store: store, notifier: notifier},
		locker:  locker,
		pricing: pricing,
	}
}

func (s *rentalService) CreateBooking(ctx context.Context, actor domain.Actor, req BookingRequest) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.CreateBooking", "customerID", actor.ID, "vehicleID", req.VehicleID,
		"startDate", req.StartDate, "endDate", req.EndDate)

	if actor.Role != domain.RoleCustomer {
		return nil, domain.NewTransitionError("", domain.EventBook, "only the customer can do this")
	}
	if req.VehicleID <= 0 {
		return nil, domain.InvalidInput("vehicle_id is required")
	}
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return nil, domain.InvalidInput("start_date: %v", err)
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return nil, domain.InvalidInput("end_date: %v", err)
	}
	if end.Before(start) {
		return nil, domain.InvalidInput("end_date %s is before start_date %s", req.EndDate, req.StartDate)
	}

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("vehicle:%d", req.VehicleID))
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		return nil, domain.ErrVehicleBusy
	case err != nil:
		// The row lock below still serializes bookings.
		logger.WarnContext(ctx, "Vehicle lock unavailable", "vehicle_id", req.VehicleID, "error", err)
	default:
		defer release()
	}

	var out *domain.Rental
	var quote utils.Quote
	err = s.run(ctx, "create_booking", actor, func(u *unit) error {
		v, err := u.tx.Vehicles().GetForUpdate(ctx, req.VehicleID)
		if err != nil {
			return err
		}
		if v.Status != domain.VehicleStatusAvailable {
			return domain.NewTransitionError("", domain.EventBook, "vehicle is "+string(v.Status))
		}

		conflict, err := FindConflict(ctx, u.tx.Rentals(), v.ID, start, end, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflictError(conflict)
		}

		quote, err = utils.ComputeTotal(v.DailyRate, v.InsuranceRate, start, end, req.ClientTotal, s.pricing)
		if err != nil {
			return err
		}

		rt := &domain.Rental{
			VehicleID:      v.ID,
			CustomerID:     actor.ID,
			ShopID:         v.ShopID,
			StartDate:      start,
			EndDate:        end,
			PickupLocation: strings.TrimSpace(req.PickupLocation),
			ReturnLocation: strings.TrimSpace(req.ReturnLocation),
			InsuranceRate:  v.InsuranceRate,
			TotalAmount:    quote.Total,
			ComputedAmount: quote.Computed,
			PriceFlagged:   quote.Flagged,
			RentalStatus:   domain.RentalStatusPending,
			PaymentStatus:  domain.PaymentStatusPending,
		}
		if err := u.tx.Rentals().Create(ctx, rt); err != nil {
			return err
		}

		t := domain.NewTransition(rt.ID, domain.EventBook, actor, domain.State{}, rt.State())
		if err := u.tx.Transitions().Append(ctx, t); err != nil {
			return err
		}
		u.transitions = append(u.transitions, t)

		u.notify(domain.NotificationBookingCreated, domain.RoleShop, rt, v, "New booking request",
			fmt.Sprintf("A customer booked %s for %s.", describe(rt, v), rt.TotalAmount.StringFixed(2)))
		out = rt
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.BookingConflictsTotal.Inc()
			err = s.describeConflict(ctx, req.VehicleID, start, end, err)
		}
		logger.ExitMethodWithError("rentalService.CreateBooking", err, "vehicleID", req.VehicleID)
		return nil, err
	}

	metrics.BookingsCreatedTotal.Inc()
	if quote.Flagged {
		metrics.PriceOverridesFlaggedTotal.Inc()
		logger.WarnContext(ctx, "Client total outside tolerance", "rental_id", out.ID,
			"computed", quote.Computed.StringFixed(2), "total", quote.Total.StringFixed(2),
			"deviation_percent", quote.DeviationPercent.StringFixed(2))
	}
	logger.ExitMethod("rentalService.CreateBooking", "rentalID", out.ID, "total", out.TotalAmount.StringFixed(2))
	return out, nil
}

// describeConflict replaces a bare conflict raised by the storage constraint
// with one that names the interval already taken.
func (s *rentalService) describeConflict(ctx context.Context, vehicleID int64, start, end time.Time, err error) error {
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		return err
	}
	c, lookupErr := FindConflict(ctx, s.store.Rentals(), vehicleID, start, end, 0)
	if lookupErr != nil || c == nil {
		return err
	}
	return conflictError(c)
}

func (s *rentalService) DecideRental(ctx context.Context, actor domain.Actor, rentalID int64, approve *bool) (*domain.Rental, error) {
	ok, err := requireDecision(approve)
	if err != nil {
		return nil, err
	}
	if ok {
		return s.transition(ctx, actor, rentalID, domain.EventApprove)
	}
	return s.transition(ctx, actor, rentalID, domain.EventReject)
}

func (s *rentalService) CancelRental(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Rental, error) {
	return s.transition(ctx, actor, rentalID, domain.EventCancel)
}

func (s *rentalService) StartRental(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Rental, error) {
	return s.transition(ctx, actor, rentalID, domain.EventStart)
}

func (s *rentalService) RequestReturn(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Rental, error) {
	return s.transition(ctx, actor, rentalID, domain.EventRequestReturn)
}

func (s *rentalService) DecideReturn(ctx context.Context, actor domain.Actor, rentalID int64, approve *bool) (*domain.Rental, error) {
	ok, err := requireDecision(approve)
	if err != nil {
		return nil, err
	}
	if ok {
		return s.transition(ctx, actor, rentalID, domain.EventApproveReturn)
	}
	return s.transition(ctx, actor, rentalID, domain.EventRejectReturn)
}

// transition drives one event of the rental table.
func (s *rentalService) transition(ctx context.Context, actor domain.Actor, rentalID int64, ev domain.Event) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.transition", "rentalID", rentalID, "event", ev, "actorID", actor.ID)

	var out *domain.Rental
	err := s.run(ctx, string(ev), actor, func(u *unit) error {
		rt, v, err := u.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}
		next, err := domain.NextRentalStatus(rt, ev, actor.Role)
		if err != nil {
			return err
		}

		to := domain.State{Rental: next, Payment: rt.PaymentStatus}
		if next == domain.RentalStatusCancelled {
			to.Payment = voidedPayment(rt.PaymentStatus)
		}
		if err := u.apply(ctx, rt, v, ev, to); err != nil {
			return err
		}
		if _, err := u.syncPayment(ctx, rt, false); err != nil {
			return err
		}

		rentalNotes(u, ev, rt, v)
		out = rt
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.transition", err, "rentalID", rentalID, "event", ev)
		return nil, err
	}

	logger.ExitMethod("rentalService.transition", "rentalID", rentalID, "status", out.RentalStatus)
	return out, nil
}

func (s *rentalService) UpdateRentalStatus(ctx context.Context, actor domain.Actor, rentalID int64, status domain.RentalStatus) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.UpdateRentalStatus", "rentalID", rentalID, "status", status, "shopID", actor.ID)

	if actor.Role != domain.RoleShop {
		return nil, domain.NewTransitionError("", domain.EventShopUpdate, "only the shop can do this")
	}

	var out *domain.Rental
	err := s.run(ctx, string(domain.EventShopUpdate), actor, func(u *unit) error {
		rt, v, err := u.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if err := domain.CheckShopDirected(rt, status); err != nil {
			return err
		}

		to := domain.State{Rental: status, Payment: rt.PaymentStatus}
		if status == domain.RentalStatusCancelled {
			to.Payment = voidedPayment(rt.PaymentStatus)
		}
		if err := u.apply(ctx, rt, v, domain.EventShopUpdate, to); err != nil {
			return err
		}
		if _, err := u.syncPayment(ctx, rt, false); err != nil {
			return err
		}

		if status == domain.RentalStatusCancelled {
			u.notify(domain.NotificationBookingCancelled, domain.RoleCustomer, rt, v, "Booking cancelled",
				fmt.Sprintf("The shop cancelled your booking of %s.", describe(rt, v)))
		}
		out = rt
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.UpdateRentalStatus", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("rentalService.UpdateRentalStatus", "rentalID", rentalID, "status", out.RentalStatus)
	return out, nil
}

func (s *rentalService) GetRental(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Rental, error) {
	rt, err := s.store.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, s.fail(ctx, "get_rental", err)
	}
	if !actor.CanSee(rt) {
		return nil, domain.ErrNotFound
	}
	return rt, nil
}

func (s *rentalService) ListRentals(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	if status != "" && !domain.RentalStatus(status).Valid() {
		return nil, 0, domain.InvalidInput("unknown rental status %q", status)
	}
	page, pageSize = normalizePage(page, pageSize)

	var rentals []domain.Rental
	var count int32
	var err error
	switch actor.Role {
	case domain.RoleCustomer:
		rentals, count, err = s.store.Rentals().ListByCustomer(ctx, actor.ID, status, page, pageSize)
	case domain.RoleShop:
		rentals, count, err = s.store.Rentals().ListByShop(ctx, actor.ID, status, page, pageSize)
	default:
		return nil, 0, domain.InvalidInput("unknown role %q", actor.Role)
	}
	if err != nil {
		return nil, 0, s.fail(ctx, "list_rentals", err)
	}
	return rentals, count, nil
}

func (s *rentalService) GetHistory(ctx context.Context, actor domain.Actor, rentalID int64) ([]domain.Transition, error) {
	if _, err := s.GetRental(ctx, actor, rentalID); err != nil {
		return nil, err
	}
	history, err := s.store.Transitions().ListByRental(ctx, rentalID)
	if err != nil {
		return nil, s.fail(ctx, "get_history", err)
	}
	return history, nil
}

func (s *rentalService) ListPriceFlagged(ctx context.Context, limit int32) ([]domain.Rental, error) {
	rentals, err := s.store.Rentals().ListPriceFlagged(ctx, limit)
	if err != nil {
		return nil, s.fail(ctx, "list_price_flagged", err)
	}
	return rentals, nil
}

// voidedPayment is the payment status left behind when a rental is cancelled.
// A proof still waiting for verification can no longer be accepted.
func voidedPayment(current domain.PaymentStatus) domain.PaymentStatus {
	if next, err := domain.NextPaymentStatus(current, domain.EventVoidProof); err == nil {
		return next
	}
	return current
}

func rentalNotes(u *unit, ev domain.Event, rt *domain.Rental, v *domain.Vehicle) {
	what := describe(rt, v)
	switch ev {
	case domain.EventApprove:
		u.notify(domain.NotificationBookingApproved, domain.RoleCustomer, rt, v, "Booking approved",
			fmt.Sprintf("Your booking of %s was approved.", what))
	case domain.EventReject:
		u.notify(domain.NotificationBookingRejected, domain.RoleCustomer, rt, v, "Booking rejected",
			fmt.Sprintf("Your booking of %s was rejected.", what))
	case domain.EventCancel:
		u.notify(domain.NotificationBookingCancelled, domain.RoleShop, rt, v, "Booking cancelled",
			fmt.Sprintf("The customer cancelled the booking of %s.", what))
	case domain.EventRequestReturn:
		u.notify(domain.NotificationReturnRequested, domain.RoleShop, rt, v, "Return requested",
			fmt.Sprintf("The customer wants to return %s.", what))
	case domain.EventApproveReturn:
		u.notify(domain.NotificationReturnApproved, domain.RoleCustomer, rt, v, "Return approved",
			fmt.Sprintf("The shop accepted the return of %s.", what))
	case domain.EventRejectReturn:
		u.notify(domain.NotificationReturnRejected, domain.RoleCustomer, rt, v, "Return rejected",
			fmt.Sprintf("The shop did not accept the return of %s yet.", what))
	}
}
