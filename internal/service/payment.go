package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/notify"
	"github.com/NinePK/back-car/internal/repository"
)

type paymentService struct {
	*engine
}

func NewPaymentService(store repository.Store, notifier notify.Notifier) PaymentService {
	return &paymentService{engine: &engine{store: store, notifier: notifier}}
}

func (s *paymentService) SubmitProof(ctx context.Context, actor domain.Actor, rentalID int64, req ProofRequest) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.SubmitProof", "rentalID", rentalID, "customerID", actor.ID)

	proof := strings.TrimSpace(req.ProofRef)
	if proof == "" {
		return nil, domain.InvalidInput("proof reference is required")
	}
	method := req.Method
	if method == "" {
		method = domain.PaymentMethodPromptPay
	}
	if !method.Valid() {
		return nil, domain.InvalidInput("unknown payment method %q", method)
	}
	if actor.Role != domain.RoleCustomer {
		return nil, domain.NewTransitionError("", domain.EventSubmitProof, "only the customer can do this")
	}

	var out *domain.Payment
	err := s.run(ctx, string(domain.EventSubmitProof), actor, func(u *unit) error {
		rt, v, err := u.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if rt.RentalStatus.IsTerminal() || rt.RentalStatus == domain.RentalStatusReturnApproved {
			return domain.NewTransitionError(string(rt.RentalStatus), domain.EventSubmitProof, "rental is "+string(rt.RentalStatus))
		}
		next, err := domain.NextPaymentStatus(rt.PaymentStatus, domain.EventSubmitProof)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		p, err := u.tx.Payments().GetByRental(ctx, rt.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			p = &domain.Payment{
				RentalID: rt.ID,
				Amount:   rt.TotalAmount,
				Method:   method,
				Status:   next,
				ProofRef: &proof,
				PaidAt:   &now,
			}
			if err := u.tx.Payments().Create(ctx, p); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			p.Method = method
			p.Status = next
			p.ProofRef = &proof
			p.PaidAt = &now
			p.VerifiedBy, p.VerifiedAt = nil, nil
			if err := u.tx.Payments().Update(ctx, p); err != nil {
				return err
			}
		}

		if err := u.apply(ctx, rt, v, domain.EventSubmitProof, domain.State{Rental: rt.RentalStatus, Payment: next}); err != nil {
			return err
		}
		u.notify(domain.NotificationProofSubmitted, domain.RoleShop, rt, v, "Payment proof submitted",
			fmt.Sprintf("The customer submitted a payment of %s for %s.", p.Amount.StringFixed(2), describe(rt, v)))
		out = p
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.SubmitProof", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("paymentService.SubmitProof", "rentalID", rentalID, "paymentID", out.ID)
	return out, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, actor domain.Actor, rentalID int64, approve *bool) (*PaymentResult, error) {
	ok, err := requireDecision(approve)
	if err != nil {
		return nil, err
	}
	ev := domain.EventPaymentApproved
	if !ok {
		ev = domain.EventPaymentRejected
	}
	return s.decide(ctx, actor, rentalID, ev, func(rt *domain.Rental) (domain.State, error) {
		if rt.RentalStatus.IsTerminal() {
			return domain.State{}, domain.NewTransitionError(string(rt.RentalStatus), ev, "rental is closed")
		}
		payment, err := domain.NextPaymentStatus(rt.PaymentStatus, ev)
		if err != nil {
			return domain.State{}, err
		}
		rental := domain.RentalAfterPaymentApproval(rt.RentalStatus)
		if !ok {
			rental = domain.RentalAfterPaymentRejection(rt.RentalStatus, domain.RejectKeepPending)
		}
		return domain.State{Rental: rental, Payment: payment}, nil
	})
}

func (s *paymentService) ApproveBooking(ctx context.Context, actor domain.Actor, rentalID int64, approve *bool) (*PaymentResult, error) {
	ok, err := requireDecision(approve)
	if err != nil {
		return nil, err
	}
	ev := domain.EventBookingApproved
	if !ok {
		ev = domain.EventBookingRejected
	}
	return s.decide(ctx, actor, rentalID, ev, func(rt *domain.Rental) (domain.State, error) {
		from := string(rt.RentalStatus)
		if rt.RentalStatus != domain.RentalStatusPending && rt.RentalStatus != domain.RentalStatusConfirmed {
			return domain.State{}, domain.NewTransitionError(from, ev, "")
		}

		payment := rt.PaymentStatus
		if domain.CanTransitionPayment(rt.PaymentStatus, ev) {
			payment, _ = domain.NextPaymentStatus(rt.PaymentStatus, ev)
		}

		if ok {
			if rt.PaymentStatus == domain.PaymentStatusRejected {
				return domain.State{}, domain.NewTransitionError(from, ev, "payment was rejected")
			}
			if rt.RentalStatus == domain.RentalStatusConfirmed && payment == rt.PaymentStatus {
				return domain.State{}, domain.NewTransitionError(from, ev, "booking is already confirmed")
			}
			return domain.State{Rental: domain.RentalStatusConfirmed, Payment: payment}, nil
		}

		if rt.PaymentStatus == domain.PaymentStatusPaid {
			return domain.State{}, domain.NewTransitionError(from, ev, "payment is paid")
		}
		return domain.State{Rental: domain.RentalAfterPaymentRejection(rt.RentalStatus, domain.RejectAndCancel), Payment: payment}, nil
	})
}

// decide runs a shop decision on a rental and its payment. next computes the
// target state from the locked rental.
func (s *paymentService) decide(ctx context.Context, actor domain.Actor, rentalID int64, ev domain.Event, next func(rt *domain.Rental) (domain.State, error)) (*PaymentResult, error) {
	logger.EnterMethod("paymentService.decide", "rentalID", rentalID, "event", ev, "shopID", actor.ID)

	if actor.Role != domain.RoleShop {
		return nil, domain.NewTransitionError("", ev, "only the shop can do this")
	}

	var out PaymentResult
	err := s.run(ctx, string(ev), actor, func(u *unit) error {
		rt, v, err := u.lockRental(ctx, rentalID)
		if err != nil {
			return err
		}
		to, err := next(rt)
		if err != nil {
			return err
		}
		verified := to.Payment != rt.PaymentStatus

		if err := u.apply(ctx, rt, v, ev, to); err != nil {
			return err
		}
		p, err := u.syncPayment(ctx, rt, verified)
		if err != nil {
			return err
		}

		paymentNotes(u, ev, rt, v)
		out = PaymentResult{Rental: rt, Payment: p}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.decide", err, "rentalID", rentalID, "event", ev)
		return nil, err
	}

	logger.ExitMethod("paymentService.decide", "rentalID", rentalID, "rentalStatus", out.Rental.RentalStatus,
		"paymentStatus", out.Rental.PaymentStatus)
	return &out, nil
}

func (s *paymentService) GetPayment(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Payment, error) {
	rt, err := s.store.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, s.fail(ctx, "get_payment", err)
	}
	if !actor.CanSee(rt) {
		return nil, domain.ErrNotFound
	}
	p, err := s.store.Payments().GetByRental(ctx, rentalID)
	if err != nil {
		return nil, s.fail(ctx, "get_payment", err)
	}
	return p, nil
}

func (s *paymentService) ListPendingPayments(ctx context.Context, actor domain.Actor) ([]domain.Payment, error) {
	return s.ListPayments(ctx, actor, string(domain.PaymentStatusPendingVerification))
}

func (s *paymentService) ListPayments(ctx context.Context, actor domain.Actor, status string) ([]domain.Payment, error) {
	if actor.Role != domain.RoleShop {
		return nil, domain.InvalidInput("payments are listed per shop")
	}
	if status != "" && !domain.PaymentStatus(status).Valid() {
		return nil, domain.InvalidInput("unknown payment status %q", status)
	}
	payments, err := s.store.Payments().ListByShop(ctx, actor.ID, status)
	if err != nil {
		return nil, s.fail(ctx, "list_payments", err)
	}
	return payments, nil
}

func paymentNotes(u *unit, ev domain.Event, rt *domain.Rental, v *domain.Vehicle) {
	what := describe(rt, v)
	switch ev {
	case domain.EventPaymentApproved:
		u.notify(domain.NotificationPaymentApproved, domain.RoleCustomer, rt, v, "Payment approved",
			fmt.Sprintf("Your payment for %s was verified.", what))
	case domain.EventPaymentRejected:
		u.notify(domain.NotificationPaymentRejected, domain.RoleCustomer, rt, v, "Payment rejected",
			fmt.Sprintf("Your payment for %s was rejected. Please submit a new proof.", what))
	case domain.EventBookingApproved:
		u.notify(domain.NotificationBookingApproved, domain.RoleCustomer, rt, v, "Booking approved",
			fmt.Sprintf("Your booking of %s was approved.", what))
	case domain.EventBookingRejected:
		u.notify(domain.NotificationBookingRejected, domain.RoleCustomer, rt, v, "Booking rejected",
			fmt.Sprintf("Your booking of %s and its payment were rejected.", what))
	}
}
