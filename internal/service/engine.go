package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/metrics"
	"github.com/NinePK/back-car/internal/notify"
	"github.com/NinePK/back-car/internal/repository"
	"github.com/google/uuid"
)

const notifyTimeout = 5 * time.Second

// engine holds what every rental and payment operation shares: the store, the
// transaction wrapper and post-commit notification delivery.
type engine struct {
	store    repository.Store
	notifier notify.Notifier
}

// unit collects the effects of one transaction. Transitions are logged and
// notifications sent only after it commits.
type unit struct {
	tx          repository.Store
	actor       domain.Actor
	transitions []*domain.Transition
	notes       []domain.Notification
}

func (e *engine) run(ctx context.Context, op string, actor domain.Actor, fn func(u *unit) error) error {
	u := &unit{actor: actor}
	err := e.store.WithTx(ctx, func(tx repository.Store) error {
		u.tx = tx
		return fn(u)
	})
	if err != nil {
		return e.fail(ctx, op, err)
	}

	for _, t := range u.transitions {
		logger.Transition(ctx, t.RentalID, string(t.Event), string(t.ActorRole), t.ActorID,
			formatState(t.From), formatState(t.To))
		metrics.TransitionsTotal.WithLabelValues(string(t.Event)).Inc()
	}
	e.dispatch(ctx, u.notes)
	return nil
}

// fail turns storage errors into domain errors and logs what is left.
func (e *engine) fail(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, repository.ErrStaleWrite):
		logger.WarnContext(ctx, "Concurrent update", "operation", op, "error", err)
		return domain.ErrConcurrentUpdate
	case errors.Is(err, repository.ErrReferenced):
		return domain.ErrReferentialConflict
	case errors.Is(err, repository.ErrOverlap):
		return domain.ErrConflict
	}

	var te *domain.TransitionError
	if errors.As(err, &te) {
		metrics.TransitionsRefusedTotal.WithLabelValues(string(te.Event)).Inc()
		logger.GuardRejected(ctx, op, string(te.Event), err)
		return err
	}
	if isClientError(err) {
		logger.DebugContext(ctx, "Request refused", "operation", op, "error", err)
		return err
	}

	logger.ErrorContext(ctx, "Operation failed", "operation", op, "error", err)
	metrics.OperationErrorsTotal.WithLabelValues(op).Inc()
	return fmt.Errorf("%s: %w", op, err)
}

func isClientError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound, domain.ErrInvalidInput, domain.ErrConflict, domain.ErrInvalidTransition,
		domain.ErrVehicleInUse, domain.ErrReferentialConflict, domain.ErrConcurrentUpdate, domain.ErrVehicleBusy,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (e *engine) dispatch(ctx context.Context, notes []domain.Notification) {
	if len(notes) == 0 || e.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	for _, n := range notes {
		if err := e.notifier.Notify(ctx, n); err != nil {
			logger.WarnContext(ctx, "Notification delivery failed", "kind", n.Kind, "recipient_id", n.RecipientID,
				"rental_id", n.RentalID, "error", err)
		}
	}
}

// lockRental loads a rental the actor is party to, then locks its vehicle and
// the rental itself, in that order.
func (u *unit) lockRental(ctx context.Context, rentalID int64) (*domain.Rental, *domain.Vehicle, error) {
	rt, err := u.tx.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, nil, err
	}
	if !u.actor.CanSee(rt) {
		return nil, nil, domain.ErrNotFound
	}
	v, err := u.tx.Vehicles().GetForUpdate(ctx, rt.VehicleID)
	if err != nil {
		return nil, nil, err
	}
	rt, err = u.tx.Rentals().GetForUpdate(ctx, rentalID)
	if err != nil {
		return nil, nil, err
	}
	return rt, v, nil
}

// apply moves the rental to the given state, records the transition and
// re-derives the vehicle status when the rental enters or leaves the active
// set.
func (u *unit) apply(ctx context.Context, rt *domain.Rental, v *domain.Vehicle, ev domain.Event, to domain.State) error {
	from := rt.State()
	rt.RentalStatus, rt.PaymentStatus = to.Rental, to.Payment
	if err := u.tx.Rentals().UpdateState(ctx, rt); err != nil {
		return err
	}

	t := domain.NewTransition(rt.ID, ev, u.actor, from, to)
	if err := u.tx.Transitions().Append(ctx, t); err != nil {
		return err
	}
	u.transitions = append(u.transitions, t)

	if from.Rental.IsActive() != to.Rental.IsActive() {
		if _, err := reconcileVehicle(ctx, u.tx, v); err != nil {
			return err
		}
	}
	return nil
}

// syncPayment mirrors the rental's payment status onto the payment record, if
// one exists.
func (u *unit) syncPayment(ctx context.Context, rt *domain.Rental, verified bool) (*domain.Payment, error) {
	p, err := u.tx.Payments().GetByRental(ctx, rt.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Status == rt.PaymentStatus && !verified {
		return p, nil
	}
	p.Status = rt.PaymentStatus
	if verified {
		now := time.Now().UTC()
		by := u.actor.ID
		p.VerifiedBy, p.VerifiedAt = &by, &now
	}
	if err := u.tx.Payments().Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *unit) notify(kind domain.NotificationKind, recipient domain.Role, rt *domain.Rental, v *domain.Vehicle, subject, body string) {
	recipientID := rt.CustomerID
	if recipient == domain.RoleShop {
		recipientID = rt.ShopID
	}
	u.notes = append(u.notes, domain.Notification{
		ID:          uuid.NewString(),
		Kind:        kind,
		RecipientID: recipientID,
		Recipient:   recipient,
		RentalID:    rt.ID,
		Subject:     subject,
		Body:        body,
		Attributes: map[string]string{
			"rental_id":      strconv.FormatInt(rt.ID, 10),
			"vehicle_id":     strconv.FormatInt(v.ID, 10),
			"start_date":     rt.StartDate.Format(domain.DateLayout),
			"end_date":       rt.EndDate.Format(domain.DateLayout),
			"rental_status":  string(rt.RentalStatus),
			"payment_status": string(rt.PaymentStatus),
		},
		CreatedAt: time.Now().UTC(),
	})
}

func describe(rt *domain.Rental, v *domain.Vehicle) string {
	return fmt.Sprintf("%s from %s to %s", v.DisplayName(),
		rt.StartDate.Format(domain.DateLayout), rt.EndDate.Format(domain.DateLayout))
}

func formatState(s domain.State) string {
	if s.Rental == "" {
		return "none"
	}
	return string(s.Rental) + "/" + string(s.Payment)
}

func requireDecision(approve *bool) (bool, error) {
	if approve == nil {
		return false, domain.InvalidInput("approve is required")
	}
	return *approve, nil
}

func normalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	// keep (page-1)*pageSize inside int32
	if maxPage := math.MaxInt32 / pageSize; page > maxPage {
		page = maxPage
	}
	return page, pageSize
}
