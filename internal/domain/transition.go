package domain

import (
	"errors"
	"fmt"
	"time"
)

type Event string

const (
	EventBook            Event = "book"
	EventApprove         Event = "approve"
	EventReject          Event = "reject"
	EventCancel          Event = "cancel"
	EventStart           Event = "start"
	EventRequestReturn   Event = "request_return"
	EventApproveReturn   Event = "approve_return"
	EventRejectReturn    Event = "reject_return"
	EventShopUpdate      Event = "shop_update"
	EventSubmitProof     Event = "submit_proof"
	EventPaymentApproved Event = "payment_approved"
	EventPaymentRejected Event = "payment_rejected"
	EventBookingApproved Event = "booking_approved"
	EventBookingRejected Event = "booking_rejected"
	EventVoidProof       Event = "void_proof"
	EventRefundRequested Event = "refund_requested"
	EventRefunded        Event = "refunded"
)

// State is the pair of statuses a rental carries at one point of its life.
type State struct {
	Rental  RentalStatus  `json:"rental_status"`
	Payment PaymentStatus `json:"payment_status"`
}

// Transition is one entry of a rental's append-only history.
type Transition struct {
	ID        int64     `json:"id"`
	RentalID  int64     `json:"rental_id"`
	Event     Event     `json:"event"`
	ActorRole Role      `json:"actor_role"`
	ActorID   int64     `json:"actor_id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTransition(rentalID int64, ev Event, actor Actor, from, to State) *Transition {
	return &Transition{
		RentalID:  rentalID,
		Event:     ev,
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		From:      from,
		To:        to,
		CreatedAt: time.Now().UTC(),
	}
}

var ErrEmptyHistory = errors.New("rental has no transition history")

// ReplayState walks a log ordered oldest first and returns the state reached
// by its last entry. Each entry must start where the previous one ended.
func ReplayState(log []Transition) (State, error) {
	if len(log) == 0 {
		return State{}, ErrEmptyHistory
	}
	current := log[0].To
	for i := 1; i < len(log); i++ {
		if log[i].From != current {
			return State{}, fmt.Errorf("transition log broken at entry %d (%s): expected from %v, got %v",
				i, log[i].Event, current, log[i].From)
		}
		current = log[i].To
	}
	return current, nil
}
