package domain

import (
	"fmt"
	"strings"
)

type rentalRule struct {
	from  []RentalStatus
	actor Role
	// guard returns a non-empty reason when the event must be refused.
	guard func(r *Rental) string
	to    RentalStatus
}

var rentalRules = map[Event]rentalRule{
	EventApprove: {
		from:  []RentalStatus{RentalStatusPending},
		actor: RoleShop,
		guard: paymentNotRejected,
		to:    RentalStatusConfirmed,
	},
	EventReject: {
		from:  []RentalStatus{RentalStatusPending},
		actor: RoleShop,
		to:    RentalStatusCancelled,
	},
	EventCancel: {
		from:  []RentalStatus{RentalStatusPending, RentalStatusConfirmed, RentalStatusOngoing},
		actor: RoleCustomer,
		guard: cancellable,
		to:    RentalStatusCancelled,
	},
	EventStart: {
		from:  []RentalStatus{RentalStatusConfirmed},
		actor: RoleShop,
		to:    RentalStatusOngoing,
	},
	EventRequestReturn: {
		from:  []RentalStatus{RentalStatusConfirmed, RentalStatusOngoing},
		actor: RoleCustomer,
		guard: paid,
		to:    RentalStatusReturnRequested,
	},
	EventApproveReturn: {
		from:  []RentalStatus{RentalStatusReturnRequested},
		actor: RoleShop,
		to:    RentalStatusReturnApproved,
	},
	EventRejectReturn: {
		from:  []RentalStatus{RentalStatusReturnRequested},
		actor: RoleShop,
		to:    RentalStatusOngoing,
	},
}

// ShopDirectedStatuses are the targets a shop may set directly.
var ShopDirectedStatuses = []RentalStatus{
	RentalStatusConfirmed,
	RentalStatusOngoing,
	RentalStatusCompleted,
	RentalStatusCancelled,
}

// NextRentalStatus checks ev against the rental's current state and returns
// the status it moves to. The rental itself is not modified.
func NextRentalStatus(r *Rental, ev Event, role Role) (RentalStatus, error) {
	from := string(r.RentalStatus)
	rule, ok := rentalRules[ev]
	if !ok {
		return "", NewTransitionError(from, ev, "unknown event")
	}
	if r.RentalStatus.IsTerminal() {
		return "", NewTransitionError(from, ev, "rental is closed")
	}
	if role != rule.actor {
		return "", NewTransitionError(from, ev, fmt.Sprintf("only the %s can do this", rule.actor))
	}
	if !hasStatus(rule.from, r.RentalStatus) {
		return "", NewTransitionError(from, ev, "")
	}
	if rule.guard != nil {
		if reason := rule.guard(r); reason != "" {
			return "", NewTransitionError(from, ev, reason)
		}
	}
	return rule.to, nil
}

// CheckShopDirected validates a shop-directed status update.
func CheckShopDirected(r *Rental, target RentalStatus) error {
	if !hasStatus(ShopDirectedStatuses, target) {
		names := make([]string, len(ShopDirectedStatuses))
		for i, s := range ShopDirectedStatuses {
			names[i] = string(s)
		}
		return InvalidInput("status must be one of %s", strings.Join(names, ", "))
	}
	from := string(r.RentalStatus)
	switch {
	case r.RentalStatus.IsTerminal():
		return NewTransitionError(from, EventShopUpdate, "rental is closed")
	case r.RentalStatus == target:
		return NewTransitionError(from, EventShopUpdate, "rental is already "+from)
	case r.RentalStatus == RentalStatusReturnApproved && target != RentalStatusCompleted:
		return NewTransitionError(from, EventShopUpdate, "a returned rental can only be completed")
	case target == RentalStatusCancelled && settled(r.PaymentStatus):
		return NewTransitionError(from, EventShopUpdate, "payment is "+string(r.PaymentStatus))
	case (target == RentalStatusConfirmed || target == RentalStatusOngoing) && r.PaymentStatus == PaymentStatusRejected:
		return NewTransitionError(from, EventShopUpdate, "payment was rejected")
	}
	return nil
}

func cancellable(r *Rental) string {
	if r.RentalStatus == RentalStatusPending {
		if r.PaymentStatus == PaymentStatusPaid {
			return "payment is paid"
		}
		return ""
	}
	if settled(r.PaymentStatus) {
		return "payment is " + string(r.PaymentStatus)
	}
	return ""
}

func paid(r *Rental) string {
	if r.PaymentStatus != PaymentStatusPaid {
		return "payment is " + string(r.PaymentStatus)
	}
	return ""
}

func paymentNotRejected(r *Rental) string {
	if r.PaymentStatus == PaymentStatusRejected {
		return "payment was rejected"
	}
	return ""
}

// settled payments hold money that only a refund can release.
func settled(s PaymentStatus) bool {
	return s == PaymentStatusPaid || s == PaymentStatusRefunded || s == PaymentStatusRefundPending
}

func hasStatus(set []RentalStatus, s RentalStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
