package domain

// paymentTransitions maps a payment status to the events it accepts and the
// status each leads to. Statuses missing from the map accept nothing.
var paymentTransitions = map[PaymentStatus]map[Event]PaymentStatus{
	PaymentStatusPending: {
		EventSubmitProof: PaymentStatusPendingVerification,
	},
	PaymentStatusRejected: {
		EventSubmitProof: PaymentStatusPendingVerification,
	},
	PaymentStatusPendingVerification: {
		EventPaymentApproved: PaymentStatusPaid,
		EventPaymentRejected: PaymentStatusRejected,
		EventBookingApproved: PaymentStatusPaid,
		EventBookingRejected: PaymentStatusRejected,
		EventVoidProof:       PaymentStatusFailed,
	},
	PaymentStatusPaid: {
		EventRefundRequested: PaymentStatusRefundPending,
	},
	PaymentStatusRefundPending: {
		EventRefunded: PaymentStatusRefunded,
	},
}

func CanTransitionPayment(from PaymentStatus, ev Event) bool {
	_, ok := paymentTransitions[from][ev]
	return ok
}

// NextPaymentStatus returns the status ev moves a payment to.
func NextPaymentStatus(from PaymentStatus, ev Event) (PaymentStatus, error) {
	to, ok := paymentTransitions[from][ev]
	if !ok {
		return "", NewTransitionError(string(from), ev, "payment is "+string(from))
	}
	return to, nil
}

// RentalAfterPaymentRejection returns the rental status a payment rejection
// leaves behind under the given policy.
func RentalAfterPaymentRejection(current RentalStatus, policy RejectionPolicy) RentalStatus {
	switch policy {
	case RejectAndCancel:
		return RentalStatusCancelled
	default:
		if current == RentalStatusConfirmed {
			return RentalStatusPending
		}
		return current
	}
}

// RentalAfterPaymentApproval advances a pending rental once its payment is
// accepted. Later statuses are left alone.
func RentalAfterPaymentApproval(current RentalStatus) RentalStatus {
	if current == RentalStatusPending {
		return RentalStatusConfirmed
	}
	return current
}
