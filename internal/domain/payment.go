package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending             PaymentStatus = "pending"
	PaymentStatusPendingVerification PaymentStatus = "pending_verification"
	PaymentStatusPaid                PaymentStatus = "paid"
	PaymentStatusRejected            PaymentStatus = "rejected"
	PaymentStatusRefundPending       PaymentStatus = "refund_pending"
	PaymentStatusRefunded            PaymentStatus = "refunded"
	PaymentStatusFailed              PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPendingVerification, PaymentStatusPaid, PaymentStatusRejected,
		PaymentStatusRefundPending, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodPromptPay    PaymentMethod = "promptpay"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodCash         PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPromptPay, PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodCash:
		return true
	}
	return false
}

// RejectionPolicy decides what happens to the rental when the shop rejects a
// payment. The two entry points that can reject a payment use different ones.
type RejectionPolicy string

const (
	// RejectKeepPending sends a confirmed rental back to pending so the
	// customer can submit a new proof.
	RejectKeepPending RejectionPolicy = "keep_pending"
	// RejectAndCancel cancels the booking together with the payment.
	RejectAndCancel RejectionPolicy = "cancel"
)

type Payment struct {
	ID         int64           `json:"id"`
	RentalID   int64           `json:"rental_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	Status     PaymentStatus   `json:"payment_status"`
	ProofRef   *string         `json:"proof_ref,omitempty"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	VerifiedBy *int64          `json:"verified_by,omitempty"`
	VerifiedAt *time.Time      `json:"verified_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
