package domain

import "time"

type NotificationKind string

const (
	NotificationBookingCreated   NotificationKind = "booking_created"
	NotificationBookingApproved  NotificationKind = "booking_approved"
	NotificationBookingRejected  NotificationKind = "booking_rejected"
	NotificationBookingCancelled NotificationKind = "booking_cancelled"
	NotificationProofSubmitted   NotificationKind = "proof_submitted"
	NotificationPaymentApproved  NotificationKind = "payment_approved"
	NotificationPaymentRejected  NotificationKind = "payment_rejected"
	NotificationReturnRequested  NotificationKind = "return_requested"
	NotificationReturnApproved   NotificationKind = "return_approved"
	NotificationReturnRejected   NotificationKind = "return_rejected"
)

// Notification is a best-effort message about a rental. Delivery channels
// decide how to reach the recipient.
type Notification struct {
	ID          string            `json:"id"`
	Kind        NotificationKind  `json:"kind"`
	RecipientID int64             `json:"recipient_id"`
	Recipient   Role              `json:"recipient_role"`
	RentalID    int64             `json:"rental_id"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	IsRead      bool              `json:"is_read"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Contact is how a user can be reached. Shops are users with a shop name.
type Contact struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	ShopName string `json:"shop_name,omitempty"`
}

func (c *Contact) DisplayName() string {
	if c.ShopName != "" {
		return c.ShopName
	}
	return c.Username
}
