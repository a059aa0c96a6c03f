package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of rental dates.
const DateLayout = "2006-01-02"

type RentalStatus string

const (
	RentalStatusPending         RentalStatus = "pending"
	RentalStatusConfirmed       RentalStatus = "confirmed"
	RentalStatusOngoing         RentalStatus = "ongoing"
	RentalStatusReturnRequested RentalStatus = "return_requested"
	RentalStatusReturnApproved  RentalStatus = "return_approved"
	RentalStatusCompleted       RentalStatus = "completed"
	RentalStatusCancelled       RentalStatus = "cancelled"
)

// ActiveRentalStatuses hold the vehicle: while any rental is in one of these
// the vehicle is rented.
var ActiveRentalStatuses = []RentalStatus{
	RentalStatusConfirmed,
	RentalStatusOngoing,
	RentalStatusReturnRequested,
}

// ReleasedRentalStatuses no longer claim their date range.
var ReleasedRentalStatuses = []RentalStatus{
	RentalStatusCancelled,
	RentalStatusCompleted,
	RentalStatusReturnApproved,
}

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusPending, RentalStatusConfirmed, RentalStatusOngoing, RentalStatusReturnRequested,
		RentalStatusReturnApproved, RentalStatusCompleted, RentalStatusCancelled:
		return true
	}
	return false
}

func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusCompleted || s == RentalStatusCancelled
}

func (s RentalStatus) IsActive() bool {
	for _, a := range ActiveRentalStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// BlocksDates reports whether a rental in this status claims its date range
// against new bookings.
func (s RentalStatus) BlocksDates() bool {
	for _, r := range ReleasedRentalStatuses {
		if s == r {
			return false
		}
	}
	return true
}

type Rental struct {
	ID             int64           `json:"id"`
	VehicleID      int64           `json:"vehicle_id"`
	CustomerID     int64           `json:"customer_id"`
	ShopID         int64           `json:"shop_id"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	PickupLocation string          `json:"pickup_location,omitempty"`
	ReturnLocation string          `json:"return_location,omitempty"`
	InsuranceRate  decimal.Decimal `json:"insurance_rate"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	// ComputedAmount is the server-side price at booking time. It differs from
	// TotalAmount only when a client total was accepted.
	ComputedAmount decimal.Decimal `json:"computed_amount"`
	PriceFlagged   bool            `json:"price_flagged"`
	RentalStatus   RentalStatus    `json:"rental_status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Overlaps reports whether the rental's dates intersect [start, end], bounds
// inclusive.
func (r *Rental) Overlaps(start, end time.Time) bool {
	return !r.StartDate.After(end) && !r.EndDate.Before(start)
}

// State returns the pair of statuses that the transition log records.
func (r *Rental) State() State {
	return State{Rental: r.RentalStatus, Payment: r.PaymentStatus}
}
