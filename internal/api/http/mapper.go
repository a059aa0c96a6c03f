package http

import (
	"time"

	"github.com/NinePK/back-car/internal/domain"
)

type RentalDTO struct {
	ID             int64  `json:"id"`
	VehicleID      int64  `json:"vehicle_id"`
	CustomerID     int64  `json:"customer_id"`
	ShopID         int64  `json:"shop_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	PickupLocation string `json:"pickup_location,omitempty"`
	ReturnLocation string `json:"return_location,omitempty"`
	InsuranceRate  string `json:"insurance_rate"`
	TotalAmount    string `json:"total_amount"`
	ComputedAmount string `json:"computed_amount"`
	PriceFlagged   bool   `json:"price_flagged"`
	RentalStatus   string `json:"rental_status"`
	PaymentStatus  string `json:"payment_status"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type PaymentDTO struct {
	ID         int64  `json:"id"`
	RentalID   int64  `json:"rental_id"`
	Amount     string `json:"amount"`
	Method     string `json:"payment_method"`
	Status     string `json:"payment_status"`
	ProofRef   string `json:"proof_ref,omitempty"`
	PaidAt     string `json:"paid_at,omitempty"`
	VerifiedBy *int64 `json:"verified_by,omitempty"`
	VerifiedAt string `json:"verified_at,omitempty"`
}

type TransitionDTO struct {
	Event             string `json:"event"`
	ActorRole         string `json:"actor_role"`
	ActorID           int64  `json:"actor_id"`
	FromRentalStatus  string `json:"from_rental_status,omitempty"`
	FromPaymentStatus string `json:"from_payment_status,omitempty"`
	ToRentalStatus    string `json:"to_rental_status"`
	ToPaymentStatus   string `json:"to_payment_status"`
	CreatedAt         string `json:"created_at"`
}

type VehicleDTO struct {
	ID     int64  `json:"id"`
	ShopID int64  `json:"shop_id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type NotificationDTO struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	RentalID   int64             `json:"rental_id"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Attributes map[string]string `json:"attributes,omitempty"`
	IsRead     bool              `json:"is_read"`
	CreatedAt  string            `json:"created_at"`
}

func MapDomainRentalToDTO(rt *domain.Rental) *RentalDTO {
	if rt == nil {
		return nil
	}
	return &RentalDTO{
		ID:             rt.ID,
		VehicleID:      rt.VehicleID,
		CustomerID:     rt.CustomerID,
		ShopID:         rt.ShopID,
		StartDate:      rt.StartDate.Format(domain.DateLayout),
		EndDate:        rt.EndDate.Format(domain.DateLayout),
		PickupLocation: rt.PickupLocation,
		ReturnLocation: rt.ReturnLocation,
		InsuranceRate:  rt.InsuranceRate.StringFixed(2),
		TotalAmount:    rt.TotalAmount.StringFixed(2),
		ComputedAmount: rt.ComputedAmount.StringFixed(2),
		PriceFlagged:   rt.PriceFlagged,
		RentalStatus:   string(rt.RentalStatus),
		PaymentStatus:  string(rt.PaymentStatus),
		CreatedAt:      formatTime(rt.CreatedAt),
		UpdatedAt:      formatTime(rt.UpdatedAt),
	}
}

func MapDomainRentalsToDTO(rentals []domain.Rental) []*RentalDTO {
	out := make([]*RentalDTO, 0, len(rentals))
	for i := range rentals {
		out = append(out, MapDomainRentalToDTO(&rentals[i]))
	}
	return out
}

func MapDomainPaymentToDTO(p *domain.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	dto := &PaymentDTO{
		ID:         p.ID,
		RentalID:   p.RentalID,
		Amount:     p.Amount.StringFixed(2),
		Method:     string(p.Method),
		Status:     string(p.Status),
		VerifiedBy: p.VerifiedBy,
	}
	if p.ProofRef != nil {
		dto.ProofRef = *p.ProofRef
	}
	if p.PaidAt != nil {
		dto.PaidAt = formatTime(*p.PaidAt)
	}
	if p.VerifiedAt != nil {
		dto.VerifiedAt = formatTime(*p.VerifiedAt)
	}
	return dto
}

func MapDomainPaymentsToDTO(payments []domain.Payment) []*PaymentDTO {
	out := make([]*PaymentDTO, 0, len(payments))
	for i := range payments {
		out = append(out, MapDomainPaymentToDTO(&payments[i]))
	}
	return out
}

func MapDomainTransitionsToDTO(log []domain.Transition) []TransitionDTO {
	out := make([]TransitionDTO, 0, len(log))
	for _, t := range log {
		out = append(out, TransitionDTO{
			Event:             string(t.Event),
			ActorRole:         string(t.ActorRole),
			ActorID:           t.ActorID,
			FromRentalStatus:  string(t.From.Rental),
			FromPaymentStatus: string(t.From.Payment),
			ToRentalStatus:    string(t.To.Rental),
			ToPaymentStatus:   string(t.To.Payment),
			CreatedAt:         formatTime(t.CreatedAt),
		})
	}
	return out
}

func MapDomainVehicleToDTO(v *domain.Vehicle) *VehicleDTO {
	if v == nil {
		return nil
	}
	return &VehicleDTO{ID: v.ID, ShopID: v.ShopID, Name: v.DisplayName(), Status: string(v.Status)}
}

func MapDomainNotificationsToDTO(notes []domain.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, NotificationDTO{
			ID:         n.ID,
			Kind:       string(n.Kind),
			RentalID:   n.RentalID,
			Subject:    n.Subject,
			Body:       n.Body,
			Attributes: n.Attributes,
			IsRead:     n.IsRead,
			CreatedAt:  formatTime(n.CreatedAt),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
