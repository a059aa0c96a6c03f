package service

import (
	"context"

	"github.com/NinePK/back-car/internal/domain"
)

// BookingRequest is a customer's request to rent a vehicle. Dates use
// domain.DateLayout. ClientTotal is optional.
type BookingRequest struct {
	VehicleID      int64
	StartDate      string
	EndDate        string
	PickupLocation string
	ReturnLocation string
	ClientTotal    string
}

type ProofRequest struct {
	ProofRef string
	Method   domain.PaymentMethod
}

// PaymentResult is the state of both entities after a payment decision.
type PaymentResult struct {
	Rental  *domain.Rental
	Payment *domain.Payment
}

type ReconcileReport struct {
	Checked  int
	Repaired int
	Failed   int
}

type RentalService interface {
	CreateBooking(ctx context.Context, actor domain.Actor, req BookingRequest) (*domain.Rental, error)
	// DecideRental approves or rejects a pending booking. approve must be set.
	DecideRental(ctx context.Context, actor domain.Actor, rentalID int64, approve *bool) (*domain.Rental, error)
	CancelRental(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Rental, error)
	StartRental(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Rental, error)
	RequestReturn(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Rental, error)
	DecideReturn(ctx context.Context, actor domain.Actor, rentalID int64, approve *bool) (*domain.Rental, error)
	UpdateRentalStatus(ctx context.Context, actor domain.Actor, rentalID int64, status domain.RentalStatus) (*domain.Rental, error)
	GetRental(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Rental, error)
	ListRentals(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Rental, int32, error)
	GetHistory(ctx context.Context, actor domain.Actor, rentalID int64) ([]domain.Transition, error)
	ListPriceFlagged(ctx context.Context, limit int32) ([]domain.Rental, error)
}

type PaymentService interface {
	SubmitProof(ctx context.Context, actor domain.Actor, rentalID int64, req ProofRequest) (*domain.Payment, error)
	// VerifyPayment decides a submitted proof. A rejection sends a confirmed
	// rental back to pending.
	VerifyPayment(ctx context.Context, actor domain.Actor, rentalID int64, approve *bool) (*PaymentResult, error)
	// ApproveBooking decides the booking and its submitted proof together. A
	// rejection cancels the rental.
	ApproveBooking(ctx context.Context, actor domain.Actor, rentalID int64, approve *bool) (*PaymentResult, error)
	GetPayment(ctx context.Context, actor domain.Actor, rentalID int64) (*domain.Payment, error)
	ListPendingPayments(ctx context.Context, actor domain.Actor) ([]domain.Payment, error)
	ListPayments(ctx context.Context, actor domain.Actor, status string) ([]domain.Payment, error)
}

type AvailabilityService interface {
	SetVehicleStatus(ctx context.Context, actor domain.Actor, vehicleID int64, status domain.VehicleStatus) (*domain.Vehicle, error)
	DeleteVehicle(ctx context.Context, actor domain.Actor, vehicleID int64) error
	Reconcile(ctx context.Context, vehicleID int64) (*domain.Vehicle, error)
	ReconcileAll(ctx context.Context) (ReconcileReport, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int64, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID int64, notificationID string) error
}
