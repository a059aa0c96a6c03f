package repository

import (
	"context"
	"errors"
	"time"

	"github.com/NinePK/back-car/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStaleWrite means the row changed since it was read.
	ErrStaleWrite = errors.New("stale write")
	// ErrOverlap is raised by the storage layer when a booking would overlap
	// another blocking booking on the same vehicle.
	ErrOverlap = errors.New("overlapping booking")
	// ErrReferenced means the row is still referenced by other rows.
	ErrReferenced = errors.New("row is referenced")
)

type VehicleRepository interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetByIDAndShop(ctx context.Context, id, shopID int64) (*domain.Vehicle, error)
	// GetForUpdate reads the vehicle and holds it until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Vehicle, error)
	UpdateStatus(ctx context.Context, id int64, status domain.VehicleStatus) error
	Delete(ctx context.Context, id int64) error
	ListIDs(ctx context.Context) ([]int64, error)
}

type RentalRepository interface {
	Create(ctx context.Context, rt *domain.Rental) error
	GetByID(ctx context.Context, id int64) (*domain.Rental, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Rental, error)
	// UpdateState writes both statuses if the stored version still matches
	// rt.Version, then bumps rt.Version.
	UpdateState(ctx context.Context, rt *domain.Rental) error
	// FindOverlapping returns blocking rentals on the vehicle whose dates
	// intersect [start, end], ordered by start date.
	FindOverlapping(ctx context.Context, vehicleID int64, start, end time.Time, excludeID int64) ([]domain.Rental, error)
	// CountByVehicle counts the vehicle's rentals in the given statuses, or
	// all of them when statuses is empty.
	CountByVehicle(ctx context.Context, vehicleID int64, statuses []domain.RentalStatus) (int, error)
	ListByCustomer(ctx context.Context, customerID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error)
	ListByShop(ctx context.Context, shopID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error)
	ListPriceFlagged(ctx context.Context, limit int32) ([]domain.Rental, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByRental(ctx context.Context, rentalID int64) (*domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
	ListByShop(ctx context.Context, shopID int64, status string) ([]domain.Payment, error)
}

type TransitionRepository interface {
	Append(ctx context.Context, t *domain.Transition) error
	ListByRental(ctx context.Context, rentalID int64) ([]domain.Transition, error)
}

type ContactRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*domain.Contact, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID int64, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id string, userID int64) error
}

// Store groups the repositories and the transaction boundary around them.
type Store interface {
	Vehicles() VehicleRepository
	Rentals() RentalRepository
	Payments() PaymentRepository
	Transitions() TransitionRepository
	Contacts() ContactRepository
	Notifications() NotificationRepository

	// WithTx runs fn inside one transaction and hands it a Store bound to
	// that transaction. The transaction commits only if fn returns nil.
	// Calling WithTx on a transaction-bound Store reuses the transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
