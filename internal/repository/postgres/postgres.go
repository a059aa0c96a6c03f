package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NinePK/back-car/internal/repository"

	_ "github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db   *sql.DB
	inTx bool

	vehicles      repository.VehicleRepository
	rentals       repository.RentalRepository
	payments      repository.PaymentRepository
	transitions   repository.TransitionRepository
	contacts      repository.ContactRepository
	notifications repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return newStore(db, db, false)
}

func newStore(db *sql.DB, q querier, inTx bool) *Store {
	return &Store{
		db:            db,
		inTx:          inTx,
		vehicles:      &vehicleRepository{db: q},
		rentals:       &rentalRepository{db: q},
		payments:      &paymentRepository{db: q},
		transitions:   &transitionRepository{db: q},
		contacts:      &contactRepository{db: q},
		notifications: &notificationRepository{db: q},
	}
}

func (s *Store) Vehicles() repository.VehicleRepository           { return s.vehicles }
func (s *Store) Rentals() repository.RentalRepository             { return s.rentals }
func (s *Store) Payments() repository.PaymentRepository           { return s.payments }
func (s *Store) Transitions() repository.TransitionRepository     { return s.transitions }
func (s *Store) Contacts() repository.ContactRepository           { return s.contacts }
func (s *Store) Notifications() repository.NotificationRepository { return s.notifications }

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn in a read-committed transaction. Rows that must not change
// underneath fn are taken with SELECT ... FOR UPDATE by the repositories.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(newStore(s.db, tx, true)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	committed = true
	return nil
}
