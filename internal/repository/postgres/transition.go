package postgres

import (
	"context"
	"database/sql"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/repository"
)

type transitionRepository struct {
	db querier
}

func NewTransitionRepository(db querier) repository.TransitionRepository {
	return &transitionRepository{db: db}
}

func (r *transitionRepository) Append(ctx context.Context, t *domain.Transition) error {
	query := `INSERT INTO rental_transitions (rental_id, event, actor_role, actor_id, from_rental_status, to_rental_status,
	              from_payment_status, to_payment_status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	logger.DatabaseCall("INSERT", "rental_transitions", "rentalID", t.RentalID, "event", t.Event)
	err := r.db.QueryRowContext(ctx, query, t.RentalID, t.Event, t.ActorRole, t.ActorID,
		nullString(string(t.From.Rental)), t.To.Rental, nullString(string(t.From.Payment)), t.To.Payment, t.CreatedAt).Scan(&t.ID)
	logger.DatabaseResult("INSERT", 1, err, "transitionID", t.ID)
	return mapError(err)
}

func (r *transitionRepository) ListByRental(ctx context.Context, rentalID int64) ([]domain.Transition, error) {
	query := `SELECT id, rental_id, event, actor_role, actor_id, from_rental_status, to_rental_status,
	              from_payment_status, to_payment_status, created_at
	          FROM rental_transitions WHERE rental_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var log []domain.Transition
	for rows.Next() {
		var t domain.Transition
		var fromRental, fromPayment sql.NullString
		if err := rows.Scan(&t.ID, &t.RentalID, &t.Event, &t.ActorRole, &t.ActorID, &fromRental, &t.To.Rental,
			&fromPayment, &t.To.Payment, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.From = domain.State{Rental: domain.RentalStatus(fromRental.String), Payment: domain.PaymentStatus(fromPayment.String)}
		log = append(log, t)
	}
	return log, rows.Err()
}
