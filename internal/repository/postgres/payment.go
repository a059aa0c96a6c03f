package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/repository"
)

const paymentColumns = `p.id, p.rental_id, p.amount, p.payment_method, p.payment_status, p.proof_ref, p.paid_at,
	p.verified_by, p.verified_at, p.created_at, p.updated_at`

type paymentRepository struct {
	db querier
}

func NewPaymentRepository(db querier) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	var proof sql.NullString
	var paidAt, verifiedAt sql.NullTime
	var verifiedBy sql.NullInt64
	err := row.Scan(&p.ID, &p.RentalID, &p.Amount, &p.Method, &p.Status, &proof, &paidAt, &verifiedBy, &verifiedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if proof.Valid {
		p.ProofRef = &proof.String
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	if verifiedBy.Valid {
		p.VerifiedBy = &verifiedBy.Int64
	}
	if verifiedAt.Valid {
		p.VerifiedAt = &verifiedAt.Time
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	now := time.Now().UTC()
	query := `INSERT INTO payments (rental_id, amount, payment_method, payment_status, proof_ref, paid_at, verified_by, verified_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, p.RentalID, p.Amount, p.Method, p.Status, p.ProofRef, p.PaidAt, p.VerifiedBy, p.VerifiedAt, now, now).Scan(&p.ID)
	if err != nil {
		return mapError(err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *paymentRepository) GetByRental(ctx context.Context, rentalID int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.rental_id = $1`
	return scanPayment(r.db.QueryRowContext(ctx, query, rentalID))
}

func (r *paymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	now := time.Now().UTC()
	query := `UPDATE payments SET payment_method = $1, payment_status = $2, proof_ref = $3, paid_at = $4,
	              verified_by = $5, verified_at = $6, updated_at = $7
	          WHERE id = $8`
	res, err := r.db.ExecContext(ctx, query, p.Method, p.Status, p.ProofRef, p.PaidAt, p.VerifiedBy, p.VerifiedAt, now, p.ID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	p.UpdatedAt = now
	return nil
}

func (r *paymentRepository) ListByShop(ctx context.Context, shopID int64, status string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p JOIN rentals r ON r.id = p.rental_id WHERE r.shop_id = $1`
	args := []interface{}{shopID}
	if status != "" {
		query += " AND p.payment_status = $2"
		args = append(args, status)
	}
	query += " ORDER BY p.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
