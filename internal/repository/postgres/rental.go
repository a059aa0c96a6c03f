package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/repository"
	"github.com/lib/pq"
)

const rentalColumns = `id, vehicle_id, customer_id, shop_id, start_date, end_date, pickup_location, return_location,
	insurance_rate, total_amount, computed_amount, price_flagged, rental_status, payment_status, version, created_at, updated_at`

type rentalRepository struct {
	db querier
}

func NewRentalRepository(db querier) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	var pickup, dropoff sql.NullString
	err := row.Scan(&rt.ID, &rt.VehicleID, &rt.CustomerID, &rt.ShopID, &rt.StartDate, &rt.EndDate, &pickup, &dropoff,
		&rt.InsuranceRate, &rt.TotalAmount, &rt.ComputedAmount, &rt.PriceFlagged, &rt.RentalStatus, &rt.PaymentStatus,
		&rt.Version, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	rt.PickupLocation = pickup.String
	rt.ReturnLocation = dropoff.String
	return rt, nil
}

func scanRentals(rows *sql.Rows) ([]domain.Rental, error) {
	defer rows.Close()
	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	now := time.Now().UTC()
	query := `INSERT INTO rentals (vehicle_id, customer_id, shop_id, start_date, end_date, pickup_location, return_location,
	              insurance_rate, total_amount, computed_amount, price_flagged, rental_status, payment_status, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, $14, $15) RETURNING id`
	logger.DatabaseCall("INSERT", "rentals", "vehicleID", rt.VehicleID, "customerID", rt.CustomerID)
	err := r.db.QueryRowContext(ctx, query, rt.VehicleID, rt.CustomerID, rt.ShopID, rt.StartDate, rt.EndDate,
		nullString(rt.PickupLocation), nullString(rt.ReturnLocation), rt.InsuranceRate, rt.TotalAmount, rt.ComputedAmount,
		rt.PriceFlagged, rt.RentalStatus, rt.PaymentStatus, now, now).Scan(&rt.ID)
	logger.DatabaseResult("INSERT", 1, err, "rentalID", rt.ID)
	if err != nil {
		return mapError(err)
	}
	rt.Version = 1
	rt.CreatedAt, rt.UpdatedAt = now, now
	return nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	return scanRental(r.db.QueryRowContext(ctx, query, id))
}

func (r *rentalRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 FOR UPDATE`
	return scanRental(r.db.QueryRowContext(ctx, query, id))
}

func (r *rentalRepository) UpdateState(ctx context.Context, rt *domain.Rental) error {
	now := time.Now().UTC()
	query := `UPDATE rentals SET rental_status = $1, payment_status = $2, version = version + 1, updated_at = $3
	          WHERE id = $4 AND version = $5`
	logger.DatabaseCall("UPDATE", "rentals", "rentalID", rt.ID, "version", rt.Version)
	res, err := r.db.ExecContext(ctx, query, rt.RentalStatus, rt.PaymentStatus, now, rt.ID, rt.Version)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "rentalID", rt.ID)
		return mapError(err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "rentalID", rt.ID)
	if err != nil {
		return err
	}
	if n != 1 {
		return repository.ErrStaleWrite
	}
	rt.Version++
	rt.UpdatedAt = now
	return nil
}

func (r *rentalRepository) FindOverlapping(ctx context.Context, vehicleID int64, start, end time.Time, excludeID int64) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE vehicle_id = $1
	            AND rental_status <> ALL($2)
	            AND start_date <= $3
	            AND end_date >= $4
	            AND id <> $5
	          ORDER BY start_date, id`
	rows, err := r.db.QueryContext(ctx, query, vehicleID, pq.Array(statusStrings(domain.ReleasedRentalStatuses)), end, start, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping rentals: %w", err)
	}
	return scanRentals(rows)
}

func (r *rentalRepository) CountByVehicle(ctx context.Context, vehicleID int64, statuses []domain.RentalStatus) (int, error) {
	var count int
	var err error
	if len(statuses) == 0 {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rentals WHERE vehicle_id = $1`, vehicleID).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rentals WHERE vehicle_id = $1 AND rental_status = ANY($2)`,
			vehicleID, pq.Array(statusStrings(statuses))).Scan(&count)
	}
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (r *rentalRepository) ListByCustomer(ctx context.Context, customerID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	return r.list(ctx, "customer_id", customerID, status, page, pageSize)
}

func (r *rentalRepository) ListByShop(ctx context.Context, shopID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	return r.list(ctx, "shop_id", shopID, status, page, pageSize)
}

// list pages through one party's rentals. column is a fixed identifier
// chosen by the callers above.
func (r *rentalRepository) list(ctx context.Context, column string, partyID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	offset := (int64(page) - 1) * int64(pageSize)
	where := ` FROM rentals WHERE ` + column + ` = $1`
	args := []interface{}{partyID}
	argIdx := 2
	if status != "" {
		where += " AND rental_status = $2"
		args = append(args, status)
		argIdx++
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, "SELECT count(*)"+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + rentalColumns + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	rentals, err := scanRentals(rows)
	if err != nil {
		return nil, 0, err
	}
	return rentals, count, nil
}

func (r *rentalRepository) ListPriceFlagged(ctx context.Context, limit int32) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE price_flagged AND rental_status <> $1
	          ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, domain.RentalStatusCancelled, limit)
	if err != nil {
		return nil, fmt.Errorf("list flagged rentals: %w", err)
	}
	return scanRentals(rows)
}
