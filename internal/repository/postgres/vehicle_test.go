package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/repository"
	"github.com/NinePK/back-car/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vehicleCols = []string{"id", "shop_id", "brand", "model", "daily_rate", "insurance_rate", "status", "created_at", "updated_at"}

func TestVehicleRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewVehicleRepository(db)
	v := &domain.Vehicle{ShopID: 4, Brand: "Toyota", Model: "Yaris", DailyRate: decimal.NewFromInt(500), InsuranceRate: decimal.NewFromInt(50)}

	mock.ExpectQuery("INSERT INTO vehicles").
		WithArgs(int64(4), "Toyota", "Yaris", v.DailyRate, v.InsuranceRate, domain.VehicleStatusAvailable, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	require.NoError(t, repo.Create(context.Background(), v))
	assert.Equal(t, int64(2), v.ID)
	assert.Equal(t, domain.VehicleStatusAvailable, v.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_GetByIDAndShop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewVehicleRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM vehicles WHERE id = \\$1 AND shop_id = \\$2").
			WithArgs(int64(2), int64(4)).
			WillReturnRows(sqlmock.NewRows(vehicleCols).
				AddRow(2, 4, "Toyota", "Yaris", "500.00", "50.00", "maintenance", time.Now(), time.Now()))

		v, err := repo.GetByIDAndShop(ctx, 2, 4)
		require.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusMaintenance, v.Status)
		assert.True(t, v.DailyRate.Equal(decimal.NewFromInt(500)))
	})

	t.Run("Other shop", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM vehicles WHERE id = \\$1 AND shop_id = \\$2").
			WithArgs(int64(2), int64(5)).
			WillReturnRows(sqlmock.NewRows(vehicleCols))

		_, err := repo.GetByIDAndShop(ctx, 2, 5)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewVehicleRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE vehicles SET status = \\$1").
		WithArgs(domain.VehicleStatusRented, sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE vehicles SET status = \\$1").
		WithArgs(domain.VehicleStatusAvailable, sqlmock.AnyArg(), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.UpdateStatus(ctx, 2, domain.VehicleStatusRented))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 99, domain.VehicleStatusAvailable), repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewVehicleRepository(db)
	ctx := context.Background()

	t.Run("Referenced by rentals", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM vehicles WHERE id = \\$1").
			WithArgs(int64(2)).
			WillReturnError(&pq.Error{Code: "23503", Message: "update or delete on table \"vehicles\" violates foreign key constraint"})

		err := repo.Delete(ctx, 2)
		assert.ErrorIs(t, err, repository.ErrReferenced)
	})

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM vehicles WHERE id = \\$1").
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, 3))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_ListIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewVehicleRepository(db)
	mock.ExpectQuery("SELECT id FROM vehicles ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(5))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 5}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
