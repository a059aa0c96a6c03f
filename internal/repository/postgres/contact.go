package postgres

import (
	"context"
	"database/sql"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/repository"
)

type contactRepository struct {
	db querier
}

func NewContactRepository(db querier) repository.ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Contact, error) {
	logger.EnterMethod("contactRepository.GetByUserID", "userID", userID)

	c := &domain.Contact{}
	var shopName sql.NullString
	query := `SELECT id, username, email, shop_name FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&c.UserID, &c.Username, &c.Email, &shopName)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("contactRepository.GetByUserID", err, "userID", userID)
		return nil, err
	}
	c.ShopName = shopName.String

	logger.ExitMethod("contactRepository.GetByUserID", "userID", userID)
	return c, nil
}
