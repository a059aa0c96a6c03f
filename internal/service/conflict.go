package service

import (
	"context"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/repository"
)

// FindConflict returns the earliest blocking rental on the vehicle whose dates
// intersect [start, end], or nil. excludeID skips one rental, 0 skips none.
// Callers that go on to insert must hold the vehicle lock.
func FindConflict(ctx context.Context, rentals repository.RentalRepository, vehicleID int64, start, end time.Time, excludeID int64) (*domain.Rental, error) {
	overlapping, err := rentals.FindOverlapping(ctx, vehicleID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	for i := range overlapping {
		if overlapping[i].RentalStatus.BlocksDates() && overlapping[i].Overlaps(start, end) {
			return &overlapping[i], nil
		}
	}
	return nil, nil
}

func HasConflict(ctx context.Context, rentals repository.RentalRepository, vehicleID int64, start, end time.Time, excludeID int64) (bool, error) {
	c, err := FindConflict(ctx, rentals, vehicleID, start, end, excludeID)
	return c != nil, err
}

func conflictError(c *domain.Rental) *domain.ConflictError {
	return &domain.ConflictError{RentalID: c.ID, Start: c.StartDate, End: c.EndDate}
}
