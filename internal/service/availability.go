package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/metrics"
	"github.com/NinePK/back-car/internal/repository"
)

type availabilityService struct {
	*engine
}

func NewAvailabilityService(store repository.Store) AvailabilityService {
	return &availabilityService{engine: &engine{store: store}}
}

// derivedStatus is the status a vehicle should have given whether any of its
// rentals is active. Shop-set statuses survive while nothing is active.
func derivedStatus(current domain.VehicleStatus, hasActive bool) domain.VehicleStatus {
	if hasActive {
		return domain.VehicleStatusRented
	}
	if current.ShopControlled() {
		return current
	}
	return domain.VehicleStatusAvailable
}

// reconcileVehicle writes the derived status when it differs from the stored
// one. v must be locked by the caller's transaction.
func reconcileVehicle(ctx context.Context, tx repository.Store, v *domain.Vehicle) (bool, error) {
	active, err := tx.Rentals().CountByVehicle(ctx, v.ID, domain.ActiveRentalStatuses)
	if err != nil {
		return false, err
	}
	want := derivedStatus(v.Status, active > 0)
	if want == v.Status {
		return false, nil
	}
	if err := tx.Vehicles().UpdateStatus(ctx, v.ID, want); err != nil {
		return false, err
	}
	logger.DebugContext(ctx, "Vehicle status derived", "vehicle_id", v.ID, "from", v.Status, "to", want)
	v.Status = want
	return true, nil
}

func (s *availabilityService) SetVehicleStatus(ctx context.Context, actor domain.Actor, vehicleID int64, status domain.VehicleStatus) (*domain.Vehicle, error) {
	logger.EnterMethod("availabilityService.SetVehicleStatus", "vehicleID", vehicleID, "status", status)

	if status == domain.VehicleStatusRented {
		return nil, domain.InvalidInput("rented is derived from bookings and cannot be set")
	}
	if !status.Valid() {
		return nil, domain.InvalidInput("unknown vehicle status %q", status)
	}

	var out *domain.Vehicle
	err := s.run(ctx, "set_vehicle_status", actor, func(u *unit) error {
		v, err := u.tx.Vehicles().GetForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		if !actor.Owns(v) {
			return domain.ErrNotFound
		}
		active, err := u.tx.Rentals().CountByVehicle(ctx, v.ID, domain.ActiveRentalStatuses)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: %d active rental(s)", domain.ErrVehicleInUse, active)
		}
		if v.Status != status {
			if err := u.tx.Vehicles().UpdateStatus(ctx, v.ID, status); err != nil {
				return err
			}
			v.Status = status
		}
		out = v
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("availabilityService.SetVehicleStatus", err, "vehicleID", vehicleID)
		return nil, err
	}

	logger.ExitMethod("availabilityService.SetVehicleStatus", "vehicleID", vehicleID, "status", out.Status)
	return out, nil
}

func (s *availabilityService) DeleteVehicle(ctx context.Context, actor domain.Actor, vehicleID int64) error {
	return s.run(ctx, "delete_vehicle", actor, func(u *unit) error {
		v, err := u.tx.Vehicles().GetForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		if !actor.Owns(v) {
			return domain.ErrNotFound
		}
		refs, err := u.tx.Rentals().CountByVehicle(ctx, v.ID, nil)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: vehicle has %d rental(s)", domain.ErrReferentialConflict, refs)
		}
		return u.tx.Vehicles().Delete(ctx, v.ID)
	})
}

func (s *availabilityService) Reconcile(ctx context.Context, vehicleID int64) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		v, err := tx.Vehicles().GetForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		repaired, err := reconcileVehicle(ctx, tx, v)
		if err != nil {
			return err
		}
		if repaired {
			metrics.VehiclesRepairedTotal.Inc()
			logger.WarnContext(ctx, "Vehicle status repaired", "vehicle_id", v.ID, "status", v.Status)
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "reconcile", err)
	}
	return out, nil
}

// ReconcileAll repairs every vehicle and keeps going past individual failures.
func (s *availabilityService) ReconcileAll(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	ids, err := s.store.Vehicles().ListIDs(ctx)
	if err != nil {
		return report, s.fail(ctx, "reconcile_all", err)
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		before, err := s.store.Vehicles().GetByID(ctx, id)
		if err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("vehicle %d: %w", id, err))
			continue
		}
		after, err := s.Reconcile(ctx, id)
		report.Checked++
		if err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("vehicle %d: %w", id, err))
			continue
		}
		if after.Status != before.Status {
			report.Repaired++
		}
	}
	return report, errors.Join(errs...)
}
