package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/repository"
)

type vehicleRepository struct{ s *Store }

func (r vehicleRepository) Create(_ context.Context, v *domain.Vehicle) error {
	return r.s.view(func(d *data) error {
		if v.Status == "" {
			v.Status = domain.VehicleStatusAvailable
		}
		d.vehicleSeq++
		now := time.Now().UTC()
		v.ID, v.CreatedAt, v.UpdatedAt = d.vehicleSeq, now, now
		d.vehicles[v.ID] = *v
		return nil
	})
}

func (r vehicleRepository) GetByID(_ context.Context, id int64) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := r.s.view(func(d *data) error {
		v, ok := d.vehicles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r vehicleRepository) GetByIDAndShop(ctx context.Context, id, shopID int64) (*domain.Vehicle, error) {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.ShopID != shopID {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

func (r vehicleRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return r.GetByID(ctx, id)
}

func (r vehicleRepository) UpdateStatus(_ context.Context, id int64, status domain.VehicleStatus) error {
	return r.s.view(func(d *data) error {
		v, ok := d.vehicles[id]
		if !ok {
			return repository.ErrNotFound
		}
		v.Status = status
		v.UpdatedAt = time.Now().UTC()
		d.vehicles[id] = v
		return nil
	})
}

func (r vehicleRepository) Delete(_ context.Context, id int64) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.vehicles[id]; !ok {
			return repository.ErrNotFound
		}
		for _, rt := range d.rentals {
			if rt.VehicleID == id {
				return repository.ErrReferenced
			}
		}
		delete(d.vehicles, id)
		return nil
	})
}

func (r vehicleRepository) ListIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	err := r.s.view(func(d *data) error {
		for id := range d.vehicles {
			ids = append(ids, id)
		}
		return nil
	})
	slices.Sort(ids)
	return ids, err
}

type rentalRepository struct{ s *Store }

func (r rentalRepository) Create(_ context.Context, rt *domain.Rental) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.vehicles[rt.VehicleID]; !ok {
			return repository.ErrReferenced
		}
		if rt.RentalStatus.BlocksDates() {
			for _, other := range d.rentals {
				if other.VehicleID == rt.VehicleID && other.RentalStatus.BlocksDates() && other.Overlaps(rt.StartDate, rt.EndDate) {
					return repository.ErrOverlap
				}
			}
		}
		d.rentalSeq++
		now := time.Now().UTC()
		rt.ID, rt.Version, rt.CreatedAt, rt.UpdatedAt = d.rentalSeq, 1, now, now
		d.rentals[rt.ID] = *rt
		return nil
	})
}

func (r rentalRepository) GetByID(_ context.Context, id int64) (*domain.Rental, error) {
	var out *domain.Rental
	err := r.s.view(func(d *data) error {
		rt, ok := d.rentals[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &rt
		return nil
	})
	return out, err
}

func (r rentalRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Rental, error) {
	return r.GetByID(ctx, id)
}

func (r rentalRepository) UpdateState(_ context.Context, rt *domain.Rental) error {
	return r.s.view(func(d *data) error {
		stored, ok := d.rentals[rt.ID]
		if !ok || stored.Version != rt.Version {
			return repository.ErrStaleWrite
		}
		stored.RentalStatus = rt.RentalStatus
		stored.PaymentStatus = rt.PaymentStatus
		stored.Version++
		stored.UpdatedAt = time.Now().UTC()
		d.rentals[rt.ID] = stored
		rt.Version, rt.UpdatedAt = stored.Version, stored.UpdatedAt
		return nil
	})
}

func (r rentalRepository) FindOverlapping(_ context.Context, vehicleID int64, start, end time.Time, excludeID int64) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.s.view(func(d *data) error {
		for _, rt := range d.rentals {
			if rt.VehicleID == vehicleID && rt.ID != excludeID && rt.RentalStatus.BlocksDates() && rt.Overlaps(start, end) {
				out = append(out, rt)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Rental) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}

func (r rentalRepository) CountByVehicle(_ context.Context, vehicleID int64, statuses []domain.RentalStatus) (int, error) {
	count := 0
	err := r.s.view(func(d *data) error {
		for _, rt := range d.rentals {
			if rt.VehicleID == vehicleID && (len(statuses) == 0 || slices.Contains(statuses, rt.RentalStatus)) {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r rentalRepository) ListByCustomer(_ context.Context, customerID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	return r.list(func(rt domain.Rental) bool { return rt.CustomerID == customerID }, status, page, pageSize)
}

func (r rentalRepository) ListByShop(_ context.Context, shopID int64, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	return r.list(func(rt domain.Rental) bool { return rt.ShopID == shopID }, status, page, pageSize)
}

func (r rentalRepository) list(match func(domain.Rental) bool, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	var all []domain.Rental
	err := r.s.view(func(d *data) error {
		for _, rt := range d.rentals {
			if match(rt) && (status == "" || string(rt.RentalStatus) == status) {
				all = append(all, rt)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	newestFirst(all)
	return paginate(all, page, pageSize), int32(len(all)), nil
}

func (r rentalRepository) ListPriceFlagged(_ context.Context, limit int32) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.s.view(func(d *data) error {
		for _, rt := range d.rentals {
			if rt.PriceFlagged && rt.RentalStatus != domain.RentalStatusCancelled {
				out = append(out, rt)
			}
		}
		return nil
	})
	newestFirst(out)
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, err
}

func newestFirst(rentals []domain.Rental) {
	slices.SortFunc(rentals, func(a, b domain.Rental) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func paginate[T any](items []T, page, pageSize int32) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	from := (int64(page) - 1) * int64(pageSize)
	if from >= int64(len(items)) {
		return nil
	}
	to := min(int(from)+int(pageSize), len(items))
	return items[from:to]
}

type paymentRepository struct{ s *Store }

func (r paymentRepository) Create(_ context.Context, p *domain.Payment) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.rentals[p.RentalID]; !ok {
			return repository.ErrReferenced
		}
		for _, other := range d.payments {
			if other.RentalID == p.RentalID {
				return repository.ErrStaleWrite
			}
		}
		d.paymentSeq++
		now := time.Now().UTC()
		p.ID, p.CreatedAt, p.UpdatedAt = d.paymentSeq, now, now
		d.payments[p.ID] = *p
		return nil
	})
}

func (r paymentRepository) GetByRental(_ context.Context, rentalID int64) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.s.view(func(d *data) error {
		for _, p := range d.payments {
			if p.RentalID == rentalID {
				out = &p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r paymentRepository) Update(_ context.Context, p *domain.Payment) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.payments[p.ID]; !ok {
			return repository.ErrNotFound
		}
		p.UpdatedAt = time.Now().UTC()
		d.payments[p.ID] = *p
		return nil
	})
}

func (r paymentRepository) ListByShop(_ context.Context, shopID int64, status string) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.s.view(func(d *data) error {
		for _, p := range d.payments {
			rt, ok := d.rentals[p.RentalID]
			if ok && rt.ShopID == shopID && (status == "" || string(p.Status) == status) {
				out = append(out, p)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Payment) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, err
}

type transitionRepository struct{ s *Store }

func (r transitionRepository) Append(_ context.Context, t *domain.Transition) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.rentals[t.RentalID]; !ok {
			return repository.ErrReferenced
		}
		d.transitionSeq++
		t.ID = d.transitionSeq
		d.transitions = append(d.transitions, *t)
		return nil
	})
}

func (r transitionRepository) ListByRental(_ context.Context, rentalID int64) ([]domain.Transition, error) {
	var out []domain.Transition
	err := r.s.view(func(d *data) error {
		for _, t := range d.transitions {
			if t.RentalID == rentalID {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

type contactRepository struct{ s *Store }

func (r contactRepository) GetByUserID(_ context.Context, userID int64) (*domain.Contact, error) {
	var out *domain.Contact
	err := r.s.view(func(d *data) error {
		c, ok := d.contacts[userID]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

type notificationRepository struct{ s *Store }

func (r notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	return r.s.view(func(d *data) error {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		d.notifications = append(d.notifications, *n)
		return nil
	})
}

func (r notificationRepository) List(_ context.Context, userID int64, limit, offset int32) ([]domain.Notification, int32, error) {
	var mine []domain.Notification
	err := r.s.view(func(d *data) error {
		for i := len(d.notifications) - 1; i >= 0; i-- {
			if d.notifications[i].RecipientID == userID {
				mine = append(mine, d.notifications[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	total := int32(len(mine))
	if offset < 0 || int(offset) >= len(mine) {
		return nil, total, nil
	}
	mine = mine[offset:]
	if limit > 0 && int(limit) < len(mine) {
		mine = mine[:limit]
	}
	return mine, total, nil
}

func (r notificationRepository) MarkAsRead(_ context.Context, id string, userID int64) error {
	return r.s.view(func(d *data) error {
		for i := range d.notifications {
			if d.notifications[i].ID == id && d.notifications[i].RecipientID == userID {
				d.notifications[i].IsRead = true
				return nil
			}
		}
		return repository.ErrNotFound
	})
}
