// Package memory is a process-local implementation of repository.Store. It
// raises the same repository errors the Postgres schema produces, so services
// behave identically on both.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/repository"
)

type data struct {
	vehicles      map[int64]domain.Vehicle
	rentals       map[int64]domain.Rental
	payments      map[int64]domain.Payment
	contacts      map[int64]domain.Contact
	transitions   []domain.Transition
	notifications []domain.Notification

	vehicleSeq, rentalSeq, paymentSeq, transitionSeq int64
}

func newData() *data {
	return &data{
		vehicles: map[int64]domain.Vehicle{},
		rentals:  map[int64]domain.Rental{},
		payments: map[int64]domain.Payment{},
		contacts: map[int64]domain.Contact{},
	}
}

func (d *data) clone() *data {
	c := *d
	c.vehicles = maps.Clone(d.vehicles)
	c.rentals = maps.Clone(d.rentals)
	c.payments = maps.Clone(d.payments)
	c.contacts = maps.Clone(d.contacts)
	c.transitions = slices.Clone(d.transitions)
	c.notifications = slices.Clone(d.notifications)
	return &c
}

type shared struct {
	mu   sync.Mutex
	data *data
}

// Store keeps everything in maps behind one mutex. WithTx holds the mutex for
// the whole callback and works on a copy that replaces the live data only
// when the callback succeeds.
type Store struct {
	shared *shared
	tx     *data
}

func NewStore() *Store {
	return &Store{shared: &shared{data: newData()}}
}

func (s *Store) Vehicles() repository.VehicleRepository           { return vehicleRepository{s} }
func (s *Store) Rentals() repository.RentalRepository             { return rentalRepository{s} }
func (s *Store) Payments() repository.PaymentRepository           { return paymentRepository{s} }
func (s *Store) Transitions() repository.TransitionRepository     { return transitionRepository{s} }
func (s *Store) Contacts() repository.ContactRepository           { return contactRepository{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepository{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()

	work := s.shared.data.clone()
	if err := fn(&Store{shared: s.shared, tx: work}); err != nil {
		return err
	}
	s.shared.data = work
	return nil
}

// PutContact registers a user so notifiers can resolve their address.
func (s *Store) PutContact(c domain.Contact) {
	s.view(func(d *data) error {
		d.contacts[c.UserID] = c
		return nil
	})
}

func (s *Store) view(fn func(d *data) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return fn(s.shared.data)
}
