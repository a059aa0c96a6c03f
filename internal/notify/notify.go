// Package notify delivers rental notifications. Every channel is best-effort:
// services log and count delivery errors but never fail a transition on them.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/metrics"
	"github.com/NinePK/back-car/internal/repository"
)

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type channel struct {
	name string
	n    Notifier
}

// Fanout delivers to every registered channel and joins their errors.
type Fanout struct {
	channels []channel
}

func NewFanout() *Fanout {
	return &Fanout{}
}

func (f *Fanout) Add(name string, n Notifier) *Fanout {
	f.channels = append(f.channels, channel{name: name, n: n})
	return f
}

func (f *Fanout) Len() int { return len(f.channels) }

func (f *Fanout) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, c := range f.channels {
		if err := c.n.Notify(ctx, n); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(c.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

type logNotifier struct{}

// Log writes notifications to the application log.
func Log() Notifier { return logNotifier{} }

func (logNotifier) Notify(ctx context.Context, n domain.Notification) error {
	logger.InfoContext(ctx, "Notification", "kind", n.Kind, "recipient_id", n.RecipientID,
		"rental_id", n.RentalID, "subject", n.Subject)
	return nil
}

// InboxNotifier stores notifications so users can list them later.
type InboxNotifier struct {
	repo repository.NotificationRepository
}

func NewInboxNotifier(repo repository.NotificationRepository) *InboxNotifier {
	return &InboxNotifier{repo: repo}
}

func (i *InboxNotifier) Notify(ctx context.Context, n domain.Notification) error {
	return i.repo.Create(ctx, &n)
}
