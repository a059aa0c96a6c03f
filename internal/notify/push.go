package notify

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"google.golang.org/api/option"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushNotifier sends an FCM message to the recipient's topic. Client apps
// subscribe to "user-<id>" after login.
type PushNotifier struct {
	client messageSender
}

func NewPushNotifier(ctx context.Context, credentialsFile string) (*PushNotifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	return &PushNotifier{client: client}, nil
}

func Topic(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}

func (p *PushNotifier) Notify(ctx context.Context, n domain.Notification) error {
	data := map[string]string{
		"type":      string(n.Kind),
		"rental_id": strconv.FormatInt(n.RentalID, 10),
	}
	for k, v := range n.Attributes {
		data[k] = v
	}
	msg := &messaging.Message{
		Topic: Topic(n.RecipientID),
		Data:  data,
		Notification: &messaging.Notification{
			Title: n.Subject,
			Body:  n.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	logger.ExternalServiceCall("fcm", "send", "topic", msg.Topic, "kind", n.Kind)
	id, err := p.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "send", err, "topic", msg.Topic, "message_id", id)
	if err != nil {
		return fmt.Errorf("sending FCM to %s: %w", msg.Topic, err)
	}
	return nil
}
