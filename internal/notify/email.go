package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/repository"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sendFunc delivers one message and reports the provider's status code.
type sendFunc func(msg *mail.SGMailV3) (status int, body string, err error)

// EmailNotifier mails the recipient through SendGrid. The address comes from
// the contact directory.
type EmailNotifier struct {
	contacts  repository.ContactRepository
	fromEmail string
	fromName  string
	send      sendFunc
}

func NewEmailNotifier(apiKey, fromEmail, fromName string, contacts repository.ContactRepository) *EmailNotifier {
	client := sendgrid.NewSendClient(apiKey)
	return &EmailNotifier{
		contacts:  contacts,
		fromEmail: fromEmail,
		fromName:  fromName,
		send: func(msg *mail.SGMailV3) (int, string, error) {
			resp, err := client.Send(msg)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func (e *EmailNotifier) Notify(ctx context.Context, n domain.Notification) error {
	contact, err := e.contacts.GetByUserID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %d: %w", n.RecipientID, err)
	}
	if contact.Email == "" {
		logger.Debug("Recipient has no email, skipping", "userID", n.RecipientID)
		return nil
	}

	from := mail.NewEmail(e.fromName, e.fromEmail)
	to := mail.NewEmail(contact.DisplayName(), contact.Email)
	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(n.Body), "\n", "<br>") + "</p>"
	msg := mail.NewSingleEmail(from, n.Subject, to, n.Body, htmlBody)

	logger.ExternalServiceCall("sendgrid", "send", "to", contact.Email, "kind", n.Kind)
	status, body, err := e.send(msg)
	if err == nil && status >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", status, body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", contact.Email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
