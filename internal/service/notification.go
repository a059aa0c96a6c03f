package service

import (
	"context"
	"errors"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/repository"
)

// notificationService reads the in-app inbox filled by notify.InboxNotifier.
type notificationService struct {
	inbox repository.NotificationRepository
}

func NewNotificationService(inbox repository.NotificationRepository) NotificationService {
	return &notificationService{inbox: inbox}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID int64, page, pageSize int32) ([]domain.Notification, int32, error) {
	if userID <= 0 {
		return nil, 0, domain.InvalidInput("user id is required")
	}
	page, pageSize = normalizePage(page, pageSize)
	logger.EnterMethod("notificationService.GetNotifications", "userID", userID, "page", page, "pageSize", pageSize)

	notes, total, err := s.inbox.List(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list notifications", "user_id", userID, "error", err)
		return nil, 0, err
	}
	logger.ExitMethod("notificationService.GetNotifications", "userID", userID, "count", len(notes), "total", total)
	return notes, total, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID int64, notificationID string) error {
	if notificationID == "" {
		return domain.InvalidInput("notification id is required")
	}
	switch err := s.inbox.MarkAsRead(ctx, notificationID, userID); {
	case errors.Is(err, repository.ErrNotFound):
		return domain.ErrNotFound
	case err != nil:
		logger.ErrorContext(ctx, "Failed to mark notification read", "user_id", userID, "notification_id", notificationID, "error", err)
		return err
	}
	return nil
}
