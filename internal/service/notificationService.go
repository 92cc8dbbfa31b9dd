package service

import (
	"context"

	"github.com/sipstream/sipstream-services/internal/models"
)

const notificationPageSize = 50

// NotificationStore is the slice of the notification store the service uses.
type NotificationStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
}

type NotificationService struct {
	notifyStore NotificationStore
}

func NewNotificationService(notifyStore NotificationStore) *NotificationService {
	return &NotificationService{notifyStore: notifyStore}
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	return s.notifyStore.ListByUser(ctx, userID, notificationPageSize)
}

// UnreadCount is exact: it counts at the store rather than within the most
// recent page, so unread rows older than the page still count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifyStore.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	return s.notifyStore.MarkRead(ctx, notificationID, userID)
}
