package service

import (
	"context"
	"testing"

	"github.com/sipstream/sipstream-services/internal/models"
)

type fakeNotifyStore struct {
	rows       []*models.Notification
	unread     int
	lastLimit  int
	markedRead string
}

func (f *fakeNotifyStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	f.lastLimit = limit
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeNotifyStore) CountUnread(ctx context.Context, userID string) (int, error) {
	return f.unread, nil
}

func (f *fakeNotifyStore) MarkRead(ctx context.Context, notificationID, userID string) error {
	f.markedRead = notificationID
	return nil
}

func TestUnreadCountSeesPastThePage(t *testing.T) {
	// 70 unread rows but only 50 fit the list page; the badge must still
	// report all of them.
	store := &fakeNotifyStore{unread: 70}
	for i := 0; i < 70; i++ {
		store.rows = append(store.rows, &models.Notification{})
	}
	svc := NewNotificationService(store)

	count, err := svc.UnreadCount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 70 {
		t.Fatalf("expected 70 unread, got %d", count)
	}

	list, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != notificationPageSize || store.lastLimit != notificationPageSize {
		t.Fatalf("expected list capped at %d, got %d (limit %d)", notificationPageSize, len(list), store.lastLimit)
	}
}

func TestMarkReadDelegates(t *testing.T) {
	store := &fakeNotifyStore{}
	svc := NewNotificationService(store)

	if err := svc.MarkRead(context.Background(), "n1", "u1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if store.markedRead != "n1" {
		t.Fatalf("expected n1 marked, got %q", store.markedRead)
	}
}
