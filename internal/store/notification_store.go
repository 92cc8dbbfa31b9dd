package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/models"
)

type NotificationStore struct {
	db     *pgxpool.Pool
	client *backend.Client
}

func NewNotificationStore(c *backend.Client) *NotificationStore {
	return &NotificationStore{db: c.DB(), client: c}
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, data, is_read, requires_action, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, &backend.RequestError{Table: "notifications", Op: "select", Message: err.Error()}
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.Data, &n.IsRead, &n.RequiresAction, &n.CreatedAt,
		)
		if err != nil {
			return nil, &backend.RequestError{Table: "notifications", Op: "select", Message: err.Error()}
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &backend.RequestError{Table: "notifications", Op: "select", Message: err.Error()}
	}

	return notifications, nil
}

func (s *NotificationStore) Insert(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, data, requires_action)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, type, title, message, data, is_read, requires_action, created_at
	`

	created := &models.Notification{}
	err := s.db.QueryRow(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data, n.RequiresAction,
	).Scan(
		&created.ID, &created.UserID, &created.Type, &created.Title, &created.Message,
		&created.Data, &created.IsRead, &created.RequiresAction, &created.CreatedAt,
	)
	if err != nil {
		return nil, &backend.RequestError{Table: "notifications", Op: "insert", Message: err.Error()}
	}

	s.publish(backend.ChangeInsert, created)
	return created, nil
}

// CountUnread counts every unread row, not just the most recent page.
func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT count(*)
		FROM notifications
		WHERE user_id = $1 AND is_read = false
	`, userID).Scan(&count)
	if err != nil {
		return 0, &backend.RequestError{Table: "notifications", Op: "select", Message: err.Error()}
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, notificationID, userID string) error {
	// scoped to the owning user so one user cannot mark another's rows
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return &backend.RequestError{Table: "notifications", Op: "update", Message: err.Error()}
	}
	return nil
}

func (s *NotificationStore) publish(t backend.ChangeType, n *models.Notification) {
	row, err := json.Marshal(n)
	if err != nil {
		log.Errorf("Error [NotificationStore.publish] encoding notification %s: %s", n.ID, err)
		return
	}
	s.client.PublishChange(backend.ChangeEvent{
		Channel: backend.ChannelKey("notifications", n.UserID),
		Table:   "notifications",
		Type:    t,
		Row:     row,
	})
}
