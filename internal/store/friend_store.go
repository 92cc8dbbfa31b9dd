package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/models"
)

type FriendStore struct {
	db     *pgxpool.Pool
	client *backend.Client
}

func NewFriendStore(c *backend.Client) *FriendStore {
	return &FriendStore{db: c.DB(), client: c}
}

// ListAccepted returns the user's accepted friends joined with the friend's
// profile.
func (s *FriendStore) ListAccepted(ctx context.Context, userID string) ([]*models.FriendWithProfile, error) {
	query := `
		SELECT f.id, f.user_id, f.friend_id, f.status, f.created_at, f.updated_at,
		       p.id, p.username, COALESCE(p.display_name, ''), COALESCE(p.avatar_url, ''), p.status,
		       COALESCE(p.current_game_id::text, ''), p.last_seen, p.created_at, p.updated_at
		FROM friends f
		JOIN user_profiles p ON p.id = f.friend_id
		WHERE f.user_id = $1 AND f.status = 'accepted'
	`
	return s.queryWithProfile(ctx, query, userID)
}

// ListPending returns incoming friend requests joined with the sender's
// profile.
func (s *FriendStore) ListPending(ctx context.Context, userID string) ([]*models.FriendWithProfile, error) {
	query := `
		SELECT f.id, f.user_id, f.friend_id, f.status, f.created_at, f.updated_at,
		       p.id, p.username, COALESCE(p.display_name, ''), COALESCE(p.avatar_url, ''), p.status,
		       COALESCE(p.current_game_id::text, ''), p.last_seen, p.created_at, p.updated_at
		FROM friends f
		JOIN user_profiles p ON p.id = f.user_id
		WHERE f.friend_id = $1 AND f.status = 'pending'
	`
	return s.queryWithProfile(ctx, query, userID)
}

func (s *FriendStore) queryWithProfile(ctx context.Context, query, userID string) ([]*models.FriendWithProfile, error) {
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, &backend.RequestError{Table: "friends", Op: "select", Message: err.Error()}
	}
	defer rows.Close()

	var friends []*models.FriendWithProfile
	for rows.Next() {
		f := &models.FriendWithProfile{Profile: &models.UserProfile{}}
		err := rows.Scan(
			&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt,
			&f.Profile.ID, &f.Profile.Username, &f.Profile.DisplayName, &f.Profile.AvatarURL,
			&f.Profile.Status, &f.Profile.CurrentGameID, &f.Profile.LastSeen,
			&f.Profile.CreatedAt, &f.Profile.UpdatedAt,
		)
		if err != nil {
			return nil, &backend.RequestError{Table: "friends", Op: "select", Message: err.Error()}
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &backend.RequestError{Table: "friends", Op: "select", Message: err.Error()}
	}

	return friends, nil
}

// Create inserts a pending edge from user to friend.
func (s *FriendStore) Create(ctx context.Context, userID, friendID string) (*models.Friend, error) {
	query := `
		INSERT INTO friends (user_id, friend_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, user_id, friend_id, status, created_at, updated_at
	`

	f := &models.Friend{}
	err := s.db.QueryRow(ctx, query, userID, friendID).Scan(
		&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, &backend.RequestError{Table: "friends", Op: "insert", Message: err.Error()}
	}

	s.publish(backend.ChangeInsert, f)
	return f, nil
}

func (s *FriendStore) UpdateStatus(ctx context.Context, requestID string, status models.FriendStatus) (*models.Friend, error) {
	query := `
		UPDATE friends SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, friend_id, status, created_at, updated_at
	`

	f := &models.Friend{}
	err := s.db.QueryRow(ctx, query, requestID, status).Scan(
		&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, &backend.RequestError{Table: "friends", Op: "update", Message: err.Error()}
	}

	s.publish(backend.ChangeUpdate, f)
	return f, nil
}

func (s *FriendStore) Delete(ctx context.Context, requestID string) error {
	query := `
		DELETE FROM friends
		WHERE id = $1
		RETURNING id, user_id, friend_id, status, created_at, updated_at
	`

	f := &models.Friend{}
	err := s.db.QueryRow(ctx, query, requestID).Scan(
		&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return &backend.RequestError{Table: "friends", Op: "delete", Message: err.Error()}
	}

	s.publish(backend.ChangeDelete, f)
	return nil
}

// DeleteEdge removes the edge from user to friend, if any.
func (s *FriendStore) DeleteEdge(ctx context.Context, userID, friendID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM friends
		WHERE user_id = $1 AND friend_id = $2
	`, userID, friendID)
	if err != nil {
		return &backend.RequestError{Table: "friends", Op: "delete", Message: err.Error()}
	}

	s.publish(backend.ChangeDelete, &models.Friend{UserID: userID, FriendID: friendID})
	return nil
}

// friend edges notify both endpoints
func (s *FriendStore) publish(t backend.ChangeType, f *models.Friend) {
	row, err := json.Marshal(f)
	if err != nil {
		log.Errorf("Error [FriendStore.publish] encoding friend edge %s: %s", f.ID, err)
		return
	}
	ev := backend.ChangeEvent{Table: "friends", Type: t, Row: row}

	ev.Channel = backend.ChannelKey("friends", f.UserID)
	s.client.PublishChange(ev)

	ev.Channel = backend.ChannelKey("friends", f.FriendID)
	s.client.PublishChange(ev)
}
