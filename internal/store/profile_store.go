package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/models"
)

type ProfileStore struct {
	db     *pgxpool.Pool
	client *backend.Client
}

func NewProfileStore(c *backend.Client) *ProfileStore {
	return &ProfileStore{db: c.DB(), client: c}
}

const profileColumns = `id, username, COALESCE(display_name, ''), COALESCE(avatar_url, ''), status, COALESCE(current_game_id::text, ''), last_seen, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.DisplayName,
		&p.AvatarURL,
		&p.Status,
		&p.CurrentGameID,
		&p.LastSeen,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileStore) GetByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM user_profiles
		WHERE id = $1
	`, userID)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // profile not created yet
		}
		return nil, &backend.RequestError{Table: "user_profiles", Op: "select", Message: err.Error()}
	}
	return p, nil
}

func (s *ProfileStore) Create(ctx context.Context, p *models.UserProfile) (*models.UserProfile, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO user_profiles (id, username, display_name, avatar_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+profileColumns+`
	`, p.ID, p.Username, p.DisplayName, p.AvatarURL, p.Status)

	created, err := scanProfile(row)
	if err != nil {
		return nil, &backend.RequestError{Table: "user_profiles", Op: "insert", Message: err.Error()}
	}

	s.publish(backend.ChangeInsert, created)
	return created, nil
}

// UpdateStatus sets presence and touches last_seen.
func (s *ProfileStore) UpdateStatus(ctx context.Context, userID string, status models.ProfileStatus, currentGameID string) error {
	row := s.db.QueryRow(ctx, `
		UPDATE user_profiles
		SET status = $2, current_game_id = NULLIF($3, ''), last_seen = $4, updated_at = $4
		WHERE id = $1
		RETURNING `+profileColumns+`
	`, userID, status, currentGameID, time.Now().UTC())

	updated, err := scanProfile(row)
	if err != nil {
		return &backend.RequestError{Table: "user_profiles", Op: "update", Message: err.Error()}
	}

	s.publish(backend.ChangeUpdate, updated)
	return nil
}

// Search matches usernames by substring, excluding the searching user.
func (s *ProfileStore) Search(ctx context.Context, userID, query string, limit int) ([]*models.UserProfile, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+profileColumns+`
		FROM user_profiles
		WHERE username ILIKE '%' || $2 || '%' AND id <> $1
		LIMIT $3
	`, userID, query, limit)
	if err != nil {
		return nil, &backend.RequestError{Table: "user_profiles", Op: "select", Message: err.Error()}
	}
	defer rows.Close()

	var profiles []*models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, &backend.RequestError{Table: "user_profiles", Op: "select", Message: err.Error()}
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &backend.RequestError{Table: "user_profiles", Op: "select", Message: err.Error()}
	}

	return profiles, nil
}

func (s *ProfileStore) publish(t backend.ChangeType, p *models.UserProfile) {
	row, err := json.Marshal(p)
	if err != nil {
		log.Errorf("Error [ProfileStore.publish] encoding profile %s: %s", p.ID, err)
		return
	}
	s.client.PublishChange(backend.ChangeEvent{
		Channel: backend.ChannelKey("profile", p.ID),
		Table:   "user_profiles",
		Type:    t,
		Row:     row,
	})
}
