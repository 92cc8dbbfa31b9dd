package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/models"
)

type InvitationStore struct {
	db *pgxpool.Pool
}

func NewInvitationStore(c *backend.Client) *InvitationStore {
	return &InvitationStore{db: c.DB()}
}

const invitationColumns = `id, game_id, inviter_id, invitee_id, status, expires_at, created_at`

func scanInvitation(row pgx.Row) (*models.GameInvitation, error) {
	inv := &models.GameInvitation{}
	err := row.Scan(
		&inv.ID, &inv.GameID, &inv.InviterID, &inv.InviteeID,
		&inv.Status, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvitationStore) Create(ctx context.Context, gameID, inviterID, inviteeID string, ttl time.Duration) (*models.GameInvitation, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO game_invitations (id, game_id, inviter_id, invitee_id, status, expires_at)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING `+invitationColumns+`
	`, uuid.New().String(), gameID, inviterID, inviteeID, time.Now().UTC().Add(ttl))

	inv, err := scanInvitation(row)
	if err != nil {
		return nil, &backend.RequestError{Table: "game_invitations", Op: "insert", Message: err.Error()}
	}
	return inv, nil
}

func (s *InvitationStore) GetByID(ctx context.Context, invitationID string) (*models.GameInvitation, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM game_invitations
		WHERE id = $1
	`, invitationID)

	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // invitation not found
		}
		return nil, &backend.RequestError{Table: "game_invitations", Op: "select", Message: err.Error()}
	}
	return inv, nil
}

func (s *InvitationStore) UpdateStatus(ctx context.Context, invitationID string, status models.InvitationStatus) (*models.GameInvitation, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE game_invitations SET status = $2
		WHERE id = $1
		RETURNING `+invitationColumns+`
	`, invitationID, status)

	inv, err := scanInvitation(row)
	if err != nil {
		return nil, &backend.RequestError{Table: "game_invitations", Op: "update", Message: err.Error()}
	}
	return inv, nil
}

// ExpireStale marks every pending invitation whose deadline passed. Called
// lazily when invitations are listed, not from a background job.
func (s *InvitationStore) ExpireStale(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE game_invitations SET status = 'expired'
		WHERE status = 'pending' AND expires_at < now()
	`)
	if err != nil {
		return 0, &backend.RequestError{Table: "game_invitations", Op: "update", Message: err.Error()}
	}
	return tag.RowsAffected(), nil
}
