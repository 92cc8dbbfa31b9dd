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

type HistoryStore struct {
	db     *pgxpool.Pool
	client *backend.Client
}

func NewHistoryStore(c *backend.Client) *HistoryStore {
	return &HistoryStore{db: c.DB(), client: c}
}

// ListByGameID returns the full action log of one game, newest first.
func (s *HistoryStore) ListByGameID(ctx context.Context, gameID string) ([]*models.GameHistory, error) {
	query := `
		SELECT id, game_id, action, player, details, created_at
		FROM game_history
		WHERE game_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, &backend.RequestError{Table: "game_history", Op: "select", Message: err.Error()}
	}
	defer rows.Close()

	var entries []*models.GameHistory
	for rows.Next() {
		e := &models.GameHistory{}
		err := rows.Scan(
			&e.ID,
			&e.GameID,
			&e.Action,
			&e.Player,
			&e.Details,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, &backend.RequestError{Table: "game_history", Op: "select", Message: err.Error()}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &backend.RequestError{Table: "game_history", Op: "select", Message: err.Error()}
	}

	return entries, nil
}

// Insert appends one entry and publishes it on the game's history channel.
// Entries are append-only; there is no update or delete.
func (s *HistoryStore) Insert(ctx context.Context, entry *models.GameHistory) (*models.GameHistory, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO game_history (id, game_id, action, player, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, game_id, action, player, details, created_at
	`

	created := &models.GameHistory{}
	err := s.db.QueryRow(ctx, query,
		entry.ID, entry.GameID, entry.Action, entry.Player, entry.Details,
	).Scan(
		&created.ID,
		&created.GameID,
		&created.Action,
		&created.Player,
		&created.Details,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, &backend.RequestError{Table: "game_history", Op: "insert", Message: err.Error()}
	}

	s.publish(created)
	return created, nil
}

func (s *HistoryStore) publish(entry *models.GameHistory) {
	row, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("Error [HistoryStore.publish] encoding entry %s: %s", entry.ID, err)
		return
	}
	s.client.PublishChange(backend.ChangeEvent{
		Channel: backend.ChannelKey("history", entry.GameID),
		Table:   "game_history",
		Type:    backend.ChangeInsert,
		Row:     row,
	})
}
