package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/models"
)

type GameStore struct {
	db     *pgxpool.Pool
	client *backend.Client
}

func NewGameStore(c *backend.Client) *GameStore {
	return &GameStore{db: c.DB(), client: c}
}

// updatable column whitelist for partial game updates
var gameColumns = map[string]bool{
	"game_type":            true,
	"players":              true,
	"current_drinks":       true,
	"current_player_index": true,
	"is_active":            true,
}

// GetGameByID returns nil when no row exists. More than one row for an id is
// an integrity violation and comes back as *backend.DataIntegrityError.
func (s *GameStore) GetGameByID(ctx context.Context, gameID string) (*models.Game, error) {
	query := `
		SELECT id, game_type, players, current_drinks, current_player_index, is_active, created_by, created_at
		FROM games
		WHERE id = $1
	`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, &backend.RequestError{Table: "games", Op: "select", Message: err.Error()}
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game := &models.Game{}
		err := rows.Scan(
			&game.ID,
			&game.GameType,
			&game.Players,
			&game.CurrentDrinks,
			&game.CurrentPlayerIndex,
			&game.IsActive,
			&game.CreatedBy,
			&game.CreatedAt,
		)
		if err != nil {
			return nil, &backend.RequestError{Table: "games", Op: "select", Message: err.Error()}
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, &backend.RequestError{Table: "games", Op: "select", Message: err.Error()}
	}

	switch len(games) {
	case 0:
		return nil, nil // game not found
	case 1:
		return games[0], nil
	default:
		return nil, &backend.DataIntegrityError{Table: "games", ID: gameID, Count: len(games)}
	}
}

func (s *GameStore) CreateGame(ctx context.Context, game *models.Game) (*models.Game, error) {
	if game.ID == "" {
		game.ID = uuid.New().String()
	}

	query := `
		INSERT INTO games (id, game_type, players, current_drinks, current_player_index, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, game_type, players, current_drinks, current_player_index, is_active, created_by, created_at
	`

	created := &models.Game{}
	err := s.db.QueryRow(ctx, query,
		game.ID, game.GameType, game.Players, game.CurrentDrinks,
		game.CurrentPlayerIndex, game.IsActive, game.CreatedBy,
	).Scan(
		&created.ID,
		&created.GameType,
		&created.Players,
		&created.CurrentDrinks,
		&created.CurrentPlayerIndex,
		&created.IsActive,
		&created.CreatedBy,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, &backend.RequestError{Table: "games", Op: "insert", Message: err.Error()}
	}

	s.publish(backend.ChangeInsert, created)
	return created, nil
}

// UpdateFields writes a whitelisted field subset to one game and fans the
// fresh full row out on the game's change channel. No version check: last
// write wins at the store.
func (s *GameStore) UpdateFields(ctx context.Context, gameID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	set := ""
	args := []any{gameID}
	for col, val := range fields {
		if !gameColumns[col] {
			return &backend.RequestError{Table: "games", Op: "update", Message: fmt.Sprintf("column %q is not updatable", col)}
		}
		args = append(args, val)
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, len(args))
	}

	query := fmt.Sprintf(`
		UPDATE games SET %s
		WHERE id = $1
		RETURNING id, game_type, players, current_drinks, current_player_index, is_active, created_by, created_at
	`, set)

	updated := &models.Game{}
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&updated.ID,
		&updated.GameType,
		&updated.Players,
		&updated.CurrentDrinks,
		&updated.CurrentPlayerIndex,
		&updated.IsActive,
		&updated.CreatedBy,
		&updated.CreatedAt,
	)
	if err != nil {
		return &backend.RequestError{Table: "games", Op: "update", Message: err.Error()}
	}

	s.publish(backend.ChangeUpdate, updated)
	return nil
}

func (s *GameStore) publish(t backend.ChangeType, game *models.Game) {
	row, err := json.Marshal(game)
	if err != nil {
		log.Errorf("Error [GameStore.publish] encoding game %s: %s", game.ID, err)
		return
	}
	s.client.PublishChange(backend.ChangeEvent{
		Channel: backend.ChannelKey("games", game.ID),
		Table:   "games",
		Type:    t,
		Row:     row,
	})
}
