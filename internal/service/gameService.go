package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sipstream/sipstream-services/internal/models"
	"github.com/sipstream/sipstream-services/internal/store"
)

type GameService struct {
	gameStore *store.GameStore
}

func NewGameService(gameStore *store.GameStore) *GameService {
	return &GameService{gameStore: gameStore}
}

// CreateGame validates and persists a new game record. The returned record's
// id is what callers route to for the live view. Player names are trimmed and
// de-duplicated here; the store does not enforce uniqueness.
func (s *GameService) CreateGame(ctx context.Context, createdBy, rawGameType string, players []string, drinks int) (*models.Game, error) {
	gameType, err := models.ParseGameType(rawGameType)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var clean []string
	for _, p := range players {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return nil, errors.New("a game needs at least one player")
	}

	if drinks < 0 {
		drinks = 0
	}

	return s.gameStore.CreateGame(ctx, &models.Game{
		GameType:           gameType,
		Players:            clean,
		CurrentDrinks:      drinks,
		CurrentPlayerIndex: 0,
		IsActive:           true,
		CreatedBy:          createdBy,
	})
}

func (s *GameService) GetGameByID(ctx context.Context, gameID string) (*models.Game, error) {
	return s.gameStore.GetGameByID(ctx, gameID)
}
