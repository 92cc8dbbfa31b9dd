package gamesync

import (
	"context"
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/deck"
	"github.com/sipstream/sipstream-services/internal/models"
)

// GameStore is the game-record slice of the remote store the synchronizer
// writes through.
type GameStore interface {
	GetGameByID(ctx context.Context, gameID string) (*models.Game, error)
	UpdateFields(ctx context.Context, gameID string, fields map[string]any) error
}

type HistoryStore interface {
	ListByGameID(ctx context.Context, gameID string) ([]*models.GameHistory, error)
	Insert(ctx context.Context, entry *models.GameHistory) (*models.GameHistory, error)
}

// Feed registers row-change subscriptions.
type Feed interface {
	SubscribeChanges(channel string, onChange func(backend.ChangeEvent)) (*backend.ChangeSub, error)
}

// Synchronizer keeps one game's local view in step with the remote store.
// Mutations write through to the store; the local copy only moves when the
// echoed change notification arrives, so there is a round-trip window during
// which reads still see the pre-mutation value.
type Synchronizer struct {
	games   GameStore
	history HistoryStore
	feed    Feed
	gameID  string
	actor   string

	mu      sync.Mutex
	game    *models.Game
	entries []*models.GameHistory
	loading bool
	errMsg  string
	closed  bool

	gameSub *backend.ChangeSub
	histSub *backend.ChangeSub

	// optional view hooks, invoked after a remote change is merged
	OnGameUpdate    func(models.Game)
	OnHistoryInsert func(models.GameHistory)
}

func New(games GameStore, history HistoryStore, feed Feed, gameID string) *Synchronizer {
	return &Synchronizer{
		games:   games,
		history: history,
		feed:    feed,
		gameID:  gameID,
		actor:   "Player",
		loading: true,
	}
}

// SetActor sets the display name recorded for this client's own actions.
func (s *Synchronizer) SetActor(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.actor = name
	}
}

// Load fetches the game snapshot and its action log, then registers the two
// change subscriptions. The game read is load-critical: a missing row is
// *backend.NotFoundError. The history read is best-effort and only logged.
func (s *Synchronizer) Load(ctx context.Context) error {
	game, err := s.games.GetGameByID(ctx, s.gameID)
	if err != nil {
		s.finishLoad(nil, nil, err.Error())
		return err
	}
	if game == nil {
		err := &backend.NotFoundError{Table: "games", ID: s.gameID}
		s.finishLoad(nil, nil, err.Error())
		return err
	}

	entries, err := s.history.ListByGameID(ctx, s.gameID)
	if err != nil {
		log.Errorf("Error [Synchronizer.Load] history for game %s: %s", s.gameID, err)
		entries = nil
	}

	s.finishLoad(game, entries, "")

	gameSub, err := s.feed.SubscribeChanges(backend.ChannelKey("games", s.gameID), s.handleGameChange)
	if err != nil {
		return err
	}
	histSub, err := s.feed.SubscribeChanges(backend.ChannelKey("history", s.gameID), s.handleHistoryChange)
	if err != nil {
		gameSub.Unsubscribe()
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		gameSub.Unsubscribe()
		histSub.Unsubscribe()
		return nil
	}
	s.gameSub = gameSub
	s.histSub = histSub
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) finishLoad(game *models.Game, entries []*models.GameHistory, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game = game
	s.entries = entries
	s.errMsg = errMsg
	s.loading = false
}

// handleGameChange merges a remote game update by wholesale overwrite. Only
// UPDATE is handled; a deleted game keeps showing its last snapshot.
func (s *Synchronizer) handleGameChange(ev backend.ChangeEvent) {
	if ev.Type != backend.ChangeUpdate {
		return
	}

	game := &models.Game{}
	if err := json.Unmarshal(ev.Row, game); err != nil {
		log.Errorf("Error [Synchronizer] decoding game change for %s: %s", s.gameID, err)
		return
	}
	if len(game.Players) > 0 && (game.CurrentPlayerIndex < 0 || game.CurrentPlayerIndex >= len(game.Players)) {
		// a concurrent writer shrank the player list under the index
		game.CurrentPlayerIndex = 0
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.game = game
	cb := s.OnGameUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(*game)
	}
}

// handleHistoryChange prepends newly inserted entries. Display order is
// arrival order, which under concurrent writers is not necessarily
// created_at order; a full reload re-sorts.
func (s *Synchronizer) handleHistoryChange(ev backend.ChangeEvent) {
	if ev.Type != backend.ChangeInsert {
		return
	}

	entry := &models.GameHistory{}
	if err := json.Unmarshal(ev.Row, entry); err != nil {
		log.Errorf("Error [Synchronizer] decoding history change for %s: %s", s.gameID, err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.entries = append([]*models.GameHistory{entry}, s.entries...)
	cb := s.OnHistoryInsert
	s.mu.Unlock()

	if cb != nil {
		cb(*entry)
	}
}

// Game returns a copy of the cached snapshot, nil before Load resolves or
// when the game was not found.
func (s *Synchronizer) Game() *models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return nil
	}
	game := *s.game
	return &game
}

func (s *Synchronizer) History() []*models.GameHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]*models.GameHistory, len(s.entries))
	copy(entries, s.entries)
	return entries
}

func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last recoverable mutation error, "" when the previous
// write succeeded.
func (s *Synchronizer) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// UpdateGame writes a field subset through to the remote record. The local
// copy is not touched; the visible update arrives with the echoed change
// notification. Failures are held on the synchronizer, not returned.
func (s *Synchronizer) UpdateGame(ctx context.Context, fields map[string]any) {
	err := s.games.UpdateFields(ctx, s.gameID, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Errorf("Error [Synchronizer.UpdateGame] game %s: %s", s.gameID, err)
		s.errMsg = err.Error()
		return
	}
	s.errMsg = ""
}

// AddHistoryEntry appends to the action log, fire and forget. The trail is
// best-effort and never blocks gameplay.
func (s *Synchronizer) AddHistoryEntry(ctx context.Context, action, player string, details map[string]any) {
	_, err := s.history.Insert(ctx, &models.GameHistory{
		GameID:  s.gameID,
		Action:  action,
		Player:  player,
		Details: details,
	})
	if err != nil {
		log.Errorf("Error [Synchronizer.AddHistoryEntry] game %s: %s", s.gameID, err)
	}
}

// DecrementDrinks takes one drink off the counter. No-op at zero or before
// the game is loaded. The new value is computed from the cached snapshot, not
// re-read first: two clients racing from the same stale value both write the
// same target and the loser is silently overwritten (last write wins).
func (s *Synchronizer) DecrementDrinks(ctx context.Context) {
	s.mu.Lock()
	game := s.game
	actor := s.actor
	s.mu.Unlock()

	if game == nil || game.CurrentDrinks <= 0 {
		return
	}

	remaining := game.CurrentDrinks - 1
	s.UpdateGame(ctx, map[string]any{"current_drinks": remaining})
	s.AddHistoryEntry(ctx, models.ActionDrinkTaken, actor, map[string]any{"drinks_remaining": remaining})
}

// NextTurn advances the turn index modulo the cached player list. The same
// stale-snapshot hazard as DecrementDrinks applies when the list changes
// concurrently.
func (s *Synchronizer) NextTurn(ctx context.Context) {
	s.mu.Lock()
	game := s.game
	s.mu.Unlock()

	if game == nil || len(game.Players) == 0 {
		return
	}

	next := (game.CurrentPlayerIndex + 1) % len(game.Players)
	s.UpdateGame(ctx, map[string]any{"current_player_index": next})
	s.AddHistoryEntry(ctx, models.ActionNextTurn, game.Players[next], nil)
}

// DrawCard draws a prompt from the game type's deck and records it.
func (s *Synchronizer) DrawCard(ctx context.Context) (deck.Card, error) {
	s.mu.Lock()
	game := s.game
	actor := s.actor
	s.mu.Unlock()

	if game == nil {
		return deck.Card{}, &backend.NotFoundError{Table: "games", ID: s.gameID}
	}

	card, err := deck.Draw(game.GameType)
	if err != nil {
		return deck.Card{}, err
	}

	s.AddHistoryEntry(ctx, models.ActionCardDrawn, actor, map[string]any{
		"card_title": card.Title,
		"card_text":  card.Text,
	})
	return card, nil
}

// AddDrinks tops the counter up by n.
func (s *Synchronizer) AddDrinks(ctx context.Context, n int) {
	s.mu.Lock()
	game := s.game
	actor := s.actor
	s.mu.Unlock()

	if game == nil || n <= 0 {
		return
	}

	total := game.CurrentDrinks + n
	s.UpdateGame(ctx, map[string]any{"current_drinks": total})
	s.AddHistoryEntry(ctx, models.ActionDrinksAdded, actor, map[string]any{
		"drinks_added":     n,
		"drinks_remaining": total,
	})
}

// EndGame marks the game inactive.
func (s *Synchronizer) EndGame(ctx context.Context) {
	s.mu.Lock()
	game := s.game
	actor := s.actor
	s.mu.Unlock()

	if game == nil {
		return
	}

	s.UpdateGame(ctx, map[string]any{"is_active": false})
	s.AddHistoryEntry(ctx, models.ActionGameEnded, actor, nil)
}

// Close drops both change subscriptions and stops all further merges.
// Idempotent; in-flight callbacks that land afterwards are discarded.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	gameSub, histSub := s.gameSub, s.histSub
	s.gameSub, s.histSub = nil, nil
	s.mu.Unlock()

	gameSub.Unsubscribe()
	histSub.Unsubscribe()
}
