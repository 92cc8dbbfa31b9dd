package models

import "time"

// Action tags recorded in game history.
const (
	ActionDrinkTaken  = "drink_taken"
	ActionNextTurn    = "next_turn"
	ActionCardDrawn   = "card_drawn"
	ActionDrinksAdded = "drinks_added"
	ActionGameEnded   = "game_ended"
)

// GameHistory is one immutable logged action against a game. Rows are only
// ever inserted, never updated or deleted.
type GameHistory struct {
	ID        string         `json:"id"`
	GameID    string         `json:"game_id"`
	Action    string         `json:"action"`
	Player    string         `json:"player"` // display name, not a user reference
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
