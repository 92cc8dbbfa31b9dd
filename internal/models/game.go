package models

import (
	"fmt"
	"strings"
	"time"
)

type GameType string

const (
	GameKingsCup       GameType = "kings-cup"
	GameNeverHaveIEver GameType = "never-have-i-ever"
	GameCustomDeck     GameType = "custom-deck"
)

// ParseGameType normalizes any external representation of a game type (value
// tag or display label) into the enum. All downstream code works with the
// enum only.
func ParseGameType(v string) (GameType, error) {
	tag := strings.ToLower(strings.TrimSpace(v))
	tag = strings.ReplaceAll(tag, " ", "-")

	switch GameType(tag) {
	case GameKingsCup, GameNeverHaveIEver, GameCustomDeck:
		return GameType(tag), nil
	}
	return "", fmt.Errorf("unknown game type %q", v)
}

func (t GameType) Label() string {
	switch t {
	case GameKingsCup:
		return "Kings Cup"
	case GameNeverHaveIEver:
		return "Never Have I Ever"
	case GameCustomDeck:
		return "Custom Deck"
	}
	return string(t)
}

// Game is the shared mutable state of one in-progress session. The copy held
// by the remote store is authoritative; local copies are caches overwritten
// wholesale whenever a fresher change notification arrives.
type Game struct {
	ID                 string    `json:"id"`
	GameType           GameType  `json:"game_type"`
	Players            []string  `json:"players"`
	CurrentDrinks      int       `json:"current_drinks"`
	CurrentPlayerIndex int       `json:"current_player_index"`
	IsActive           bool      `json:"is_active"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
}

// CurrentPlayer returns the display name whose turn it is, or "" when the
// player list is empty. An out-of-range index from a concurrent writer is
// clamped rather than dereferenced.
func (g *Game) CurrentPlayer() string {
	if len(g.Players) == 0 {
		return ""
	}
	idx := g.CurrentPlayerIndex
	if idx < 0 || idx >= len(g.Players) {
		idx = 0
	}
	return g.Players[idx]
}
