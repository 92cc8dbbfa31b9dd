package comm

import (
	"encoding/json"
)

// WSMessage is the envelope for every websocket frame between browser
// clients and the realtime gateway.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "watch-game", "change"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// WatchGame asks the gateway to relay one game's change channels.
type WatchGame struct {
	GameID string `json:"game_id"`
}

// WatchUser asks the gateway to relay one user's notification, friend and
// profile channels.
type WatchUser struct {
	UserID string `json:"user_id"`
}
