package models

import "time"

type NotificationType string

const (
	NotifyFriendRequest    NotificationType = "friend_request"
	NotifyGameInvite       NotificationType = "game_invite"
	NotifyGameUpdate       NotificationType = "game_update"
	NotifyFriendJoinedGame NotificationType = "friend_joined_game"
)

// Notification represents the notifications table.
type Notification struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Data           map[string]any   `json:"data,omitempty"`
	IsRead         bool             `json:"is_read"`
	RequiresAction bool             `json:"requires_action"`
	CreatedAt      time.Time        `json:"created_at"`
}
