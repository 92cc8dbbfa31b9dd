package models

import "time"

type ProfileStatus string

const (
	StatusOnline  ProfileStatus = "online"
	StatusOffline ProfileStatus = "offline"
	StatusInGame  ProfileStatus = "in_game"
	StatusAway    ProfileStatus = "away"
)

// UserProfile represents the user_profiles table.
type UserProfile struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	DisplayName   string        `json:"display_name,omitempty"`
	AvatarURL     string        `json:"avatar_url,omitempty"`
	Status        ProfileStatus `json:"status"`
	CurrentGameID string        `json:"current_game_id,omitempty"`
	LastSeen      time.Time     `json:"last_seen"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
