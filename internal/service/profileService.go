package service

import (
	"context"

	"github.com/sipstream/sipstream-services/internal/models"
	"github.com/sipstream/sipstream-services/internal/store"
)

type ProfileService struct {
	profileStore *store.ProfileStore
}

func NewProfileService(profileStore *store.ProfileStore) *ProfileService {
	return &ProfileService{profileStore: profileStore}
}

func (s *ProfileService) GetByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	return s.profileStore.GetByID(ctx, userID)
}

// SetStatus updates presence; currentGameID is "" unless the status is
// in_game.
func (s *ProfileService) SetStatus(ctx context.Context, userID string, status models.ProfileStatus, currentGameID string) error {
	if status != models.StatusInGame {
		currentGameID = ""
	}
	return s.profileStore.UpdateStatus(ctx, userID, status, currentGameID)
}
