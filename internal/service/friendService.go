package service

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/models"
	"github.com/sipstream/sipstream-services/internal/store"
)

type FriendService struct {
	friendStore  *store.FriendStore
	profileStore *store.ProfileStore
	notifyStore  *store.NotificationStore
}

func NewFriendService(friendStore *store.FriendStore, profileStore *store.ProfileStore, notifyStore *store.NotificationStore) *FriendService {
	return &FriendService{
		friendStore:  friendStore,
		profileStore: profileStore,
		notifyStore:  notifyStore,
	}
}

func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]*models.FriendWithProfile, error) {
	return s.friendStore.ListAccepted(ctx, userID)
}

func (s *FriendService) ListPendingRequests(ctx context.Context, userID string) ([]*models.FriendWithProfile, error) {
	return s.friendStore.ListPending(ctx, userID)
}

func (s *FriendService) SearchUsers(ctx context.Context, userID, query string) ([]*models.UserProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.profileStore.Search(ctx, userID, query, 10)
}

// SendRequest creates the pending edge and notifies the recipient. The
// notification is best-effort.
func (s *FriendService) SendRequest(ctx context.Context, userID, friendID string) error {
	sender, err := s.profileStore.GetByID(ctx, userID)
	if err != nil {
		log.Errorf("Error [FriendService.SendRequest] sender profile %s: %s", userID, err)
	}
	senderName := userID
	if sender != nil {
		senderName = sender.Username
	}

	edge, err := s.friendStore.Create(ctx, userID, friendID)
	if err != nil {
		return err
	}

	_, err = s.notifyStore.Insert(ctx, &models.Notification{
		UserID:         friendID,
		Type:           models.NotifyFriendRequest,
		Title:          "New friend request",
		Message:        senderName + " wants to be your friend",
		Data:           map[string]any{"request_id": edge.ID, "from_user_id": userID},
		RequiresAction: true,
	})
	if err != nil {
		log.Errorf("Error [FriendService.SendRequest] notification for %s: %s", friendID, err)
	}
	return nil
}

func (s *FriendService) AcceptRequest(ctx context.Context, requestID string) error {
	_, err := s.friendStore.UpdateStatus(ctx, requestID, models.FriendAccepted)
	return err
}

func (s *FriendService) DeclineRequest(ctx context.Context, requestID string) error {
	return s.friendStore.Delete(ctx, requestID)
}

func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return s.friendStore.DeleteEdge(ctx, userID, friendID)
}
