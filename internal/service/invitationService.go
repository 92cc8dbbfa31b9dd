package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/models"
	"github.com/sipstream/sipstream-services/internal/store"
)

const invitationTTL = 24 * time.Hour

var ErrInvitationClosed = errors.New("invitation is no longer pending")

type InvitationService struct {
	inviteStore *store.InvitationStore
	notifyStore *store.NotificationStore
}

func NewInvitationService(inviteStore *store.InvitationStore, notifyStore *store.NotificationStore) *InvitationService {
	return &InvitationService{inviteStore: inviteStore, notifyStore: notifyStore}
}

// Invite creates a pending invitation with a 24h deadline and notifies the
// invitee. The notification is best-effort.
func (s *InvitationService) Invite(ctx context.Context, gameID, inviterID, inviteeID string) (*models.GameInvitation, error) {
	inv, err := s.inviteStore.Create(ctx, gameID, inviterID, inviteeID, invitationTTL)
	if err != nil {
		return nil, err
	}

	_, err = s.notifyStore.Insert(ctx, &models.Notification{
		UserID:         inviteeID,
		Type:           models.NotifyGameInvite,
		Title:          "Game invitation",
		Message:        "You have been invited to a game",
		Data:           map[string]any{"invitation_id": inv.ID, "game_id": gameID},
		RequiresAction: true,
	})
	if err != nil {
		log.Errorf("Error [InvitationService.Invite] notification for %s: %s", inviteeID, err)
	}

	return inv, nil
}

// Respond settles a pending invitation. Expired invitations are marked as
// such on the way out instead of by a background job.
func (s *InvitationService) Respond(ctx context.Context, invitationID string, accept bool) (*models.GameInvitation, error) {
	inv, err := s.inviteStore.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &backend.NotFoundError{Table: "game_invitations", ID: invitationID}
	}
	if inv.Status != models.InvitePending {
		return nil, ErrInvitationClosed
	}
	if time.Now().After(inv.ExpiresAt) {
		if _, err := s.inviteStore.UpdateStatus(ctx, invitationID, models.InviteExpired); err != nil {
			log.Errorf("Error [InvitationService.Respond] expiring %s: %s", invitationID, err)
		}
		return nil, ErrInvitationClosed
	}

	status := models.InviteDeclined
	if accept {
		status = models.InviteAccepted
	}
	return s.inviteStore.UpdateStatus(ctx, invitationID, status)
}

func (s *InvitationService) ExpireStale(ctx context.Context) (int64, error) {
	return s.inviteStore.ExpireStale(ctx)
}
