package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sipstream/sipstream-services/internal/models"
	"github.com/sipstream/sipstream-services/internal/service"
	"github.com/sipstream/sipstream-services/internal/store"
)

// socialEnv extends the base command env with the social stores.
type socialEnv struct {
	*env
	friends       *service.FriendService
	notifications *service.NotificationService
	invitations   *service.InvitationService
	profiles      *service.ProfileService
}

func connectSocial(ctx context.Context) (*socialEnv, error) {
	e, err := connect(ctx)
	if err != nil {
		return nil, err
	}

	profileStore := store.NewProfileStore(e.client)
	friendStore := store.NewFriendStore(e.client)
	notifyStore := store.NewNotificationStore(e.client)
	inviteStore := store.NewInvitationStore(e.client)

	return &socialEnv{
		env:           e,
		friends:       service.NewFriendService(friendStore, profileStore, notifyStore),
		notifications: service.NewNotificationService(notifyStore),
		invitations:   service.NewInvitationService(inviteStore, notifyStore),
		profiles:      service.NewProfileService(profileStore),
	}, nil
}

func friendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Manage your friends list",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accepted friends",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}
			friends, err := e.friends.ListFriends(ctx, sess.UserID)
			if err != nil {
				return err
			}
			if len(friends) == 0 {
				fmt.Println("no friends yet")
				return nil
			}
			for _, f := range friends {
				fmt.Println(friendLine(f))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List incoming friend requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}
			pending, err := e.friends.ListPendingRequests(ctx, sess.UserID)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("no pending requests")
				return nil
			}
			for _, f := range pending {
				fmt.Printf("%s  request %s\n", friendLine(f), f.ID)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search users by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}
			profiles, err := e.friends.SearchUsers(ctx, sess.UserID, args[0])
			if err != nil {
				return err
			}
			for _, p := range profiles {
				fmt.Printf("%s  %s (%s)\n", p.ID, p.Username, p.Status)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <user-id>",
		Short: "Send a friend request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}
			if err := e.friends.SendRequest(ctx, sess.UserID, args[0]); err != nil {
				return err
			}
			fmt.Println("request sent")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "accept <request-id>",
		Short: "Accept a friend request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if _, err := e.signIn(ctx); err != nil {
				return err
			}
			if err := e.friends.AcceptRequest(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("request accepted")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove a friend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}
			return e.friends.RemoveFriend(ctx, sess.UserID, args[0])
		},
	})

	return cmd
}

func friendLine(f *models.FriendWithProfile) string {
	if f.Profile == nil {
		return f.FriendID
	}
	name := f.Profile.Username
	if f.Profile.DisplayName != "" {
		name = f.Profile.DisplayName
	}
	return fmt.Sprintf("%s  %s (%s)", f.Profile.ID, name, f.Profile.Status)
}

func notificationsCmd() *cobra.Command {
	var markRead string
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}

			if markRead != "" {
				return e.notifications.MarkRead(ctx, markRead, sess.UserID)
			}

			unread, err := e.notifications.UnreadCount(ctx, sess.UserID)
			if err != nil {
				return err
			}
			list, err := e.notifications.List(ctx, sess.UserID)
			if err != nil {
				return err
			}
			fmt.Printf("%d unread\n", unread)
			for _, n := range list {
				marker := " "
				if !n.IsRead {
					marker = "*"
				}
				fmt.Printf("%s %s  %s: %s  (%s)\n", marker, n.CreatedAt.Format("Jan 02 15:04"), n.Title, n.Message, n.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&markRead, "mark-read", "", "mark the given notification id as read")
	return cmd
}

func inviteCmd() *cobra.Command {
	var respond string
	var accept bool
	cmd := &cobra.Command{
		Use:   "invite <game-id> <user-id>",
		Short: "Invite a user to a game, or respond to an invitation",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}

			if respond != "" {
				inv, err := e.invitations.Respond(ctx, respond, accept)
				if err != nil {
					return err
				}
				fmt.Printf("invitation %s is now %s\n", inv.ID, inv.Status)
				return nil
			}

			if len(args) != 2 {
				return fmt.Errorf("usage: invite <game-id> <user-id>")
			}
			inv, err := e.invitations.Invite(ctx, args[0], sess.UserID, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("invitation %s sent, expires %s\n", inv.ID, inv.ExpiresAt.Format("Jan 02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&respond, "respond", "", "invitation id to respond to")
	cmd.Flags().BoolVar(&accept, "accept", false, "accept instead of decline when responding")
	return cmd
}

func statusCmd() *cobra.Command {
	var gameID string
	cmd := &cobra.Command{
		Use:   "status <online|offline|in_game|away>",
		Short: "Set your presence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connectSocial(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}
			return e.profiles.SetStatus(ctx, sess.UserID, models.ProfileStatus(args[0]), gameID)
		},
	}
	cmd.Flags().StringVar(&gameID, "game", "", "game id when status is in_game")
	return cmd
}
