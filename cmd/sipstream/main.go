package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	config "github.com/sipstream/sipstream-services/configs"
	"github.com/sipstream/sipstream-services/internal/auth"
	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/gamesync"
	"github.com/sipstream/sipstream-services/internal/models"
	"github.com/sipstream/sipstream-services/internal/service"
	"github.com/sipstream/sipstream-services/internal/session"
	"github.com/sipstream/sipstream-services/internal/store"
)

const SERVICE_NAME = "sipstream"

var (
	flagEmail    string
	flagPassword string
)

func init() {
	config.Logging(SERVICE_NAME + "_cli")
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	root := &cobra.Command{
		Use:           "sipstream",
		Short:         "SipStream drinking game client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagEmail, "email", "", "account email")
	root.PersistentFlags().StringVar(&flagPassword, "password", "", "account password")

	root.AddCommand(signupCmd(), signinCmd(), createCmd(), playCmd(), historyCmd())
	root.AddCommand(friendsCmd(), notificationsCmd(), inviteCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env holds the connected client stack one command runs against.
type env struct {
	client   *backend.Client
	authSvc  *auth.Service
	sessions *session.Store
	games    *store.GameStore
	history  *store.HistoryStore
}

func connect(ctx context.Context) (*env, error) {
	client, err := backend.Connect(ctx, backend.ConfigFromEnv())
	if err != nil {
		return nil, err
	}

	profiles := store.NewProfileStore(client)
	authSvc := auth.NewService(client, profiles)

	sessions := session.NewStore(authSvc, "")
	sessions.Init(ctx)

	return &env{
		client:   client,
		authSvc:  authSvc,
		sessions: sessions,
		games:    store.NewGameStore(client),
		history:  store.NewHistoryStore(client),
	}, nil
}

func (e *env) close() {
	e.sessions.Close()
	e.client.Close()
}

func (e *env) signIn(ctx context.Context) (*auth.Session, error) {
	if flagEmail == "" || flagPassword == "" {
		return nil, fmt.Errorf("--email and --password are required")
	}
	return e.authSvc.SignIn(ctx, flagEmail, flagPassword)
}

func signupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagEmail == "" || flagPassword == "" {
				return fmt.Errorf("--email and --password are required")
			}
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.authSvc.SignUp(ctx, flagEmail, flagPassword)
			if err != nil {
				return err
			}
			fmt.Printf("signed up as %s (%s)\n", sess.Email, sess.UserID)
			return nil
		},
	}
}

func signinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signin",
		Short: "Check credentials and print the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("signed in as %s (%s)\n", sess.Email, sess.UserID)
			fmt.Printf("session state: %s\n", e.sessions.State())
			return nil
		},
	}
}

func createCmd() *cobra.Command {
	var (
		gameType string
		players  []string
		drinks   int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			sess, err := e.signIn(ctx)
			if err != nil {
				return err
			}

			gameSvc := service.NewGameService(e.games)
			game, err := gameSvc.CreateGame(ctx, sess.UserID, gameType, players, drinks)
			if err != nil {
				return err
			}

			fmt.Printf("created %s game %s with players %s\n",
				game.GameType.Label(), game.ID, strings.Join(game.Players, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&gameType, "type", string(models.GameKingsCup), "game type (kings-cup, never-have-i-ever, custom-deck)")
	cmd.Flags().StringSliceVar(&players, "players", nil, "player display names")
	cmd.Flags().IntVar(&drinks, "drinks", 30, "starting drink count")
	return cmd
}

func playCmd() *cobra.Command {
	var playerName string
	cmd := &cobra.Command{
		Use:   "play <game-id>",
		Short: "Join a game's live view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if _, err := e.signIn(ctx); err != nil {
				return err
			}

			sync := gamesync.New(e.games, e.history, e.client, args[0])
			sync.SetActor(playerName)
			defer sync.Close()

			sync.OnGameUpdate = func(g models.Game) {
				fmt.Printf("\n>> %d drinks left, %s's turn\n", g.CurrentDrinks, g.CurrentPlayer())
			}
			sync.OnHistoryInsert = func(entry models.GameHistory) {
				fmt.Printf("\n>> %s: %s\n", entry.Player, entry.Action)
			}

			if err := sync.Load(ctx); err != nil {
				return err
			}

			game := sync.Game()
			fmt.Printf("%s | %d drinks | %s's turn | players: %s\n",
				game.GameType.Label(), game.CurrentDrinks, game.CurrentPlayer(),
				strings.Join(game.Players, ", "))
			fmt.Println("commands: d=drink n=next turn c=draw card a <n>=add drinks h=history e=end q=quit")

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "d":
					sync.DecrementDrinks(ctx)
				case line == "n":
					sync.NextTurn(ctx)
				case line == "c":
					card, err := sync.DrawCard(ctx)
					if err != nil {
						fmt.Println("error:", err)
						continue
					}
					fmt.Printf("%s: %s\n", card.Title, card.Text)
				case strings.HasPrefix(line, "a "):
					n, err := strconv.Atoi(strings.TrimSpace(line[2:]))
					if err != nil {
						fmt.Println("usage: a <count>")
						continue
					}
					sync.AddDrinks(ctx, n)
				case line == "h":
					printHistory(sync.History())
				case line == "e":
					sync.EndGame(ctx)
				case line == "q":
					return nil
				}
				if msg := sync.Err(); msg != "" {
					fmt.Println("last write failed:", msg)
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&playerName, "player", "", "display name recorded for your actions")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <game-id>",
		Short: "Print a game's action log, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			entries, err := e.history.ListByGameID(ctx, args[0])
			if err != nil {
				return err
			}
			printHistory(entries)
			return nil
		},
	}
}

func printHistory(entries []*models.GameHistory) {
	if len(entries) == 0 {
		fmt.Println("no history yet")
		return
	}
	for _, entry := range entries {
		fmt.Printf("%s  %-14s %s\n", entry.CreatedAt.Format("15:04:05"), entry.Action, entry.Player)
	}
}
