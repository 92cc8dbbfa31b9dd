package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/models"
	"github.com/sipstream/sipstream-services/internal/store"
)

const accessTokenTTL = 7 * 24 * time.Hour

var ErrInvalidCredentials = errors.New("invalid email or password")

// Session is the authenticated identity plus its token bundle. Consumers
// treat the tokens as opaque.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Service owns sign-up, sign-in and token refresh against the remote store's
// credential collection, and fans auth changes out to registered listeners.
type Service struct {
	client    *backend.Client
	profiles  *store.ProfileStore
	tokenAuth *jwtauth.JWTAuth

	mu        sync.Mutex
	cur       *Session
	listeners map[int]func(Event, *Session)
	nextID    int
}

func NewService(c *backend.Client, profiles *store.ProfileStore) *Service {
	return &Service{
		client:    c,
		profiles:  profiles,
		tokenAuth: jwtauth.New("HS256", []byte(c.Key()), nil),
		listeners: map[int]func(Event, *Session){},
	}
}

// OnAuthChange registers a listener for every subsequent auth event. The
// returned func unregisters it and is safe to call more than once.
func (s *Service) OnAuthChange(fn func(Event, *Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) fire(ev Event, sess *Session) {
	s.mu.Lock()
	fns := make([]func(Event, *Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev, sess)
	}
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	userID := uuid.New().String()
	_, err = s.client.DB().Exec(ctx, `
		INSERT INTO user_credentials (id, email, password_hash)
		VALUES ($1, $2, $3)
	`, userID, email, string(hash))
	if err != nil {
		return nil, &backend.RequestError{Table: "user_credentials", Op: "insert", Message: err.Error()}
	}

	if err := s.ensureProfile(ctx, userID, email); err != nil {
		log.Errorf("Error [Auth.SignUp] creating profile for %s: %s", userID, err)
	}

	return s.establish(userID, email, EventSignedIn)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var userID, hash string
	err := s.client.DB().QueryRow(ctx, `
		SELECT id, password_hash
		FROM user_credentials
		WHERE email = $1
	`, email).Scan(&userID, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, &backend.RequestError{Table: "user_credentials", Op: "select", Message: err.Error()}
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.ensureProfile(ctx, userID, email); err != nil {
		log.Errorf("Error [Auth.SignIn] ensuring profile for %s: %s", userID, err)
	}

	return s.establish(userID, email, EventSignedIn)
}

func (s *Service) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()

	s.fire(EventSignedOut, nil)
}

// Refresh silently re-issues the access token for the current identity.
func (s *Service) Refresh(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	cur := s.cur
	s.mu.Unlock()

	if cur == nil {
		return nil, errors.New("no session to refresh")
	}
	return s.establish(cur.UserID, cur.Email, EventTokenRefreshed)
}

// CurrentSession returns the last-known session, refreshing it first when the
// access token has expired.
func (s *Service) CurrentSession(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	cur := s.cur
	s.mu.Unlock()

	if cur == nil {
		return nil, nil
	}
	if time.Now().After(cur.ExpiresAt) {
		return s.Refresh(ctx)
	}
	return cur, nil
}

func (s *Service) establish(userID, email string, ev Event) (*Session, error) {
	expiresAt := time.Now().Add(accessTokenTTL)
	_, tokenString, err := s.tokenAuth.Encode(map[string]interface{}{
		"sub":   userID,
		"email": email,
		"exp":   expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	sess := &Session{
		UserID:       userID,
		Email:        email,
		AccessToken:  tokenString,
		RefreshToken: uuid.New().String(),
		ExpiresAt:    expiresAt,
	}

	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()

	s.fire(ev, sess)
	return sess, nil
}

func (s *Service) ensureProfile(ctx context.Context, userID, email string) error {
	existing, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	username := email
	if i := strings.Index(email, "@"); i > 0 {
		username = email[:i]
	}

	_, err = s.profiles.Create(ctx, &models.UserProfile{
		ID:          userID,
		Username:    username,
		DisplayName: username,
		Status:      models.StatusOnline,
	})
	return err
}
