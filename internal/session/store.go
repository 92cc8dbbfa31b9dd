package session

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/auth"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// AuthClient is the slice of the auth service the store consumes.
type AuthClient interface {
	CurrentSession(ctx context.Context) (*auth.Session, error)
	OnAuthChange(fn func(auth.Event, *auth.Session)) func()
}

// Store tracks the current authenticated identity for the whole process. One
// instance, created at startup, torn down with Close. Consumers always see
// either the previous session or the new one, never a partial value.
type Store struct {
	auth    AuthClient
	connErr string

	mu         sync.Mutex
	state      State
	sess       *auth.Session
	errMsg     string
	unregister func()
	closed     bool
}

// NewStore builds an uninitialized store. connErr carries the remote client's
// connection failure when there is one; the store then settles anonymous
// instead of waiting on a backend that will never answer.
func NewStore(a AuthClient, connErr string) *Store {
	return &Store{auth: a, connErr: connErr, state: StateUninitialized}
}

func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	if s.auth == nil || s.connErr != "" {
		msg := s.connErr
		if msg == "" {
			msg = "remote service client unavailable"
		}
		s.settle(nil, msg)
		return
	}

	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		log.Errorf("Error [Session.Init] fetching session: %s", err)
		s.settle(nil, err.Error())
	} else {
		s.settle(sess, "")
	}

	// Auth events settle directly between authenticated and anonymous with
	// no interim loading hop: the event already carries the confirmed
	// session, so there is nothing left to wait on and consumers never see
	// a partial value.
	unregister := s.auth.OnAuthChange(func(ev auth.Event, sess *auth.Session) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		s.settle(sess, "")
	})

	s.mu.Lock()
	if s.closed {
		// torn down while registering
		s.mu.Unlock()
		unregister()
		return
	}
	s.unregister = unregister
	s.mu.Unlock()
}

// settle replaces the held session atomically and leaves the loading state.
func (s *Store) settle(sess *auth.Session, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.errMsg = errMsg
	if sess != nil {
		s.state = StateAuthenticated
	} else {
		s.state = StateAnonymous
	}
}

// Current returns the last-known session without blocking, nil when
// anonymous or not yet settled.
func (s *Store) Current() *auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Close unregisters the auth listener. Idempotent, and safe even when Init
// never ran or never completed.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unregister := s.unregister
	s.unregister = nil
	s.mu.Unlock()

	if unregister != nil {
		unregister()
	}
}
