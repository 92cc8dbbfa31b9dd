package session

import (
	"context"
	"errors"
	"testing"

	"github.com/sipstream/sipstream-services/internal/auth"
)

type fakeAuth struct {
	sess         *auth.Session
	err          error
	listener     func(auth.Event, *auth.Session)
	unregistered int
}

func (f *fakeAuth) CurrentSession(ctx context.Context) (*auth.Session, error) {
	return f.sess, f.err
}

func (f *fakeAuth) OnAuthChange(fn func(auth.Event, *auth.Session)) func() {
	f.listener = fn
	return func() { f.unregistered++ }
}

func (f *fakeAuth) fire(ev auth.Event, sess *auth.Session) {
	if f.listener != nil {
		f.listener(ev, sess)
	}
}

func TestUnconfiguredBackendSettlesAnonymous(t *testing.T) {
	s := NewStore(nil, "SIPSTREAM_SERVICE_URL is not set")
	if s.State() != StateUninitialized {
		t.Fatalf("expected uninitialized before Init, got %s", s.State())
	}

	s.Init(context.Background())

	if s.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", s.State())
	}
	if s.Current() != nil {
		t.Fatal("expected no session")
	}
	if s.Err() == "" {
		t.Fatal("expected the connection error to be surfaced")
	}
}

func TestInitWithExistingSession(t *testing.T) {
	a := &fakeAuth{sess: &auth.Session{UserID: "u1", Email: "u1@example.com"}}
	s := NewStore(a, "")
	s.Init(context.Background())

	if s.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", s.State())
	}
	if got := s.Current().UserID; got != "u1" {
		t.Fatalf("expected session for u1, got %s", got)
	}
	if s.Err() != "" {
		t.Fatalf("expected no error, got %q", s.Err())
	}
}

func TestInitFetchFailureSettlesAnonymous(t *testing.T) {
	a := &fakeAuth{err: errors.New("token expired")}
	s := NewStore(a, "")
	s.Init(context.Background())

	if s.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", s.State())
	}
	if s.Err() != "token expired" {
		t.Fatalf("unexpected error %q", s.Err())
	}
}

func TestSignInAndSignOutTransitions(t *testing.T) {
	a := &fakeAuth{}
	s := NewStore(a, "")
	s.Init(context.Background())

	if s.State() != StateAnonymous {
		t.Fatalf("expected anonymous before sign-in, got %s", s.State())
	}

	a.fire(auth.EventSignedIn, &auth.Session{UserID: "u2"})
	if s.State() != StateAuthenticated || s.Current().UserID != "u2" {
		t.Fatalf("expected authenticated as u2, got %s / %+v", s.State(), s.Current())
	}

	a.fire(auth.EventSignedOut, nil)
	if s.State() != StateAnonymous || s.Current() != nil {
		t.Fatalf("expected anonymous after sign-out, got %s", s.State())
	}
}

func TestCloseUnregistersListener(t *testing.T) {
	a := &fakeAuth{}
	s := NewStore(a, "")
	s.Init(context.Background())

	s.Close()
	s.Close()

	if a.unregistered != 1 {
		t.Fatalf("expected exactly one unregister, got %d", a.unregistered)
	}

	a.fire(auth.EventSignedIn, &auth.Session{UserID: "u3"})
	if s.Current() != nil {
		t.Fatal("expected events after Close to be dropped")
	}
}

func TestCloseBeforeInitIsSafe(t *testing.T) {
	s := NewStore(&fakeAuth{}, "")
	s.Close()

	if s.State() != StateUninitialized {
		t.Fatalf("expected uninitialized, got %s", s.State())
	}
}
