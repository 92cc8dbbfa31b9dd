package backend

import (
	"errors"
	"fmt"
	"testing"
)

func TestChannelKey(t *testing.T) {
	if got := ChannelKey("games", "g1"); got != "games:g1" {
		t.Fatalf("unexpected channel key %q", got)
	}
}

func TestSubjectFor(t *testing.T) {
	cases := []struct{ channel, want string }{
		{"games:g1", "sipstream.changes.games.g1"},
		{"history:g1", "sipstream.changes.history.g1"},
		{"notifications:u1", "sipstream.changes.notifications.u1"},
	}
	for _, c := range cases {
		if got := SubjectFor(c.channel); got != c.want {
			t.Errorf("SubjectFor(%q) = %q, want %q", c.channel, got, c.want)
		}
	}
}

func TestNilChangeSubUnsubscribe(t *testing.T) {
	var s *ChangeSub
	s.Unsubscribe()

	s = &ChangeSub{}
	s.Unsubscribe()
	s.Unsubscribe()
}

func TestTypedErrorsUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("loading game: %w", &NotFoundError{Table: "games", ID: "g1"})

	notFound := &NotFoundError{}
	if !errors.As(wrapped, &notFound) {
		t.Fatal("expected NotFoundError through the wrap")
	}
	if notFound.Table != "games" || notFound.ID != "g1" {
		t.Fatalf("unexpected fields %+v", notFound)
	}

	integrity := &DataIntegrityError{}
	if errors.As(wrapped, &integrity) {
		t.Fatal("did not expect DataIntegrityError")
	}
}
