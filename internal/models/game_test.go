package models

import "testing"

func TestParseGameType(t *testing.T) {
	cases := []struct {
		in      string
		want    GameType
		wantErr bool
	}{
		{"kings-cup", GameKingsCup, false},
		{"Kings Cup", GameKingsCup, false},
		{"  never-have-i-ever  ", GameNeverHaveIEver, false},
		{"NEVER HAVE I EVER", GameNeverHaveIEver, false},
		{"Custom Deck", GameCustomDeck, false},
		{"beer-pong", "", true},
		{"", "", true},
	}

	for _, c := range cases {
		got, err := ParseGameType(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseGameType(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseGameType(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseGameType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGameTypeLabel(t *testing.T) {
	if got := GameKingsCup.Label(); got != "Kings Cup" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := GameType("mystery").Label(); got != "mystery" {
		t.Fatalf("expected unknown types to fall back to the tag, got %q", got)
	}
}

func TestCurrentPlayerClampsIndex(t *testing.T) {
	g := &Game{Players: []string{"A", "B"}, CurrentPlayerIndex: 5}
	if got := g.CurrentPlayer(); got != "A" {
		t.Fatalf("expected clamp to first player, got %q", got)
	}

	g = &Game{Players: nil, CurrentPlayerIndex: 0}
	if got := g.CurrentPlayer(); got != "" {
		t.Fatalf("expected empty name for empty roster, got %q", got)
	}
}
