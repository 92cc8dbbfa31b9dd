package deck

import (
	"testing"

	"github.com/sipstream/sipstream-services/internal/models"
)

func TestDeckSizes(t *testing.T) {
	cases := []struct {
		t    models.GameType
		want int
	}{
		{models.GameKingsCup, 13},
		{models.GameNeverHaveIEver, 12},
		{models.GameCustomDeck, 6},
		{models.GameType("mystery"), 0},
	}

	for _, c := range cases {
		if got := Size(c.t); got != c.want {
			t.Errorf("Size(%q) = %d, want %d", c.t, got, c.want)
		}
	}
}

func TestDrawReturnsCardFromDeck(t *testing.T) {
	for _, gt := range []models.GameType{models.GameKingsCup, models.GameNeverHaveIEver, models.GameCustomDeck} {
		card, err := Draw(gt)
		if err != nil {
			t.Fatalf("Draw(%q): %v", gt, err)
		}
		if card.Text == "" {
			t.Fatalf("Draw(%q) returned an empty card", gt)
		}
	}
}

func TestDrawUnknownTypeFails(t *testing.T) {
	if _, err := Draw(models.GameType("mystery")); err == nil {
		t.Fatal("expected error for unknown game type")
	}
}
