package deck

import (
	"fmt"
	"math/rand"

	"github.com/sipstream/sipstream-services/internal/models"
)

// Card is one drawable prompt.
type Card struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

var kingsCup = []Card{
	{"Ace", "Waterfall: everyone drinks, nobody stops before the player on their right."},
	{"Two", "You: pick someone to drink."},
	{"Three", "Me: take a drink yourself."},
	{"Four", "Floor: last player to touch the floor drinks."},
	{"Five", "Guys: everyone who identifies as a guy drinks."},
	{"Six", "Chicks: everyone who identifies as a chick drinks."},
	{"Seven", "Heaven: last player to raise a hand drinks."},
	{"Eight", "Mate: pick a drinking buddy who drinks whenever you do."},
	{"Nine", "Rhyme: say a word, go around rhyming it, first to fail drinks."},
	{"Ten", "Categories: pick a category, first player who blanks drinks."},
	{"Jack", "Make a rule: everyone follows it until the next Jack."},
	{"Queen", "Questions: keep asking questions, first to answer drinks."},
	{"King", "Pour some of your drink into the cup. Fourth King drinks the cup."},
}

var neverHaveIEver = []Card{
	{"Never have I ever", "...sent a text to the wrong person."},
	{"Never have I ever", "...pretended to know a song I'd never heard."},
	{"Never have I ever", "...fallen asleep at a party."},
	{"Never have I ever", "...forgotten someone's name mid-conversation."},
	{"Never have I ever", "...missed a flight."},
	{"Never have I ever", "...laughed at the wrong moment."},
	{"Never have I ever", "...re-gifted a present."},
	{"Never have I ever", "...stalked my own name online."},
	{"Never have I ever", "...eaten someone else's labelled food."},
	{"Never have I ever", "...lied about my age."},
	{"Never have I ever", "...cried during an animated movie."},
	{"Never have I ever", "...locked myself out."},
}

var customDeck = []Card{
	{"Wildcard", "Dealer's choice: make up a rule for this round."},
	{"Wildcard", "Swap drinks with the player across from you."},
	{"Wildcard", "Everyone votes: who drinks?"},
	{"Wildcard", "Truth or drink."},
	{"Wildcard", "Give two, take one."},
	{"Wildcard", "Silent round: first to speak drinks."},
}

func cardsFor(t models.GameType) []Card {
	switch t {
	case models.GameKingsCup:
		return kingsCup
	case models.GameNeverHaveIEver:
		return neverHaveIEver
	case models.GameCustomDeck:
		return customDeck
	}
	return nil
}

// Draw picks one card uniformly at random for the game type.
func Draw(t models.GameType) (Card, error) {
	cards := cardsFor(t)
	if len(cards) == 0 {
		return Card{}, fmt.Errorf("no deck for game type %q", t)
	}
	return cards[rand.Intn(len(cards))], nil
}

// Size reports how many cards the game type's deck holds.
func Size(t models.GameType) int {
	return len(cardsFor(t))
}
