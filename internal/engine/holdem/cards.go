package holdem

import (
	"fmt"
	"math/rand"

	"github.com/paulhankin/poker"
)

// card is one playing card. Rank runs 1..13 with ace = 1, matching the
// evaluator's MakeCard convention. Suit runs 0..3 (clubs, diamonds,
// hearts, spades).
type card struct {
	rank uint8
	suit uint8
}

var rankChars = map[uint8]byte{
	1: 'A', 2: '2', 3: '3', 4: '4', 5: '5', 6: '6', 7: '7',
	8: '8', 9: '9', 10: 'T', 11: 'J', 12: 'Q', 13: 'K',
}

var suitChars = [4]byte{'c', 'd', 'h', 's'}

func (c card) valid() bool {
	return c.rank >= 1 && c.rank <= 13 && c.suit <= 3
}

// String renders the wire form, e.g. "Ah", "Tc".
func (c card) String() string {
	if !c.valid() {
		return "??"
	}
	return string([]byte{rankChars[c.rank], suitChars[c.suit]})
}

// parseCard reads the wire form back. Inverse of String.
func parseCard(s string) (card, error) {
	if len(s) != 2 {
		return card{}, fmt.Errorf("bad card %q", s)
	}
	var c card
	found := false
	for r, ch := range rankChars {
		if ch == s[0] {
			c.rank = r
			found = true
			break
		}
	}
	if !found {
		return card{}, fmt.Errorf("bad card rank %q", s)
	}
	found = false
	for i, ch := range suitChars {
		if ch == s[1] {
			c.suit = uint8(i)
			found = true
			break
		}
	}
	if !found {
		return card{}, fmt.Errorf("bad card suit %q", s)
	}
	return c, nil
}

// evalCard converts to the evaluator's card type.
func (c card) evalCard() (poker.Card, error) {
	return poker.MakeCard(poker.Suit(c.suit), poker.Rank(c.rank))
}

// newDeck returns a full 52-card deck in canonical order.
func newDeck() []card {
	deck := make([]card, 0, 52)
	for s := uint8(0); s < 4; s++ {
		for r := uint8(1); r <= 13; r++ {
			deck = append(deck, card{rank: r, suit: s})
		}
	}
	return deck
}

// shuffledDeck returns a freshly shuffled deck using rng.
func shuffledDeck(rng *rand.Rand) []card {
	deck := newDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

func cardStrings(cards []card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func parseCards(raw []string) ([]card, error) {
	out := make([]card, len(raw))
	for i, s := range raw {
		c, err := parseCard(s)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
