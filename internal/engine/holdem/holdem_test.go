package holdem

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantorre/pokertable/internal/engine"
)

func testFactory(t *testing.T) *Factory {
	t.Helper()
	return &Factory{Rand: rand.New(rand.NewSource(42))}
}

func headsUpConfig() engine.Config {
	return engine.Config{
		PlayerCount: 2,
		Stacks:      []int{1000, 1000},
		SmallBlind:  25,
		BigBlind:    50,
		ButtonIndex: 0,
		Variant:     engine.NoLimitHoldem,
	}
}

// riggedDeck builds a deck dealing the given hole cards (two per
// player, in player order) followed by the given board.
func riggedDeck(t *testing.T, holes [][]string, board []string) []card {
	t.Helper()
	var order []string
	for _, h := range holes {
		order = append(order, h...)
	}
	order = append(order, board...)

	used := make(map[string]bool, len(order))
	for _, s := range order {
		used[s] = true
	}
	deck, err := parseCards(order)
	require.NoError(t, err)
	for _, c := range newDeck() {
		if !used[c.String()] {
			deck = append(deck, c)
		}
	}
	require.Len(t, deck, 52)
	return deck
}

func TestStreetProgression(t *testing.T) {
	he, err := testFactory(t).New(headsUpConfig())
	require.NoError(t, err)

	// Heads-up: button posts the small blind and acts first preflop.
	st := he.GameState()
	require.Equal(t, "preflop", st.Status)
	require.Equal(t, 0, st.ActorIndex)

	require.NoError(t, he.CheckOrCall(0)) // call
	require.NoError(t, he.CheckOrCall(1)) // big blind option check

	st = he.GameState()
	require.Equal(t, "flop", st.Status)
	require.Len(t, st.BoardCards, 3)
	require.Equal(t, 1, st.ActorIndex, "big blind acts first postflop heads-up")

	require.NoError(t, he.CheckOrCall(1))
	require.NoError(t, he.CheckOrCall(0))
	st = he.GameState()
	require.Equal(t, "turn", st.Status)
	require.Len(t, st.BoardCards, 4)

	require.NoError(t, he.CheckOrCall(1))
	require.NoError(t, he.CheckOrCall(0))
	st = he.GameState()
	require.Equal(t, "river", st.Status)
	require.Len(t, st.BoardCards, 5)
	require.False(t, he.HandComplete())
}

func TestAllInFastForward(t *testing.T) {
	he, err := testFactory(t).New(headsUpConfig())
	require.NoError(t, err)

	require.NoError(t, he.BetOrRaise(0, 1000)) // all-in
	require.NoError(t, he.CheckOrCall(1))      // call closes the action

	st := he.GameState()
	require.True(t, he.HandComplete(), "board must run out in the same call")
	require.Len(t, st.BoardCards, 5)

	total := 0
	for _, s := range st.Stacks {
		total += s
	}
	require.Equal(t, 2000, total, "chips conserved against pre-blind totals")
}

func TestFoldOutEndsImmediately(t *testing.T) {
	he, err := testFactory(t).New(headsUpConfig())
	require.NoError(t, err)

	require.NoError(t, he.Fold(0))

	st := he.GameState()
	require.True(t, he.HandComplete())
	require.Empty(t, st.BoardCards, "no board cards dealt on fold-out")
	require.Equal(t, 975, st.Stacks[0])
	require.Equal(t, 1025, st.Stacks[1], "big blind collects both blinds")
}

func TestSidePots(t *testing.T) {
	deck := riggedDeck(t,
		[][]string{{"2c", "3d"}, {"Ah", "As"}, {"Kh", "Ks"}},
		[]string{"4s", "5h", "9c", "Jd", "Qd"},
	)
	he, err := newEngine(engine.Config{
		PlayerCount: 3,
		Stacks:      []int{100, 50, 200},
		SmallBlind:  5,
		BigBlind:    10,
		ButtonIndex: 0,
	}, deck)
	require.NoError(t, err)

	require.NoError(t, he.BetOrRaise(0, 100)) // covers both others
	require.NoError(t, he.CheckOrCall(1))     // all-in for 50
	require.NoError(t, he.CheckOrCall(2))     // call 100

	require.True(t, he.HandComplete())
	pots := he.Pots()
	require.Len(t, pots, 2)
	require.Equal(t, 150, pots[0].Amount)
	require.ElementsMatch(t, []int{0, 1, 2}, pots[0].Eligible)
	require.Equal(t, 100, pots[1].Amount)
	require.ElementsMatch(t, []int{0, 2}, pots[1].Eligible)

	winners := he.Winners()
	require.Equal(t, []int{1}, winners[0], "aces take the main pot")
	require.Equal(t, []int{2}, winners[1], "kings take the side pot")

	st := he.GameState()
	require.Equal(t, []int{0, 150, 200}, st.Stacks)
}

func TestSplitPotOddChipLeftOfButton(t *testing.T) {
	// Royal flush on the board: every live hand plays the board.
	deck := riggedDeck(t,
		[][]string{{"2h", "3h"}, {"4d", "6d"}, {"7h", "8d"}, {"9h", "2d"}},
		[]string{"As", "Ks", "Qs", "Js", "Ts"},
	)
	he, err := newEngine(engine.Config{
		PlayerCount: 4,
		Stacks:      []int{100, 100, 100, 100},
		SmallBlind:  1,
		BigBlind:    2,
		ButtonIndex: 0,
	}, deck)
	require.NoError(t, err)

	require.NoError(t, he.CheckOrCall(3)) // UTG calls
	require.NoError(t, he.CheckOrCall(0))
	require.NoError(t, he.Fold(1)) // small blind folds its chip in
	require.NoError(t, he.CheckOrCall(2))

	for !he.HandComplete() {
		require.NoError(t, he.CheckOrCall(he.GameState().ActorIndex))
	}

	st := he.GameState()
	// Pot of 7 splits three ways; the extra chip lands closest to the
	// button's left.
	require.Equal(t, 100, st.Stacks[0])
	require.Equal(t, 99, st.Stacks[1])
	require.Equal(t, 101, st.Stacks[2])
	require.Equal(t, 100, st.Stacks[3])
}

func TestValidationDoesNotMutate(t *testing.T) {
	he, err := testFactory(t).New(headsUpConfig())
	require.NoError(t, err)

	before, err := he.Serialize()
	require.NoError(t, err)

	require.True(t, engine.IsValidation(he.CheckOrCall(1)), "out of turn")
	require.True(t, engine.IsValidation(he.BetOrRaise(0, 5000)), "over stack")
	require.True(t, engine.IsValidation(he.BetOrRaise(0, 60)), "below min raise")

	after, err := he.Serialize()
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestLegalActionsAndRange(t *testing.T) {
	he, err := testFactory(t).New(headsUpConfig())
	require.NoError(t, err)

	require.Empty(t, he.LegalActions(1), "only the actor sees actions")
	acts := he.LegalActions(0)
	require.Contains(t, acts, engine.ActionFold)
	require.Contains(t, acts, engine.ActionCall)
	require.Contains(t, acts, engine.ActionRaise)

	r, ok := he.BettingRange(0)
	require.True(t, ok)
	require.Equal(t, 100, r.Min, "min raise-to is twice the big blind")
	require.Equal(t, 1000, r.Max)

	_, ok = he.BettingRange(1)
	require.False(t, ok)
}

func TestBlindAllInShortStack(t *testing.T) {
	// Big blind cannot cover the blind; posting puts it all-in.
	he, err := testFactory(t).New(engine.Config{
		PlayerCount: 2,
		Stacks:      []int{1000, 30},
		SmallBlind:  25,
		BigBlind:    50,
		ButtonIndex: 0,
	})
	require.NoError(t, err)

	require.NoError(t, he.CheckOrCall(0))
	st := he.GameState()
	require.True(t, he.HandComplete(), "calling an all-in blind runs the board")
	require.Len(t, st.BoardCards, 5)
	require.Equal(t, 1030, st.Stacks[0]+st.Stacks[1])
}
