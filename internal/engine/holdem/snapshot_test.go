package holdem

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantorre/pokertable/internal/engine"
)

func TestSnapshotRoundTrip(t *testing.T) {
	f := &Factory{Rand: rand.New(rand.NewSource(7))}
	he, err := f.New(headsUpConfig())
	require.NoError(t, err)

	require.NoError(t, he.BetOrRaise(0, 150))
	require.NoError(t, he.CheckOrCall(1))

	raw, err := he.Serialize()
	require.NoError(t, err)
	restored, err := f.Restore(raw)
	require.NoError(t, err)

	require.Equal(t, he.GameState(), restored.GameState())

	// Future deals must match too: play both copies forward and the
	// runout has to be identical card for card.
	for _, e := range []engine.HandEngine{he, restored} {
		require.NoError(t, e.BetOrRaise(1, 850))
		require.NoError(t, e.CheckOrCall(0))
	}
	require.Equal(t, he.GameState(), restored.GameState())
	require.True(t, restored.HandComplete())
}

func TestSnapshotRoundTripCompleted(t *testing.T) {
	f := testFactory(t)
	he, err := f.New(headsUpConfig())
	require.NoError(t, err)
	require.NoError(t, he.Fold(0))

	raw, err := he.Serialize()
	require.NoError(t, err)
	restored, err := f.Restore(raw)
	require.NoError(t, err)
	require.True(t, restored.HandComplete())
	require.Equal(t, he.Winners(), restored.Winners())
	require.Equal(t, he.GameState(), restored.GameState())
}

func TestRestoreRejectsGarbage(t *testing.T) {
	f := testFactory(t)
	_, err := f.Restore([]byte("not json at all"))
	require.Error(t, err)
	require.True(t, engine.IsCorrupted(err))
}

func TestRestoreRejectsTamperedChips(t *testing.T) {
	f := testFactory(t)
	he, err := f.New(headsUpConfig())
	require.NoError(t, err)
	raw, err := he.Serialize()
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(raw, &snap))
	snap["stacks"] = []int{999999, 1000}
	tampered, err := json.Marshal(snap)
	require.NoError(t, err)

	_, err = f.Restore(tampered)
	require.True(t, engine.IsCorrupted(err), "chip conservation check must fire")
}

func TestRestoreRejectsBadCards(t *testing.T) {
	f := testFactory(t)
	he, err := f.New(headsUpConfig())
	require.NoError(t, err)
	raw, err := he.Serialize()
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(raw, &snap))
	snap["board_cards"] = []string{"Zz"}
	snap["street_index"] = 1
	tampered, err := json.Marshal(snap)
	require.NoError(t, err)

	_, err = f.Restore(tampered)
	require.True(t, engine.IsCorrupted(err))
}

func TestRestoreRejectsShortBoard(t *testing.T) {
	f := testFactory(t)
	he, err := f.New(headsUpConfig())
	require.NoError(t, err)
	raw, err := he.Serialize()
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(raw, &snap))
	snap["street_index"] = 3 // claims the turn with an empty board
	tampered, err := json.Marshal(snap)
	require.NoError(t, err)

	_, err = f.Restore(tampered)
	require.True(t, engine.IsCorrupted(err))
}

func TestChipConservationInvariant(t *testing.T) {
	// sum(final stacks) == sum(true initial stacks) across a hand with
	// blinds, raises, and a showdown.
	f := &Factory{Rand: rand.New(rand.NewSource(99))}
	he, err := f.New(engine.Config{
		PlayerCount: 3,
		Stacks:      []int{500, 700, 300},
		SmallBlind:  10,
		BigBlind:    20,
		ButtonIndex: 1,
	})
	require.NoError(t, err)

	for !he.HandComplete() {
		st := he.GameState()
		actor := st.ActorIndex
		require.GreaterOrEqual(t, actor, 0)
		if r, ok := he.BettingRange(actor); ok && st.StreetIndex == 0 {
			require.NoError(t, he.BetOrRaise(actor, r.Min))
		} else {
			require.NoError(t, he.CheckOrCall(actor))
		}
	}

	st := he.GameState()
	sum := 0
	for _, s := range st.Stacks {
		sum += s
	}
	require.Equal(t, 1500, sum)
	require.Equal(t, []int{500, 700, 300}, st.TrueInitialStacks)
}
