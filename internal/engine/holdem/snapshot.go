package holdem

import (
	"encoding/json"

	"github.com/vantorre/pokertable/internal/engine"
)

// snapshot is the full wire form of an engine. It embeds the
// observable state and adds what is needed to resume play bit-for-bit:
// the remaining deck order and the betting-round internals.
type snapshot struct {
	engine.State
	Deck       []string `json:"deck"`
	MinRaise   int      `json:"min_raise"`
	LastRaiser int      `json:"last_raiser"`
	BBActed    bool     `json:"bb_acted"`
	Acted      []bool   `json:"acted"`
	CurrentBet int      `json:"current_bet"`
	PotsFinal  []engine.Pot `json:"pots_final,omitempty"`
	WinnerSets [][]int  `json:"winner_sets,omitempty"`
}

// Serialize writes the engine as JSON. Restore of the result yields an
// engine with identical observable state and identical future deals.
func (e *Engine) Serialize() ([]byte, error) {
	snap := snapshot{
		State:      e.GameState(),
		Deck:       cardStrings(e.deck),
		MinRaise:   e.betting.minRaise,
		LastRaiser: e.betting.lastRaiser,
		BBActed:    e.betting.bbActed,
		Acted:      append([]bool(nil), e.betting.acted...),
		CurrentBet: e.betting.currentBet,
	}
	if e.complete {
		snap.PotsFinal = e.pots
		snap.WinnerSets = make([][]int, len(e.pots))
		for idx := range e.pots {
			snap.WinnerSets[idx] = e.winners[idx]
		}
	}
	return json.Marshal(&snap)
}

func restore(raw []byte) (engine.HandEngine, error) {
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, engine.Corruptedf(err, "unmarshal")
	}
	if err := validateSnapshot(&snap); err != nil {
		return nil, err
	}

	e := &Engine{
		button:      snap.ButtonIndex,
		street:      engine.Street(snap.StreetIndex),
		actor:       snap.ActorIndex,
		complete:    snap.Complete,
		smallBlind:  snap.SmallBlind,
		bigBlind:    snap.BigBlind,
		variant:     snap.Variant,
		trueInitial: append([]int(nil), snap.TrueInitialStacks...),
		startStacks: append([]int(nil), snap.StartingStacks...),
	}

	var err error
	if e.board, err = parseCards(snap.BoardCards); err != nil {
		return nil, engine.Corruptedf(err, "board cards")
	}
	if e.deck, err = parseCards(snap.Deck); err != nil {
		return nil, engine.Corruptedf(err, "deck")
	}

	for i := 0; i < snap.PlayerCount; i++ {
		hole, herr := parseCards(snap.HoleCards[i])
		if herr != nil {
			return nil, engine.Corruptedf(herr, "hole cards player %d", i)
		}
		e.players = append(e.players, &player{
			stack:    snap.Stacks[i],
			hole:     hole,
			folded:   snap.Folded[i],
			allIn:    snap.AllIn[i],
			bet:      snap.Bets[i],
			totalBet: snap.TotalBets[i],
		})
	}

	e.betting = bettingRound{
		currentBet: snap.CurrentBet,
		minRaise:   snap.MinRaise,
		lastRaiser: snap.LastRaiser,
		bbActed:    snap.BBActed,
		acted:      append([]bool(nil), snap.Acted...),
		bigBlind:   snap.BigBlind,
	}
	if len(e.betting.acted) != len(e.players) {
		e.betting.acted = make([]bool, len(e.players))
	}

	if snap.Complete {
		e.pots = snap.PotsFinal
		e.winners = make(map[int][]int, len(snap.WinnerSets))
		for idx, w := range snap.WinnerSets {
			e.winners[idx] = w
		}
	}
	return e, nil
}

// validateSnapshot rejects snapshots that cannot belong to any
// reachable game: wrong slice arities, out-of-range indexes, or chip
// totals that no longer reconcile with the pre-blind stacks.
func validateSnapshot(snap *snapshot) error {
	n := snap.PlayerCount
	if n < 2 {
		return engine.Corruptedf(nil, "player count %d", n)
	}
	if len(snap.Stacks) != n || len(snap.Bets) != n || len(snap.TotalBets) != n ||
		len(snap.Folded) != n || len(snap.AllIn) != n || len(snap.HoleCards) != n ||
		len(snap.TrueInitialStacks) != n || len(snap.StartingStacks) != n {
		return engine.Corruptedf(nil, "player slice arity mismatch")
	}
	if snap.StreetIndex < int(engine.Preflop) || snap.StreetIndex > int(engine.Showdown) {
		return engine.Corruptedf(nil, "street index %d", snap.StreetIndex)
	}
	if snap.ButtonIndex < 0 || snap.ButtonIndex >= n {
		return engine.Corruptedf(nil, "button index %d", snap.ButtonIndex)
	}
	if snap.ActorIndex < -1 || snap.ActorIndex >= n {
		return engine.Corruptedf(nil, "actor index %d", snap.ActorIndex)
	}
	if snap.SmallBlind <= 0 || snap.BigBlind < snap.SmallBlind {
		return engine.Corruptedf(nil, "blinds %d/%d", snap.SmallBlind, snap.BigBlind)
	}
	for i, hc := range snap.HoleCards {
		if len(hc) != 2 {
			return engine.Corruptedf(nil, "player %d has %d hole cards", i, len(hc))
		}
	}
	wantBoard := [...]int{0, 3, 4, 5, 5}[snap.StreetIndex]
	if !snap.Complete && len(snap.BoardCards) != wantBoard {
		return engine.Corruptedf(nil, "board has %d cards on %s", len(snap.BoardCards), engine.Street(snap.StreetIndex))
	}

	// Chip conservation: in-flight hands keep chips split between
	// stacks and committed bets; completed hands have paid pots back.
	trueTotal, stackTotal, committed := 0, 0, 0
	for i := 0; i < n; i++ {
		if snap.Stacks[i] < 0 || snap.TotalBets[i] < 0 || snap.Bets[i] < 0 || snap.Bets[i] > snap.TotalBets[i] {
			return engine.Corruptedf(nil, "negative or inconsistent chips for player %d", i)
		}
		trueTotal += snap.TrueInitialStacks[i]
		stackTotal += snap.Stacks[i]
		committed += snap.TotalBets[i]
	}
	if snap.Complete {
		if stackTotal != trueTotal {
			return engine.Corruptedf(nil, "settled stacks %d != initial total %d", stackTotal, trueTotal)
		}
	} else if stackTotal+committed != trueTotal {
		return engine.Corruptedf(nil, "chips in play %d != initial total %d", stackTotal+committed, trueTotal)
	}
	return nil
}
