package holdem

import (
	"math/rand"
	"time"

	"github.com/vantorre/pokertable/internal/engine"
)

// player is the per-seat hand state.
type player struct {
	stack    int
	hole     []card
	folded   bool
	allIn    bool
	bet      int // chips committed this street
	totalBet int // chips committed this hand
}

func (p *player) chipsTotal() int { return p.stack + p.bet }

// Engine is a no-limit holdem hand. It implements engine.HandEngine.
// All exported mutating methods validate the actor and either apply
// fully or leave the state untouched.
type Engine struct {
	players     []*player
	button      int
	street      engine.Street
	board       []card
	deck        []card
	betting     bettingRound
	actor       int
	complete    bool
	smallBlind  int
	bigBlind    int
	variant     engine.Variant
	trueInitial []int // stacks before blinds were posted
	startStacks []int // stacks after blinds, the engine's own baseline
	pots        []engine.Pot
	winners     map[int][]int
}

// Factory builds and restores holdem engines. Rand may be injected for
// deterministic deals; a nil Rand is seeded from the clock per hand.
type Factory struct {
	Rand *rand.Rand
}

var _ engine.Factory = (*Factory)(nil)

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) rng() *rand.Rand {
	if f != nil && f.Rand != nil {
		return f.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// New deals a fresh hand from cfg.
func (f *Factory) New(cfg engine.Config) (engine.HandEngine, error) {
	return newEngine(cfg, shuffledDeck(f.rng()))
}

// Restore rebuilds an engine from a serialized snapshot.
func (f *Factory) Restore(raw []byte) (engine.HandEngine, error) {
	return restore(raw)
}

func newEngine(cfg engine.Config, deck []card) (*Engine, error) {
	if cfg.Variant != "" && cfg.Variant != engine.NoLimitHoldem {
		return nil, engine.Validationf("unsupported variant %q", cfg.Variant)
	}
	if cfg.PlayerCount < 2 {
		return nil, engine.Validationf("need at least 2 players, got %d", cfg.PlayerCount)
	}
	if len(cfg.Stacks) != cfg.PlayerCount {
		return nil, engine.Validationf("stack count %d != player count %d", len(cfg.Stacks), cfg.PlayerCount)
	}
	if cfg.SmallBlind <= 0 || cfg.BigBlind < cfg.SmallBlind {
		return nil, engine.Validationf("bad blinds %d/%d", cfg.SmallBlind, cfg.BigBlind)
	}
	if cfg.ButtonIndex < 0 || cfg.ButtonIndex >= cfg.PlayerCount {
		return nil, engine.Validationf("button index %d out of range", cfg.ButtonIndex)
	}
	for i, s := range cfg.Stacks {
		if s <= 0 {
			return nil, engine.Validationf("player %d has no chips", i)
		}
	}

	e := &Engine{
		button:     cfg.ButtonIndex,
		street:     engine.Preflop,
		deck:       deck,
		betting:    newBettingRound(cfg.PlayerCount, cfg.BigBlind),
		smallBlind: cfg.SmallBlind,
		bigBlind:   cfg.BigBlind,
		variant:    engine.NoLimitHoldem,
	}
	e.trueInitial = append([]int(nil), cfg.Stacks...)
	for _, s := range cfg.Stacks {
		e.players = append(e.players, &player{stack: s})
	}

	e.postBlinds()
	e.startStacks = make([]int, len(e.players))
	for i, p := range e.players {
		e.startStacks[i] = p.stack
	}
	e.dealHoleCards()

	e.actor = e.nextActive(bigBlindPos(len(e.players), e.button) + 1)
	if e.actor == -1 || e.betting.complete(e.players, int(e.street), e.button) {
		// Blinds put everyone all-in; run the board out immediately.
		e.advanceStreet()
	}
	return e, nil
}

func (e *Engine) postBlinds() {
	n := len(e.players)
	sb := e.players[smallBlindPos(n, e.button)]
	bb := e.players[bigBlindPos(n, e.button)]

	post := func(p *player, amount int) {
		if amount > p.stack {
			amount = p.stack
		}
		p.bet = amount
		p.totalBet = amount
		p.stack -= amount
		if p.stack == 0 {
			p.allIn = true
		}
	}
	post(sb, e.smallBlind)
	post(bb, e.bigBlind)
	e.betting.currentBet = e.bigBlind
}

func (e *Engine) dealHoleCards() {
	for _, p := range e.players {
		p.hole = []card{e.draw(), e.draw()}
	}
}

func (e *Engine) draw() card {
	c := e.deck[0]
	e.deck = e.deck[1:]
	return c
}

func (e *Engine) requireTurn(player int) error {
	if e.complete {
		return engine.Validationf("hand is complete")
	}
	if player < 0 || player >= len(e.players) {
		return engine.Validationf("player index %d out of range", player)
	}
	if player != e.actor {
		return engine.Validationf("not player %d's turn", player)
	}
	return nil
}

// Fold folds the acting player. If only one player remains the hand
// ends immediately without dealing further board cards.
func (e *Engine) Fold(pi int) error {
	if err := e.requireTurn(pi); err != nil {
		return err
	}
	p := e.players[pi]
	p.folded = true
	if e.betting.lastRaiser == pi {
		e.betting.lastRaiser = -1
	}
	e.afterAction(pi)
	return nil
}

// CheckOrCall checks when nothing is owed, otherwise calls up to the
// player's remaining stack.
func (e *Engine) CheckOrCall(pi int) error {
	if err := e.requireTurn(pi); err != nil {
		return err
	}
	p := e.players[pi]
	toCall := e.betting.currentBet - p.bet
	if toCall > 0 {
		if toCall > p.stack {
			toCall = p.stack
		}
		p.bet += toCall
		p.totalBet += toCall
		p.stack -= toCall
		if p.stack == 0 {
			p.allIn = true
		}
	}
	e.afterAction(pi)
	return nil
}

// BetOrRaise commits chips so the player's street total becomes amount.
// An amount equal to the player's entire chips is always legal (all-in);
// otherwise it must be a full bet or raise.
func (e *Engine) BetOrRaise(pi int, amount int) error {
	if err := e.requireTurn(pi); err != nil {
		return err
	}
	p := e.players[pi]
	total := p.chipsTotal()
	if amount <= 0 {
		return engine.Validationf("bet amount must be positive")
	}
	if amount > total {
		return engine.Validationf("insufficient chips: have %d, bet %d", total, amount)
	}
	if amount < total {
		if amount <= e.betting.currentBet {
			return engine.Validationf("bet %d does not exceed current bet %d", amount, e.betting.currentBet)
		}
		min := e.betting.currentBet + e.betting.minRaise
		if e.betting.currentBet == 0 && e.betting.minRaise < e.bigBlind {
			min = e.bigBlind
		}
		if amount < min {
			return engine.Validationf("raise too small, minimum %d", min)
		}
	}

	delta := amount - p.bet
	if delta < 0 {
		return engine.Validationf("bet %d below current street commitment %d", amount, p.bet)
	}
	p.stack -= delta
	p.bet = amount
	p.totalBet += delta
	if p.stack == 0 {
		p.allIn = true
	}
	if amount > e.betting.currentBet {
		e.betting.minRaise = amount - e.betting.currentBet
		e.betting.currentBet = amount
		e.betting.lastRaiser = pi
		e.betting.reopen(pi)
	}
	e.afterAction(pi)
	return nil
}

func (e *Engine) afterAction(pi int) {
	e.betting.markActed(pi)
	if e.street == engine.Preflop && pi == bigBlindPos(len(e.players), e.button) {
		e.betting.bbActed = true
	}

	if e.liveCount() <= 1 {
		e.finish()
		return
	}

	e.actor = e.nextActive(pi + 1)
	if e.actor == -1 || e.betting.complete(e.players, int(e.street), e.button) {
		e.advanceStreet()
	}
}

func (e *Engine) liveCount() int {
	n := 0
	for _, p := range e.players {
		if !p.folded {
			n++
		}
	}
	return n
}

// nextActive returns the first player at or after from (mod n) who can
// still act, or -1 when everyone is folded or all-in.
func (e *Engine) nextActive(from int) int {
	n := len(e.players)
	for i := 0; i < n; i++ {
		pos := ((from + i) % n + n) % n
		if !e.players[pos].folded && !e.players[pos].allIn {
			return pos
		}
	}
	return -1
}

// advanceStreet closes the current betting round, deals the next board
// cards, and fast-forwards through further streets when no betting is
// possible (all remaining contested players all-in).
func (e *Engine) advanceStreet() {
	for _, p := range e.players {
		p.bet = 0
	}
	e.betting.reset(len(e.players))

	switch e.street {
	case engine.Preflop:
		e.street = engine.Flop
		e.board = append(e.board, e.draw(), e.draw(), e.draw())
	case engine.Flop:
		e.street = engine.Turn
		e.board = append(e.board, e.draw())
	case engine.Turn:
		e.street = engine.River
		e.board = append(e.board, e.draw())
	case engine.River:
		e.street = engine.Showdown
		e.finish()
		return
	default:
		return
	}

	// Betting needs at least two players who can still act; otherwise
	// deal the remaining streets without waiting for input.
	canAct := 0
	for _, p := range e.players {
		if !p.folded && !p.allIn {
			canAct++
		}
	}
	if canAct < 2 {
		e.actor = -1
		e.advanceStreet()
		return
	}
	e.actor = e.nextActive(e.button + 1)
}

// GameState returns the observable state.
func (e *Engine) GameState() engine.State {
	st := engine.State{
		PlayerCount:       len(e.players),
		StartingStacks:    append([]int(nil), e.startStacks...),
		TrueInitialStacks: append([]int(nil), e.trueInitial...),
		SmallBlind:        e.smallBlind,
		BigBlind:          e.bigBlind,
		Variant:           e.variant,
		BoardCards:        cardStrings(e.board),
		ButtonIndex:       e.button,
		StreetIndex:       int(e.street),
		ActorIndex:        e.actor,
		Pots:              e.Pots(),
		Complete:          e.complete,
	}
	if e.complete {
		st.Status = "complete"
	} else {
		st.Status = e.street.String()
	}
	for _, p := range e.players {
		st.Stacks = append(st.Stacks, p.stack)
		st.Bets = append(st.Bets, p.bet)
		st.TotalBets = append(st.TotalBets, p.totalBet)
		st.Folded = append(st.Folded, p.folded)
		st.AllIn = append(st.AllIn, p.allIn)
		st.HoleCards = append(st.HoleCards, cardStrings(p.hole))
	}
	return st
}

// LegalActions lists what the player may do right now. Empty unless it
// is that player's turn.
func (e *Engine) LegalActions(pi int) []engine.ActionType {
	if e.complete || pi != e.actor || pi < 0 || pi >= len(e.players) {
		return nil
	}
	p := e.players[pi]
	toCall := e.betting.currentBet - p.bet
	actions := []engine.ActionType{engine.ActionFold}

	if toCall <= 0 {
		actions = append(actions, engine.ActionCheck)
		if p.stack > 0 {
			if e.betting.currentBet == 0 {
				actions = append(actions, engine.ActionBet)
			} else {
				actions = append(actions, engine.ActionRaise)
			}
			actions = append(actions, engine.ActionAllIn)
		}
	} else {
		actions = append(actions, engine.ActionCall)
		if p.stack > toCall {
			actions = append(actions, engine.ActionRaise)
		}
		actions = append(actions, engine.ActionAllIn)
	}
	return actions
}

// BettingRange returns the legal raise-to bounds for the player, or
// ok=false when the player cannot bet or raise.
func (e *Engine) BettingRange(pi int) (engine.BettingRange, bool) {
	if e.complete || pi != e.actor || pi < 0 || pi >= len(e.players) {
		return engine.BettingRange{}, false
	}
	p := e.players[pi]
	total := p.chipsTotal()
	if total <= e.betting.currentBet {
		return engine.BettingRange{}, false
	}
	min := e.betting.currentBet + e.betting.minRaise
	if e.betting.currentBet == 0 {
		min = e.bigBlind
	}
	if min > total {
		min = total
	}
	return engine.BettingRange{Min: min, Max: total}, true
}

// HandComplete reports whether the hand has been resolved.
func (e *Engine) HandComplete() bool { return e.complete }

// Pots returns the pot layering: the frozen settlement once the hand
// completes, otherwise a live view including current street bets.
func (e *Engine) Pots() []engine.Pot {
	if e.complete {
		return e.pots
	}
	return computePots(e.players)
}

// Winners maps pot index to winning player indexes. Nil until the hand
// completes.
func (e *Engine) Winners() map[int][]int {
	if !e.complete {
		return nil
	}
	return e.winners
}
