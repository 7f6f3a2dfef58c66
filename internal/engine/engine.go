package engine

import (
	"errors"
	"fmt"
)

// Variant selects the rule set for a hand.
type Variant string

const (
	NoLimitHoldem Variant = "NLHE"
)

// Street indexes the betting rounds in deal order.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	switch s {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	}
	return "unknown"
}

// ActionType is a normalized player action accepted by the adapter.
type ActionType string

const (
	ActionFold  ActionType = "FOLD"
	ActionCheck ActionType = "CHECK"
	ActionCall  ActionType = "CALL"
	ActionBet   ActionType = "BET"
	ActionRaise ActionType = "RAISE"
	ActionAllIn ActionType = "ALL_IN"
)

// Config constructs a fresh engine for one hand.
type Config struct {
	PlayerCount int
	Stacks      []int // per player index, before blinds are posted
	SmallBlind  int
	BigBlind    int
	ButtonIndex int
	Variant     Variant
}

// Pot is a main or side pot as reported by the engine.
type Pot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"` // player indexes
}

// State is the observable game state of an engine. It doubles as the
// stable part of the serialization contract: two engines with equal
// State are interchangeable from the players' point of view.
type State struct {
	PlayerCount       int      `json:"player_count"`
	StartingStacks    []int    `json:"starting_stacks"` // post-blind bookkeeping baseline
	TrueInitialStacks []int    `json:"true_initial_stacks"`
	SmallBlind        int      `json:"small_blind"`
	BigBlind          int      `json:"big_blind"`
	Variant           Variant  `json:"variant"`
	Stacks            []int    `json:"stacks"`
	Bets              []int    `json:"bets"`
	TotalBets         []int    `json:"total_bets"`
	Folded            []bool   `json:"folded"`
	AllIn             []bool   `json:"all_in"`
	HoleCards         [][]string `json:"hole_cards"`
	BoardCards        []string `json:"board_cards"`
	ButtonIndex       int      `json:"button_index"`
	StreetIndex       int      `json:"street_index"`
	ActorIndex        int      `json:"actor_index"` // -1 when no player is to act
	Pots              []Pot    `json:"pots"`
	Status            string   `json:"status"` // street name, or "complete"
	Complete          bool     `json:"complete"`
}

// BettingRange bounds a legal bet-or-raise. Amounts are raise-to
// totals for the street, not increments.
type BettingRange struct {
	Min int
	Max int
}

// HandEngine drives one hand of poker. Mutating calls either return
// nil and advance the game or return a *ValidationError and leave the
// engine untouched. Implementations are not safe for concurrent use;
// callers serialize access externally.
type HandEngine interface {
	Fold(player int) error
	CheckOrCall(player int) error
	BetOrRaise(player int, amount int) error

	GameState() State
	LegalActions(player int) []ActionType
	BettingRange(player int) (BettingRange, bool)
	HandComplete() bool
	// Winners maps pot index to winning player indexes. Only valid
	// once HandComplete reports true.
	Winners() map[int][]int
	Pots() []Pot

	Serialize() ([]byte, error)
}

// Factory creates and restores engines. The concrete rules binding is
// one implementation; tests may supply deterministic doubles.
type Factory interface {
	New(cfg Config) (HandEngine, error)
	Restore(raw []byte) (HandEngine, error)
}

// ValidationError rejects an illegal action without mutating engine
// state: wrong actor, action not available, bad amount.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid action: " + e.Reason }

// Validationf builds a *ValidationError with a formatted reason.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// CorruptedStateError marks a snapshot that cannot be restored into a
// sane engine. Callers recover by aborting the offending hand.
type CorruptedStateError struct {
	Detail string
	Err    error
}

func (e *CorruptedStateError) Error() string {
	if e.Err != nil {
		return "corrupted engine snapshot: " + e.Detail + ": " + e.Err.Error()
	}
	return "corrupted engine snapshot: " + e.Detail
}

func (e *CorruptedStateError) Unwrap() error { return e.Err }

// Corruptedf builds a *CorruptedStateError wrapping err.
func Corruptedf(err error, format string, args ...any) error {
	return &CorruptedStateError{Detail: fmt.Sprintf(format, args...), Err: err}
}

// IsValidation reports whether err is an action rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCorrupted reports whether err marks an unrecoverable snapshot.
func IsCorrupted(err error) bool {
	var ce *CorruptedStateError
	return errors.As(err, &ce)
}
