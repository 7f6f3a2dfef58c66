package holdem

import (
	"sort"

	"github.com/paulhankin/poker"

	"github.com/vantorre/pokertable/internal/engine"
)

// finish settles the hand: freezes pots, determines winners per pot,
// and pays stacks. Reached via fold-out, river betting close, or all-in
// runout. Chips are conserved: after payout the stacks sum to the
// pre-blind totals.
func (e *Engine) finish() {
	if e.complete {
		return
	}
	e.pots = computePots(e.players)
	e.winners = make(map[int][]int, len(e.pots))

	for idx, pot := range e.pots {
		winners := e.potWinners(pot)
		e.winners[idx] = winners
		e.payout(pot.Amount, winners)
	}

	for _, p := range e.players {
		p.bet = 0
	}
	e.actor = -1
	e.complete = true
}

// potWinners picks the best hand among the pot's eligible players.
// A sole eligible player wins outright (covers fold-outs and uncalled
// bet layers) without revealing cards.
func (e *Engine) potWinners(pot engine.Pot) []int {
	if len(pot.Eligible) == 1 {
		return append([]int(nil), pot.Eligible...)
	}

	best := int16(-1)
	var winners []int
	for _, pi := range pot.Eligible {
		p := e.players[pi]
		if p.folded {
			continue
		}
		score := e.score7(p.hole)
		if score > best {
			best = score
			winners = []int{pi}
		} else if score == best {
			winners = append(winners, pi)
		}
	}
	return winners
}

func (e *Engine) score7(hole []card) int16 {
	var hand [7]poker.Card
	for i, c := range e.board {
		ec, err := c.evalCard()
		if err != nil {
			return -1
		}
		hand[i] = ec
	}
	for i, c := range hole {
		ec, err := c.evalCard()
		if err != nil {
			return -1
		}
		hand[5+i] = ec
	}
	return poker.Eval7(&hand)
}

// payout splits amount evenly among winners. Odd chips go to winners
// closest to the left of the button, the standard live tie-break.
func (e *Engine) payout(amount int, winners []int) {
	if amount == 0 || len(winners) == 0 {
		return
	}
	share := amount / len(winners)
	remainder := amount % len(winners)

	ordered := append([]int(nil), winners...)
	n := len(e.players)
	fromButton := func(pi int) int { return ((pi - e.button - 1) % n + n) % n }
	sort.Slice(ordered, func(i, j int) bool {
		return fromButton(ordered[i]) < fromButton(ordered[j])
	})

	for i, pi := range ordered {
		win := share
		if i < remainder {
			win++
		}
		e.players[pi].stack += win
	}
}
