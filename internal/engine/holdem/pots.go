package holdem

import (
	"sort"

	"github.com/vantorre/pokertable/internal/engine"
)

// computePots derives main and side pots from total street contributions.
// Each distinct all-in total among live players creates a capped pot
// layer; anything above the highest cap forms the final pot. Folded
// players contribute to every layer they reached but are never eligible.
func computePots(players []*player) []engine.Pot {
	caps := make(map[int]bool)
	for _, p := range players {
		if p.allIn && !p.folded && p.totalBet > 0 {
			caps[p.totalBet] = true
		}
	}
	levels := make([]int, 0, len(caps))
	for amount := range caps {
		levels = append(levels, amount)
	}
	sort.Ints(levels)

	var pots []engine.Pot
	prev := 0
	for _, level := range levels {
		pot := engine.Pot{}
		for i, p := range players {
			chunk := p.totalBet - prev
			if chunk > level-prev {
				chunk = level - prev
			}
			if chunk > 0 {
				pot.Amount += chunk
			}
			if !p.folded && p.totalBet > prev {
				pot.Eligible = append(pot.Eligible, i)
			}
		}
		if pot.Amount > 0 && len(pot.Eligible) > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}

	top := engine.Pot{}
	for i, p := range players {
		if p.totalBet > prev {
			top.Amount += p.totalBet - prev
			if !p.folded {
				top.Eligible = append(top.Eligible, i)
			}
		}
	}
	if top.Amount > 0 && len(top.Eligible) > 0 {
		pots = append(pots, top)
	}

	if len(pots) == 0 {
		pots = []engine.Pot{{}}
	}
	return pots
}
