package holdem

// bettingRound holds the mutable state of one betting street.
type bettingRound struct {
	currentBet int
	minRaise   int
	lastRaiser int // player index, -1 when nobody has raised
	bbActed    bool
	acted      []bool
	bigBlind   int
}

func newBettingRound(numPlayers, bigBlind int) bettingRound {
	return bettingRound{
		minRaise:   bigBlind,
		lastRaiser: -1,
		acted:      make([]bool, numPlayers),
		bigBlind:   bigBlind,
	}
}

func (br *bettingRound) reset(numPlayers int) {
	br.currentBet = 0
	br.minRaise = br.bigBlind
	br.lastRaiser = -1
	br.acted = make([]bool, numPlayers)
	// bbActed survives street changes; it only matters preflop.
}

func (br *bettingRound) markActed(player int) {
	if player >= 0 && player < len(br.acted) {
		br.acted[player] = true
	}
}

// reopen clears acted flags after a raise so everyone must respond.
func (br *bettingRound) reopen(raiser int) {
	for i := range br.acted {
		br.acted[i] = false
	}
	br.markActed(raiser)
}

// complete reports whether the current betting round is closed: every
// live player has matched the current bet and has acted, and preflop
// the big blind has exercised its option.
func (br *bettingRound) complete(players []*player, street int, button int) bool {
	active := 0
	for _, p := range players {
		if !p.folded && !p.allIn {
			active++
		}
	}

	if active == 0 {
		return true
	}
	if active == 1 {
		for _, p := range players {
			if !p.folded && !p.allIn {
				return p.bet == br.currentBet
			}
		}
	}

	for i, p := range players {
		if p.folded || p.allIn {
			continue
		}
		if p.bet != br.currentBet || !br.acted[i] {
			return false
		}
	}

	// Preflop the big blind keeps the option to raise an unraised pot.
	if street == 0 {
		bbPos := bigBlindPos(len(players), button)
		bb := players[bbPos]
		if br.lastRaiser == -1 && !bb.folded && !bb.allIn && !br.bbActed {
			return false
		}
	}
	return true
}

func smallBlindPos(numPlayers, button int) int {
	if numPlayers == 2 {
		// Heads-up the button posts the small blind.
		return button
	}
	return (button + 1) % numPlayers
}

func bigBlindPos(numPlayers, button int) int {
	if numPlayers == 2 {
		return (button + 1) % numPlayers
	}
	return (button + 2) % numPlayers
}
