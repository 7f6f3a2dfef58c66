package domain

import "time"

// TableStatus represents a table lifecycle state.
type TableStatus string

const (
	TableWaiting TableStatus = "WAITING"
	TableActive  TableStatus = "ACTIVE"
	TablePaused  TableStatus = "PAUSED"
	TableEnded   TableStatus = "ENDED"
	TableExpired TableStatus = "EXPIRED"
)

// HandStatus represents a hand lifecycle state. A hand is terminal
// once it reaches ENDED or ABORTED.
type HandStatus string

const (
	HandPreflop  HandStatus = "PREFLOP"
	HandFlop     HandStatus = "FLOP"
	HandTurn     HandStatus = "TURN"
	HandRiver    HandStatus = "RIVER"
	HandShowdown HandStatus = "SHOWDOWN"
	HandEnded    HandStatus = "ENDED"
	HandAborted  HandStatus = "ABORTED"
)

// Terminal reports whether no further mutation of the hand is allowed.
func (s HandStatus) Terminal() bool {
	return s == HandEnded || s == HandAborted
}

// Table is a poker table row. Template names a preset in the template
// catalog; blinds and stack sizes are resolved through it.
type Table struct {
	ID          int64
	Status      TableStatus
	Template    string
	Public      bool
	Persistent  bool // auto-restarts between hands (returns to WAITING)
	CreatorID   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Seat binds a user to a table position. LeftAt is nil while the seat
// is active; leaving soft-deletes by stamping it. Seat rows are the
// authoritative source for player count and chip stacks.
type Seat struct {
	ID         int64
	TableID    int64
	UserID     int64
	Position   int
	Stack      int
	SitOutNext bool
	JoinedAt   time.Time
	LeftAt     *time.Time
}

// Hand is one deal of cards for a table. HandNo is strictly increasing
// per table starting at 1; an aborted hand still consumes a number.
// Snapshot is the fully serialized engine state. SeatUserIDs fixes the
// player-index→user-id mapping for the lifetime of the hand.
type Hand struct {
	ID          int64
	TableID     int64
	HandNo      int
	Status      HandStatus
	Snapshot    []byte
	SeatUserIDs []int64
	StartedAt   time.Time
	EndedAt     *time.Time
}

// Pot is a settled pot written once at hand completion. Index 0 is the
// main pot, 1+ are side pots.
type Pot struct {
	ID       int64
	HandID   int64
	Index    int
	Amount   int
	Eligible []int64 // user ids eligible for this pot
}
