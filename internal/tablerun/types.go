package tablerun

// Errors surfaced by the runtime manager.
var (
	// ErrLockTimeout means the table's distributed lock could not be
	// acquired within the bounded timeout. Transient; callers retry.
	ErrLockTimeout = runErr("table lock acquisition timed out")

	// ErrNoHand means an action arrived while no hand is in progress.
	ErrNoHand = runErr("no hand in progress")

	// ErrNotEnoughPlayers means a hand cannot start with fewer than
	// two dealt-in players.
	ErrNotEnoughPlayers = runErr("not enough players to start a hand")
)

type runErr string

func (e runErr) Error() string { return string(e) }
