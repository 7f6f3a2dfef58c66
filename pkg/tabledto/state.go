package tabledto

// PlayerView is one hand participant as seen by a particular viewer.
// HoleCards is populated only for the viewer's own seat.
type PlayerView struct {
	UserID    int64    `json:"user_id"`
	Index     int      `json:"index"` // player index within the hand
	Stack     int      `json:"stack"`
	Bet       int      `json:"bet"`
	Folded    bool     `json:"folded"`
	AllIn     bool     `json:"all_in"`
	HoleCards []string `json:"hole_cards,omitempty"`
}

// PotView is a main or side pot keyed by eligible user ids.
type PotView struct {
	Index    int     `json:"index"`
	Amount   int     `json:"amount"`
	Eligible []int64 `json:"eligible"`
}

// RangeView bounds a legal bet or raise for the actor.
type RangeView struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// StateView is the externally visible state of a table. AllowedActions
// is populated only when the viewer is the current actor or the view
// is a broadcast, so actionable controls never leak to other players.
type StateView struct {
	TableID     int64  `json:"table_id"`
	TableStatus string `json:"table_status"`

	HandID   int64  `json:"hand_id,omitempty"`
	HandNo   int    `json:"hand_no,omitempty"`
	Street   string `json:"street,omitempty"`
	Complete bool   `json:"complete,omitempty"`

	Board   []string     `json:"board,omitempty"`
	Pots    []PotView    `json:"pots,omitempty"`
	Players []PlayerView `json:"players,omitempty"`

	ActorUserID    int64      `json:"actor_user_id,omitempty"`
	AllowedActions []string   `json:"allowed_actions,omitempty"`
	BettingRange   *RangeView `json:"betting_range,omitempty"`

	Winners map[int][]int64 `json:"winners,omitempty"` // pot index -> user ids
}
