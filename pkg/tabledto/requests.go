package tabledto

// ActionRequest is the wire form of a player action.
type ActionRequest struct {
	UserID int64  `json:"user_id"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// CreateTableRequest opens a new table from a named template.
type CreateTableRequest struct {
	Template   string `json:"template"`
	Public     bool   `json:"public"`
	Persistent bool   `json:"persistent"`
	CreatorID  int64  `json:"creator_id"`
}

// CreateTableResponse reports the id of a freshly created table.
type CreateTableResponse struct {
	TableID int64 `json:"table_id"`
}

// SeatRequest joins or leaves a table seat.
type SeatRequest struct {
	UserID int64 `json:"user_id"`
}

// ErrorResponse is the wire form of a rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
