package tablerun

import (
	"context"
	"fmt"
	"sync"

	"github.com/vantorre/pokertable/internal/domain"
	"github.com/vantorre/pokertable/internal/engine"
	"github.com/vantorre/pokertable/internal/store"
	"github.com/vantorre/pokertable/pkg/tabledto"
)

// TableRuntime is the in-process live object for one table: the
// refreshed table row and seat snapshot. Hand state is never cached
// here; each operation restores its own engine from the persisted
// snapshot and renders views from that local instance, so lock-free
// readers cannot disturb a locked mutation's result.
type TableRuntime struct {
	tableID int64

	mu    sync.Mutex
	table *domain.Table
	seats []domain.Seat
}

func newTableRuntime(tableID int64) *TableRuntime {
	return &TableRuntime{tableID: tableID}
}

// refresh re-reads table and seat rows. Joins, leaves and position
// changes replace the cached seat list.
func (rt *TableRuntime) refresh(ctx context.Context, gw store.Gateway) error {
	table, err := gw.Table(ctx, rt.tableID)
	if err != nil {
		return fmt.Errorf("refresh table %d: %w", rt.tableID, err)
	}
	seats, err := gw.ActiveSeats(ctx, rt.tableID)
	if err != nil {
		return fmt.Errorf("refresh seats for table %d: %w", rt.tableID, err)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.table = table
	rt.seats = seats
	return nil
}

// Table returns the last refreshed table row.
func (rt *TableRuntime) Table() domain.Table {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return *rt.table
}

// SeatCount returns the number of active seats as of the last refresh.
func (rt *TableRuntime) SeatCount() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.seats)
}

// dealIn picks the seats participating in the next hand: active, not
// sitting out, with chips behind; ordered by position.
func (rt *TableRuntime) dealIn() []domain.Seat {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var in []domain.Seat
	for _, s := range rt.seats {
		if s.SitOutNext || s.Stack <= 0 {
			continue
		}
		in = append(in, s)
	}
	return in
}

// playerIndex resolves a user id to the hand's player index through
// the mapping persisted on the hand row.
func playerIndex(h *domain.Hand, userID int64) (int, bool) {
	for i, id := range h.SeatUserIDs {
		if id == userID {
			return i, true
		}
	}
	return -1, false
}

// mapUserIDs converts player indexes to user ids via the hand mapping.
func mapUserIDs(players []int64, indexes []int) []int64 {
	out := make([]int64, 0, len(indexes))
	for _, i := range indexes {
		if i >= 0 && i < len(players) {
			out = append(out, players[i])
		}
	}
	return out
}

// BroadcastViewer requests a view with no private cards but with the
// actor's allowed actions attached, suitable for a shared channel.
const BroadcastViewer int64 = 0

// render builds the viewer-scoped state from the calling operation's
// own hand row and engine instance. Hole cards show only for the
// viewer's own seat; allowed actions attach when the viewer is the
// actor or the view is a broadcast. h and eng may be nil for an idle
// table.
func (rt *TableRuntime) render(viewerID int64, h *domain.Hand, eng engine.HandEngine) *tabledto.StateView {
	rt.mu.Lock()
	status := string(rt.table.Status)
	rt.mu.Unlock()

	sv := &tabledto.StateView{
		TableID:     rt.tableID,
		TableStatus: status,
	}
	if h == nil || eng == nil {
		return sv
	}

	st := eng.GameState()
	players := h.SeatUserIDs
	sv.HandID = h.ID
	sv.HandNo = h.HandNo
	sv.Street = st.Status
	sv.Complete = st.Complete
	sv.Board = st.BoardCards

	for i := 0; i < st.PlayerCount; i++ {
		pv := tabledto.PlayerView{
			UserID: players[i],
			Index:  i,
			Stack:  st.Stacks[i],
			Bet:    st.Bets[i],
			Folded: st.Folded[i],
			AllIn:  st.AllIn[i],
		}
		if viewerID != BroadcastViewer && viewerID == players[i] {
			pv.HoleCards = st.HoleCards[i]
		}
		sv.Players = append(sv.Players, pv)
	}

	for idx, p := range st.Pots {
		sv.Pots = append(sv.Pots, tabledto.PotView{
			Index:    idx,
			Amount:   p.Amount,
			Eligible: mapUserIDs(players, p.Eligible),
		})
	}

	if st.ActorIndex >= 0 {
		actorUser := players[st.ActorIndex]
		sv.ActorUserID = actorUser
		if viewerID == BroadcastViewer || viewerID == actorUser {
			for _, a := range eng.LegalActions(st.ActorIndex) {
				sv.AllowedActions = append(sv.AllowedActions, string(a))
			}
			if r, ok := eng.BettingRange(st.ActorIndex); ok {
				sv.BettingRange = &tabledto.RangeView{Min: r.Min, Max: r.Max}
			}
		}
	}

	if st.Complete {
		sv.Winners = make(map[int][]int64)
		for idx, winners := range eng.Winners() {
			sv.Winners[idx] = mapUserIDs(players, winners)
		}
	}
	return sv
}
