package tablerun

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vantorre/pokertable/internal/domain"
	"github.com/vantorre/pokertable/internal/engine"
	"github.com/vantorre/pokertable/internal/obslog"
	"github.com/vantorre/pokertable/internal/store"
	"github.com/vantorre/pokertable/internal/tablelock"
	"github.com/vantorre/pokertable/internal/tabletmpl"
	"github.com/vantorre/pokertable/pkg/tabledto"
)

// releaseGrace bounds lock release after the caller's context died.
const releaseGrace = 3 * time.Second

// Manager is the process-local registry of table runtimes and the
// entry point for all table operations. Mutating operations hold the
// table's distributed lock for their whole critical section, and the
// transaction commits before the lock is released, so a second worker
// acquiring the lock always reads the committed outcome. Reads never
// block on the lock. One Manager is constructed per process with its
// collaborators injected.
type Manager struct {
	locks       *tablelock.Client
	factory     engine.Factory
	catalog     *tabletmpl.Catalog
	lockTimeout time.Duration

	mu       sync.Mutex
	runtimes map[int64]*TableRuntime
}

// NewManager wires a runtime manager. lockTimeout bounds blocking
// acquisitions for StartGame and HandleAction.
func NewManager(locks *tablelock.Client, factory engine.Factory, catalog *tabletmpl.Catalog, lockTimeout time.Duration) *Manager {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Manager{
		locks:       locks,
		factory:     factory,
		catalog:     catalog,
		lockTimeout: lockTimeout,
		runtimes:    make(map[int64]*TableRuntime),
	}
}

// EnsureTable returns the runtime for a table, refreshed against the
// gateway. Idempotent and lock-free: safe to call concurrently from
// many callers.
func (m *Manager) EnsureTable(ctx context.Context, gw store.Gateway, tableID int64) (*TableRuntime, error) {
	m.mu.Lock()
	rt, ok := m.runtimes[tableID]
	if !ok {
		rt = newTableRuntime(tableID)
		m.runtimes[tableID] = rt
	}
	m.mu.Unlock()

	if err := rt.refresh(ctx, gw); err != nil {
		return nil, err
	}
	return rt, nil
}

// withTableLock runs fn while holding the table's distributed lock.
// The lock is released on every exit path; release uses a fresh
// context so a cancelled caller cannot leave the table wedged until
// TTL expiry.
func (m *Manager) withTableLock(ctx context.Context, tableID int64, fn func() error) error {
	l := m.locks.TableLock(tableID)
	ok, err := l.Acquire(ctx, true, m.lockTimeout)
	if err != nil {
		return fmt.Errorf("table %d lock: %w", tableID, err)
	}
	if !ok {
		return ErrLockTimeout
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.Background(), releaseGrace)
		defer cancel()
		if rerr := l.Release(rctx); rerr != nil && !errors.Is(rerr, tablelock.ErrNotHeld) {
			obslog.L().Warn("table_lock_release_failed",
				zap.Int64("table_id", tableID), zap.Error(rerr))
		}
	}()
	return fn()
}

// StartGame begins a hand on the table, recovering first from any
// ghost hand whose snapshot no longer restores. If a valid hand is
// already running its state is returned unchanged. The transaction
// commits before the table lock is released.
func (m *Manager) StartGame(ctx context.Context, runner store.TxRunner, tableID int64) (*tabledto.StateView, error) {
	var view *tabledto.StateView
	err := m.withTableLock(ctx, tableID, func() error {
		return runner.InTx(ctx, func(gw store.Gateway) error {
			rt, err := m.EnsureTable(ctx, gw, tableID)
			if err != nil {
				return err
			}

			open, err := gw.OpenHand(ctx, tableID)
			if err != nil {
				return err
			}
			if open != nil {
				eng, rerr := m.factory.Restore(open.Snapshot)
				if rerr == nil {
					view = rt.render(BroadcastViewer, open, eng)
					return nil
				}
				// Ghost hand: the snapshot is unrecoverable. Abort it so
				// the table is never permanently stuck, then fall through
				// to dealing a fresh hand.
				obslog.L().Warn("ghost_hand_recovered",
					zap.Int64("table_id", tableID),
					zap.Int64("hand_id", open.ID),
					zap.Int("hand_no", open.HandNo),
					zap.Error(rerr),
				)
				if err := gw.MarkHandAborted(ctx, open.ID); err != nil {
					return fmt.Errorf("abort ghost hand %d: %w", open.ID, err)
				}
				if rt.Table().Persistent {
					if err := gw.UpdateTableStatus(ctx, tableID, domain.TableWaiting); err != nil {
						return err
					}
				}
				if err := rt.refresh(ctx, gw); err != nil {
					return err
				}
			}

			view, err = m.dealHand(ctx, gw, rt)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// dealHand creates the next hand row and a fresh engine from current
// seat stacks and the table template. Caller holds the table lock.
func (m *Manager) dealHand(ctx context.Context, gw store.Gateway, rt *TableRuntime) (*tabledto.StateView, error) {
	table := rt.Table()
	seats := rt.dealIn()
	if len(seats) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	tmpl, err := m.catalog.Get(table.Template)
	if err != nil {
		return nil, err
	}
	if len(seats) > tmpl.MaxPlayers {
		seats = seats[:tmpl.MaxPlayers]
	}

	maxNo, err := gw.MaxHandNo(ctx, rt.tableID)
	if err != nil {
		return nil, err
	}
	handNo := maxNo + 1

	stacks := make([]int, len(seats))
	userIDs := make([]int64, len(seats))
	for i, s := range seats {
		stacks[i] = s.Stack
		userIDs[i] = s.UserID
	}

	eng, err := m.factory.New(engine.Config{
		PlayerCount: len(seats),
		Stacks:      stacks,
		SmallBlind:  tmpl.SmallBlind,
		BigBlind:    tmpl.BigBlind,
		ButtonIndex: (handNo - 1) % len(seats),
		Variant:     engine.Variant(tmpl.Variant),
	})
	if err != nil {
		return nil, err
	}
	raw, err := eng.Serialize()
	if err != nil {
		return nil, err
	}

	hand := &domain.Hand{
		TableID:     rt.tableID,
		HandNo:      handNo,
		Status:      domain.HandPreflop,
		Snapshot:    raw,
		SeatUserIDs: userIDs,
		StartedAt:   time.Now(),
	}
	if err := gw.InsertHand(ctx, hand); err != nil {
		return nil, fmt.Errorf("insert hand %d for table %d: %w", handNo, rt.tableID, err)
	}
	if err := gw.UpdateTableStatus(ctx, rt.tableID, domain.TableActive); err != nil {
		return nil, err
	}

	obslog.L().Info("hand_start",
		zap.Int64("table_id", rt.tableID),
		zap.Int64("hand_id", hand.ID),
		zap.Int("hand_no", handNo),
		zap.Int("players", len(seats)),
	)

	// Blinds can put every short stack all-in, completing the hand
	// with no actions at all.
	if eng.HandComplete() {
		if err := m.settle(ctx, gw, rt, hand, eng); err != nil {
			return nil, err
		}
	}
	if err := rt.refresh(ctx, gw); err != nil {
		return nil, err
	}
	return rt.render(BroadcastViewer, hand, eng), nil
}

// HandleAction applies one player action under the table lock and
// persists the outcome; the transaction commits before the lock is
// released. Illegal actions are rejected without touching persisted
// state.
func (m *Manager) HandleAction(ctx context.Context, runner store.TxRunner, tableID, userID int64, action engine.ActionType, amount int) (*tabledto.StateView, error) {
	var view *tabledto.StateView
	err := m.withTableLock(ctx, tableID, func() error {
		return runner.InTx(ctx, func(gw store.Gateway) error {
			rt, err := m.EnsureTable(ctx, gw, tableID)
			if err != nil {
				return err
			}
			open, err := gw.OpenHand(ctx, tableID)
			if err != nil {
				return err
			}
			if open == nil {
				return ErrNoHand
			}

			eng, err := m.factory.Restore(open.Snapshot)
			if err != nil {
				// The stored snapshot is already unrecoverable; abort now
				// rather than bouncing every action until someone calls
				// StartGame.
				obslog.L().Error("hand_snapshot_corrupted",
					zap.Int64("table_id", tableID),
					zap.Int64("hand_id", open.ID),
					zap.Error(err),
				)
				if aerr := gw.MarkHandAborted(ctx, open.ID); aerr != nil {
					return aerr
				}
				return err
			}

			pi, seated := playerIndex(open, userID)
			if !seated {
				return engine.Validationf("user %d is not in this hand", userID)
			}

			if err := applyAction(eng, pi, action, amount); err != nil {
				if engine.IsValidation(err) {
					return err
				}
				// Unexpected engine failure: abort the in-flight hand so
				// the table stays recoverable instead of ambiguous.
				obslog.L().Error("hand_engine_failure",
					zap.Int64("table_id", tableID),
					zap.Int64("hand_id", open.ID),
					zap.Error(err),
				)
				if aerr := gw.MarkHandAborted(ctx, open.ID); aerr != nil {
					return aerr
				}
				return fmt.Errorf("engine failure on table %d: %w", tableID, err)
			}

			if eng.HandComplete() {
				if err := m.settle(ctx, gw, rt, open, eng); err != nil {
					return err
				}
			} else {
				raw, serr := eng.Serialize()
				if serr != nil {
					return serr
				}
				if err := gw.UpdateHandSnapshot(ctx, open.ID, handStatus(eng), raw); err != nil {
					return err
				}
			}

			obslog.L().Info("hand_action",
				zap.Int64("table_id", tableID),
				zap.Int64("hand_id", open.ID),
				zap.Int64("user_id", userID),
				zap.String("action", string(action)),
				zap.Int("amount", amount),
				zap.String("street", eng.GameState().Status),
				zap.Bool("complete", eng.HandComplete()),
			)

			view = rt.render(BroadcastViewer, open, eng)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// applyAction normalizes an external action onto the engine contract.
func applyAction(eng engine.HandEngine, pi int, action engine.ActionType, amount int) error {
	switch action {
	case engine.ActionFold:
		return eng.Fold(pi)
	case engine.ActionCheck, engine.ActionCall:
		return eng.CheckOrCall(pi)
	case engine.ActionBet, engine.ActionRaise:
		return eng.BetOrRaise(pi, amount)
	case engine.ActionAllIn:
		st := eng.GameState()
		if pi < 0 || pi >= st.PlayerCount {
			return engine.Validationf("player index %d out of range", pi)
		}
		return eng.BetOrRaise(pi, st.Stacks[pi]+st.Bets[pi])
	default:
		return engine.Validationf("unknown action %q", action)
	}
}

// settle finishes a completed hand: writes pot rows, final snapshot,
// seat stacks, and applies the table status transition policy. A
// player who left mid-hand no longer has an active seat row; their
// final stack is logged and not written back. Caller holds the table
// lock.
func (m *Manager) settle(ctx context.Context, gw store.Gateway, rt *TableRuntime, hand *domain.Hand, eng engine.HandEngine) error {
	st := eng.GameState()

	pots := make([]domain.Pot, 0, len(st.Pots))
	for idx, p := range st.Pots {
		eligible := make([]int64, 0, len(p.Eligible))
		for _, pi := range p.Eligible {
			eligible = append(eligible, hand.SeatUserIDs[pi])
		}
		pots = append(pots, domain.Pot{
			HandID:   hand.ID,
			Index:    idx,
			Amount:   p.Amount,
			Eligible: eligible,
		})
	}
	if err := gw.InsertPots(ctx, hand.ID, pots); err != nil {
		return err
	}

	raw, err := eng.Serialize()
	if err != nil {
		return err
	}
	if err := gw.MarkHandEnded(ctx, hand.ID, raw); err != nil {
		return err
	}

	// Seat rows stay the authoritative stack source between hands.
	active, err := gw.ActiveSeats(ctx, rt.tableID)
	if err != nil {
		return err
	}
	seated := make(map[int64]bool, len(active))
	for _, s := range active {
		seated[s.UserID] = true
	}
	for i, userID := range hand.SeatUserIDs {
		if !seated[userID] {
			obslog.L().Warn("seat_departed_mid_hand",
				zap.Int64("table_id", rt.tableID),
				zap.Int64("hand_id", hand.ID),
				zap.Int64("user_id", userID),
				zap.Int("stack", st.Stacks[i]),
			)
			continue
		}
		if err := gw.UpdateSeatStack(ctx, rt.tableID, userID, st.Stacks[i]); err != nil {
			return err
		}
	}

	next := domain.TableActive
	if rt.Table().Persistent {
		next = domain.TableWaiting
	}
	if err := gw.UpdateTableStatus(ctx, rt.tableID, next); err != nil {
		return err
	}

	obslog.L().Info("hand_end",
		zap.Int64("table_id", rt.tableID),
		zap.Int64("hand_id", hand.ID),
		zap.Int("hand_no", hand.HandNo),
		zap.Int("pots", len(pots)),
	)
	// Pick up the written stacks and status for the returned view.
	return rt.refresh(ctx, gw)
}

// GetState renders the table for a viewer without taking the lock.
// The restored engine stays local to this call; nothing it reads can
// alter what a concurrent locked mutation returns. viewerID ==
// BroadcastViewer yields a shared payload: no hole cards, but the
// actor's allowed actions included.
func (m *Manager) GetState(ctx context.Context, gw store.Gateway, tableID, viewerID int64) (*tabledto.StateView, error) {
	rt, err := m.EnsureTable(ctx, gw, tableID)
	if err != nil {
		return nil, err
	}
	open, err := gw.OpenHand(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return rt.render(viewerID, nil, nil), nil
	}

	eng, err := m.factory.Restore(open.Snapshot)
	if err != nil {
		// Read path cannot recover (no lock); StartGame will.
		return nil, err
	}
	return rt.render(viewerID, open, eng), nil
}

// handStatus maps the engine street onto the persisted hand status.
func handStatus(eng engine.HandEngine) domain.HandStatus {
	st := eng.GameState()
	if st.Complete {
		return domain.HandEnded
	}
	switch engine.Street(st.StreetIndex) {
	case engine.Preflop:
		return domain.HandPreflop
	case engine.Flop:
		return domain.HandFlop
	case engine.Turn:
		return domain.HandTurn
	case engine.River:
		return domain.HandRiver
	default:
		return domain.HandShowdown
	}
}
