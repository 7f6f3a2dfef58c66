package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vantorre/pokertable/internal/domain"
)

// MemGateway is an in-memory Gateway used by tests and the offline
// simulator when no database is configured.
type MemGateway struct {
	mu sync.RWMutex

	nextTableID int64
	nextSeatID  int64
	nextHandID  int64
	nextPotID   int64

	tables map[int64]*domain.Table
	seats  map[int64][]*domain.Seat // table id -> seats
	hands  map[int64]*domain.Hand   // hand id -> hand
	pots   map[int64][]*domain.Pot  // hand id -> pots
}

var _ Gateway = (*MemGateway)(nil)

func NewMemGateway() *MemGateway {
	return &MemGateway{
		tables: make(map[int64]*domain.Table),
		seats:  make(map[int64][]*domain.Seat),
		hands:  make(map[int64]*domain.Hand),
		pots:   make(map[int64][]*domain.Pot),
	}
}

func (m *MemGateway) Table(ctx context.Context, tableID int64) (*domain.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[tableID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemGateway) ActiveSeats(ctx context.Context, tableID int64) ([]domain.Seat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Seat
	for _, s := range m.seats[tableID] {
		if s.LeftAt == nil {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MemGateway) OpenHand(ctx context.Context, tableID int64) (*domain.Hand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var open *domain.Hand
	for _, h := range m.hands {
		if h.TableID != tableID || h.Status.Terminal() {
			continue
		}
		if open == nil || h.HandNo > open.HandNo {
			open = h
		}
	}
	if open == nil {
		return nil, nil
	}
	cp := *open
	cp.Snapshot = append([]byte(nil), open.Snapshot...)
	cp.SeatUserIDs = append([]int64(nil), open.SeatUserIDs...)
	return &cp, nil
}

func (m *MemGateway) MaxHandNo(ctx context.Context, tableID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, h := range m.hands {
		if h.TableID == tableID && h.HandNo > max {
			max = h.HandNo
		}
	}
	return max, nil
}

func (m *MemGateway) InsertHand(ctx context.Context, h *domain.Hand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandID++
	h.ID = m.nextHandID
	cp := *h
	cp.Snapshot = append([]byte(nil), h.Snapshot...)
	cp.SeatUserIDs = append([]int64(nil), h.SeatUserIDs...)
	m.hands[h.ID] = &cp
	return nil
}

func (m *MemGateway) UpdateHandSnapshot(ctx context.Context, handID int64, status domain.HandStatus, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hands[handID]
	if !ok {
		return ErrNotFound
	}
	h.Status = status
	h.Snapshot = append([]byte(nil), snapshot...)
	return nil
}

func (m *MemGateway) MarkHandEnded(ctx context.Context, handID int64, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hands[handID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	h.Status = domain.HandEnded
	h.Snapshot = append([]byte(nil), snapshot...)
	h.EndedAt = &now
	return nil
}

func (m *MemGateway) MarkHandAborted(ctx context.Context, handID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hands[handID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	h.Status = domain.HandAborted
	h.EndedAt = &now
	return nil
}

func (m *MemGateway) InsertPots(ctx context.Context, handID int64, pots []domain.Pot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pots {
		m.nextPotID++
		cp := p
		cp.ID = m.nextPotID
		cp.HandID = handID
		m.pots[handID] = append(m.pots[handID], &cp)
	}
	return nil
}

func (m *MemGateway) UpdateTableStatus(ctx context.Context, tableID int64, status domain.TableStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MemGateway) UpdateSeatStack(ctx context.Context, tableID, userID int64, stack int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.seats[tableID] {
		if s.UserID == userID && s.LeftAt == nil {
			s.Stack = stack
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemGateway) CreateTable(ctx context.Context, t *domain.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTableID++
	t.ID = m.nextTableID
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	cp := *t
	m.tables[t.ID] = &cp
	return nil
}

func (m *MemGateway) AddSeat(ctx context.Context, s *domain.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeatID++
	s.ID = m.nextSeatID
	if s.JoinedAt.IsZero() {
		s.JoinedAt = time.Now()
	}
	cp := *s
	m.seats[s.TableID] = append(m.seats[s.TableID], &cp)
	return nil
}

func (m *MemGateway) RemoveSeat(ctx context.Context, tableID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.seats[tableID] {
		if s.UserID == userID && s.LeftAt == nil {
			now := time.Now()
			s.LeftAt = &now
			return nil
		}
	}
	return ErrNotFound
}

// Pots returns the settled pots for a hand. Test helper.
func (m *MemGateway) Pots(handID int64) []domain.Pot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Pot
	for _, p := range m.pots[handID] {
		out = append(out, *p)
	}
	return out
}

// Hand returns a hand by id. Test helper.
func (m *MemGateway) Hand(handID int64) *domain.Hand {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hands[handID]
	if !ok {
		return nil
	}
	cp := *h
	return &cp
}
