package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vantorre/pokertable/internal/domain"
)

// SQLGateway is the Postgres-backed Gateway. It is bound to a Querier
// supplied by the caller, typically a *sql.Tx for mutating operations
// and a *sql.DB for reads.
type SQLGateway struct {
	q Querier
}

var _ Gateway = (*SQLGateway)(nil)

func NewSQLGateway(q Querier) *SQLGateway { return &SQLGateway{q: q} }

func (g *SQLGateway) Table(ctx context.Context, tableID int64) (*domain.Table, error) {
	row := g.q.QueryRowContext(ctx, `
		SELECT id, status, template, public, persistent, creator_id, created_at, updated_at
		FROM tables WHERE id = $1`, tableID)
	var t domain.Table
	err := row.Scan(&t.ID, &t.Status, &t.Template, &t.Public, &t.Persistent, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select table %d: %w", tableID, err)
	}
	return &t, nil
}

func (g *SQLGateway) ActiveSeats(ctx context.Context, tableID int64) ([]domain.Seat, error) {
	rows, err := g.q.QueryContext(ctx, `
		SELECT id, table_id, user_id, position, stack, sit_out_next, joined_at, left_at
		FROM seats WHERE table_id = $1 AND left_at IS NULL
		ORDER BY position`, tableID)
	if err != nil {
		return nil, fmt.Errorf("select seats for table %d: %w", tableID, err)
	}
	defer rows.Close()

	var seats []domain.Seat
	for rows.Next() {
		var s domain.Seat
		var leftAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.TableID, &s.UserID, &s.Position, &s.Stack, &s.SitOutNext, &s.JoinedAt, &leftAt); err != nil {
			return nil, err
		}
		if leftAt.Valid {
			t := leftAt.Time
			s.LeftAt = &t
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (g *SQLGateway) OpenHand(ctx context.Context, tableID int64) (*domain.Hand, error) {
	row := g.q.QueryRowContext(ctx, `
		SELECT id, table_id, hand_no, status, snapshot, seat_user_ids, started_at, ended_at
		FROM hands WHERE table_id = $1 AND status NOT IN ('ENDED', 'ABORTED')
		ORDER BY hand_no DESC LIMIT 1`, tableID)
	h, err := scanHand(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return h, err
}

func scanHand(row *sql.Row) (*domain.Hand, error) {
	var h domain.Hand
	var endedAt sql.NullTime
	var seatIDs []byte
	err := row.Scan(&h.ID, &h.TableID, &h.HandNo, &h.Status, &h.Snapshot, &seatIDs, &h.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		h.EndedAt = &t
	}
	if len(seatIDs) > 0 {
		if err := json.Unmarshal(seatIDs, &h.SeatUserIDs); err != nil {
			return nil, fmt.Errorf("decode seat_user_ids for hand %d: %w", h.ID, err)
		}
	}
	return &h, nil
}

func (g *SQLGateway) MaxHandNo(ctx context.Context, tableID int64) (int, error) {
	row := g.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(hand_no), 0) FROM hands WHERE table_id = $1`, tableID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("max hand_no for table %d: %w", tableID, err)
	}
	return n, nil
}

func (g *SQLGateway) InsertHand(ctx context.Context, h *domain.Hand) error {
	seatIDs, err := json.Marshal(h.SeatUserIDs)
	if err != nil {
		return err
	}
	row := g.q.QueryRowContext(ctx, `
		INSERT INTO hands (table_id, hand_no, status, snapshot, seat_user_ids, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		h.TableID, h.HandNo, h.Status, h.Snapshot, string(seatIDs), h.StartedAt)
	return row.Scan(&h.ID)
}

func (g *SQLGateway) UpdateHandSnapshot(ctx context.Context, handID int64, status domain.HandStatus, snapshot []byte) error {
	_, err := g.q.ExecContext(ctx,
		`UPDATE hands SET status = $2, snapshot = $3 WHERE id = $1`,
		handID, status, snapshot)
	return err
}

func (g *SQLGateway) MarkHandEnded(ctx context.Context, handID int64, snapshot []byte) error {
	_, err := g.q.ExecContext(ctx,
		`UPDATE hands SET status = $2, snapshot = $3, ended_at = $4 WHERE id = $1`,
		handID, domain.HandEnded, snapshot, time.Now())
	return err
}

func (g *SQLGateway) MarkHandAborted(ctx context.Context, handID int64) error {
	_, err := g.q.ExecContext(ctx,
		`UPDATE hands SET status = $2, ended_at = $3 WHERE id = $1`,
		handID, domain.HandAborted, time.Now())
	return err
}

func (g *SQLGateway) InsertPots(ctx context.Context, handID int64, pots []domain.Pot) error {
	for _, p := range pots {
		eligible, err := json.Marshal(p.Eligible)
		if err != nil {
			return err
		}
		if _, err := g.q.ExecContext(ctx, `
			INSERT INTO pots (hand_id, pot_index, amount, eligible)
			VALUES ($1, $2, $3, $4)`,
			handID, p.Index, p.Amount, string(eligible)); err != nil {
			return fmt.Errorf("insert pot %d for hand %d: %w", p.Index, handID, err)
		}
	}
	return nil
}

func (g *SQLGateway) UpdateTableStatus(ctx context.Context, tableID int64, status domain.TableStatus) error {
	_, err := g.q.ExecContext(ctx,
		`UPDATE tables SET status = $2, updated_at = $3 WHERE id = $1`,
		tableID, status, time.Now())
	return err
}

func (g *SQLGateway) UpdateSeatStack(ctx context.Context, tableID, userID int64, stack int) error {
	res, err := g.q.ExecContext(ctx,
		`UPDATE seats SET stack = $3 WHERE table_id = $1 AND user_id = $2 AND left_at IS NULL`,
		tableID, userID, stack)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *SQLGateway) CreateTable(ctx context.Context, t *domain.Table) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	row := g.q.QueryRowContext(ctx, `
		INSERT INTO tables (status, template, public, persistent, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		t.Status, t.Template, t.Public, t.Persistent, t.CreatorID, t.CreatedAt, t.UpdatedAt)
	return row.Scan(&t.ID)
}

func (g *SQLGateway) AddSeat(ctx context.Context, s *domain.Seat) error {
	if s.JoinedAt.IsZero() {
		s.JoinedAt = time.Now()
	}
	row := g.q.QueryRowContext(ctx, `
		INSERT INTO seats (table_id, user_id, position, stack, sit_out_next, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		s.TableID, s.UserID, s.Position, s.Stack, s.SitOutNext, s.JoinedAt)
	return row.Scan(&s.ID)
}

func (g *SQLGateway) RemoveSeat(ctx context.Context, tableID, userID int64) error {
	_, err := g.q.ExecContext(ctx,
		`UPDATE seats SET left_at = $3 WHERE table_id = $1 AND user_id = $2 AND left_at IS NULL`,
		tableID, userID, time.Now())
	return err
}
