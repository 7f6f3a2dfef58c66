package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/vantorre/pokertable/internal/domain"
)

// Gateway reads and writes table runtime rows. Implementations never
// commit or roll back: the SQL gateway runs inside whatever session or
// transaction the caller supplied, and transaction boundaries stay
// with the caller.
type Gateway interface {
	Table(ctx context.Context, tableID int64) (*domain.Table, error)
	// ActiveSeats returns seats with no left-at stamp, ordered by position.
	ActiveSeats(ctx context.Context, tableID int64) ([]domain.Seat, error)
	// OpenHand returns the table's non-terminal hand, or nil.
	OpenHand(ctx context.Context, tableID int64) (*domain.Hand, error)
	MaxHandNo(ctx context.Context, tableID int64) (int, error)

	InsertHand(ctx context.Context, h *domain.Hand) error
	UpdateHandSnapshot(ctx context.Context, handID int64, status domain.HandStatus, snapshot []byte) error
	MarkHandEnded(ctx context.Context, handID int64, snapshot []byte) error
	MarkHandAborted(ctx context.Context, handID int64) error
	InsertPots(ctx context.Context, handID int64, pots []domain.Pot) error

	UpdateTableStatus(ctx context.Context, tableID int64, status domain.TableStatus) error
	UpdateSeatStack(ctx context.Context, tableID, userID int64, stack int) error

	CreateTable(ctx context.Context, t *domain.Table) error
	AddSeat(ctx context.Context, s *domain.Seat) error
	RemoveSeat(ctx context.Context, tableID, userID int64) error
}

// ErrNotFound is returned for lookups of rows that do not exist.
var ErrNotFound = gatewayErr("row not found")

type gatewayErr string

func (e gatewayErr) Error() string { return string(e) }

// Querier is the slice of database/sql shared by *sql.DB and *sql.Tx.
// The caller picks which one a gateway runs against.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to Postgres with the pool settings used across the
// service and verifies connectivity.
func Open(databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
