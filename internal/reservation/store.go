package reservation

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/db"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/room"
)

// Repository is the reservation store as seen by one unit of work.
type Repository interface {
	GetRoom(ctx context.Context, roomID string) (*room.Room, error)
	// LockRoom takes the per-room lock that serializes conflict check and write.
	LockRoom(ctx context.Context, roomID string) (*room.Room, error)

	GetByID(ctx context.Context, id string) (*Reservation, error)
	GetByIDForUpdate(ctx context.Context, id string) (*Reservation, error)
	FindConflicts(ctx context.Context, roomID string, iv Interval, excludeID string) ([]*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)

	// Create writes the reservation and its booking envelope together.
	Create(ctx context.Context, r *Reservation) error
	// Save writes reservation state, booking status and payment record together.
	Save(ctx context.Context, r *Reservation) error

	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error)
	ListElapsed(ctx context.Context, now time.Time, limit int) ([]string, error)
	ListRefundsDue(ctx context.Context, staleBefore time.Time, limit int) ([]string, error)
}

// Store hands out repositories. InTx runs fn atomically: either every write
// made through repo commits or none does. fn may be re-run on transient
// store failures.
type Store interface {
	Reader() Repository
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

type pgxStore struct {
	pool   *pgxpool.Pool
	runner *db.TxRunner
}

func NewPgxStore(pool *pgxpool.Pool, runner *db.TxRunner) Store {
	return &pgxStore{pool: pool, runner: runner}
}

func (s *pgxStore) Reader() Repository {
	return NewPgxRepository(s.pool)
}

func (s *pgxStore) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return s.runner.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewPgxRepository(tx))
	})
}
