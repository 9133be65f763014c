package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/db"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Room, error)
	// GetForUpdate locks the room row until the surrounding transaction ends.
	// Every reservation write on the room is serialized through this lock.
	GetForUpdate(ctx context.Context, id string) (*Room, error)
}

type pgxRepository struct {
	q db.Querier
}

// NewPgxRepository accepts a pool or a transaction.
func NewPgxRepository(q db.Querier) Repository {
	return &pgxRepository{q: q}
}

func (r *pgxRepository) selectRoom() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(
		"r.id", "r.hotel_id", "h.vendor_id", "r.name", "r.capacity",
		"r.price_per_night", "r.currency", "r.is_active", "r.created_at",
	).
		From("public.rooms r").
		Join("public.hotels h ON h.id = r.hotel_id")
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	query, args, err := r.selectRoom().
		Where(squirrel.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get room query failed: %w", err)
	}
	return r.scanOne(ctx, query, args)
}

// GetForUpdate takes a NO KEY UPDATE lock: it serialises holds on the room
// without blocking the KEY SHARE lock that inserting a reservation takes.
func (r *pgxRepository) GetForUpdate(ctx context.Context, id string) (*Room, error) {
	query, args, err := r.lockRoom(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock room query failed: %w", err)
	}
	return r.scanOne(ctx, query, args)
}

func (r *pgxRepository) lockRoom(id string) squirrel.SelectBuilder {
	return r.selectRoom().
		Where(squirrel.Eq{"r.id": id}).
		Suffix("FOR NO KEY UPDATE OF r")
}

func (r *pgxRepository) scanOne(ctx context.Context, query string, args []any) (*Room, error) {
	var rm Room
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&rm.ID, &rm.HotelID, &rm.VendorID, &rm.Name, &rm.Capacity,
		&rm.PricePerNight.Amount, &rm.PricePerNight.Currency, &rm.IsActive, &rm.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get room failed: %w", err)
	}
	return &rm, nil
}
