package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/db"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Booking, error)
}

type pgxRepository struct {
	q db.Querier
}

func NewPgxRepository(q db.Querier) Repository {
	return &pgxRepository{q: q}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"b.id", "b.customer_id", "b.vendor_id", "b.vertical",
		"b.total_amount", "b.commission_amount", "b.currency",
		"b.status", "b.created_at", "b.updated_at",
	).
		From("public.bookings b").
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	var b Booking
	if err := r.q.QueryRow(ctx, query, args...).Scan(
		&b.ID, &b.CustomerID, &b.VendorID, &b.Vertical,
		&b.Total.Amount, &b.Commission.Amount, &b.Total.Currency,
		&b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	b.Commission.Currency = b.Total.Currency
	return &b, nil
}
