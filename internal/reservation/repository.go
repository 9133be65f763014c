package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/db"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/payment"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/room"
)

// overlapConstraint is the EXCLUDE constraint backing the conflict check.
const overlapConstraint = "reservations_no_overlap"

var holdingStatuses = []string{string(StatusPending), string(StatusConfirmed)}

type pgxRepository struct {
	q     db.Querier
	rooms room.Repository
}

// NewPgxRepository accepts a pool or a transaction.
func NewPgxRepository(q db.Querier) Repository {
	return &pgxRepository{q: q, rooms: room.NewPgxRepository(q)}
}

func (r *pgxRepository) GetRoom(ctx context.Context, roomID string) (*room.Room, error) {
	rm, err := r.rooms.GetByID(ctx, roomID)
	if err != nil && !errors.Is(err, room.ErrNotFound) {
		return nil, db.Classify(err)
	}
	return rm, err
}

func (r *pgxRepository) LockRoom(ctx context.Context, roomID string) (*room.Room, error) {
	rm, err := r.rooms.GetForUpdate(ctx, roomID)
	if err != nil && !errors.Is(err, room.ErrNotFound) {
		return nil, db.Classify(err)
	}
	return rm, err
}

func selectReservations() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(
		"res.id", "res.booking_id", "res.room_id", "res.hotel_id", "res.customer_id", "res.vendor_id",
		"res.start_date", "res.end_date", "res.party_size",
		"res.guest_name", "res.guest_email", "res.guest_phone", "res.special_requests",
		"res.status", "res.total_amount", "res.commission_amount", "res.currency", "res.hold_expires_at",
		"res.refund_amount", "res.refund_status", "res.refund_ref", "res.refund_attempts",
		"res.refund_last_error", "res.refund_updated_at", "res.cancel_reason",
		"res.created_at", "res.updated_at", "res.pending_at", "res.confirmed_at",
		"res.released_at", "res.cancelled_at", "res.completed_at",
		"p.id", "p.status", "p.intent_ref", "p.transaction_ref", "p.amount",
		"p.attempts", "p.failure_reason", "p.created_at", "p.updated_at",
	).
		From("public.reservations res").
		LeftJoin("public.payments p ON p.booking_id = res.booking_id")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner, extra ...any) (*Reservation, error) {
	var (
		res Reservation

		pID, pStatus, pIntent, pTxn, pFailure *string
		pAmount                               *int64
		pAttempts                             *int
		pCreated, pUpdated                    *time.Time
	)

	dest := []any{
		&res.ID, &res.BookingID, &res.RoomID, &res.HotelID, &res.CustomerID, &res.VendorID,
		&res.Interval.Start, &res.Interval.End, &res.PartySize,
		&res.Guest.Name, &res.Guest.Email, &res.Guest.Phone, &res.Guest.SpecialRequests,
		&res.Status, &res.Total.Amount, &res.Commission.Amount, &res.Total.Currency, &res.HoldExpiresAt,
		&res.Refund.Amount.Amount, &res.Refund.Status, &res.Refund.Ref, &res.Refund.Attempts,
		&res.Refund.LastError, &res.Refund.UpdatedAt, &res.CancelReason,
		&res.CreatedAt, &res.UpdatedAt, &res.PendingAt, &res.ConfirmedAt,
		&res.ReleasedAt, &res.CancelledAt, &res.CompletedAt,
		&pID, &pStatus, &pIntent, &pTxn, &pAmount,
		&pAttempts, &pFailure, &pCreated, &pUpdated,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	res.Interval.Start = toDate(res.Interval.Start)
	res.Interval.End = toDate(res.Interval.End)
	res.Commission.Currency = res.Total.Currency
	res.Refund.Amount.Currency = res.Total.Currency

	if pID != nil {
		res.Payment = &payment.Payment{
			ID:             *pID,
			BookingID:      res.BookingID,
			Status:         payment.Status(deref(pStatus)),
			IntentRef:      deref(pIntent),
			TransactionRef: deref(pTxn),
			FailureReason:  deref(pFailure),
		}
		res.Payment.Amount.Currency = res.Total.Currency
		if pAmount != nil {
			res.Payment.Amount.Amount = *pAmount
		}
		if pAttempts != nil {
			res.Payment.Attempts = *pAttempts
		}
		if pCreated != nil {
			res.Payment.CreatedAt = *pCreated
		}
		if pUpdated != nil {
			res.Payment.UpdatedAt = *pUpdated
		}
	}
	return &res, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *pgxRepository) getOne(ctx context.Context, id string, forUpdate bool) (*Reservation, error) {
	q := selectReservations().Where(squirrel.Eq{"res.id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE OF res")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := scanReservation(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", db.Classify(err))
	}
	return res, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return r.getOne(ctx, id, false)
}

func (r *pgxRepository) GetByIDForUpdate(ctx context.Context, id string) (*Reservation, error) {
	return r.getOne(ctx, id, true)
}

func (r *pgxRepository) FindConflicts(ctx context.Context, roomID string, iv Interval, excludeID string) ([]*Reservation, error) {
	// Served by reservations_room_interval_idx (room_id, start_date, end_date).
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select("id", "room_id", "status", "start_date", "end_date").
		From("public.reservations").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.Eq{"status": holdingStatuses}).
		Where(squirrel.Lt{"start_date": iv.End}).
		Where(squirrel.Gt{"end_date": iv.Start})
	if excludeID != "" {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}

	query, args, err := q.OrderBy("start_date").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find conflicts query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find conflicts failed: %w", db.Classify(err))
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		var c Reservation
		if err := rows.Scan(&c.ID, &c.RoomID, &c.Status, &c.Interval.Start, &c.Interval.End); err != nil {
			return nil, fmt.Errorf("scan conflict failed: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find conflicts failed: %w", db.Classify(err))
	}
	return out, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	query := selectReservations().Column("count(*) OVER() AS total_count")

	if filter.CustomerID != "" {
		query = query.Where(squirrel.Eq{"res.customer_id": filter.CustomerID})
	}
	if filter.VendorID != "" {
		query = query.Where(squirrel.Eq{"res.vendor_id": filter.VendorID})
	}
	if filter.RoomID != "" {
		query = query.Where(squirrel.Eq{"res.room_id": filter.RoomID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"res.status": string(filter.Status)})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	sql, args, err := query.
		OrderBy("res.created_at DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", db.Classify(err))
	}
	defer rows.Close()

	var result []*Reservation
	var total int
	for rows.Next() {
		res, err := scanReservation(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", db.Classify(err))
	}
	return result, total, nil
}

const createSQL = `
WITH new_booking AS (
	INSERT INTO public.bookings (
		id, customer_id, vendor_id, vertical, total_amount, commission_amount,
		currency, status, created_at, updated_at
	)
	VALUES ($1::uuid, $2::uuid, $3::uuid, $4::text, $5::bigint, $6::bigint, $7::text, $8::text, $9::timestamptz, $9::timestamptz)
	RETURNING id
)
INSERT INTO public.reservations (
	id, booking_id, room_id, hotel_id, customer_id, vendor_id,
	start_date, end_date, party_size,
	guest_name, guest_email, guest_phone, special_requests,
	status, total_amount, commission_amount, currency, created_at, updated_at
)
SELECT $10::uuid, nb.id, $11::uuid, $12::uuid, $2::uuid, $3::uuid,
	$13::date, $14::date, $15::int,
	$16::text, $17::text, $18::text, $19::text,
	$8::text, $5::bigint, $6::bigint, $7::text, $9::timestamptz, $9::timestamptz
FROM new_booking nb
`

func (r *pgxRepository) Create(ctx context.Context, res *Reservation) error {
	b := res.Booking()
	_, err := r.q.Exec(ctx, createSQL,
		b.ID, b.CustomerID, b.VendorID, string(b.Vertical), b.Total.Amount, b.Commission.Amount,
		b.Total.Currency, string(b.Status), res.CreatedAt,
		res.ID, res.RoomID, res.HotelID,
		res.Interval.Start, res.Interval.End, res.PartySize,
		res.Guest.Name, res.Guest.Email, res.Guest.Phone, res.Guest.SpecialRequests,
	)
	if err != nil {
		return fmt.Errorf("create reservation failed: %w", db.Classify(err))
	}
	return nil
}

// saveSQL updates the reservation, mirrors its status onto the booking and
// upserts the payment record in one statement.
const saveSQL = `
WITH res AS (
	UPDATE public.reservations SET
		status = $2, hold_expires_at = $3,
		refund_amount = $4, refund_status = $5, refund_ref = $6, refund_attempts = $7,
		refund_last_error = $8, refund_updated_at = $9, cancel_reason = $10,
		updated_at = $11, pending_at = $12, confirmed_at = $13, released_at = $14,
		cancelled_at = $15, completed_at = $16
	WHERE id = $1
	RETURNING booking_id, status, updated_at
), bk AS (
	UPDATE public.bookings b
	SET status = res.status, updated_at = res.updated_at
	FROM res
	WHERE b.id = res.booking_id
	RETURNING b.id
), pay AS (
	INSERT INTO public.payments (
		id, booking_id, status, intent_ref, transaction_ref, amount, currency,
		attempts, failure_reason, created_at, updated_at
	)
	SELECT $18::uuid, res.booking_id, $19::text, $20::text, $21::text, $22::bigint, $23::text,
		$24::int, $25::text, $26::timestamptz, $27::timestamptz
	FROM res
	WHERE $17::boolean
	ON CONFLICT (booking_id) DO UPDATE SET
		status = EXCLUDED.status,
		intent_ref = EXCLUDED.intent_ref,
		transaction_ref = EXCLUDED.transaction_ref,
		amount = EXCLUDED.amount,
		attempts = EXCLUDED.attempts,
		failure_reason = EXCLUDED.failure_reason,
		updated_at = EXCLUDED.updated_at
	RETURNING id
)
SELECT (SELECT count(*) FROM res), (SELECT count(*) FROM bk)
`

func (r *pgxRepository) Save(ctx context.Context, res *Reservation) error {
	args := []any{
		res.ID, string(res.Status), res.HoldExpiresAt,
		res.Refund.Amount.Amount, string(res.Refund.Status), res.Refund.Ref, res.Refund.Attempts,
		res.Refund.LastError, res.Refund.UpdatedAt, res.CancelReason,
		res.UpdatedAt, res.PendingAt, res.ConfirmedAt, res.ReleasedAt,
		res.CancelledAt, res.CompletedAt,
	}

	if p := res.Payment; p != nil {
		args = append(args, true,
			p.ID, string(p.Status), p.IntentRef, p.TransactionRef, p.Amount.Amount, p.Amount.Currency,
			p.Attempts, p.FailureReason, p.CreatedAt, p.UpdatedAt,
		)
	} else {
		args = append(args, false, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	}

	var resRows, bookingRows int64
	err := r.q.QueryRow(ctx, saveSQL, args...).Scan(&resRows, &bookingRows)
	if err != nil {
		if db.IsExclusionViolation(err, overlapConstraint) {
			return &ConflictError{}
		}
		return fmt.Errorf("save reservation failed: %w", db.Classify(err))
	}
	if resRows == 0 {
		return ErrNotFound
	}
	if bookingRows != resRows {
		return fmt.Errorf("save reservation %s: booking envelope missing", res.ID)
	}
	return nil
}

func (r *pgxRepository) listIDs(ctx context.Context, q squirrel.SelectBuilder, what string) ([]string, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query failed: %w", what, err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", what, db.Classify(err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", what, db.Classify(err))
	}
	return ids, nil
}

func (r *pgxRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select("id").
		From("public.reservations").
		Where(squirrel.Eq{"status": string(StatusPending)}).
		Where(squirrel.LtOrEq{"hold_expires_at": now}).
		OrderBy("hold_expires_at").
		Limit(uint64(limit))
	return r.listIDs(ctx, q, "list expired holds")
}

func (r *pgxRepository) ListElapsed(ctx context.Context, now time.Time, limit int) ([]string, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select("id").
		From("public.reservations").
		Where(squirrel.Eq{"status": string(StatusConfirmed)}).
		Where(squirrel.LtOrEq{"end_date": toDate(now)}).
		OrderBy("end_date").
		Limit(uint64(limit))
	return r.listIDs(ctx, q, "list elapsed stays")
}

func (r *pgxRepository) ListRefundsDue(ctx context.Context, staleBefore time.Time, limit int) ([]string, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select("id").
		From("public.reservations").
		Where(squirrel.Eq{"status": string(StatusCancelled)}).
		Where(squirrel.Or{
			squirrel.Eq{"refund_status": string(RefundFailed)},
			squirrel.And{
				squirrel.Eq{"refund_status": string(RefundPending)},
				squirrel.Lt{"refund_updated_at": staleBefore},
			},
		}).
		OrderBy("refund_updated_at").
		Limit(uint64(limit))
	return r.listIDs(ctx, q, "list refunds due")
}
