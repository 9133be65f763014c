package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/events"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/payment"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/room"
)

type CreateRequest struct {
	CustomerID string
	RoomID     string
	Interval   Interval
	PartySize  int
	Guest      GuestDetails
}

// RefundQuote prices the refund for a cancellation. It runs inside the
// cancelling transaction against the locked reservation.
type RefundQuote func(r *Reservation, now time.Time) money.Money

type CancelRequest struct {
	ID     string
	Actor  Actor
	Reason string
	Quote  RefundQuote
}

// Config holds coordinator policy.
type Config struct {
	HoldDuration      time.Duration
	DraftRetention    time.Duration // 0 keeps drafts forever
	Currency          string
	CommissionBPS     int
	BatchSize         int
	RefundMaxAttempts int
	RefundStaleAfter  time.Duration // PENDING refunds older than this are retried
}

// Service is the transactional reservation coordinator. It is the only
// writer of reservation state.
type Service interface {
	CreateDraft(ctx context.Context, req CreateRequest) (*Reservation, error)
	InitiatePayment(ctx context.Context, id string, actor Actor) (*PaymentIntent, error)
	ConfirmPayment(ctx context.Context, id string, proof payment.Proof) (*Reservation, error)
	ReleaseHold(ctx context.Context, id, reason string) (*Reservation, error)
	Cancel(ctx context.Context, req CancelRequest) (*Reservation, error)
	RecordRefundOutcome(ctx context.Context, id string, outcome RefundOutcome) (*Reservation, error)
	MarkCompleted(ctx context.Context, id string) (*Reservation, error)

	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)

	ReleaseExpiredHolds(ctx context.Context) (int, error)
	CompleteElapsed(ctx context.Context) (int, error)
	RefundsDue(ctx context.Context) ([]string, error)
}

type service struct {
	store     Store
	gateway   payment.Gateway
	publisher events.Publisher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *service) { s.logger = l }
}

func NewService(store Store, gateway payment.Gateway, publisher events.Publisher, cfg Config, opts ...Option) Service {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.RefundMaxAttempts < 1 {
		cfg.RefundMaxAttempts = 1
	}
	s := &service{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateDraft(ctx context.Context, req CreateRequest) (*Reservation, error) {
	now := s.now()

	if req.Interval.Start.IsZero() {
		return nil, ErrInvalidInterval
	}
	stay, err := NewInterval(req.Interval.Start, req.Interval.End)
	if err != nil {
		return nil, err
	}
	if err := stay.ValidateAt(now); err != nil {
		return nil, err
	}
	if req.PartySize < 1 {
		return nil, ErrInvalidPartySize
	}
	req.Guest.Name = strings.TrimSpace(req.Guest.Name)
	if req.Guest.Name == "" {
		return nil, ErrGuestNameRequired
	}

	var created *Reservation
	err = s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		rm, err := repo.GetRoom(ctx, req.RoomID)
		if err != nil {
			if errors.Is(err, room.ErrNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if !rm.IsActive {
			return ErrRoomUnavailable
		}
		if req.PartySize > rm.Capacity {
			return ErrPartyTooLarge
		}
		if s.cfg.Currency != "" && rm.PricePerNight.Currency != s.cfg.Currency {
			return ErrCurrencyMismatch
		}

		total := rm.PricePerNight.Multiply(int64(stay.Nights()))
		if !total.IsPositive() {
			return ErrRoomNotPriced
		}
		r := &Reservation{
			ID:         uuid.NewString(),
			BookingID:  uuid.NewString(),
			RoomID:     rm.ID,
			HotelID:    rm.HotelID,
			CustomerID: req.CustomerID,
			VendorID:   rm.VendorID,
			Interval:   stay,
			PartySize:  req.PartySize,
			Guest:      req.Guest,
			Status:     StatusDraft,
			Total:      total,
			Commission: total.BasisPoints(int64(s.cfg.CommissionBPS)),
			Refund:     Refund{Amount: money.Zero(total.Currency), Status: RefundNone},
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.Create(ctx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "reservation draft created",
		slog.String("reservation_id", created.ID),
		slog.String("room_id", created.RoomID),
		slog.String("interval", created.Interval.String()),
	)
	return created, nil
}

func (s *service) InitiatePayment(ctx context.Context, id string, actor Actor) (*PaymentIntent, error) {
	now := s.now()

	r, err := s.store.Reader().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && r.CustomerID != actor.UserID {
		return nil, ErrForbidden
	}
	if r.HoldLive(now) {
		return intentOf(r), nil
	}
	if r.Status != StatusDraft && r.Status != StatusPending {
		return nil, invalidTransition(r.Status, EventInitiatePayment)
	}
	if s.draftExpired(r, now) {
		return nil, ErrDraftExpired
	}

	// Talk to the gateway before taking any lock.
	intent, err := s.gateway.CreateIntent(ctx, r.Total, map[string]string{
		"reservation_id": r.ID,
		"booking_id":     r.BookingID,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent failed: %w", err)
	}

	var (
		held  *Reservation
		fresh bool
	)
	err = s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.LockRoom(ctx, r.RoomID); err != nil {
			if errors.Is(err, room.ErrNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		cur, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		// A concurrent call may have won the race for this very reservation.
		if cur.HoldLive(now) {
			held, fresh = cur, false
			return nil
		}
		if cur.Status == StatusPending {
			if err := cur.apply(EventHoldExpired, now); err != nil {
				return err
			}
		}
		if s.draftExpired(cur, now) {
			return ErrDraftExpired
		}

		conflicts, err := repo.FindConflicts(ctx, cur.RoomID, cur.Interval, cur.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictError(conflicts)
		}

		if err := cur.apply(EventInitiatePayment, now); err != nil {
			return err
		}
		expires := now.Add(s.cfg.HoldDuration)
		cur.HoldExpiresAt = &expires

		if cur.Payment == nil {
			cur.Payment = &payment.Payment{
				ID:        uuid.NewString(),
				BookingID: cur.BookingID,
				CreatedAt: now,
			}
		}
		cur.Payment.Status = payment.StatusPending
		cur.Payment.IntentRef = intent.Ref
		cur.Payment.TransactionRef = ""
		cur.Payment.FailureReason = ""
		cur.Payment.Amount = cur.Total
		cur.Payment.Attempts++
		cur.Payment.UpdatedAt = now

		if err := repo.Save(ctx, cur); err != nil {
			return err
		}
		held, fresh = cur, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if fresh {
		s.logger.InfoContext(ctx, "room held for payment",
			slog.String("reservation_id", held.ID),
			slog.String("room_id", held.RoomID),
			slog.Time("hold_expires_at", *held.HoldExpiresAt),
		)
		s.publish(ctx, events.PaymentInitiated, held, "")
	}
	return intentOf(held), nil
}

func (s *service) draftExpired(r *Reservation, now time.Time) bool {
	return s.cfg.DraftRetention > 0 &&
		r.Status == StatusDraft &&
		now.Sub(r.UpdatedAt) > s.cfg.DraftRetention
}

func intentOf(r *Reservation) *PaymentIntent {
	return &PaymentIntent{
		ReservationID: r.ID,
		PaymentID:     r.Payment.ID,
		IntentRef:     r.Payment.IntentRef,
		Amount:        r.Payment.Amount,
		HoldExpiresAt: *r.HoldExpiresAt,
	}
}

func (s *service) ConfirmPayment(ctx context.Context, id string, proof payment.Proof) (*Reservation, error) {
	r, err := s.store.Reader().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alreadyConfirmed(r, proof.TransactionRef) {
		return r, nil
	}
	if r.Status != StatusPending || r.Payment == nil {
		return nil, invalidTransition(r.Status, EventPaymentSucceeded)
	}

	ok, err := s.gateway.Verify(ctx, r.Payment.IntentRef, proof)
	if errors.Is(err, payment.ErrMissingRef) {
		return nil, ErrPaymentNotVerified
	}
	if err != nil {
		return nil, fmt.Errorf("verify payment failed: %w", err)
	}
	if !ok {
		s.logger.WarnContext(ctx, "payment proof rejected", slog.String("reservation_id", id))
		return nil, ErrPaymentNotVerified
	}

	var (
		out   *Reservation
		fresh bool
	)
	err = s.mutate(ctx, r.RoomID, id, func(ctx context.Context, repo Repository, cur *Reservation, now time.Time) (bool, error) {
		if alreadyConfirmed(cur, proof.TransactionRef) {
			out = cur
			return false, nil
		}
		// The hold may have been released and re-initiated with a new intent meanwhile.
		if cur.Status != StatusPending || cur.Payment == nil || cur.Payment.IntentRef != r.Payment.IntentRef {
			return false, invalidTransition(cur.Status, EventPaymentSucceeded)
		}

		conflicts, err := repo.FindConflicts(ctx, cur.RoomID, cur.Interval, cur.ID)
		if err != nil {
			return false, err
		}
		if len(conflicts) > 0 {
			return false, conflictError(conflicts)
		}

		if err := cur.apply(EventPaymentSucceeded, now); err != nil {
			return false, err
		}
		cur.Payment.Status = payment.StatusSuccess
		cur.Payment.TransactionRef = proof.TransactionRef
		cur.Payment.FailureReason = ""
		cur.Payment.UpdatedAt = now
		out, fresh = cur, true
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			s.logger.WarnContext(ctx, "verified payment arrived for a reservation that no longer holds the room",
				slog.String("reservation_id", id),
				slog.String("transaction_ref", proof.TransactionRef),
			)
		}
		return nil, err
	}

	if fresh {
		s.logger.InfoContext(ctx, "reservation confirmed", slog.String("reservation_id", out.ID))
		s.publish(ctx, events.Confirmed, out, "")
	}
	return out, nil
}

func alreadyConfirmed(r *Reservation, txRef string) bool {
	return r.Status == StatusConfirmed &&
		r.Payment != nil &&
		txRef != "" &&
		r.Payment.TransactionRef == txRef
}

func (s *service) ReleaseHold(ctx context.Context, id, reason string) (*Reservation, error) {
	r, _, err := s.release(ctx, id, EventPaymentFailed, reason)
	return r, err
}

// release reverts a PENDING hold to DRAFT. It is a no-op on drafts.
func (s *service) release(ctx context.Context, id string, ev Event, reason string) (*Reservation, bool, error) {
	r, err := s.store.Reader().GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	var (
		out     *Reservation
		changed bool
	)
	err = s.mutate(ctx, r.RoomID, id, func(_ context.Context, _ Repository, cur *Reservation, now time.Time) (bool, error) {
		out = cur
		switch {
		case cur.Status == StatusDraft:
			return false, nil
		case ev == EventHoldExpired && cur.HoldLive(now):
			// Extended or re-initiated since it was listed.
			return false, nil
		}

		if err := cur.apply(ev, now); err != nil {
			return false, err
		}
		if cur.Payment != nil && cur.Payment.Status == payment.StatusPending {
			cur.Payment.Status = payment.StatusFailed
			cur.Payment.FailureReason = reason
			cur.Payment.UpdatedAt = now
		}
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.logger.InfoContext(ctx, "hold released",
			slog.String("reservation_id", out.ID),
			slog.String("reason", reason),
		)
		s.publish(ctx, events.HoldReleased, out, reason)
	}
	return out, changed, nil
}

func (s *service) Cancel(ctx context.Context, req CancelRequest) (*Reservation, error) {
	r, err := s.store.Reader().GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !r.VisibleTo(req.Actor) {
		return nil, ErrForbidden
	}

	var out *Reservation
	err = s.mutate(ctx, r.RoomID, req.ID, func(_ context.Context, _ Repository, cur *Reservation, now time.Time) (bool, error) {
		if err := cur.apply(EventCancel, now); err != nil {
			return false, err
		}
		cur.CancelReason = req.Reason

		if cur.Payment != nil && cur.Payment.Status == payment.StatusPending {
			cur.Payment.Status = payment.StatusFailed
			cur.Payment.FailureReason = "reservation cancelled"
			cur.Payment.UpdatedAt = now
		}

		paid := cur.AmountPaid()
		refund := money.Zero(paid.Currency)
		if req.Quote != nil {
			refund = clampRefund(req.Quote(cur, now), paid)
		}

		cur.Refund = Refund{Amount: refund, Status: RefundNone}
		if refund.IsPositive() {
			cur.Refund.Status = RefundPending
			cur.Refund.UpdatedAt = &now
		}
		out = cur
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "reservation cancelled",
		slog.String("reservation_id", out.ID),
		slog.Int64("refund_amount", out.Refund.Amount.Amount),
	)
	s.publish(ctx, events.Cancelled, out, req.Reason)
	return out, nil
}

// clampRefund keeps a quoted refund within [0, paid].
func clampRefund(quote, paid money.Money) money.Money {
	if quote.Amount <= 0 {
		return money.Zero(paid.Currency)
	}
	return paid.Min(quote)
}

func (s *service) RecordRefundOutcome(ctx context.Context, id string, outcome RefundOutcome) (*Reservation, error) {
	r, err := s.store.Reader().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		out     *Reservation
		changed bool
	)
	err = s.mutate(ctx, r.RoomID, id, func(_ context.Context, _ Repository, cur *Reservation, now time.Time) (bool, error) {
		out = cur
		if cur.Status != StatusCancelled {
			return false, invalidTransition(cur.Status, "refund")
		}
		switch cur.Refund.Status {
		case RefundSucceeded, RefundEscalated, RefundNone:
			return false, nil
		}

		if outcome.Err == nil {
			cur.Refund.Status = RefundSucceeded
			cur.Refund.Ref = outcome.Ref
			cur.Refund.LastError = ""
		} else {
			cur.Refund.Attempts++
			cur.Refund.LastError = outcome.Err.Error()
			cur.Refund.Status = RefundFailed
			if cur.Refund.Attempts >= s.cfg.RefundMaxAttempts {
				cur.Refund.Status = RefundEscalated
			}
		}
		cur.Refund.UpdatedAt = &now
		cur.UpdatedAt = now
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		switch out.Refund.Status {
		case RefundSucceeded:
			s.publish(ctx, events.RefundSucceeded, out, "")
		case RefundEscalated:
			s.logger.ErrorContext(ctx, "refund escalated for manual reconciliation",
				slog.String("reservation_id", out.ID),
				slog.Int("attempts", out.Refund.Attempts),
				slog.String("last_error", out.Refund.LastError),
			)
			s.publish(ctx, events.RefundEscalated, out, out.Refund.LastError)
		case RefundFailed:
			s.logger.WarnContext(ctx, "refund attempt failed",
				slog.String("reservation_id", out.ID),
				slog.Int("attempts", out.Refund.Attempts),
				slog.String("error", out.Refund.LastError),
			)
		}
	}
	return out, nil
}

func (s *service) MarkCompleted(ctx context.Context, id string) (*Reservation, error) {
	out, _, err := s.complete(ctx, id)
	return out, err
}

// complete reports whether this call moved the reservation to COMPLETED.
func (s *service) complete(ctx context.Context, id string) (*Reservation, bool, error) {
	r, err := s.store.Reader().GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if r.Status == StatusCompleted {
		return r, false, nil
	}

	var (
		out     *Reservation
		changed bool
	)
	err = s.mutate(ctx, r.RoomID, id, func(_ context.Context, _ Repository, cur *Reservation, now time.Time) (bool, error) {
		out = cur
		if cur.Status == StatusCompleted {
			return false, nil
		}
		if cur.Status == StatusConfirmed && !cur.Interval.Elapsed(now) {
			return false, ErrStayNotElapsed
		}
		if err := cur.apply(EventComplete, now); err != nil {
			return false, err
		}
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.publish(ctx, events.Completed, out, "")
	}
	return out, changed, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return s.store.Reader().GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	return s.store.Reader().List(ctx, filter)
}

func (s *service) ReleaseExpiredHolds(ctx context.Context) (int, error) {
	ids, err := s.store.Reader().ListExpiredHolds(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	var errs []error
	for _, id := range ids {
		_, changed, err := s.release(ctx, id, EventHoldExpired, "hold expired")
		if err != nil {
			errs = append(errs, fmt.Errorf("release hold %s: %w", id, err))
			continue
		}
		if changed {
			released++
		}
	}
	return released, errors.Join(errs...)
}

func (s *service) CompleteElapsed(ctx context.Context) (int, error) {
	ids, err := s.store.Reader().ListElapsed(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	completed := 0
	var errs []error
	for _, id := range ids {
		_, changed, err := s.complete(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("complete %s: %w", id, err))
			continue
		}
		if changed {
			completed++
		}
	}
	return completed, errors.Join(errs...)
}

func (s *service) RefundsDue(ctx context.Context) ([]string, error) {
	return s.store.Reader().ListRefundsDue(ctx, s.now().Add(-s.cfg.RefundStaleAfter), s.cfg.BatchSize)
}

// mutate runs fn against the locked reservation and saves it when fn reports
// a change. Locks are always taken room first, then reservation.
func (s *service) mutate(
	ctx context.Context,
	roomID, id string,
	fn func(ctx context.Context, repo Repository, cur *Reservation, now time.Time) (bool, error),
) error {
	return s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.LockRoom(ctx, roomID); err != nil && !errors.Is(err, room.ErrNotFound) {
			return err
		}
		cur, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		changed, err := fn(ctx, repo, cur, s.now())
		if err != nil || !changed {
			return err
		}
		return repo.Save(ctx, cur)
	})
}

// publish emits e after commit. Delivery failures never undo a committed transition.
func (s *service) publish(ctx context.Context, name string, r *Reservation, reason string) {
	e := events.Event{
		ID:            uuid.NewString(),
		Name:          name,
		ReservationID: r.ID,
		BookingID:     r.BookingID,
		RoomID:        r.RoomID,
		CustomerID:    r.CustomerID,
		VendorID:      r.VendorID,
		Status:        string(r.Status),
		Amount:        r.Total.Amount,
		Currency:      r.Total.Currency,
		Reason:        reason,
		OccurredAt:    r.UpdatedAt,
	}
	switch name {
	case events.Cancelled, events.RefundSucceeded, events.RefundEscalated:
		e.Amount = r.Refund.Amount.Amount
	}

	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "publish event failed",
			slog.String("event", name),
			slog.String("reservation_id", r.ID),
			slog.Any("error", err),
		)
	}
}
