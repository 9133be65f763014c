package cancellation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/payment"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation"
)

// Quote is a refund preview for a reservation that has not been cancelled yet.
type Quote struct {
	ReservationID string
	Paid          money.Money
	Refund        money.Money
	QuotedAt      time.Time
}

// Service cancels reservations and settles their refunds with the gateway.
type Service interface {
	Cancel(ctx context.Context, id string, actor reservation.Actor, reason string) (*reservation.Reservation, error)
	Quote(ctx context.Context, id string, actor reservation.Actor) (*Quote, error)
	RetryRefunds(ctx context.Context) (int, error)
}

type service struct {
	reservations reservation.Service
	gateway      payment.Gateway
	policy       Policy
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *service) { s.logger = l }
}

func NewService(reservations reservation.Service, gateway payment.Gateway, policy Policy, opts ...Option) Service {
	s := &service{
		reservations: reservations,
		gateway:      gateway,
		policy:       policy,
		logger:       slog.Default(),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cancel moves the reservation to CANCELLED and then attempts the refund once.
// The refund outcome is recorded but never turns a committed cancellation into an error.
func (s *service) Cancel(ctx context.Context, id string, actor reservation.Actor, reason string) (*reservation.Reservation, error) {
	r, err := s.reservations.Cancel(ctx, reservation.CancelRequest{
		ID:     id,
		Actor:  actor,
		Reason: reason,
		Quote: func(r *reservation.Reservation, now time.Time) money.Money {
			return ComputeRefund(r.Interval.Start, now, r.AmountPaid(), s.policy)
		},
	})
	if err != nil {
		return nil, err
	}

	if r.Refund.Status != reservation.RefundPending {
		return r, nil
	}
	return s.refund(ctx, r), nil
}

func (s *service) Quote(ctx context.Context, id string, actor reservation.Actor) (*Quote, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.VisibleTo(actor) {
		return nil, reservation.ErrNotFound
	}
	if r.Status != reservation.StatusPending && r.Status != reservation.StatusConfirmed {
		return nil, reservation.ErrInvalidState
	}

	now := s.now()
	paid := r.AmountPaid()
	return &Quote{
		ReservationID: r.ID,
		Paid:          paid,
		Refund:        ComputeRefund(r.Interval.Start, now, paid, s.policy),
		QuotedAt:      now,
	}, nil
}

// RetryRefunds retries failed refunds and pending ones that never got an answer.
// It returns how many refunds settled in this pass.
func (s *service) RetryRefunds(ctx context.Context) (int, error) {
	ids, err := s.reservations.RefundsDue(ctx)
	if err != nil {
		return 0, err
	}

	settled := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r, err := s.reservations.GetByID(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", id, err))
			continue
		}
		switch r.Refund.Status {
		case reservation.RefundPending, reservation.RefundFailed:
		default:
			continue
		}
		if s.refund(ctx, r).Refund.Status == reservation.RefundSucceeded {
			settled++
		}
	}
	return settled, errors.Join(errs...)
}

// refund calls the gateway and records the outcome. The idempotency key is
// derived from the reservation so retries never pay out twice.
func (s *service) refund(ctx context.Context, r *reservation.Reservation) *reservation.Reservation {
	req := payment.RefundRequest{
		Amount:         r.Refund.Amount,
		IdempotencyKey: "refund:" + r.ID,
	}
	if r.Payment != nil {
		req.TransactionRef = r.Payment.TransactionRef
	}

	ref, refundErr := s.gateway.Refund(ctx, req)
	out, err := s.reservations.RecordRefundOutcome(ctx, r.ID, reservation.RefundOutcome{Ref: ref, Err: refundErr})
	if err != nil {
		// The next sweep picks it up again as a stale PENDING refund.
		s.logger.ErrorContext(ctx, "record refund outcome failed",
			slog.String("reservation_id", r.ID),
			slog.String("refund_ref", ref),
			slog.Any("refund_error", refundErr),
			slog.Any("error", err),
		)
		return r
	}

	if refundErr == nil {
		s.logger.InfoContext(ctx, "refund issued",
			slog.String("reservation_id", r.ID),
			slog.String("refund_ref", ref),
			slog.Int64("amount", r.Refund.Amount.Amount),
		)
	}
	return out
}
