// Package events publishes reservation lifecycle events for downstream
// consumers such as notifications and settlement.
package events

import (
	"context"
	"log/slog"
	"time"
)

const (
	PaymentInitiated = "reservation.payment_initiated"
	Confirmed        = "reservation.confirmed"
	HoldReleased     = "reservation.hold_released"
	Cancelled        = "reservation.cancelled"
	Completed        = "reservation.completed"
	RefundSucceeded  = "refund.succeeded"
	RefundEscalated  = "refund.escalated"
)

type Event struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ReservationID string    `json:"reservation_id"`
	BookingID     string    `json:"booking_id"`
	RoomID        string    `json:"room_id"`
	CustomerID    string    `json:"customer_id"`
	VendorID      string    `json:"vendor_id"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the logger; used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.InfoContext(ctx, "event published",
		slog.String("event", e.Name),
		slog.String("event_id", e.ID),
		slog.String("reservation_id", e.ReservationID),
		slog.String("status", e.Status),
		slog.Int64("amount", e.Amount),
		slog.String("currency", e.Currency),
	)
	return nil
}
