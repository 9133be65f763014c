package reservation

import (
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/booking"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/payment"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
)

type GuestDetails struct {
	Name            string
	Email           string
	Phone           string
	SpecialRequests string
}

// RefundStatus tracks settlement of money back to the customer. It is kept
// apart from Status: a reservation is CANCELLED even while its refund is still
// being retried.
type RefundStatus string

const (
	RefundNone      RefundStatus = "NONE"
	RefundPending   RefundStatus = "PENDING"
	RefundSucceeded RefundStatus = "SUCCEEDED"
	RefundFailed    RefundStatus = "FAILED"
	RefundEscalated RefundStatus = "ESCALATED" // needs manual reconciliation
)

type Refund struct {
	Amount    money.Money
	Status    RefundStatus
	Ref       string
	Attempts  int
	LastError string
	UpdatedAt *time.Time
}

// Reservation is one room booking for a date range.
type Reservation struct {
	ID         string
	BookingID  string
	RoomID     string
	HotelID    string
	CustomerID string
	VendorID   string

	Interval  Interval
	PartySize int
	Guest     GuestDetails

	Status        Status
	Total         money.Money
	Commission    money.Money
	Payment       *payment.Payment // nil until the first payment attempt
	HoldExpiresAt *time.Time
	Refund        Refund
	CancelReason  string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PendingAt   *time.Time
	ConfirmedAt *time.Time
	ReleasedAt  *time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time
}

// AmountPaid is the settled amount, zero unless the payment succeeded.
func (r *Reservation) AmountPaid() money.Money {
	if r.Payment != nil && r.Payment.Status == payment.StatusSuccess {
		return r.Payment.Amount
	}
	return money.Zero(r.Total.Currency)
}

// HoldLive reports whether r is PENDING with an unexpired hold at now.
func (r *Reservation) HoldLive(now time.Time) bool {
	return r.Status == StatusPending && r.HoldExpiresAt != nil && now.Before(*r.HoldExpiresAt)
}

// Booking returns the aggregate envelope that mirrors r.
func (r *Reservation) Booking() booking.Booking {
	return booking.Booking{
		ID:         r.BookingID,
		CustomerID: r.CustomerID,
		VendorID:   r.VendorID,
		Vertical:   booking.VerticalHotel,
		Total:      r.Total,
		Commission: r.Commission,
		Status:     booking.Status(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Clone returns a deep copy.
func (r *Reservation) Clone() *Reservation {
	cp := *r
	if r.Payment != nil {
		p := *r.Payment
		cp.Payment = &p
	}
	cp.HoldExpiresAt = cloneTime(r.HoldExpiresAt)
	cp.Refund.UpdatedAt = cloneTime(r.Refund.UpdatedAt)
	cp.PendingAt = cloneTime(r.PendingAt)
	cp.ConfirmedAt = cloneTime(r.ConfirmedAt)
	cp.ReleasedAt = cloneTime(r.ReleasedAt)
	cp.CancelledAt = cloneTime(r.CancelledAt)
	cp.CompletedAt = cloneTime(r.CompletedAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Actor is the caller of an operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// VisibleTo reports whether a may read r: its customer, the hotel vendor, or an admin.
func (r *Reservation) VisibleTo(a Actor) bool {
	return a.IsAdmin || r.CustomerID == a.UserID || r.VendorID == a.UserID
}

// Filter defines parameters for listing reservations.
type Filter struct {
	CustomerID string
	VendorID   string
	RoomID     string
	Status     Status
	Page       int
	PageSize   int
}

// PaymentIntent is returned by InitiatePayment for the customer to pay against.
type PaymentIntent struct {
	ReservationID string
	PaymentID     string
	IntentRef     string
	Amount        money.Money
	HoldExpiresAt time.Time
}

// RefundOutcome is the gateway's answer to a refund attempt.
type RefundOutcome struct {
	Ref string
	Err error
}
