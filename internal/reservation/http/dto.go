package http

import (
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/cancellation"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/request"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation"
)

const dateLayout = "2006-01-02"

type GuestBody struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"special_requests" binding:"max=1000"`
}

// CreateBody holds the new-draft payload. Dates are YYYY-MM-DD; check-out is exclusive.
type CreateBody struct {
	RoomID    string    `json:"room_id" binding:"required,uuid"`
	CheckIn   string    `json:"check_in" binding:"required"`
	CheckOut  string    `json:"check_out" binding:"required"`
	PartySize int       `json:"party_size" binding:"required,min=1"`
	Guest     GuestBody `json:"guest"`
}

type ConfirmPaymentBody struct {
	TransactionRef string `json:"transaction_ref" binding:"required"`
	Signature      string `json:"signature" binding:"required,hexadecimal"`
}

type FailPaymentBody struct {
	Reason string `json:"reason" binding:"max=500"`
}

type CancelBody struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ListReservationsRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=DRAFT PENDING CONFIRMED CANCELLED COMPLETED"`
	RoomID string `form:"room_id" binding:"omitempty,uuid"`
}

type GuestResponse struct {
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

type PaymentResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	IntentRef      string `json:"intent_ref"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	Amount         int64  `json:"amount"`
	Attempts       int    `json:"attempts"`
	FailureReason  string `json:"failure_reason,omitempty"`
}

type RefundResponse struct {
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
	Ref      string `json:"ref,omitempty"`
	Attempts int    `json:"attempts"`
}

type ReservationResponse struct {
	ID               string           `json:"id"`
	BookingID        string           `json:"booking_id"`
	RoomID           string           `json:"room_id"`
	HotelID          string           `json:"hotel_id"`
	CustomerID       string           `json:"customer_id"`
	VendorID         string           `json:"vendor_id"`
	CheckIn          string           `json:"check_in"`
	CheckOut         string           `json:"check_out"`
	Nights           int              `json:"nights"`
	PartySize        int              `json:"party_size"`
	Guest            GuestResponse    `json:"guest"`
	Status           string           `json:"status"`
	TotalAmount      int64            `json:"total_amount"`
	CommissionAmount int64            `json:"commission_amount"`
	Currency         string           `json:"currency"`
	HoldExpiresAt    *time.Time       `json:"hold_expires_at,omitempty"`
	Payment          *PaymentResponse `json:"payment,omitempty"`
	Refund           RefundResponse   `json:"refund"`
	CancelReason     string           `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ConfirmedAt      *time.Time       `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:         r.ID,
		BookingID:  r.BookingID,
		RoomID:     r.RoomID,
		HotelID:    r.HotelID,
		CustomerID: r.CustomerID,
		VendorID:   r.VendorID,
		CheckIn:    r.Interval.Start.Format(dateLayout),
		CheckOut:   r.Interval.End.Format(dateLayout),
		Nights:     r.Interval.Nights(),
		PartySize:  r.PartySize,
		Guest: GuestResponse{
			Name:            r.Guest.Name,
			Email:           r.Guest.Email,
			Phone:           r.Guest.Phone,
			SpecialRequests: r.Guest.SpecialRequests,
		},
		Status:           string(r.Status),
		TotalAmount:      r.Total.Amount,
		CommissionAmount: r.Commission.Amount,
		Currency:         r.Total.Currency,
		HoldExpiresAt:    r.HoldExpiresAt,
		Refund: RefundResponse{
			Amount:   r.Refund.Amount.Amount,
			Status:   string(r.Refund.Status),
			Ref:      r.Refund.Ref,
			Attempts: r.Refund.Attempts,
		},
		CancelReason: r.CancelReason,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		ConfirmedAt:  r.ConfirmedAt,
		CancelledAt:  r.CancelledAt,
		CompletedAt:  r.CompletedAt,
	}
	if p := r.Payment; p != nil {
		resp.Payment = &PaymentResponse{
			ID:             p.ID,
			Status:         string(p.Status),
			IntentRef:      p.IntentRef,
			TransactionRef: p.TransactionRef,
			Amount:         p.Amount.Amount,
			Attempts:       p.Attempts,
			FailureReason:  p.FailureReason,
		}
	}
	return resp
}

type PaymentIntentResponse struct {
	ReservationID string    `json:"reservation_id"`
	PaymentID     string    `json:"payment_id"`
	IntentRef     string    `json:"intent_ref"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
}

func NewPaymentIntentResponse(p *reservation.PaymentIntent) PaymentIntentResponse {
	return PaymentIntentResponse{
		ReservationID: p.ReservationID,
		PaymentID:     p.PaymentID,
		IntentRef:     p.IntentRef,
		Amount:        p.Amount.Amount,
		Currency:      p.Amount.Currency,
		HoldExpiresAt: p.HoldExpiresAt,
	}
}

type RefundQuoteResponse struct {
	ReservationID string    `json:"reservation_id"`
	PaidAmount    int64     `json:"paid_amount"`
	RefundAmount  int64     `json:"refund_amount"`
	Currency      string    `json:"currency"`
	QuotedAt      time.Time `json:"quoted_at"`
}

func NewRefundQuoteResponse(q *cancellation.Quote) RefundQuoteResponse {
	return RefundQuoteResponse{
		ReservationID: q.ReservationID,
		PaidAmount:    q.Paid.Amount,
		RefundAmount:  q.Refund.Amount,
		Currency:      q.Paid.Currency,
		QuotedAt:      q.QuotedAt,
	}
}
