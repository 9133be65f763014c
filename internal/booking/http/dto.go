package http

import (
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/booking"
)

type BookingResponse struct {
	ID               string    `json:"id"`
	CustomerID       string    `json:"customer_id"`
	VendorID         string    `json:"vendor_id"`
	Vertical         string    `json:"vertical"`
	TotalAmount      int64     `json:"total_amount"`
	CommissionAmount int64     `json:"commission_amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:               b.ID,
		CustomerID:       b.CustomerID,
		VendorID:         b.VendorID,
		Vertical:         string(b.Vertical),
		TotalAmount:      b.Total.Amount,
		CommissionAmount: b.Commission.Amount,
		Currency:         b.Total.Currency,
		Status:           string(b.Status),
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}
