package booking

import (
	"net/http"
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/apperror"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
)

// Status mirrors the status of the vertical-specific record it wraps.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

type Vertical string

const (
	VerticalHotel Vertical = "HOTEL"
)

// Booking is the cross-vertical order envelope. For hotels it is written in
// the same statement as its reservation, so the two statuses never diverge.
type Booking struct {
	ID         string
	CustomerID string
	VendorID   string
	Vertical   Vertical
	Total      money.Money
	Commission money.Money
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// VisibleTo reports whether the user may read this booking.
func (b *Booking) VisibleTo(userID string, isAdmin bool) bool {
	return isAdmin || b.CustomerID == userID || b.VendorID == userID
}
