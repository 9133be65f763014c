package room

import (
	"errors"
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
)

var ErrNotFound = errors.New("room not found")

// Room is a bookable unit inside a hotel listing.
type Room struct {
	ID            string
	HotelID       string
	VendorID      string // owner of the parent hotel
	Name          string
	Capacity      int
	PricePerNight money.Money
	IsActive      bool
	CreatedAt     time.Time
}
