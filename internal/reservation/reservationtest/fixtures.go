package reservationtest

import (
	"context"
	"sync"
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/events"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/money"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/room"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// RecordingPublisher keeps every published event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.Err
}

func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the names of published events in order.
func (p *RecordingPublisher) Names() []string {
	var names []string
	for _, e := range p.Events() {
		names = append(names, e.Name)
	}
	return names
}

// Room returns an active two-guest room priced at 4000.00 INR per night.
func Room(id string) room.Room {
	return room.Room{
		ID:            id,
		HotelID:       "hotel-1",
		VendorID:      "vendor-1",
		Name:          "Deluxe " + id,
		Capacity:      2,
		PricePerNight: money.Must(400_000, "INR"),
		IsActive:      true,
		CreatedAt:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
