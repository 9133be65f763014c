package reservation

import "time"

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// HoldsRoom reports whether a reservation in this state blocks overlapping stays.
func (s Status) HoldsRoom() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Event drives a transition.
type Event string

const (
	EventInitiatePayment  Event = "initiate_payment"
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
	EventHoldExpired      Event = "hold_expired"
	EventCancel           Event = "cancel"
	EventComplete         Event = "complete"
)

// transitions lists every legal (state, event) pair. Failed payments and
// expired holds fall back to DRAFT so the room is released but the record
// stays referenceable.
var transitions = map[Status]map[Event]Status{
	StatusDraft: {
		EventInitiatePayment: StatusPending,
	},
	StatusPending: {
		EventPaymentSucceeded: StatusConfirmed,
		EventPaymentFailed:    StatusDraft,
		EventHoldExpired:      StatusDraft,
		EventCancel:           StatusCancelled,
	},
	StatusConfirmed: {
		EventCancel:   StatusCancelled,
		EventComplete: StatusCompleted,
	},
}

// Transition returns the state reached from `from` on ev, or ErrInvalidState.
func Transition(from Status, ev Event) (Status, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return "", invalidTransition(from, ev)
	}
	return to, nil
}

// apply moves r along ev and stamps the audit timestamp for the new state.
// r is left untouched when the transition is not allowed.
func (r *Reservation) apply(ev Event, now time.Time) error {
	to, err := Transition(r.Status, ev)
	if err != nil {
		return err
	}

	at := now
	switch ev {
	case EventInitiatePayment:
		r.PendingAt = &at
	case EventPaymentSucceeded:
		r.ConfirmedAt = &at
	case EventPaymentFailed, EventHoldExpired:
		r.ReleasedAt = &at
	case EventCancel:
		r.CancelledAt = &at
	case EventComplete:
		r.CompletedAt = &at
	}

	if to != StatusPending {
		r.HoldExpiresAt = nil
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}
