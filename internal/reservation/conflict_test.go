package reservation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/apperror"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation"
)

func TestFindConflicts(t *testing.T) {
	mk := func(id, roomID string, status reservation.Status, in, out string) *reservation.Reservation {
		return &reservation.Reservation{ID: id, RoomID: roomID, Status: status, Interval: iv(t, in, out)}
	}
	existing := []*reservation.Reservation{
		mk("pending", "room-1", reservation.StatusPending, "2024-01-15", "2024-01-17"),
		mk("confirmed", "room-1", reservation.StatusConfirmed, "2024-01-17", "2024-01-19"),
		mk("draft", "room-1", reservation.StatusDraft, "2024-01-15", "2024-01-19"),
		mk("cancelled", "room-1", reservation.StatusCancelled, "2024-01-15", "2024-01-19"),
		mk("completed", "room-1", reservation.StatusCompleted, "2024-01-15", "2024-01-19"),
		mk("other-room", "room-2", reservation.StatusConfirmed, "2024-01-15", "2024-01-19"),
	}

	ids := func(rs []*reservation.Reservation) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	got := reservation.FindConflicts(existing, "room-1", iv(t, "2024-01-16", "2024-01-18"), "")
	assert.Equal(t, []string{"pending", "confirmed"}, ids(got))

	got = reservation.FindConflicts(existing, "room-1", iv(t, "2024-01-19", "2024-01-21"), "")
	assert.Empty(t, got, "check-in on another stay's check-out day")

	got = reservation.FindConflicts(existing, "room-1", iv(t, "2024-01-15", "2024-01-17"), "pending")
	assert.Empty(t, got, "a reservation never conflicts with itself")
}

func TestConflictErrorExposesOnlyIDs(t *testing.T) {
	err := error(&reservation.ConflictError{BlockingIDs: []string{"r-1", "r-2"}})

	assert.ErrorIs(t, err, reservation.ErrConflict)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, map[string]any{"blocking_reservation_ids": []string{"r-1", "r-2"}}, appErr.Details)
	assert.Contains(t, err.Error(), "r-1, r-2")
}
