package reservation

// FindConflicts returns the reservations in existing that block iv on roomID:
// same room, PENDING or CONFIRMED, overlapping, and not excludeID itself.
func FindConflicts(existing []*Reservation, roomID string, iv Interval, excludeID string) []*Reservation {
	var out []*Reservation
	for _, e := range existing {
		if e.RoomID != roomID || e.ID == excludeID || !e.Status.HoldsRoom() {
			continue
		}
		if e.Interval.Overlaps(iv) {
			out = append(out, e)
		}
	}
	return out
}

func conflictError(blocking []*Reservation) *ConflictError {
	ids := make([]string, len(blocking))
	for i, b := range blocking {
		ids[i] = b.ID
	}
	return &ConflictError{BlockingIDs: ids}
}
