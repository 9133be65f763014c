package reservation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/apperror"
)

var (
	ErrNotFound  = apperror.New(http.StatusNotFound, "reservation not found")
	ErrForbidden = apperror.New(http.StatusForbidden, "permission denied")

	// Validation: the caller must change the request.
	ErrRoomNotFound      = apperror.New(http.StatusBadRequest, "room not found")
	ErrRoomUnavailable   = apperror.New(http.StatusBadRequest, "room is not open for booking")
	ErrInvalidInterval   = apperror.New(http.StatusBadRequest, "check-out must be a valid date after check-in")
	ErrStartInPast       = apperror.New(http.StatusBadRequest, "check-in date cannot be in the past")
	ErrInvalidPartySize  = apperror.New(http.StatusBadRequest, "party size must be at least 1")
	ErrPartyTooLarge     = apperror.New(http.StatusBadRequest, "party size exceeds room capacity")
	ErrGuestNameRequired = apperror.New(http.StatusBadRequest, "guest name is required")
	ErrCurrencyMismatch  = apperror.New(http.StatusBadRequest, "room is priced in an unsupported currency")
	ErrRoomNotPriced     = apperror.New(http.StatusBadRequest, "room has no nightly price set")

	ErrPaymentNotVerified = apperror.NewKind(apperror.KindValidation, http.StatusPaymentRequired, "payment could not be verified")

	// Conflict: the room is held for an overlapping stay.
	ErrConflict = apperror.New(http.StatusConflict, "room is already held for the requested dates")

	// Invalid state: the transition is not allowed from the current state.
	ErrInvalidState   = apperror.NewKind(apperror.KindInvalidState, http.StatusConflict, "operation not allowed in the current reservation state")
	ErrDraftExpired   = apperror.NewKind(apperror.KindInvalidState, http.StatusGone, "reservation draft has expired")
	ErrStayNotElapsed = apperror.NewKind(apperror.KindInvalidState, http.StatusConflict, "stay has not ended yet")
)

// ConflictError names the reservations blocking a hold. It carries ids only,
// never guest data of other customers.
type ConflictError struct {
	BlockingIDs []string
}

func (e *ConflictError) Error() string {
	if len(e.BlockingIDs) == 0 {
		return ErrConflict.Message
	}
	return fmt.Sprintf("%s (blocked by %s)", ErrConflict.Message, strings.Join(e.BlockingIDs, ", "))
}

func (e *ConflictError) Unwrap() error {
	ids := e.BlockingIDs
	if ids == nil {
		ids = []string{}
	}
	return apperror.WithDetails(ErrConflict, map[string]any{"blocking_reservation_ids": ids})
}

func invalidTransition(from Status, ev Event) error {
	return apperror.WithDetails(ErrInvalidState, map[string]any{
		"status": string(from),
		"event":  string(ev),
	})
}
