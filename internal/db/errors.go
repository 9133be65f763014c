package db

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/apperror"
)

var (
	// ErrResourceBusy means a row lock could not be taken within the lock timeout.
	ErrResourceBusy = apperror.NewKind(apperror.KindTransient, http.StatusConflict, "resource is busy, please retry")
	// ErrStoreContention means the transaction kept failing on serialization or deadlock.
	ErrStoreContention = apperror.NewKind(apperror.KindTransient, http.StatusConflict, "concurrent update, please retry")
	// ErrStoreUnavailable means the database could not be reached.
	ErrStoreUnavailable = apperror.NewKind(apperror.KindTransient, http.StatusServiceUnavailable, "store temporarily unavailable")
)

// pgCode returns the SQLSTATE of err, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsExclusionViolation reports whether err came from an EXCLUDE constraint.
// constraint narrows the match when non-empty.
func IsExclusionViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.ExclusionViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

// retryable reports whether the whole transaction can be re-run unchanged.
func retryable(err error) bool {
	switch pgCode(err) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return true
	}
	return isConnError(err)
}

func isConnError(err error) bool {
	if pgconn.SafeToRetry(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgerrcode.IsConnectionException(pgCode(err))
}

// Classify maps low-level store failures onto transient AppErrors.
// Errors it does not recognise are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch code := pgCode(err); {
	case code == pgerrcode.LockNotAvailable:
		return apperror.WithCause(ErrResourceBusy, err)
	case code == pgerrcode.QueryCanceled:
		return apperror.WithCause(ErrResourceBusy, err)
	case code == pgerrcode.SerializationFailure, code == pgerrcode.DeadlockDetected:
		return apperror.WithCause(ErrStoreContention, err)
	case isConnError(err):
		return apperror.WithCause(ErrStoreUnavailable, err)
	}
	return err
}
