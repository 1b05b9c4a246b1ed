package dispatch

import (
	"context"
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// NotFoundError reports an unknown capability name or a target resource the
// cluster does not have. Policy denials also surface as NotFoundError: a
// denied operation was never registered, so its capability cannot be found.
type NotFoundError struct {
	What string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not found: %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("not found: %s", e.What)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ValidationError reports a missing or malformed invocation parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// PermissionError reports that the cluster denied the operation for
// credential reasons. Distinct from policy denial, which is a NotFoundError.
type PermissionError struct {
	Op  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for %s: %v", e.Op, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// ConflictError reports an optimistic-concurrency version mismatch on a
// write. Surfaced verbatim, never retried.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// TimeoutError reports that a cluster operation exceeded its deadline. The
// operation may or may not have completed on the cluster side.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout during %s: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// translateClusterError maps client-go failures onto the domain taxonomy so
// callers never see raw transport errors.
func translateClusterError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Op: op, Err: err}
	case apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err):
		return &TimeoutError{Op: op, Err: err}
	case apierrors.IsNotFound(err):
		return &NotFoundError{What: op, Err: err}
	case apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err):
		return &PermissionError{Op: op, Err: err}
	case apierrors.IsConflict(err) || apierrors.IsAlreadyExists(err):
		return &ConflictError{Op: op, Err: err}
	case apierrors.IsInvalid(err) || apierrors.IsBadRequest(err):
		return &ValidationError{Field: "spec", Reason: err.Error()}
	default:
		return fmt.Errorf("%s failed: %w", op, err)
	}
}

// isTransient reports whether a read failure is worth retrying: server-side
// throttling and flaky connections, but never definitive answers like
// NotFound or Forbidden.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) ||
		apierrors.IsUnexpectedServerError(err)
}
