package engine

import (
	"errors"

	"github.com/grammarhour/bookbot/internal/store"
)

// Error taxonomy for core operations. Store failures are reported via
// store.ErrUnavailable and are retryable by the caller; everything here is
// terminal for the action that raised it.
var (
	// ErrNotFound marks an unknown chapter or section reference.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a malformed action payload, such as grading a
	// non-quiz section or submitting a label outside the choice set.
	ErrValidation = errors.New("invalid request")

	// ErrDuplicateAction marks an inbound action rejected by the dedup
	// guard. The caller drops it silently; no user-visible error.
	ErrDuplicateAction = errors.New("duplicate action")
)

// ErrorKind is the user-facing classification carried by an ErrorView.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindValidation ErrorKind = "validation"
	KindStore      ErrorKind = "store_unavailable"
)

// asErrorView maps terminal errors to a user-facing view. Retryable store
// failures are not mapped; those propagate as plain errors so the caller can
// retry a bounded number of times before surfacing them.
func asErrorView(err error) (ErrorView, bool) {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrorView{Kind: KindNotFound, Message: "That content isn't available."}, true
	case errors.Is(err, ErrValidation):
		return ErrorView{Kind: KindValidation, Message: "That request can't be processed."}, true
	default:
		return ErrorView{}, false
	}
}

// Retryable reports whether err is a transient store failure worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, store.ErrUnavailable)
}
