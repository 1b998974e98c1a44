package apperror

import (
	"errors"
	"fmt"
)

// Kind tags an Error with the failure class the HTTP layer maps to a status
// and code. The storage/metadata boundary returns these instead of letting
// raw driver errors cross layers.
type Kind int

const (
	// KindUnknown is an unclassified internal failure.
	KindUnknown Kind = iota
	// KindValidation is bad input: missing title, wrong type combination,
	// oversize upload. Message is safe to surface verbatim.
	KindValidation
	// KindNotFound is a missing record, a record not owned by the caller,
	// or a file physically missing.
	KindNotFound
	// KindConflict is a stale concurrent write detected by the version check.
	KindConflict
	// KindStorage is a filesystem or object-store failure distinct from
	// "file absent": disk full, permission denied, I/O error.
	KindStorage
	// KindIntegrity is a record whose pointer resolves to nothing. Reported
	// to callers as not found, logged distinctly for operators.
	KindIntegrity
)

// String returns the machine-readable code for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindStorage:
		return "STORAGE_ERROR"
	case KindIntegrity:
		return "INTEGRITY_FAULT"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a kind-tagged error carrying a caller-safe message and an
// optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// E constructs an Error with a kind, message and optional cause.
func E(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Validation builds a KindValidation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Conflict builds a KindConflict error.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Storage wraps a filesystem/object-store failure.
func Storage(msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Msg: msg, Err: cause}
}

// Integrity wraps a record-present-file-absent fault.
func Integrity(msg string, cause error) *Error {
	return &Error{Kind: KindIntegrity, Msg: msg, Err: cause}
}

// KindOf extracts the kind from err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the caller-safe message of err, or a generic fallback for
// untagged errors so internals never leak into responses.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}
