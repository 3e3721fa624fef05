// Package cacheerr defines the error taxonomy shared by every layer of the
// cache: metadata store, object store, producers, and the coordinator.
package cacheerr

import (
	"errors"
	"fmt"
)

// Kind classifies a cache error so callers can branch on failure mode
// without string-matching messages.
type Kind int

const (
	// KindOther is used for errors that don't fit a more specific kind.
	KindOther Kind = iota
	// KindNotFound marks an item_key never seen, or a resident blob
	// missing after repair.
	KindNotFound
	// KindIOFailure marks an underlying store read/write error.
	KindIOFailure
	// KindCorruptBlob marks a deserialize failure on an ostensibly
	// resident blob.
	KindCorruptBlob
	// KindProducerFailed marks a failure raised by compute_item or
	// serialize_item.
	KindProducerFailed
	// KindInvariantViolation marks a cross-store disagreement prune
	// could not repair.
	KindInvariantViolation
	// KindConfigError marks an out-of-range configuration value.
	KindConfigError
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindIOFailure:
		return "io_failure"
	case KindCorruptBlob:
		return "corrupt_blob"
	case KindProducerFailed:
		return "producer_failed"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindConfigError:
		return "config_error"
	default:
		return "other"
	}
}

// Error is the concrete error type returned by every package in this
// module. It carries the operation that failed and the kind, so callers
// can use errors.Is/errors.As against Kind or against the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, cacheerr.Sentinel(cacheerr.KindNotFound))
// style checks: any *Error target with the same Kind matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New wraps err (which may be nil) with the given kind and operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinel builds a bare sentinel of a given kind, usable with errors.Is.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Is reports whether err (or something it wraps) has the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
