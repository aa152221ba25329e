// Package errs defines Terrastore's error taxonomy (spec §7): five classes
// that every layer — ring, router, node, command, failure — raises and
// propagates consistently, so that exactly one place (FailureDecorator)
// needs to know which classes are retryable.
//
// The taxonomy plays the same role the teacher's storage.ErrKeyNotFound
// plays for a single case, generalized to a small set of sentinel-wrapped
// kinds with errors.Is/errors.As support.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies one of the five error classes from spec §7.
type Kind int

const (
	// KindMissingRoute means no node owns the request: empty ring,
	// unknown cluster, or a partially-applied broadcast. Retryable.
	KindMissingRoute Kind = iota

	// KindCommunication means the transport failed: disconnect, timeout,
	// decode error. Retryable.
	KindCommunication

	// KindProcessing means the remote node executed the command and
	// reported a failure (key not found, condition not satisfied, update
	// timeout). Not retried; surfaced to the caller.
	KindProcessing

	// KindValidation means the input was malformed (invalid JSON value).
	// Not retried; surfaced as a 400-class failure.
	KindValidation

	// KindProtocol means an unknown command kind or version was seen.
	// Not retried; fatal for the connection that saw it.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindMissingRoute:
		return "missing_route"
	case KindCommunication:
		return "communication"
	case KindProcessing:
		return "processing"
	case KindValidation:
		return "validation"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carried through every layer. Callers
// compare against the package-level sentinels with errors.Is, or recover
// the Kind and Cause with errors.As.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e's Kind, so that
// errors.Is(err, errs.MissingRoute) works regardless of Msg/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons. Each carries only a Kind; actual
// errors returned to callers are produced by the New* constructors below
// and carry a specific Msg/Cause, but still compare equal via Is.
var (
	MissingRoute  = &Error{Kind: KindMissingRoute}
	Communication = &Error{Kind: KindCommunication}
	Processing    = &Error{Kind: KindProcessing}
	Validation    = &Error{Kind: KindValidation}
	Protocol      = &Error{Kind: KindProtocol}
)

// NewMissingRoute builds a MissingRoute error with a formatted message.
func NewMissingRoute(format string, args ...any) error {
	return &Error{Kind: KindMissingRoute, Msg: fmt.Sprintf(format, args...)}
}

// NewCommunication builds a CommunicationError wrapping the transport cause.
func NewCommunication(msg string, cause error) error {
	return &Error{Kind: KindCommunication, Msg: msg, Cause: cause}
}

// NewProcessing builds a ProcessingError from the storage engine's own
// error, preserving it as Cause.
func NewProcessing(msg string, cause error) error {
	return &Error{Kind: KindProcessing, Msg: msg, Cause: cause}
}

// NewValidation builds a ValidationError describing malformed input.
func NewValidation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NewProtocol builds a ProtocolError for an unknown command kind/version.
func NewProtocol(format string, args ...any) error {
	return &Error{Kind: KindProtocol, Msg: fmt.Sprintf(format, args...)}
}

// Retryable reports whether FailureDecorator should retry an operation that
// failed with err: only MissingRoute and CommunicationError are, per
// spec §7 — ProcessingError and ValidationError reflect a decision already
// made by the remote, not a transport hiccup.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindMissingRoute || e.Kind == KindCommunication
}

// KindOf extracts the Kind of err, returning (kind, true) if err is (or
// wraps) an *Error, or (0, false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Kind, true
}
