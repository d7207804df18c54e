// Package errs implements the closed error taxonomy every public SDK
// entry point reports through. Callers are expected to switch on Kind
// rather than string-match messages.
package errs

import "fmt"

// Kind is the closed set of error kinds the SDK ever returns.
type Kind string

const (
	KindValidationError        Kind = "ValidationError"
	KindInvalidKey             Kind = "InvalidKey"
	KindSigningFailed          Kind = "SigningFailed"
	KindConnectionFailed       Kind = "ConnectionFailed"
	KindTimeout                Kind = "Timeout"
	KindHTTPError              Kind = "HTTPError"
	KindInvalidResponse        Kind = "InvalidResponse"
	KindRejected               Kind = "Rejected"
	KindInsufficientBalance    Kind = "InsufficientBalance"
	KindParentReferenceStale   Kind = "ParentReferenceStale"
	KindDegradedToPolling      Kind = "DegradedToPolling"
	KindStreamClosed           Kind = "StreamClosed"
)

// Error is the single typed error value the SDK returns. Details carries
// structured extras (offending field, HTTP status/body, rejection code);
// Cause wraps any underlying transport or library error.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, errs.KindXxx-shaped sentinel) work by comparing
// Kind; errors.Is(err, New(KindTimeout, "")) matches any Timeout error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error with no details or cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error carrying an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetails attaches structured detail fields and returns the receiver
// for chaining at the call site.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Field is a convenience for the common single-field validation case.
func Field(name string) map[string]any {
	return map[string]any{"field": name}
}
