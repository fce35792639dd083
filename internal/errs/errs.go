package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP layer can map it to a status code
// without parsing messages.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindPreconditionFailed   Kind = "precondition_failed"
	KindConsistencyViolation Kind = "consistency_violation"
	KindInsufficientStock    Kind = "insufficient_stock"
	KindEmptyCart            Kind = "empty_cart"
	KindOrderCreationFailed  Kind = "order_creation_failed"
	KindInvalidTransition    Kind = "invalid_transition"
	KindOperationNotAllowed  Kind = "operation_not_allowed"
	KindValidation           Kind = "validation"
	KindInternal             Kind = "internal"
)

// Error carries a kind, a human-readable message and, when applicable, the
// offending entity and id.
type Error struct {
	Kind    Kind
	Entity  string
	ID      int64
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Entity != "" && e.ID != 0 {
		return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Entity builds an error tied to a specific entity row.
func Entity(kind Kind, entity string, id int64, message string) *Error {
	return &Error{Kind: kind, Entity: entity, ID: id, Message: message}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound is shorthand for the most common lookup failure.
func NotFound(entity string, id int64) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Message: entity + " not found"}
}

// KindOf extracts the kind from err, unwrapping as needed. Plain errors
// report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
