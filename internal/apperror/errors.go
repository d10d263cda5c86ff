// Package apperror defines the error taxonomy surfaced by the inventory and
// redistribution services. Every expected failure carries a Kind so that
// transports can render it without string matching.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindAuthorization     Kind = "AUTHORIZATION"
	KindInvalidState      Kind = "INVALID_STATE"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindSelfTransfer      Kind = "SELF_TRANSFER"
	KindTransaction       Kind = "TRANSACTION"
)

// Error is an expected, user-renderable failure.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrAuthorization     = &Error{Kind: KindAuthorization, Message: "not authorized to perform this action"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Message: "operation not allowed in current state"}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Message: "insufficient stock available"}
	ErrSelfTransfer      = &Error{Kind: KindSelfTransfer, Message: "source and destination facility are the same"}
	ErrTransaction       = &Error{Kind: KindTransaction, Message: "transaction could not be applied"}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", resource, id)}
}

func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(available, requested int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock: %d available, %d requested", available, requested),
	}
}

func SelfTransfer(facilityID string) *Error {
	return &Error{Kind: KindSelfTransfer, Message: fmt.Sprintf("cannot redistribute to the same facility %q", facilityID)}
}

// Transaction wraps a commit failure (conflict, timeout, transient infra error). Safe to retry.
func Transaction(message string, err error) *Error {
	return &Error{Kind: KindTransaction, Message: message, Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether the caller may retry the operation as-is.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransaction
}
