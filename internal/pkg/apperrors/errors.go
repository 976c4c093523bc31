// Package apperrors defines the error taxonomy shared by the payment flows
// and the HTTP boundary.
package apperrors

import (
	"errors"
	"strings"
)

// Kind classifies an error for the boundary
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindNotFound       Kind = "not_found"
	KindUpstream       Kind = "upstream"
	KindPersistence    Kind = "persistence"
	KindInternal       Kind = "internal"
)

var (
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrUnsupportedCurrency  = errors.New("unsupported currency")
	ErrUnsupportedMethod    = errors.New("payment method not available")
	ErrMobileProviderNeeded = errors.New("mobile provider required for mobile money payments")
	ErrUnsupportedProvider  = errors.New("mobile provider not supported")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidCryptoIntent  = errors.New("crypto intent requires asset and wallet address")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrLockNotAcquired      = errors.New("reference is locked by another worker")
)

// Error is a classified application error
type Error struct {
	Kind      Kind
	Op        string
	Reference string
	Message   string
	Err       error

	// Retriable is set for upstream failures a caller may safely repeat
	Retriable bool
	// Timeout is set when the failure was a deadline expiry
	Timeout bool
	// Compensated is set when a successful charge was moved to failed
	// because the payout step could not complete
	Compensated bool
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "" && e.Err != nil:
		b.WriteString(e.Message)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PublicMessage is the text safe to return to API callers
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Validation creates a user-fixable request error
func Validation(op string, err error, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err, Message: msg}
}

// Authentication creates a signature/credential error
func Authentication(op string, err error) *Error {
	return &Error{Kind: KindAuthentication, Op: op, Err: err}
}

// NotFound creates an error for an unresolvable transaction
func NotFound(op, reference string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Reference: reference, Err: err}
}

// Upstream creates an error for a failed gateway, payout or lock call
func Upstream(op, reference string, err error, retriable bool) *Error {
	return &Error{Kind: KindUpstream, Op: op, Reference: reference, Err: err, Retriable: retriable}
}

// Persistence creates an error for a failed storage call
func Persistence(op, reference string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Reference: reference, Err: err}
}

// KindOf returns the kind of err, or KindInternal if it is unclassified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetriable reports whether the caller may repeat the operation
func IsRetriable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retriable
}

// IsCompensated reports whether err came from a compensated payout failure
func IsCompensated(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Compensated
}

// As extracts the classified error from err
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
