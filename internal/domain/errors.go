package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Repositories return these bare; services wrap them in *Error
// with a user-facing message and detail. Match with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrAlreadyCancelled      = errors.New("ticket already cancelled")
	ErrInvalidState          = errors.New("invalid ticket state")
	ErrAlreadyCheckedIn      = fmt.Errorf("%w: already checked in", ErrInvalidState)
	ErrInvalidCredential     = errors.New("invalid credential")
	ErrTooEarly              = errors.New("check-in not open yet")
	ErrTooLate               = errors.New("check-in closed")
	ErrLedgerOverflow        = errors.New("seat ledger overflow")
	ErrUnauthorized          = errors.New("unauthorized")
)

// ErrorKind classifies a failure for clients and logs.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindBusiness      ErrorKind = "BUSINESS"
	KindAuthorization ErrorKind = "AUTHORIZATION"
	KindNotFound      ErrorKind = "RESOURCE_NOT_FOUND"
	KindSystem        ErrorKind = "SYSTEM"
)

// Severity tells operators how loud a failure should be.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
	SeverityFatal    Severity = "FATAL"
)

// Error is the typed error returned by every service operation.
// Err holds the sentinel it matches; OpensAt is set only for ErrTooEarly.
type Error struct {
	Kind     ErrorKind
	Severity Severity
	Message  string
	Detail   string
	OpensAt  *time.Time
	Err      error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + " (" + e.Detail + ")"
}

func (e *Error) Unwrap() error { return e.Err }

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// NotFoundError reports a missing entity, e.g. NotFoundError("Event", id).
func NotFoundError(entity, id string) *Error {
	return &Error{
		Kind:     KindNotFound,
		Severity: SeverityWarning,
		Message:  entity + " not found",
		Detail:   entity + " ID : " + id,
		Err:      ErrNotFound,
	}
}

// ValidationError reports malformed or out-of-range input.
func ValidationError(message, detail string) *Error {
	return &Error{
		Kind:     KindValidation,
		Severity: SeverityInfo,
		Message:  message,
		Detail:   detail,
		Err:      ErrInvalidRequest,
	}
}

// BusinessError reports a rule violation against valid state. sentinel must be one
// of the package sentinels so callers can branch with errors.Is.
func BusinessError(sentinel error, message, detail string) *Error {
	return &Error{
		Kind:     KindBusiness,
		Severity: SeverityInfo,
		Message:  message,
		Detail:   detail,
		Err:      sentinel,
	}
}

// CredentialError reports a verification code that does not match or cannot be decoded.
func CredentialError(message, detail string) *Error {
	return &Error{
		Kind:     KindValidation,
		Severity: SeverityInfo,
		Message:  message,
		Detail:   detail,
		Err:      ErrInvalidCredential,
	}
}

// SystemError wraps an unexpected internal fault. Detail carries the cause for
// server-side logs and must not be rendered to clients.
func SystemError(message string, err error) *Error {
	e := &Error{
		Kind:     KindSystem,
		Severity: SeverityCritical,
		Message:  message,
		Err:      err,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}
