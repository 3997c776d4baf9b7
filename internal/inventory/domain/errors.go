package domain

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code returned by inventory operations.
type Code string

const (
	CodeNotFound               Code = "not_found"
	CodeInvalidStateTransition Code = "invalid_state_transition"
	CodeHubMismatch            Code = "hub_mismatch"
	CodeInsufficientStock      Code = "insufficient_stock"
	CodeOverrideRequired       Code = "override_required"
	CodeInvalidArgument        Code = "invalid_argument"
)

// Sentinels for errors.Is matching. Any *Error with the same Code matches.
var (
	ErrNotFound               = &Error{Code: CodeNotFound}
	ErrInvalidStateTransition = &Error{Code: CodeInvalidStateTransition}
	ErrHubMismatch            = &Error{Code: CodeHubMismatch}
	ErrInsufficientStock      = &Error{Code: CodeInsufficientStock}
	ErrOverrideRequired       = &Error{Code: CodeOverrideRequired}
	ErrInvalidArgument        = &Error{Code: CodeInvalidArgument}
)

// ErrRecordNotFound is returned by store lookups for unknown ids.
var ErrRecordNotFound = errors.New("record not found")

// Error is a recoverable inventory error carrying enough structure for the
// caller to decide between retry, substitution and escalation.
type Error struct {
	Code    Code
	Message string
	// Remedy is a human-readable suggestion, e.g. a transfer to create.
	Remedy string

	CurrentStatus    TagStatus
	Available        int
	Requested        int
	AlternativeHubID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Remedy == "" {
		return e.Message
	}
	return e.Message + "; " + e.Remedy
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Shortfall returns how many units were missing for an insufficient stock error.
func (e *Error) Shortfall() int {
	if e.Requested <= e.Available {
		return 0
	}
	return e.Requested - e.Available
}

// NewNotFound creates a not found error for the given entity kind and id.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", kind, id),
	}
}

// NewInvalidArgument creates an invalid argument error.
func NewInvalidArgument(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the code of an inventory error, or "" for other errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
