package models

import (
	"errors"
	"fmt"
)

// Failure classes shared by every upstream client. Callers classify errors with errors.Is.
var (
	// ErrNotFound means the service answered but had nothing for the query, or answered with an empty body.
	ErrNotFound = errors.New("no result")
	// ErrMalformedResponse means the response lacked a field the lookup depends on.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrTransport means the service could not be reached or answered with a non-2xx status.
	ErrTransport = errors.New("transport failure")
	// ErrRejected means the service answered with an error status, e.g. REQUEST_DENIED.
	ErrRejected = errors.New("request rejected")
	// ErrInvalidAddress means an address component was blank.
	ErrInvalidAddress = errors.New("invalid address")
)

// Outcome labels used by metrics, the lookup journal and the HTTP API.
const (
	OutcomeSuccess   = "success"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeMalformed = "malformed"
	OutcomeTransport = "transport"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// TransportError describes a failed HTTP exchange with an upstream service.
type TransportError struct {
	Service    string // Service is the upstream name, e.g. "google" or "census".
	StatusCode int    // StatusCode is zero when no response was received.
	Err        error  // Err is the underlying network error, if any.
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected HTTP status %d", e.Service, e.StatusCode)
	}

	return fmt.Sprintf("%s: request failed: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ServiceError is returned when an upstream service reports a non-OK status in its payload.
type ServiceError struct {
	Service string
	Status  string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %s: %s", e.Service, e.Status, e.Message)
	}

	return fmt.Sprintf("%s: status %s", e.Service, e.Status)
}

// Is matches ErrRejected.
func (e *ServiceError) Is(target error) bool { return target == ErrRejected }

// InvalidAddressError names the blank address component.
type InvalidAddressError struct {
	Field string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address: %s is empty", e.Field)
}

// Is matches ErrInvalidAddress.
func (e *InvalidAddressError) Is(target error) bool { return target == ErrInvalidAddress }

// Outcome classifies err into one of the Outcome* labels. A nil error is a success.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidAddress):
		return OutcomeInvalid
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeMalformed
	case errors.Is(err, ErrTransport):
		return OutcomeTransport
	case errors.Is(err, ErrRejected):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
