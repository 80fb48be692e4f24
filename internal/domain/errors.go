package domain

import "fmt"

// Error types for consistent error handling across the front end.

// ErrValidation indicates input rejected locally, before any outbound call.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates missing or rejected credentials.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrUpstream indicates the backend answered with a non-2xx status.
// Body is kept verbatim so callers can inspect it.
type ErrUpstream struct {
	Service string
	Status  int
	Body    []byte
}

func (e *ErrUpstream) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
}

// ErrExternalService indicates a transport failure talking to an external service.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker for a service is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
