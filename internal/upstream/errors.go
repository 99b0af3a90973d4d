package upstream

import (
	"fmt"
)

// AuthError is returned when the token endpoint cannot issue a token.
// Status and Body are set when the endpoint answered; otherwise Err carries
// the transport failure.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("obtain token: %d - %s", e.Status, e.Body)
	}
	return fmt.Sprintf("obtain token: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError wraps connection, DNS and timeout failures of a business call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: connection error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a non-accepted status from a business endpoint, after the
// 401 retry when one applied.
type UpstreamError struct {
	Op      string
	Status  int
	Body    string
	Retried bool
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Retried {
		return fmt.Sprintf("%s after token refresh: %d - %s", e.Op, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %d - %s: %v", e.Op, e.Status, e.Body, e.Err)
	}
	return fmt.Sprintf("%s: %d - %s", e.Op, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NotFoundError is a 404 on a status query.
type NotFoundError struct {
	Op string
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: claim not found with id %s", e.Op, e.ID)
}
