package solinteg

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMissingCredentials is returned before any network call when the base URL,
// account or password is not configured.
var ErrMissingCredentials = errors.New("solinteg: credentials are not configured")

// ErrUnexpectedFormat signals a response body whose shape violates the
// endpoint contract (e.g. a non-list device listing).
var ErrUnexpectedFormat = errors.New("solinteg: unexpected response format")

// LoginError is returned when the auth endpoint rejects a login attempt or
// responds with an unusable body. No token is cached when it occurs.
type LoginError struct {
	Detail string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("solinteg: login failed: %s", e.Detail)
}

// TransportError covers network failures, non-2xx statuses and 2xx responses
// whose body could not be decoded. Status is 0 for pure network failures.
type TransportError struct {
	Status  int
	Message string
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("solinteg: request failed: %s", e.Message)
	}
	return fmt.Sprintf("solinteg: http error %d: %s", e.Status, e.Message)
}

// APIError is a well-formed vendor response signaling a business error
// (successful=false or a non-zero errorCode in the envelope).
type APIError struct {
	Code int
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("solinteg: api rejected request (errorCode=%d): %s", e.Code, e.Info)
}
