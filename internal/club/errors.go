package club

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuth is returned when the remote rejects credentials or a session
// token. Callers route it to the credential back-off path instead of the
// transport back-off path.
var ErrAuth = errors.New("club: authentication rejected")

// StatusError is a non-2xx response that is not an authentication failure.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("club: %s failed (status=%d)", e.Op, e.Status)
}

// ShapeError is a response whose body did not match the expected contract.
// It indicates a break with the remote service and is never retried at the
// call site.
type ShapeError struct {
	Op  string
	Err error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("club: %s returned an unexpected response: %v", e.Op, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// IsAuth reports whether err means the session is invalid or expired and a
// fresh authentication is required before retrying.
func IsAuth(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
	}
	return false
}

// IsShape reports whether err is a contract break rather than a transient
// failure.
func IsShape(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}
