package gateway

import (
	"errors"
	"fmt"
)

// AuthError marks an authorization-denied response (401/403). By the time
// it reaches a caller the auth-failure hook has already fired and the
// session is gone; callers only need to redirect to login.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization denied (status %d)", e.Status)
}

// ServerError is any other non-2xx response, carrying the server-supplied
// message when one was present in the body.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

// NetworkError wraps a transport failure: the request never reached the
// server or no response came back.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuth reports whether err is (or wraps) an authorization failure.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// UserMessage extracts a message suitable for inline display: the server's
// own message when available, a generic fallback otherwise.
func UserMessage(err error, fallback string) string {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
