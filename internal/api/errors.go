package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error classes returned by MapError.
const (
	ClassUnauthorized = "Unauthorized"
	ClassForbidden    = "Forbidden"
	ClassNotFound     = "NotFound"
	ClassRateLimited  = "RateLimited"
	ClassNetwork      = "NetworkError"
	ClassCancelled    = "Cancelled"
	ClassUnknown      = "UnknownError"
)

// TypeInvalidSession is sent by the server when a session token is no
// longer accepted.
const TypeInvalidSession = "InvalidSession"

// Error is a non-2xx API response or a server-sent error event.
type Error struct {
	Status  int
	Type    string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Type != "" && e.Status != 0:
		return fmt.Sprintf("api error %d: %s", e.Status, e.Type)
	case e.Type != "":
		return fmt.Sprintf("api error: %s", e.Type)
	case e.Message != "":
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("api error %d: %s", e.Status, http.StatusText(e.Status))
	}
}

// MapError reduces any error to a stable class name. Server-provided types
// win over status codes, except InvalidSession which is an Unauthorized.
func MapError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Type == TypeInvalidSession {
			return ClassUnauthorized
		}
		if apiErr.Type != "" {
			return apiErr.Type
		}
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return ClassUnauthorized
		case http.StatusForbidden:
			return ClassForbidden
		case http.StatusNotFound:
			return ClassNotFound
		case http.StatusTooManyRequests:
			return ClassRateLimited
		}
		return ClassUnknown
	}
	if errors.Is(err, context.Canceled) {
		return ClassCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassNetwork
	}
	return ClassUnknown
}

// IsAuthError reports whether err classifies as Unauthorized or Forbidden.
func IsAuthError(err error) bool {
	switch MapError(err) {
	case ClassUnauthorized, ClassForbidden:
		return true
	}
	return false
}
