// Package apperr classifies errors crossing the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	Unauthorized Kind = "Unauthorized"
	Validation   Kind = "Validation"
	NotFound     Kind = "NotFound"
	Forbidden    Kind = "Forbidden"
	Conflict     Kind = "Conflict"
	Internal     Kind = "Internal"
)

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case Unauthorized:
		return http.StatusUnauthorized
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// KindForStatus is the inverse of Status, used by clients.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return Unauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return Validation
	case http.StatusNotFound:
		return NotFound
	case http.StatusForbidden:
		return Forbidden
	case http.StatusConflict:
		return Conflict
	}
	return Internal
}

type Error struct {
	Kind    Kind
	Message string
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so callers can test
// errors.Is(err, apperr.New(apperr.Conflict, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
