package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Item is one entry of the error response body.
type Item struct {
	Name    Kind   `json:"name"`
	Message string `json:"message"`
}

// Body is the JSON shape every failed request returns.
type Body struct {
	Errors []Item `json:"errors"`
}

// BodyFor builds the response body for err. Errors without a kind collapse
// into a generic Internal item so no detail leaks.
func BodyFor(err error) (int, Body) {
	var e *Error
	if !errors.As(err, &e) || e.Kind == Internal {
		return http.StatusInternalServerError, Body{Errors: []Item{{Name: Internal, Message: "Something went wrong"}}}
	}
	return e.Kind.Status(), Body{Errors: []Item{{Name: e.Kind, Message: e.Message}}}
}

// Decode turns a response body back into an *Error.
func Decode(status int, data []byte) *Error {
	var body Body
	if err := json.Unmarshal(data, &body); err == nil && len(body.Errors) > 0 {
		item := body.Errors[0]
		return &Error{Kind: item.Name, Message: item.Message}
	}
	return &Error{Kind: KindForStatus(status), Message: http.StatusText(status)}
}
