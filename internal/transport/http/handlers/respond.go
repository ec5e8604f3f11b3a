package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vedran77/chord/internal/apperr"
	"github.com/vedran77/chord/pkg/validator"
)

var (
	errInvalidJSON = apperr.New(apperr.Validation, "Invalid request body")
	errInvalidID   = apperr.New(apperr.Validation, "Invalid ID")
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError renders err as the shared error body. Anything that is not an
// *apperr.Error is logged and hidden behind a generic Internal item.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.Internal {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	status, body := apperr.BodyFor(err)
	writeJSON(w, status, body)
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	body := apperr.Body{Errors: make([]apperr.Item, 0, len(fields))}
	for _, f := range fields {
		body.Errors = append(body.Errors, apperr.Item{Name: apperr.Validation, Message: errs[f]})
	}
	writeJSON(w, http.StatusBadRequest, body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, errInvalidJSON)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, r, errInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get(param))
	if err != nil {
		writeError(w, r, apperr.New(apperr.Validation, "Missing or invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}
