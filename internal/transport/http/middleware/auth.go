package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/apperr"
)

type contextKey string

const ProfileIDKey contextKey = "profile_id"

// TokenParser resolves a bearer token to the profile it was issued for.
type TokenParser interface {
	Parse(token string) (uuid.UUID, error)
}

var errMissingToken = apperr.New(apperr.Unauthorized, "missing or invalid token")

func Auth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, errMissingToken)
				return
			}

			profileID, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthorized(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ProfileIDKey, profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	if !apperr.IsKind(err, apperr.Unauthorized) {
		err = errMissingToken
	}
	status, body := apperr.BodyFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// GetProfileID extracts the authenticated profile from the request context.
func GetProfileID(ctx context.Context) uuid.UUID {
	return ctx.Value(ProfileIDKey).(uuid.UUID)
}
