package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/apperr"
)

var ErrInvalidToken = apperr.New(apperr.Unauthorized, "invalid or expired token")

const defaultTokenTTL = 24 * time.Hour

// TokenService issues and verifies HS256 bearer tokens. The subject is the
// profile id, which the identity provider owns.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: defaultTokenTTL}
}

// Issue signs a token for profileID. A zero ttl uses the default.
func (s *TokenService) Issue(profileID uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	issued := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   profileID.String(),
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Parse returns the profile id carried by a valid token.
func (s *TokenService) Parse(tokenStr string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	profileID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return profileID, nil
}
