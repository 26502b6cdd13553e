// Package token issues and validates the HS256 bearer tokens that carry a
// caller principal across the HTTP boundary. Key management and real signing
// infrastructure live outside this system; the backend relay authenticates
// users and mints these tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// Claims carries the caller principal in the token subject.
type Claims struct {
	jwt.RegisteredClaims
}

// Service signs and validates caller tokens.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Generate mints a token for a principal. Used by the backend relay and tests.
func (s *Service) Generate(principal domain.Principal, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// Validate parses a token and returns the caller principal.
func (s *Service) Validate(tokenString string) (domain.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", derrors.New(derrors.CodeUnauthorized, "token has expired")
		}
		return "", derrors.New(derrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return "", derrors.New(derrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", derrors.New(derrors.CodeUnauthorized, "invalid token claims")
	}
	principal, err := domain.ParsePrincipal(claims.Subject)
	if err != nil {
		return "", derrors.New(derrors.CodeUnauthorized, "invalid token subject")
	}
	return principal, nil
}
