// Package token issues and validates the access tokens handed to approved
// principals. Token format is an implementation detail of this collaborator;
// the workflow core only sees opaque strings.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

// AccessTokenClaims represents the JWT claims for our access tokens.
type AccessTokenClaims struct {
	PrincipalID string `json:"principal_id"`
	SessionID   string `json:"session_id"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

func NewService(signingKey string, tokenTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     "torque",
		tokenTTL:   tokenTTL,
	}
}

// GenerateAccessToken signs a token for the principal's session.
func (s *Service) GenerateAccessToken(principalID id.PrincipalID, sessionID id.SessionID, role string) (string, error) {
	now := time.Now()
	claims := AccessTokenClaims{
		PrincipalID: principalID.String(),
		SessionID:   sessionID.String(),
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   principalID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign access token")
	}
	return signed, nil
}

// ValidateAccessToken parses and verifies a token, returning its claims.
func (s *Service) ValidateAccessToken(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid access token")
	}
	return claims, nil
}
