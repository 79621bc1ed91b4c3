package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-identity-service/internal/model"
)

// Claims is the identity snapshot embedded in every issued token. It is
// derived from the user record at mint time and never re-checked against the
// store while the token lives; role changes show up only after re-issue.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"role,omitempty"`
}

// UserID parses the subject claim back into the numeric identity id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid subject claim %q", c.Subject)
	}
	return id, nil
}

func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenService mints and verifies HS256 compact JWTs. Minting is pure
// computation over the inputs and the signing key; there is no server-side
// token state, so a token dies only by expiry or key rotation.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	lifetime time.Duration
}

func NewTokenService(secret string, issuer string, audience string, lifetime time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("token issuer and audience are required")
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}

	return &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		lifetime: lifetime,
	}, nil
}

// Mint issues a signed token for the user with one role claim per membership.
// Roles must already be gathered; Mint never touches the store.
func (s *TokenService) Mint(user model.User, roles []string, now time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
		Name:  user.FullName,
		Email: user.Email,
		Roles: roles,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, signature, issuer, audience, and expiry against
// the supplied clock, and returns the embedded claims unchanged. There is no
// skew grace window.
func (s *TokenService) Verify(tokenString string, now time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !token.Valid {
		return nil, model.ErrTokenSignatureInvalid
	}

	return claims, nil
}

// Lifetime reports the configured token validity window.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return model.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return model.ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return model.ErrTokenIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return model.ErrTokenAudienceMismatch
	default:
		return model.ErrTokenMalformed
	}
}
