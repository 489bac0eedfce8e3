// Package auth validates the JWT bearer tokens that guard the
// administrative endpoints, in particular order status overrides.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for authentication and authorization.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrForbidden          = errors.New("auth: access denied")
)

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	Principal string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    map[string]any
}

// HasRole reports whether the identity carries the given role.
func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// VerifierConfig configures the token verifier.
type VerifierConfig struct {
	// Key is the HMAC signing key. Required.
	Key []byte

	// Issuer is the expected iss claim. Optional.
	Issuer string

	// RolesClaim is the claim carrying the caller's roles.
	// Default: "roles".
	RolesClaim string
}

// Verifier validates HMAC-signed JWTs.
type Verifier struct {
	config VerifierConfig
}

// NewVerifier creates a token verifier.
func NewVerifier(config VerifierConfig) (*Verifier, error) {
	if len(config.Key) == 0 {
		return nil, errors.New("auth: signing key is required")
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	return &Verifier{config: config}, nil
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingCredentials
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return v.config.Key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	if v.config.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != v.config.Issuer {
			return nil, ErrInvalidCredentials
		}
	}

	return v.buildIdentity(claims), nil
}

func (v *Verifier) buildIdentity(claims jwt.MapClaims) *Identity {
	identity := &Identity{
		Claims: make(map[string]any, len(claims)),
	}
	for k, val := range claims {
		identity.Claims[k] = val
	}

	if sub, ok := claims["sub"].(string); ok {
		identity.Principal = sub
	}
	if roles, ok := claims[v.config.RolesClaim].([]any); ok {
		identity.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				identity.Roles = append(identity.Roles, s)
			}
		}
	}
	if exp, ok := claims["exp"].(float64); ok {
		identity.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if iat, ok := claims["iat"].(float64); ok {
		identity.IssuedAt = time.Unix(int64(iat), 0)
	}
	return identity
}
