package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func adminClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "ops-user",
		"iss":   "fulfillment",
		"roles": []any{"admin"},
		"iat":   float64(time.Now().Unix()),
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	}
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{Key: testKey, Issuer: "fulfillment"})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	return v
}

func TestVerifier_ValidToken(t *testing.T) {
	v := newTestVerifier(t)

	identity, err := v.Verify(context.Background(), signToken(t, testKey, adminClaims()))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.Principal != "ops-user" {
		t.Errorf("Principal = %q, want ops-user", identity.Principal)
	}
	if !identity.HasRole("admin") {
		t.Errorf("Roles = %v, want admin", identity.Roles)
	}
	if identity.ExpiresAt.IsZero() || identity.IssuedAt.IsZero() {
		t.Errorf("timestamps not extracted: %+v", identity)
	}
}

func TestVerifier_Rejections(t *testing.T) {
	v := newTestVerifier(t)
	ctx := context.Background()

	expired := adminClaims()
	expired["exp"] = float64(time.Now().Add(-time.Hour).Unix())

	wrongIssuer := adminClaims()
	wrongIssuer["iss"] = "someone-else"

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", ErrMissingCredentials},
		{"garbage", "not-a-token", ErrTokenMalformed},
		{"wrong key", signToken(t, []byte("other-key"), adminClaims()), ErrTokenMalformed},
		{"expired", signToken(t, testKey, expired), ErrTokenExpired},
		{"wrong issuer", signToken(t, testKey, wrongIssuer), ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(ctx, tt.token); !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewVerifier_RequiresKey(t *testing.T) {
	if _, err := NewVerifier(VerifierConfig{}); err == nil {
		t.Error("NewVerifier() without key succeeded, want error")
	}
}

func TestRequireRole(t *testing.T) {
	v := newTestVerifier(t)

	var gotPrincipal string
	handler := RequireRole(v, "admin", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			gotPrincipal = identity.Principal
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	viewer := adminClaims()
	viewer["roles"] = []any{"viewer"}

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer junk", http.StatusUnauthorized},
		{"missing role", "Bearer " + signToken(t, testKey, viewer), http.StatusForbidden},
		{"authorized", "Bearer " + signToken(t, testKey, adminClaims()), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}

	if gotPrincipal != "ops-user" {
		t.Errorf("handler saw principal %q, want ops-user", gotPrincipal)
	}
}
