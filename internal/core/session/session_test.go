package session

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims map[string]any, exp time.Time) string {
	t.Helper()
	builder := jwt.NewBuilder().IssuedAt(testNow.Add(-time.Hour))
	if !exp.IsZero() {
		builder = builder.Expiration(exp)
	}
	for k, v := range claims {
		builder = builder.Claim(k, v)
	}
	tok, err := builder.Build()
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("backend-secret")))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

func TestFromToken_Valid(t *testing.T) {
	token := signToken(t, map[string]any{
		"id":           "u1",
		"type":         "auth",
		"collectionId": "_pb_users_auth_",
	}, testNow.Add(24*time.Hour))

	s := FromToken(token, testNow)

	if !s.IsAuthenticated() {
		t.Fatal("expected authenticated session")
	}
	id, ok := s.CurrentUserID()
	if !ok || id != "u1" {
		t.Errorf("CurrentUserID() = %q, %v; want u1, true", id, ok)
	}
	if s.Token() != token {
		t.Error("Token() should return the raw token for forwarding")
	}
	if s.CollectionID() != "_pb_users_auth_" {
		t.Errorf("CollectionID() = %q", s.CollectionID())
	}
	if !s.ExpiresAt().Equal(testNow.Add(24 * time.Hour)) {
		t.Errorf("ExpiresAt() = %v", s.ExpiresAt())
	}
}

func TestFromToken_Anonymous(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "empty",
			token: func(t *testing.T) string { return "" },
		},
		{
			name:  "garbage",
			token: func(t *testing.T) string { return "not-a-jwt" },
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return signToken(t, map[string]any{"id": "u1"}, testNow.Add(-time.Minute))
			},
		},
		{
			name: "no expiry",
			token: func(t *testing.T) string {
				return signToken(t, map[string]any{"id": "u1"}, time.Time{})
			},
		},
		{
			name: "no user id",
			token: func(t *testing.T) string {
				return signToken(t, map[string]any{"type": "auth"}, testNow.Add(time.Hour))
			},
		},
		{
			name: "non-string user id",
			token: func(t *testing.T) string {
				return signToken(t, map[string]any{"id": 42}, testNow.Add(time.Hour))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromToken(tt.token(t), testNow)
			if s.IsAuthenticated() {
				t.Error("expected anonymous session")
			}
			if id, ok := s.CurrentUserID(); ok || id != "" {
				t.Errorf("CurrentUserID() = %q, %v; want empty", id, ok)
			}
			if s.Token() != "" {
				t.Error("anonymous session must not expose a token")
			}
		})
	}
}

func TestNilSessionIsAnonymous(t *testing.T) {
	var s *Session
	if s.IsAuthenticated() {
		t.Error("nil session should be anonymous")
	}
	if _, ok := s.CurrentUserID(); ok {
		t.Error("nil session should have no user id")
	}
	if !s.ExpiresAt().IsZero() {
		t.Error("nil session should have no expiry")
	}
}
