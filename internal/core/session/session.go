// Package session exposes the viewer's authentication state, derived from the
// backend auth token kept in the browser session cookie.
package session

import (
	"log/slog"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Session is the authentication state of one viewer for one request.
// The zero value and nil are both anonymous.
type Session struct {
	expiresAt    time.Time
	token        string
	userID       string
	collectionID string
}

// Anonymous returns a session with no authenticated user.
func Anonymous() *Session {
	return &Session{}
}

// FromToken decodes a backend auth token.
//
// The token is valid when it is a well-formed JWT whose exp lies after now and
// which carries a non-empty id claim (the user record id). The signature is not
// checked here; the backend re-validates the token on every forwarded request.
// Any other token yields an anonymous session.
func FromToken(token string, now time.Time) *Session {
	if token == "" {
		return Anonymous()
	}

	parsed, err := jwt.ParseString(token,
		jwt.WithVerify(false),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	)
	if err != nil {
		slog.Debug("discarding backend auth token", "error", err)
		return Anonymous()
	}

	exp := parsed.Expiration()
	if exp.IsZero() || !exp.After(now) {
		return Anonymous()
	}

	userID := stringClaim(parsed, "id")
	if userID == "" {
		return Anonymous()
	}

	return &Session{
		token:        token,
		userID:       userID,
		collectionID: stringClaim(parsed, "collectionId"),
		expiresAt:    exp,
	}
}

func stringClaim(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// IsAuthenticated reports whether the viewer holds a valid token.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.userID != ""
}

// CurrentUserID returns the authenticated user's record id.
func (s *Session) CurrentUserID() (string, bool) {
	if !s.IsAuthenticated() {
		return "", false
	}
	return s.userID, true
}

// Token returns the raw token to forward to the backend, or "" when anonymous.
func (s *Session) Token() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.token
}

// CollectionID is the auth collection that issued the token.
func (s *Session) CollectionID() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.collectionID
}

// ExpiresAt returns the token expiry, zero when anonymous.
func (s *Session) ExpiresAt() time.Time {
	if !s.IsAuthenticated() {
		return time.Time{}
	}
	return s.expiresAt
}
