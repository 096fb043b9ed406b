package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/we-be/vibe-chuck/internal/baas"
	"github.com/we-be/vibe-chuck/internal/core/session"
)

// Context keys for storing viewer information
type contextKey string

const (
	SessionKey contextKey = "viewer_session"
)

// tokenValue is the cookie session value holding the backend auth token.
const tokenValue = "backend_token"

// sessionMaxAge matches the backend's default auth token lifetime.
const sessionMaxAge = 14 * 24 * 60 * 60

// MinCookieSecretLength is the minimum secret length for the cookie store
const MinCookieSecretLength = 32

// NewCookieStore creates the signed cookie store holding viewer sessions.
func NewCookieStore(secret string, secure bool) (*sessions.CookieStore, error) {
	if len(secret) < MinCookieSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinCookieSecretLength)
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// SessionMiddleware resolves the viewer's session from the cookie on every request.
// It never rejects a request: a missing, tampered or expired cookie is an
// anonymous viewer. Handlers decide what anonymous viewers may see.
type SessionMiddleware struct {
	store sessions.Store
	now   func() time.Time
	name  string
}

// NewSessionMiddleware creates a session middleware reading cookie name from store.
func NewSessionMiddleware(store sessions.Store, name string) *SessionMiddleware {
	return &SessionMiddleware{
		store: store,
		name:  name,
		now:   time.Now,
	}
}

// LoadSession injects the viewer session and its backend token into the context
func (m *SessionMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := session.Anonymous()

		sess, err := m.store.Get(r, m.name)
		if err != nil {
			slog.Debug("ignoring unreadable session cookie", "error", err, "path", r.URL.Path)
		} else if token, ok := sess.Values[tokenValue].(string); ok {
			viewer = session.FromToken(token, m.now())
		}

		ctx := context.WithValue(r.Context(), SessionKey, viewer)
		ctx = baas.WithToken(ctx, viewer.Token())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Login stores a backend auth token in the viewer's cookie.
func (m *SessionMiddleware) Login(w http.ResponseWriter, r *http.Request, token string) error {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		// A stale cookie signed with an old secret; start over.
		sess, err = m.store.New(r, m.name)
		if sess == nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}
	sess.Values[tokenValue] = token
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Logout expires the viewer's cookie.
func (m *SessionMiddleware) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		sess, _ = m.store.New(r, m.name)
		if sess == nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}
	delete(sess.Values, tokenValue)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// GetSession extracts the viewer session from the request context
// Returns an anonymous session if none was loaded
func GetSession(r *http.Request) *session.Session {
	return SessionFromContext(r.Context())
}

// SessionFromContext is GetSession for code that only holds a context.
func SessionFromContext(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(SessionKey).(*session.Session); ok && s != nil {
		return s
	}
	return session.Anonymous()
}

// SetTestSession sets the viewer session in the context for testing purposes
// This function should ONLY be used in tests to mock authenticated viewers
func SetTestSession(ctx context.Context, s *session.Session) context.Context {
	ctx = context.WithValue(ctx, SessionKey, s)
	return baas.WithToken(ctx, s.Token())
}
