// Package baas provides access to the hosted Backend-as-a-Service that owns all
// of the site's data: the "events", "posts" and "users" collections, file hosting
// and password authentication. The REST conventions are those of PocketBase.
//
// Services depend on the Backend interface only, so the HTTP client and the
// Postgres mirror (internal/db/postgres) are interchangeable.
package baas

import "context"

// Collection names used by the application.
const (
	CollectionEvents = "events"
	CollectionPosts  = "posts"
	CollectionUsers  = "users"
)

// Backend is the query surface the page loaders consume.
type Backend interface {
	// List returns exactly one page of matching records plus the true total count.
	List(ctx context.Context, collection string, query ListQuery) (*ListResult, error)

	// GetFullList returns every matching record, walking the backend's pages.
	// Page and PerPage of the query are ignored.
	GetFullList(ctx context.Context, collection string, query ListQuery) ([]Record, error)

	// GetOne retrieves a single record by id, optionally expanding relations.
	GetOne(ctx context.Context, collection string, id string, expand ...string) (Record, error)

	// FileURL resolves a stored file reference of record to a fetchable URL.
	FileURL(record Record, filename string) string
}

// Writer is implemented by backends that accept record updates.
type Writer interface {
	// Update patches the given fields of a record and returns the updated record.
	Update(ctx context.Context, collection string, id string, fields map[string]any) (Record, error)
}

// Authenticator is implemented by backends that issue auth tokens.
type Authenticator interface {
	// AuthWithPassword exchanges credentials of an auth collection for a token.
	AuthWithPassword(ctx context.Context, collection, identity, password string) (*AuthResult, error)
}

// ListQuery describes a filtered, sorted, optionally paginated read.
type ListQuery struct {
	Filter  Filter
	Sort    string   // backend sort expression, e.g. "rank" or "-start"
	Expand  []string // relation fields to inline, e.g. "op"
	Page    int      // 1-indexed; used by List only
	PerPage int      // used by List only
}

// ListResult is one page of records as reported by the backend.
type ListResult struct {
	Items      []Record `json:"items"`
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
}

// AuthResult is a successful password authentication.
type AuthResult struct {
	Record Record `json:"record"`
	Token  string `json:"token"`
}

type tokenKey struct{}

// WithToken attaches the viewer's auth token to ctx; backend calls made with the
// returned context are performed on behalf of that viewer.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the auth token attached with WithToken, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
