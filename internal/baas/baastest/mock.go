// Package baastest provides a configurable backend double for tests.
package baastest

import (
	"context"
	"sync"

	"github.com/we-be/vibe-chuck/internal/baas"
)

// Call records one backend invocation.
type Call struct {
	Fields     map[string]any
	Method     string
	Collection string
	ID         string
	Query      baas.ListQuery
	Token      string
}

// MockBackend implements baas.Backend and baas.Writer with overridable funcs.
// Unset funcs return empty results. Calls are recorded and safe for concurrent use.
type MockBackend struct {
	ListFunc        func(ctx context.Context, collection string, query baas.ListQuery) (*baas.ListResult, error)
	GetFullListFunc func(ctx context.Context, collection string, query baas.ListQuery) ([]baas.Record, error)
	GetOneFunc      func(ctx context.Context, collection string, id string, expand ...string) (baas.Record, error)
	UpdateFunc      func(ctx context.Context, collection string, id string, fields map[string]any) (baas.Record, error)

	// FilesBaseURL is used by FileURL; defaults to https://files.test.
	FilesBaseURL string

	mu    sync.Mutex
	calls []Call
}

var (
	_ baas.Backend = (*MockBackend)(nil)
	_ baas.Writer  = (*MockBackend)(nil)
)

func (m *MockBackend) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns the recorded invocations of method ("" for all).
func (m *MockBackend) Calls(method string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockBackend) List(ctx context.Context, collection string, query baas.ListQuery) (*baas.ListResult, error) {
	m.record(Call{Method: "List", Collection: collection, Query: query, Token: baas.TokenFromContext(ctx)})
	if m.ListFunc != nil {
		return m.ListFunc(ctx, collection, query)
	}
	return &baas.ListResult{Items: []baas.Record{}, Page: query.Page, PerPage: query.PerPage}, nil
}

func (m *MockBackend) GetFullList(ctx context.Context, collection string, query baas.ListQuery) ([]baas.Record, error) {
	m.record(Call{Method: "GetFullList", Collection: collection, Query: query, Token: baas.TokenFromContext(ctx)})
	if m.GetFullListFunc != nil {
		return m.GetFullListFunc(ctx, collection, query)
	}
	return []baas.Record{}, nil
}

func (m *MockBackend) GetOne(ctx context.Context, collection string, id string, expand ...string) (baas.Record, error) {
	m.record(Call{Method: "GetOne", Collection: collection, ID: id, Query: baas.ListQuery{Expand: expand}, Token: baas.TokenFromContext(ctx)})
	if m.GetOneFunc != nil {
		return m.GetOneFunc(ctx, collection, id, expand...)
	}
	return nil, baas.ErrNotFound
}

func (m *MockBackend) Update(ctx context.Context, collection string, id string, fields map[string]any) (baas.Record, error) {
	m.record(Call{Method: "Update", Collection: collection, ID: id, Fields: fields, Token: baas.TokenFromContext(ctx)})
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, collection, id, fields)
	}
	return nil, baas.ErrReadOnly
}

func (m *MockBackend) FileURL(record baas.Record, filename string) string {
	base := m.FilesBaseURL
	if base == "" {
		base = "https://files.test"
	}
	return baas.FileURL(base, record, filename)
}

// Post builds a posts record with the common fields set.
func Post(id, eventID, ownerID string, rank int, imgs ...string) baas.Record {
	files := make([]any, 0, len(imgs))
	for _, img := range imgs {
		files = append(files, img)
	}
	return baas.Record{
		"id":             id,
		"collectionId":   "pbc_posts",
		"collectionName": baas.CollectionPosts,
		"title":          "Post " + id,
		"description":    "",
		"event":          eventID,
		"op":             ownerID,
		"rank":           float64(rank),
		"votes":          float64(0),
		"imgs":           files,
		"created":        "2024-05-01 12:00:00.000Z",
	}
}

// Event builds an events record.
func Event(id, displayName, start string) baas.Record {
	return baas.Record{
		"id":             id,
		"collectionId":   "pbc_events",
		"collectionName": baas.CollectionEvents,
		"displayName":    displayName,
		"start":          start,
	}
}
