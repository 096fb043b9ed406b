package baas

import (
	"context"
	"sync"
)

// Factory constructs a backend. Lazy calls it until it succeeds once.
type Factory func() (Backend, error)

// Lazy is a memoized backend handle: the first successful call constructs the
// backend, every later call reuses it. A failed construction is not kept, so
// the next call tries again. Lazy itself satisfies Backend, so it is injected
// in place of the real client.
type Lazy struct {
	factory Factory

	mu      sync.Mutex
	backend Backend
}

var _ Backend = (*Lazy)(nil)

// NewLazy wraps factory in a construct-once handle.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Get returns the backend, constructing it on first use.
// Concurrent callers wait for a construction in progress.
func (l *Lazy) Get() (Backend, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.backend != nil {
		return l.backend, nil
	}
	b, err := l.factory()
	if err != nil {
		return nil, err
	}
	l.backend = b
	return b, nil
}

func (l *Lazy) List(ctx context.Context, collection string, query ListQuery) (*ListResult, error) {
	b, err := l.Get()
	if err != nil {
		return nil, err
	}
	return b.List(ctx, collection, query)
}

func (l *Lazy) GetFullList(ctx context.Context, collection string, query ListQuery) ([]Record, error) {
	b, err := l.Get()
	if err != nil {
		return nil, err
	}
	return b.GetFullList(ctx, collection, query)
}

func (l *Lazy) GetOne(ctx context.Context, collection string, id string, expand ...string) (Record, error) {
	b, err := l.Get()
	if err != nil {
		return nil, err
	}
	return b.GetOne(ctx, collection, id, expand...)
}

// FileURL returns "" while the backend cannot be constructed.
func (l *Lazy) FileURL(record Record, filename string) string {
	b, err := l.Get()
	if err != nil {
		return ""
	}
	return b.FileURL(record, filename)
}

// Update forwards to the backend when it accepts writes.
func (l *Lazy) Update(ctx context.Context, collection string, id string, fields map[string]any) (Record, error) {
	b, err := l.Get()
	if err != nil {
		return nil, err
	}
	w, ok := b.(Writer)
	if !ok {
		return nil, ErrReadOnly
	}
	return w.Update(ctx, collection, id, fields)
}
