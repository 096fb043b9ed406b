package baas

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// stubBackend is a minimal in-memory Backend for tests.
type stubBackend struct {
	records []Record
}

func (s *stubBackend) List(ctx context.Context, collection string, query ListQuery) (*ListResult, error) {
	return &ListResult{Items: s.records, Page: query.Page, PerPage: query.PerPage, TotalItems: len(s.records)}, nil
}

func (s *stubBackend) GetFullList(ctx context.Context, collection string, query ListQuery) ([]Record, error) {
	return s.records, nil
}

func (s *stubBackend) GetOne(ctx context.Context, collection string, id string, expand ...string) (Record, error) {
	for _, r := range s.records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubBackend) FileURL(record Record, filename string) string {
	return FileURL("https://files.test", record, filename)
}

func TestLazy_ConstructsOnce(t *testing.T) {
	var calls atomic.Int32
	backend := &stubBackend{records: []Record{{"id": "p1"}}}
	lazy := NewLazy(func() (Backend, error) {
		calls.Add(1)
		return backend, nil
	})

	if calls.Load() != 0 {
		t.Fatal("factory must not run before first use")
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lazy.GetFullList(context.Background(), CollectionPosts, ListQuery{}); err != nil {
				t.Errorf("GetFullList failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("factory called %d times, want 1", got)
	}

	b, err := lazy.Get()
	if err != nil || b != backend {
		t.Errorf("Get() = %v, %v; want the memoized backend", b, err)
	}
}

func TestLazy_RetriesAfterConstructionError(t *testing.T) {
	refused := errors.New("dial tcp: connection refused")
	backend := &stubBackend{records: []Record{{"id": "p1"}}}
	var calls int
	lazy := NewLazy(func() (Backend, error) {
		calls++
		if calls == 1 {
			return nil, refused
		}
		return backend, nil
	})

	if _, err := lazy.List(context.Background(), CollectionPosts, ListQuery{}); !errors.Is(err, refused) {
		t.Fatalf("first List error = %v, want %v", err, refused)
	}

	res, err := lazy.List(context.Background(), CollectionPosts, ListQuery{})
	if err != nil {
		t.Fatalf("List after recovery failed: %v", err)
	}
	if len(res.Items) != 1 {
		t.Errorf("List returned %d items, want 1", len(res.Items))
	}
	if _, err := lazy.GetOne(context.Background(), CollectionPosts, "p1"); err != nil {
		t.Errorf("GetOne failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("factory called %d times, want 2", calls)
	}
}

func TestLazy_FileURLWhileBroken(t *testing.T) {
	lazy := NewLazy(func() (Backend, error) { return nil, errors.New("bad backend URL") })

	if got := lazy.FileURL(Record{"id": "p1", "collectionId": "c"}, "a.png"); got != "" {
		t.Errorf("FileURL = %q, want empty while backend is broken", got)
	}
	if _, err := lazy.GetFullList(context.Background(), CollectionPosts, ListQuery{}); err == nil {
		t.Error("GetFullList should fail while backend is broken")
	}
}

func TestLazy_UpdateOnReadOnlyBackend(t *testing.T) {
	lazy := NewLazy(func() (Backend, error) { return &stubBackend{}, nil })

	_, err := lazy.Update(context.Background(), CollectionPosts, "p1", map[string]any{"title": "x"})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("Update error = %v, want ErrReadOnly", err)
	}
}
