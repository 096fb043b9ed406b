package posts

import (
	"math"
	"testing"

	"github.com/we-be/vibe-chuck/internal/baas"
	"github.com/we-be/vibe-chuck/internal/baas/baastest"
)

var testFiles = &baastest.MockBackend{FilesBaseURL: "https://pb.test"}

func TestProject_Defaults(t *testing.T) {
	rec := baas.Record{"id": "p1", "collectionId": "c1"}

	view := Project(rec, ProjectContext{}, testFiles)

	if view.ID != "p1" {
		t.Errorf("ID = %q", view.ID)
	}
	if view.Title != "" || view.Description != "" || view.Op != "" {
		t.Errorf("missing strings should default to empty, got %+v", view)
	}
	if view.Votes != 0 {
		t.Errorf("Votes = %d, want 0", view.Votes)
	}
	if view.Imgs == nil || len(view.Imgs) != 0 {
		t.Errorf("Imgs = %#v, want empty non-nil slice", view.Imgs)
	}
	if view.HasRank || view.SortKey() != math.MaxInt {
		t.Errorf("missing rank should be unranked, got HasRank=%v SortKey=%d", view.HasRank, view.SortKey())
	}
}

func TestProject_Rank(t *testing.T) {
	tests := []struct {
		name    string
		rank    any
		hasRank bool
		sortKey int
	}{
		{name: "ranked", rank: float64(3), hasRank: true, sortKey: 3},
		{name: "zero", rank: float64(0), hasRank: false, sortKey: math.MaxInt},
		{name: "negative", rank: float64(-1), hasRank: false, sortKey: math.MaxInt},
		{name: "not a number", rank: "first", hasRank: false, sortKey: math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Project(baas.Record{"id": "p", "rank": tt.rank}, ProjectContext{}, testFiles)
			if view.HasRank != tt.hasRank || view.SortKey() != tt.sortKey {
				t.Errorf("HasRank=%v SortKey=%d, want %v %d", view.HasRank, view.SortKey(), tt.hasRank, tt.sortKey)
			}
		})
	}
}

func TestProject_OwnerName(t *testing.T) {
	tests := []struct {
		name     string
		expand   any
		expanded bool
		want     string
	}{
		{name: "not expanded uses raw id", expand: nil, expanded: false, want: "u1"},
		{name: "not expanded ignores expansion data", expand: map[string]any{"op": map[string]any{"name": "Chuck"}}, expanded: false, want: "u1"},
		{name: "display name", expand: map[string]any{"op": map[string]any{"name": "Chuck", "username": "chuck42"}}, expanded: true, want: "Chuck"},
		{name: "username fallback", expand: map[string]any{"op": map[string]any{"name": "", "username": "chuck42"}}, expanded: true, want: "chuck42"},
		{name: "nested user missing", expand: map[string]any{}, expanded: true, want: UnknownOwner},
		{name: "no expand block", expand: nil, expanded: true, want: UnknownOwner},
		{name: "nested user without names", expand: map[string]any{"op": map[string]any{"id": "u1"}}, expanded: true, want: UnknownOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := baas.Record{"id": "p1", "op": "u1"}
			if tt.expand != nil {
				rec["expand"] = tt.expand
			}
			view := Project(rec, ProjectContext{OwnerExpanded: tt.expanded}, testFiles)
			if view.OwnerName != tt.want {
				t.Errorf("OwnerName = %q, want %q", view.OwnerName, tt.want)
			}
			if view.Op != "u1" {
				t.Errorf("Op = %q, want raw owner id", view.Op)
			}
		})
	}
}

func TestResolveImages_PreservesOrder(t *testing.T) {
	rec := baastest.Post("p1", "e1", "u1", 1, "a.png", "b.png", "c.png")

	urls := ResolveImages(testFiles, rec)

	want := []string{
		"https://pb.test/api/files/pbc_posts/p1/a.png",
		"https://pb.test/api/files/pbc_posts/p1/b.png",
		"https://pb.test/api/files/pbc_posts/p1/c.png",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls, want %d", len(urls), len(want))
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestResolveImages_Empty(t *testing.T) {
	for name, rec := range map[string]baas.Record{
		"no field":     {"id": "p1", "collectionId": "c1"},
		"empty list":   {"id": "p1", "collectionId": "c1", "imgs": []any{}},
		"empty string": {"id": "p1", "collectionId": "c1", "imgs": ""},
		"blank names":  {"id": "p1", "collectionId": "c1", "imgs": []any{"", ""}},
	} {
		t.Run(name, func(t *testing.T) {
			urls := ResolveImages(testFiles, rec)
			if urls == nil || len(urls) != 0 {
				t.Errorf("ResolveImages() = %#v, want empty non-nil slice", urls)
			}
		})
	}
}

// resolverFunc adapts a function to FileResolver.
type resolverFunc func(rec baas.Record, filename string) string

func (f resolverFunc) FileURL(rec baas.Record, filename string) string { return f(rec, filename) }

func TestResolveImages_SkipsUnusableReferences(t *testing.T) {
	rec := baas.Record{"id": "p1", "collectionId": "c1", "imgs": []any{"a.png", "", "broken.png", "b.png"}}
	files := resolverFunc(func(rec baas.Record, filename string) string {
		if filename == "broken.png" {
			return ""
		}
		return "https://pb.test/" + filename
	})

	urls := ResolveImages(files, rec)

	want := []string{"https://pb.test/a.png", "https://pb.test/b.png"}
	if len(urls) != len(want) {
		t.Fatalf("ResolveImages() = %#v, want %#v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}
