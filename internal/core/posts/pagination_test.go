package posts

import (
	"math"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{23, 5, 5},
		{25, 5, 5},
		{23, 0, 0},
		{5, math.MaxInt, 1},
		{math.MaxInt, 2, math.MaxInt/2 + 1},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.perPage); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := seq(23)

	tests := []struct {
		name      string
		page      int
		perPage   int
		wantFirst int
		wantLen   int
		wantPage  int
		wantPer   int
	}{
		{name: "first page", page: 1, perPage: 5, wantFirst: 1, wantLen: 5, wantPage: 1, wantPer: 5},
		{name: "last partial page", page: 5, perPage: 5, wantFirst: 21, wantLen: 3, wantPage: 5, wantPer: 5},
		{name: "past the end", page: 6, perPage: 5, wantLen: 0, wantPage: 6, wantPer: 5},
		{name: "page clamped", page: -3, perPage: 5, wantFirst: 1, wantLen: 5, wantPage: 1, wantPer: 5},
		{name: "perPage default", page: 1, perPage: 0, wantFirst: 1, wantLen: DefaultPerPage, wantPage: 1, wantPer: DefaultPerPage},
		{name: "perPage capped", page: 1, perPage: 1000, wantFirst: 1, wantLen: 23, wantPage: 1, wantPer: MaxPerPage},
		{name: "huge page", page: 1<<62 + 1, perPage: 2, wantLen: 0, wantPage: 1<<62 + 1, wantPer: 2},
		{name: "huge page wrapping to zero offset", page: 1<<62 + 1, perPage: 4, wantLen: 0, wantPage: 1<<62 + 1, wantPer: 4},
		{name: "max page", page: math.MaxInt, perPage: MaxPerPage, wantLen: 0, wantPage: math.MaxInt, wantPer: MaxPerPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, p := Paginate(items, tt.page, tt.perPage)
			if got == nil {
				t.Fatal("page must never be nil")
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0] != tt.wantFirst {
				t.Errorf("first = %d, want %d", got[0], tt.wantFirst)
			}
			if p.Page != tt.wantPage || p.PerPage != tt.wantPer || p.TotalItems != 23 {
				t.Errorf("pagination = %+v", p)
			}
			if p.TotalPages != TotalPages(23, tt.wantPer) {
				t.Errorf("TotalPages = %d", p.TotalPages)
			}
		})
	}
}

func TestPaginate_DoesNotAliasInput(t *testing.T) {
	items := seq(4)
	page, _ := Paginate(items, 1, 2)
	page[0] = 99
	if items[0] != 1 {
		t.Error("Paginate must return a copy")
	}
}

func TestFromServer(t *testing.T) {
	p := FromServer(6, 5, 23)
	if p.Page != 6 || p.PerPage != 5 || p.TotalItems != 23 || p.TotalPages != 5 {
		t.Errorf("FromServer = %+v", p)
	}

	capped := FromServer(1, 1000, 1200)
	if capped.PerPage != MaxPerPage || capped.TotalPages != 3 {
		t.Errorf("FromServer with oversized perPage = %+v, want perPage %d and 3 pages", capped, MaxPerPage)
	}
}
