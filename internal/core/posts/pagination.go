package posts

const (
	// DefaultPerPage is the page size of a failed or unconfigured listing.
	DefaultPerPage = 10
	// MaxPerPage is the largest page the backend serves.
	MaxPerPage = 500
)

// DefaultPagination is the pagination of an empty listing.
func DefaultPagination() Pagination {
	return Pagination{Page: 1, PerPage: DefaultPerPage}
}

// TotalPages returns ceil(totalItems / perPage), 0 when there are no items.
func TotalPages(totalItems, perPage int) int {
	if totalItems <= 0 || perPage <= 0 {
		return 0
	}
	n := totalItems / perPage
	if totalItems%perPage != 0 {
		n++
	}
	return n
}

// Paginate returns the 1-indexed page of items. Page numbers below 1 are
// clamped to 1, a perPage below 1 becomes DefaultPerPage, a perPage above
// MaxPerPage is capped, and a page past the end is empty rather than an error.
func Paginate[T any](items []T, page, perPage int) ([]T, Pagination) {
	page, perPage = normalizePage(page, perPage, DefaultPerPage)

	total := len(items)
	p := Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: TotalPages(total, perPage),
	}

	// Compare page counts first: (page-1)*perPage overflows for huge pages.
	if page-1 >= p.TotalPages {
		return []T{}, p
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)

	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, p
}

// FromServer describes a page the backend already sliced.
func FromServer(page, perPage, totalItems int) Pagination {
	page, perPage = normalizePage(page, perPage, DefaultPerPage)
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: TotalPages(totalItems, perPage),
	}
}

func normalizePage(page, perPage, defaultPerPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}
