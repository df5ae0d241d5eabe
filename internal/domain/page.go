package domain

import "strconv"

const (
	// DefaultPageSize is the page size used by list endpoints unless stated otherwise.
	DefaultPageSize = 10
	// MaxPage and MaxPageSize bound what a caller may ask for.
	MaxPage     = 100_000
	MaxPageSize = 100
)

// PageRequest describes which slice of a listing the caller wants.
type PageRequest struct {
	Page  int
	Size  int
	Query string
}

// NewPageRequest parses the ?page= value, falling back to page 1 for
// missing or malformed input. Pages past MaxPage are clamped to it.
func NewPageRequest(page, query string, size int) PageRequest {
	n, err := strconv.Atoi(page)
	if err != nil || n < 1 {
		n = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return PageRequest{Page: min(n, MaxPage), Size: min(size, MaxPageSize), Query: query}
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	page := max(1, min(p.Page, MaxPage))
	return (page - 1) * max(0, p.Size)
}

// Page is one slice of a listing together with its position.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Total       int `json:"total"`
}

// NewPage builds a Page, rounding the page count up.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	return Page[T]{Items: items, CurrentPage: req.Page, TotalPages: pages, Total: total}
}
