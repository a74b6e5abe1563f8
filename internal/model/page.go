package model

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit within an int for any allowed limit.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Pagination is the server-side pagination block of list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page holds one page of a remote collection. Total reflects the
// server-side count, not len(Items).
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	Stale      bool `json:"stale,omitempty"`
}

// NewPage builds a Page from a server pagination block.
func NewPage[T any](items []T, p Pagination) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
}

// Paginate slices a complete collection the way the server would, for
// endpoints that return every row at once.
func Paginate[T any](all []T, page, limit int) Page[T] {
	page, limit = NormalizePaging(page, limit)
	total := len(all)
	totalPages := (total + limit - 1) / limit
	start := total
	if page-1 < total/limit+1 {
		start = min((page-1)*limit, total)
	}
	end := start + min(limit, total-start)
	items := make([]T, end-start)
	copy(items, all[start:end])
	return Page[T]{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// NormalizePaging replaces non-positive values with the defaults and
// clamps limit to MaxLimit and page to MaxPage.
func NormalizePaging(page, limit int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return min(page, MaxPage), min(limit, MaxLimit)
}
