package product

import "math"

const (
	// DefaultPageSize is used when a request does not specify a size.
	DefaultPageSize = 20
	// MaxPageSize caps the number of items returned in one page.
	MaxPageSize = 100
)

// PageRequest selects a zero-based page of results.
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the request to valid bounds.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	switch {
	case r.Size <= 0:
		r.Size = DefaultPageSize
	case r.Size > MaxPageSize:
		r.Size = MaxPageSize
	}
	return r
}

// Offset returns the number of items preceding the page, saturating at
// math.MaxInt for pages too far out to address.
func (r PageRequest) Offset() int {
	if r.Page <= 0 || r.Size <= 0 {
		return 0
	}
	if r.Page > math.MaxInt/r.Size {
		return math.MaxInt
	}
	return r.Page * r.Size
}

// Page is one slice of an ordered result set together with its metadata.
type Page[T any] struct {
	Items []T
	Page  int
	Size  int
	Total int64
}

// TotalPages returns the number of pages needed to hold Total items.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// MapPage converts the items of a page, keeping its metadata and order.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, len(p.Items))
	for i, v := range p.Items {
		items[i] = fn(v)
	}
	return Page[U]{
		Items: items,
		Page:  p.Page,
		Size:  p.Size,
		Total: p.Total,
	}
}
