package repository

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination selects one page of an ordered listing.
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination clamps page to >= 1 and size to 1..MaxPageSize. A
// non-positive size falls back to DefaultPageSize.
func NewPagination(page, size int) Pagination {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Pagination{Page: page, PageSize: size}
}

// Offset returns the number of rows to skip.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the page size.
func (p Pagination) Limit() int {
	return p.PageSize
}
