package shared

import "math"

// Pagination is the listing metadata echoed by every search endpoint.
type Pagination struct {
	Page    int  `json:"page"`
	Size    int  `json:"size"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// NewPagination normalises page/size and computes paging metadata.
func NewPagination(page, size, total int) Pagination {
	if size <= 0 {
		size = 10
	}
	if page <= 0 {
		page = 1
	}
	pages := int(math.Ceil(float64(total) / float64(size)))
	return Pagination{
		Page:    page,
		Size:    size,
		Total:   total,
		Pages:   pages,
		HasNext: page*size < total,
		HasPrev: page > 1,
	}
}

// Offset returns the row offset for the normalised page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Size
}
