package services

import (
	"math"
	"net/url"
	"strconv"
)

// Page query defaults for admin listings.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PageQuery selects one page of a listing. Page is 1-based.
type PageQuery struct {
	Page int
	Size int
}

// Page is a pagination envelope.
type Page[T any] struct {
	Data        []T  `json:"data"`
	Page        int  `json:"page"`
	Size        int  `json:"size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// ParsePageQuery reads page and size from query values. Missing or invalid
// values fall back to page 1 and DefaultPageSize; size is capped at MaxPageSize.
func ParsePageQuery(values url.Values) PageQuery {
	q := PageQuery{Page: 1, Size: DefaultPageSize}
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n >= 1 {
		q.Page = n
	}
	if n, err := strconv.Atoi(values.Get("size")); err == nil && n > 0 {
		q.Size = min(n, MaxPageSize)
	}
	return q
}

// Paginate slices items according to q.
func Paginate[T any](items []T, q PageQuery) Page[T] {
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Page < 1 {
		q.Page = 1
	}

	total := len(items)
	offset := min((q.Page-1)*q.Size, total)
	end := min(offset+q.Size, total)

	totalPages := int(math.Ceil(float64(total) / float64(q.Size)))
	if totalPages == 0 {
		totalPages = 1
	}

	data := items[offset:end]
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data:        data,
		Page:        q.Page,
		Size:        q.Size,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     end < total,
		HasPrevious: offset > 0,
	}
}
