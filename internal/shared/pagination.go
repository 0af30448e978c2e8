package shared

import (
	"errors"
	"math"
)

// DefaultPerPage is the page size used when none is requested.
const DefaultPerPage = 10

// PerPageOptions lists the page sizes offered to dashboard users.
var PerPageOptions = []int{10, 50, 100}

// ErrInvalidPerPage is returned when a requested page size is not offered.
var ErrInvalidPerPage = errors.New("pagination: unsupported page size")

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages(total, perPage)}
}

// ValidatePerPage checks perPage against PerPageOptions. Zero selects the default.
func ValidatePerPage(perPage int) (int, error) {
	if perPage == 0 {
		return DefaultPerPage, nil
	}
	for _, opt := range PerPageOptions {
		if opt == perPage {
			return perPage, nil
		}
	}
	return 0, ErrInvalidPerPage
}

// Page is one slice of a larger collection.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

// Paginate returns items[(page-1)*pageSize : page*pageSize] with a 1-based
// page index. Out-of-range pages are not clamped; they yield an empty slice.
// The returned slice never aliases items.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPerPage
	}
	result := Page[T]{Items: []T{}, Page: page, TotalPages: totalPages(len(items), pageSize)}
	if page < 1 {
		return result
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return result
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	result.Items = append(result.Items, items[start:end]...)
	return result
}

func totalPages(total, perPage int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}
