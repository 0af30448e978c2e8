package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]int{}, 1, 10)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 0, p.TotalPages)
}

func TestPaginateLastPartialPage(t *testing.T) {
	items := seq(25)
	p := Paginate(items, 3, 10)
	assert.Equal(t, items[20:25], p.Items)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 3, p.Page)
}

func TestPaginateIsIdempotentAndDoesNotMutate(t *testing.T) {
	items := seq(25)
	first := Paginate(items, 2, 10)
	second := Paginate(items, 2, 10)
	assert.Equal(t, first, second)

	first.Items[0] = -1
	assert.Equal(t, 11, items[10], "page must not alias the source")
}

func TestPaginateOutOfRange(t *testing.T) {
	p := Paginate(seq(5), 4, 10)
	assert.Empty(t, p.Items)
	assert.Equal(t, 1, p.TotalPages)

	p = Paginate(seq(5), 0, 10)
	assert.Empty(t, p.Items)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 21)
	assert.Equal(t, Pagination{Page: 1, PerPage: 10, Total: 21, TotalPages: 3}, p)
	assert.Equal(t, 0, NewPagination(1, 10, 0).TotalPages)
}

func TestValidatePerPage(t *testing.T) {
	v, err := ValidatePerPage(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPerPage, v)

	v, err = ValidatePerPage(50)
	require.NoError(t, err)
	assert.Equal(t, 50, v)

	_, err = ValidatePerPage(25)
	assert.ErrorIs(t, err, ErrInvalidPerPage)
}
