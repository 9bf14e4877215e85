package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 3, p.TotalPages)

	p = NewPagination(0, 0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 0, p.TotalPages)
}

func TestListFiltersBounds(t *testing.T) {
	f := ListFilters{}
	require.Equal(t, 20, f.Limit())
	require.Equal(t, 0, f.Offset())

	f = ListFilters{Page: 3, PerPage: 500}
	require.Equal(t, 100, f.Limit())
	require.Equal(t, 200, f.Offset())
}
