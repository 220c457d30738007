package magicapi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var filterItems = []Endpoint{
	{Method: "GET", FullPath: "shop/orders/list", Name: "List orders"},
	{Method: "POST", FullPath: "shop/orders/create", Name: "Create order"},
	{Method: "GET", FullPath: "health", Name: "Health check"},
	{Method: "DELETE", FullPath: "shop/admin/users", Name: "Remove user"},
}

func TestFilterEndpoints_EmptyPatternPassthrough(t *testing.T) {
	got, err := FilterEndpoints(filterItems, FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, filterItems, got)
}

func TestFilterEndpoints_SubstringCaseInsensitive(t *testing.T) {
	got, err := FilterEndpoints(filterItems, FilterOptions{Pattern: "ORDERS"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "shop/orders/list", got[0].FullPath)
	assert.Equal(t, "shop/orders/create", got[1].FullPath)
}

func TestFilterEndpoints_Scopes(t *testing.T) {
	tests := []struct {
		scope FilterScope
		// "user" appears in a path; "check" only in a name; "get" only as a method.
		pattern string
		want    int
	}{
		{ScopePath, "users", 1},
		{ScopeName, "check", 1},
		{ScopeMethod, "get", 2},
		{ScopeAll, "shop", 3},
		{ScopeName, "shop", 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.scope, tt.pattern), func(t *testing.T) {
			got, err := FilterEndpoints(filterItems, FilterOptions{Pattern: tt.pattern, Scope: tt.scope})
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestFilterEndpoints_Regex(t *testing.T) {
	got, err := FilterEndpoints(filterItems, FilterOptions{
		Pattern: `^shop/orders/(list|create)$`,
		Regex:   true,
		Scope:   ScopePath,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFilterEndpoints_MalformedRegex(t *testing.T) {
	_, err := FilterEndpoints(filterItems, FilterOptions{
		Pattern: `[unclosed`,
		Regex:   true,
		Field:   "search",
	})
	require.Error(t, err)

	var filterErr *FilterError

	require.ErrorAs(t, err, &filterErr)
	assert.Equal(t, "search", filterErr.Field)
}

func TestLimitDepth(t *testing.T) {
	got := LimitDepth(filterItems, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "health", got[0].FullPath)

	assert.Equal(t, filterItems, LimitDepth(filterItems, 0), "zero means no limit")
	assert.Len(t, LimitDepth(filterItems, 3), 4)
}

func TestPaginate(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	page, err := Paginate(items, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 25, page.TotalCount)

	page, err = Paginate(items, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 20, page.Items[0])

	// Beyond the last page: empty window, true totals, no error.
	page, err = Paginate(items, 4, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 25, page.TotalCount)
	assert.Equal(t, 4, page.Number)
}

func TestPaginate_ExactMultiple(t *testing.T) {
	items := []string{"a", "b", "c", "d"}

	page, err := Paginate(items, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, page.Items)
	assert.Equal(t, 2, page.TotalPages)
}

func TestPaginate_InvalidArguments(t *testing.T) {
	_, err := Paginate([]int{1}, 0, 10)
	assert.Error(t, err)

	_, err = Paginate([]int{1}, 1, 0)
	assert.Error(t, err)
}

func TestPaginate_Empty(t *testing.T) {
	page, err := Paginate([]int(nil), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 0, page.TotalCount)
}
