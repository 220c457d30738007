package magicapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treePayload is a representative /resource response: an api section with
// one group and two endpoints, plus a function section.
const treePayload = `{
	"code": 1,
	"message": "ok",
	"data": {
		"api": {
			"node": {"id": "", "name": "api"},
			"children": [
				{
					"node": {"id": "g1", "path": "shop", "name": "Shop", "type": "api", "groupId": "0"},
					"children": [
						{"node": {"id": "e1", "path": "orders", "name": "Orders", "method": "GET", "groupId": "g1"}, "children": []},
						{"node": {"id": "e2", "path": "pay", "name": "Pay", "method": "POST", "groupId": "g1"}, "children": []}
					]
				}
			]
		},
		"function": {
			"node": {"id": "", "name": "function"},
			"children": [
				{"node": {"id": "f1", "path": "util", "name": "Util", "type": "function", "groupId": "0"}, "children": []}
			]
		}
	}
}`

func newTreeTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/resource", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(treePayload))
	})

	return httptest.NewServer(mux)
}

func TestTreeClient_Fetch(t *testing.T) {
	srv := newTreeTestServer(t)
	defer srv.Close()

	trees := NewTreeClient(newTestSession(t, srv.URL, nil), testLogger())

	tree, err := trees.Fetch(context.Background())
	require.NoError(t, err)

	api := tree.Section(KindEndpoint)
	require.NotNil(t, api)
	assert.Equal(t, KindGroup, api.Kind)
	require.Len(t, api.Children, 1)

	shop := api.Children[0]
	assert.Equal(t, "g1", shop.ID)
	assert.Equal(t, KindGroup, shop.Kind, "folder entries decode as groups")
	require.Len(t, shop.Children, 2)

	// Delivery order preserved.
	assert.Equal(t, "e1", shop.Children[0].ID)
	assert.Equal(t, KindEndpoint, shop.Children[0].Kind)
	assert.Equal(t, "GET", shop.Children[0].Method)
	assert.Equal(t, "e2", shop.Children[1].ID)

	fn := tree.Section(KindFunction)
	require.NotNil(t, fn)
	require.Len(t, fn.Children, 1)
	assert.Equal(t, KindGroup, fn.Children[0].Kind)

	assert.Nil(t, tree.Section(KindTask))
}

func TestTreeClient_SectionKindsOrder(t *testing.T) {
	srv := newTreeTestServer(t)
	defer srv.Close()

	trees := NewTreeClient(newTestSession(t, srv.URL, nil), testLogger())

	tree, err := trees.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []NodeKind{KindEndpoint, KindFunction}, tree.SectionKinds())
}

func TestTreeClient_FetchMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":1,"data":[1,2,3]}`))
	}))
	defer srv.Close()

	trees := NewTreeClient(newTestSession(t, srv.URL, nil), testLogger())

	_, err := trees.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestComputeStats(t *testing.T) {
	srv := newTreeTestServer(t)
	defer srv.Close()

	trees := NewTreeClient(newTestSession(t, srv.URL, nil), testLogger())

	tree, err := trees.Fetch(context.Background())
	require.NoError(t, err)

	stats := ComputeStats(tree)
	assert.Equal(t, 4, stats.TotalResources, "g1, e1, e2, f1")
	assert.Equal(t, 2, stats.Endpoints)
	assert.Equal(t, 2, stats.OtherResources)
	assert.Equal(t, map[string]int{"GET": 1, "POST": 1}, stats.ByMethod)
}

func TestFlattenTree_AcrossSections(t *testing.T) {
	srv := newTreeTestServer(t)
	defer srv.Close()

	trees := NewTreeClient(newTestSession(t, srv.URL, nil), testLogger())

	tree, err := trees.Fetch(context.Background())
	require.NoError(t, err)

	endpoints := FlattenTree(tree)
	require.Len(t, endpoints, 2)
	assert.Equal(t, "shop/orders", endpoints[0].FullPath)
	assert.Equal(t, "shop/pay", endpoints[1].FullPath)
}
