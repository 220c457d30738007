package magicapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPayload = `{"code":1,"data":[
	{"id":"e1","text":"db.select(sql)","line":3},
	{"id":"e2","text":"db.selectOne(sql)","line":10},
	{"id":"e3","text":"db.select(other)","line":7}
]}`

func TestSearchClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		_ = r.ParseForm()
		assert.Equal(t, "db.select", r.PostFormValue("keyword"))
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	searches := NewSearchClient(newTestSession(t, srv.URL, nil))

	hits, err := searches.Search(context.Background(), "db.select", 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "e1", hits[0].ID)
	assert.Equal(t, 3, hits[0].Line)
}

func TestSearchClient_SearchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	searches := NewSearchClient(newTestSession(t, srv.URL, nil))

	hits, err := searches.Search(context.Background(), "db", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchClient_BlankKeyword(t *testing.T) {
	searches := NewSearchClient(newTestSession(t, "http://unused.invalid", nil))

	_, err := searches.Search(context.Background(), "   ", 0)
	assert.Error(t, err)
}

func TestSearchClient_Todos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/todo", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"code":1,"data":[{"id":"e9","text":"// TODO paging","line":1}]}`))
	}))
	defer srv.Close()

	searches := NewSearchClient(newTestSession(t, srv.URL, nil))

	hits, err := searches.Todos(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "// TODO paging", hits[0].Text)
}

func TestSearchClient_MalformedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":1,"data":"not an array"}`))
	}))
	defer srv.Close()

	searches := NewSearchClient(newTestSession(t, srv.URL, nil))

	_, err := searches.Todos(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
