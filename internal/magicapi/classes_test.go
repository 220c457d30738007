package magicapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classIndexPayload is a representative /classes response: two script
// classes, one extension, one global function.
const classIndexPayload = `{
	"code": 1,
	"message": "ok",
	"data": {
		"classes": {
			"db": {},
			"response": {}
		},
		"extensions": {
			"java.lang.String": {}
		},
		"functions": {
			"uuid": {}
		}
	}
}`

// classDetails maps className form values to /class responses.
var classDetails = map[string]string{
	"db": `{
		"code": 1,
		"data": [
			{
				"methods": [
					{"name": "select", "returnType": "List", "parameters": [{"name": "sql", "type": "String"}]},
					{"name": "update", "returnType": "int", "parameters": [{"name": "sql", "type": "String"}]}
				],
				"fields": [
					{"name": "transaction", "type": "Transaction"}
				]
			}
		]
	}`,
	"response": `{
		"code": 1,
		"data": [
			{
				"methods": [
					{"name": "json", "returnType": "Object", "parameters": [{"name": "body", "type": "Object"}]}
				],
				"fields": []
			}
		]
	}`,
	"java.lang.String": `{
		"code": 1,
		"data": [
			{
				"methods": [
					{"name": "toUpperCase", "returnType": "String", "parameters": []}
				],
				"fields": []
			}
		]
	}`,
}

func newClassTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/classes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(classIndexPayload))
	})

	mux.HandleFunc("/class", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())

		payload, ok := classDetails[r.PostForm.Get("className")]
		if !ok {
			w.Write([]byte(`{"code": -1, "message": "no such class"}`))

			return
		}

		w.Write([]byte(payload))
	})

	mux.HandleFunc("/classes.txt", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte("java.lang:String,Integer\njava.util:List,Map\n"))
	})

	return httptest.NewServer(mux)
}

func TestClassClient_Index(t *testing.T) {
	srv := newClassTestServer(t)
	defer srv.Close()

	classes := NewClassClient(newTestSession(t, srv.URL, nil), testLogger())

	idx, err := classes.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"db", "response"}, idx.Classes, "names come back sorted")
	assert.Equal(t, []string{"java.lang.String"}, idx.Extensions)
	assert.Equal(t, []string{"uuid"}, idx.Functions)

	entries := idx.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, ClassEntry{Kind: ClassKindClass, Name: "db"}, entries[0])
	assert.Equal(t, ClassEntry{Kind: ClassKindFunction, Name: "uuid"}, entries[3])
}

func TestClassClient_IndexMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":1,"data":[1,2,3]}`))
	}))
	defer srv.Close()

	classes := NewClassClient(newTestSession(t, srv.URL, nil), testLogger())

	_, err := classes.Index(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClassClient_Details(t *testing.T) {
	srv := newClassTestServer(t)
	defer srv.Close()

	classes := NewClassClient(newTestSession(t, srv.URL, nil), testLogger())

	details, err := classes.Details(context.Background(), "db")
	require.NoError(t, err)
	require.Len(t, details, 1)

	require.Len(t, details[0].Methods, 2)
	assert.Equal(t, "List select(String sql)", details[0].Methods[0].Signature())

	require.Len(t, details[0].Fields, 1)
	assert.Equal(t, ClassField{Name: "transaction", Type: "Transaction"}, details[0].Fields[0])
}

func TestClassClient_DetailsEmptyName(t *testing.T) {
	classes := NewClassClient(newTestSession(t, "http://unused", nil), testLogger())

	_, err := classes.Details(context.Background(), "  ")
	require.Error(t, err)
}

func TestClassClient_Txt(t *testing.T) {
	srv := newClassTestServer(t)
	defer srv.Close()

	classes := NewClassClient(newTestSession(t, srv.URL, nil), testLogger())

	txt, err := classes.Txt(context.Background())
	require.NoError(t, err)
	assert.Contains(t, txt, "java.lang:String,Integer")
}

func TestClassClient_TxtErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	classes := NewClassClient(newTestSession(t, srv.URL, nil), testLogger())

	_, err := classes.Txt(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClassClient_SearchMembers(t *testing.T) {
	srv := newClassTestServer(t)
	defer srv.Close()

	classes := NewClassClient(newTestSession(t, srv.URL, nil), testLogger())

	idx, err := classes.Index(context.Background())
	require.NoError(t, err)

	hits, err := classes.SearchMembers(context.Background(), idx, FilterOptions{Pattern: "SELECT"}, ClassScopeAll)
	require.NoError(t, err)
	require.Len(t, hits, 1, "substring match is case-insensitive")
	assert.Equal(t, "db", hits[0].Class)
	assert.Equal(t, "method", hits[0].Kind)
	assert.Equal(t, "List select(String sql)", hits[0].Signature)
}

func TestClassClient_SearchMembersFieldScope(t *testing.T) {
	srv := newClassTestServer(t)
	defer srv.Close()

	classes := NewClassClient(newTestSession(t, srv.URL, nil), testLogger())

	idx, err := classes.Index(context.Background())
	require.NoError(t, err)

	// "t" appears in method names too; the field scope must exclude them.
	hits, err := classes.SearchMembers(context.Background(), idx, FilterOptions{Pattern: "t"}, ClassScopeField)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "field", hits[0].Kind)
	assert.Equal(t, "transaction", hits[0].Name)
}

func TestClassClient_SearchMembersSkipsBrokenClass(t *testing.T) {
	srv := newClassTestServer(t)
	defer srv.Close()

	classes := NewClassClient(newTestSession(t, srv.URL, nil), testLogger())

	idx := &ClassIndex{Classes: []string{"missing", "db"}}

	hits, err := classes.SearchMembers(context.Background(), idx, FilterOptions{Pattern: "select"}, ClassScopeMethod)
	require.NoError(t, err, "a class without details must not sink the search")
	require.Len(t, hits, 1)
	assert.Equal(t, "db", hits[0].Class)
}

func TestClassClient_SearchMembersMalformedRegex(t *testing.T) {
	classes := NewClassClient(newTestSession(t, "http://unused", nil), testLogger())

	_, err := classes.SearchMembers(context.Background(), &ClassIndex{},
		FilterOptions{Pattern: "[", Regex: true, Field: "search"}, ClassScopeAll)
	require.Error(t, err)

	var ferr *FilterError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "search", ferr.Field)
}

func TestFilterClassEntries(t *testing.T) {
	entries := []ClassEntry{
		{Kind: ClassKindClass, Name: "db"},
		{Kind: ClassKindClass, Name: "response"},
		{Kind: ClassKindFunction, Name: "uuid"},
	}

	filtered, err := FilterClassEntries(entries, FilterOptions{Pattern: "RESP"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "response", filtered[0].Name)

	filtered, err = FilterClassEntries(entries, FilterOptions{Pattern: "^u", Regex: true})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "uuid", filtered[0].Name)

	filtered, err = FilterClassEntries(entries, FilterOptions{})
	require.NoError(t, err)
	assert.Len(t, filtered, 3, "an empty pattern keeps everything")
}

func TestParseClassesTxt(t *testing.T) {
	entries := ParseClassesTxt("java.lang:String,Integer\nnot-a-package-line\njava.util:List, Map\n")

	require.Len(t, entries, 4)
	assert.Equal(t, TxtEntry{Package: "java.lang", Class: "String"}, entries[0])
	assert.Equal(t, TxtEntry{Package: "java.util", Class: "Map"}, entries[3], "whitespace around names is trimmed")
}

func TestFilterTxtEntries_PackageMatchKeepsWholePackage(t *testing.T) {
	entries := ParseClassesTxt("java.lang:String,Integer\njava.util:List,Map")

	filtered, err := FilterTxtEntries(entries, FilterOptions{Pattern: "java.util"})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "List", filtered[0].Class)
	assert.Equal(t, "Map", filtered[1].Class)

	filtered, err = FilterTxtEntries(entries, FilterOptions{Pattern: "string"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, TxtEntry{Package: "java.lang", Class: "String"}, filtered[0])
}
