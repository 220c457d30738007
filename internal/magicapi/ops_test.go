package magicapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestOps_CreateGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource/folder/save", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		parsed := gjson.ParseBytes(body)
		assert.Equal(t, "orders", parsed.Get("name").String())
		assert.Equal(t, "0", parsed.Get("parentId").String(), "empty parent defaults to the root group")
		assert.Equal(t, "api", parsed.Get("type").String())

		w.Write([]byte(`{"code":1,"data":"new-group-id"}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	id, err := ops.CreateGroup(context.Background(), GroupSpec{Name: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "new-group-id", id)
}

func TestOps_CreateGroupWithOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		parsed := gjson.ParseBytes(body)
		assert.Equal(t, "token", parsed.Get("options.auth").String(), "caller options spliced in verbatim")

		w.Write([]byte(`{"code":1,"data":"id"}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	_, err := ops.CreateGroup(context.Background(), GroupSpec{
		Name:    "secured",
		Options: []byte(`{"auth":"token"}`),
	})
	require.NoError(t, err)
}

func TestOps_CreateGroupValidation(t *testing.T) {
	ops := NewOps(newTestSession(t, "http://unused.invalid", nil), testLogger())

	_, err := ops.CreateGroup(context.Background(), GroupSpec{})
	assert.Error(t, err)
}

func TestOps_CreateAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource/file/api/save", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		parsed := gjson.ParseBytes(body)
		assert.Equal(t, "g1", parsed.Get("groupId").String())
		assert.Equal(t, "GET", parsed.Get("method").String())
		assert.Equal(t, "return 1", parsed.Get("script").String())

		w.Write([]byte(`{"code":1,"data":"new-api-id"}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	id, err := ops.CreateAPI(context.Background(), APISpec{
		GroupID: "g1", Name: "ping", Method: "GET", Path: "ping", Script: "return 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-api-id", id)
}

func TestOps_CopyGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource/folder/copy", r.URL.Path)
		_ = r.ParseForm()
		assert.Equal(t, "src-1", r.PostFormValue("src"))
		assert.Equal(t, "dst-1", r.PostFormValue("target"))
		w.Write([]byte(`{"code":1,"data":"copied-id"}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	id, err := ops.CopyGroup(context.Background(), "src-1", "dst-1")
	require.NoError(t, err)
	assert.Equal(t, "copied-id", id)
}

func TestOps_BoolOperations(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(ops *Ops) error
	}{
		{"move", "/resource/move", func(o *Ops) error { return o.Move(context.Background(), "r1", "g2") }},
		{"delete", "/resource/delete", func(o *Ops) error { return o.Delete(context.Background(), "r1") }},
		{"lock", "/resource/lock", func(o *Ops) error { return o.Lock(context.Background(), "r1") }},
		{"unlock", "/resource/unlock", func(o *Ops) error { return o.Unlock(context.Background(), "r1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				w.Write([]byte(`{"code":1,"data":true}`))
			}))
			defer srv.Close()

			ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())
			assert.NoError(t, tt.call(ops))
		})
	}
}

func TestOps_BoolOperationReportsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":1,"data":false}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	err := ops.Delete(context.Background(), "r1")
	require.Error(t, err)

	var apiErr *APIError

	assert.ErrorAs(t, err, &apiErr)
}

func TestOps_EnvelopeErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":-1,"message":"group is locked"}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	_, err := ops.CreateGroup(context.Background(), GroupSpec{Name: "x"})
	require.Error(t, err)

	var apiErr *APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, -1, apiErr.Code)
	assert.Contains(t, apiErr.Message, "locked")
}

func TestOps_FileDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource/file/e1", r.URL.Path)
		w.Write([]byte(`{"code":1,"data":{"id":"e1","name":"Orders","method":"GET","path":"orders","groupId":"g1","script":"return db.select()"}}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	detail, err := ops.FileDetail(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", detail.ID)
	assert.Equal(t, "GET", detail.Method)
	assert.Equal(t, "return db.select()", detail.Script)
	assert.NotEmpty(t, detail.Raw)
}

func TestOps_BatchDeleteBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostFormValue("id") == "bad" {
			w.Write([]byte(`{"code":-1,"message":"not found"}`))

			return
		}

		w.Write([]byte(`{"code":1,"data":true}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	result := ops.BatchDelete(context.Background(), []string{"a", "bad", "c"})
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 3, "every item runs regardless of earlier failures")

	assert.NoError(t, result.Results[0].Err)
	assert.Error(t, result.Results[1].Err)
	assert.Equal(t, "bad", result.Results[1].Key)
	assert.NoError(t, result.Results[2].Err)
}

func TestOps_BatchCreateGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		name := gjson.ParseBytes(body).Get("name").String()

		if name == "dup" {
			w.Write([]byte(`{"code":-1,"message":"name exists"}`))

			return
		}

		w.Write([]byte(`{"code":1,"data":"id-` + name + `"}`))
	}))
	defer srv.Close()

	ops := NewOps(newTestSession(t, srv.URL, nil), testLogger())

	result := ops.BatchCreateGroups(context.Background(), []GroupSpec{
		{Name: "one"}, {Name: "dup"}, {Name: "two"},
	})
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "id-one", result.Results[0].ID)
	assert.Equal(t, "id-two", result.Results[2].ID)
}
