package note

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/internal/record/repositoryimpl"
	"github.com/kazz187/notevault/pkg/cerr"
	"github.com/kazz187/notevault/pkg/docstore/blobstore"
	"github.com/kazz187/notevault/pkg/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, record.Repository) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo, err := repositoryimpl.NewDocstoreRepository(context.Background(), blobstore.New(s))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(cerr.NewConvertConnectErrorChiMiddleware())
	r.Route("/notes", NewServer(repo).Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func do(t *testing.T, method, url, body string) (int, gjson.Result) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(data)
}

func TestServer_CRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/notes", `{"title":"Groceries","content":"milk, eggs"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Note created", body.Get("message").String())
	assert.Equal(t, int64(1), body.Get("id").Int())

	status, body = do(t, http.MethodGet, srv.URL+"/notes/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "milk, eggs", body.Get("content").String())
	assert.NotEmpty(t, body.Get("created_at").String())
	createdAt := body.Get("created_at").String()

	status, body = do(t, http.MethodPatch, srv.URL+"/notes/1", `{"content":"milk, eggs, bread"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Note updated", body.Get("message").String())

	_, body = do(t, http.MethodGet, srv.URL+"/notes/1", "")
	assert.Equal(t, "Groceries", body.Get("title").String())
	assert.Equal(t, "milk, eggs, bread", body.Get("content").String())
	assert.Equal(t, createdAt, body.Get("created_at").String())

	status, _ = do(t, http.MethodPut, srv.URL+"/notes/1", `{"title":"Shopping","content":""}`)
	require.Equal(t, http.StatusOK, status)
	_, body = do(t, http.MethodGet, srv.URL+"/notes", "")
	require.Len(t, body.Array(), 1)
	assert.Equal(t, "Shopping", body.Get("0.title").String())
	assert.Equal(t, "", body.Get("0.content").String())

	status, body = do(t, http.MethodDelete, srv.URL+"/notes/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Note deleted", body.Get("message").String())

	status, body = do(t, http.MethodGet, srv.URL+"/notes/1", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Note not found", body.Get("error").String())

	status, _ = do(t, http.MethodPatch, srv.URL+"/notes/1", `{"title":"gone"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_Links(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()
	_, err := repo.CreateTask(ctx, record.TaskInput{Title: "Plan trip"})
	require.NoError(t, err)
	_, err = repo.CreateNote(ctx, record.NoteInput{Title: "Hotels"})
	require.NoError(t, err)

	status, body := do(t, http.MethodPost, srv.URL+"/notes/1/tasks/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Task added to note", body.Get("message").String())

	task, err := repo.GetTask(ctx, 1)
	require.NoError(t, err)
	require.Len(t, task.Notes, 1)
	assert.Equal(t, "Hotels", task.Notes[0].Title)

	status, body = do(t, http.MethodDelete, srv.URL+"/notes/1/tasks/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Task removed from note", body.Get("message").String())

	task, err = repo.GetTask(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, task.Notes)
}

func TestServer_Search(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()
	_, err := repo.CreateNote(ctx, record.NoteInput{Title: "Recipes", Content: "pancakes need milk"})
	require.NoError(t, err)
	_, err = repo.CreateNote(ctx, record.NoteInput{Title: "Books", Content: "read more novels"})
	require.NoError(t, err)

	status, body := do(t, http.MethodGet, srv.URL+"/notes/search?q=pancakes", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Array(), 2)
	assert.Equal(t, int64(1), body.Get("0.id").Int())
	assert.Equal(t, "Recipes", body.Get("0.metadata.title").String())
}
