package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/kazz187/notevault/internal/agent"
	"github.com/kazz187/notevault/internal/config"
	"github.com/kazz187/notevault/internal/conversation"
	"github.com/kazz187/notevault/internal/event"
	"github.com/kazz187/notevault/internal/eventbus"
	"github.com/kazz187/notevault/internal/llm/llmtest"
	"github.com/kazz187/notevault/internal/note"
	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/internal/record/repositoryimpl"
	"github.com/kazz187/notevault/internal/task"
	"github.com/kazz187/notevault/internal/tool"
	"github.com/kazz187/notevault/pkg/docstore/blobstore"
	"github.com/kazz187/notevault/pkg/storage"
)

func newTestServer(t *testing.T, apiKey string, model *llmtest.Scripted) *httptest.Server {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo, err := repositoryimpl.NewDocstoreRepository(context.Background(), blobstore.New(s),
		repositoryimpl.WithNotifier(record.NewNotifier(bus)))
	require.NoError(t, err)
	reg, err := tool.NewRecordRegistry(repo)
	require.NoError(t, err)

	srv := NewServer(
		&config.BaseEnv{APIKey: apiKey},
		task.NewServer(repo),
		note.NewServer(repo),
		agent.NewServer(agent.New(model, reg)),
		event.NewServer(bus),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func request(t *testing.T, method, url, body string, header http.Header) (int, gjson.Result) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(data)
}

func TestServer_Status(t *testing.T) {
	ts := newTestServer(t, "", llmtest.NewScripted())

	status, body := request(t, http.MethodGet, ts.URL+"/", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Get("status").String())

	status, body = request(t, http.MethodGet, ts.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body.Get("status").String())

	status, body = request(t, http.MethodGet, ts.URL+"/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not found", body.Get("error").String())
}

func TestServer_AgentCreatesTask(t *testing.T) {
	model := llmtest.NewScripted(
		llmtest.Reply(conversation.AI("", conversation.NewToolCall("c1", "create_task", `{"title":"Buy milk"}`))),
		llmtest.Reply(conversation.AI("Created.")),
	)
	ts := newTestServer(t, "", model)

	status, body := request(t, http.MethodPost, ts.URL+"/agents/agent", `{"message":"Create a task called 'Buy milk'"}`, nil)
	require.Equal(t, http.StatusOK, status, body.Raw)
	assert.Len(t, body.Get("messages").Array(), 4)

	status, body = request(t, http.MethodGet, ts.URL+"/tasks/1", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Buy milk", body.Get("title").String())
}

func TestServer_APIKey(t *testing.T) {
	ts := newTestServer(t, "s3cret", llmtest.NewScripted())

	status, _ := request(t, http.MethodGet, ts.URL+"/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = request(t, http.MethodGet, ts.URL+"/tasks", "", http.Header{"X-Api-Key": {"s3cret"}})
	assert.Equal(t, http.StatusOK, status)

	status, _ = request(t, http.MethodGet, ts.URL+"/tasks", "", http.Header{"Authorization": {"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, status)

	status, _ = request(t, http.MethodGet, ts.URL+"/tasks", "", http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = request(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_ConnectAgent(t *testing.T) {
	ts := newTestServer(t, "k", llmtest.NewScripted(llmtest.Reply(conversation.AI("hi!"))))
	client := agent.NewClient(http.DefaultClient, ts.URL)

	res, err := client.Run(context.Background(), "hello", http.Header{"X-Api-Key": {"k"}})
	require.NoError(t, err)
	assert.Equal(t, agent.OutcomeDone, res.Outcome)
	assert.Equal(t, "hi!", res.Messages[1].Content)

	_, err = client.Run(context.Background(), "hello", nil)
	assert.Error(t, err)
}
