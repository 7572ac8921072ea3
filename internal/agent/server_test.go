package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/kazz187/notevault/internal/conversation"
	"github.com/kazz187/notevault/internal/llm/llmtest"
	"github.com/kazz187/notevault/pkg/cerr"
)

func newHTTPServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(cerr.NewConvertConnectErrorChiMiddleware())
	r.Route("/agents", s.Routes)

	mux := http.NewServeMux()
	mux.Handle("/agents/", r)
	for path, h := range s.Handlers(connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor())) {
		mux.Handle(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (int, gjson.Result) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, err = sb.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.Parse(sb.String())
}

func TestServer_Run(t *testing.T) {
	model := llmtest.NewScripted(
		llmtest.Reply(callTool("call_1", "create_task", `{"title":"Buy milk"}`)),
		llmtest.Reply(conversation.AI("Done.")),
	)
	a, _ := newAgent(t, model)
	srv := newHTTPServer(t, NewServer(a))

	status, body := post(t, srv.URL+"/agents/agent", `{"message":"Create a task called 'Buy milk'"}`)
	require.Equal(t, http.StatusOK, status, body.Raw)
	assert.Equal(t, "done", body.Get("outcome").String())
	msgs := body.Get("messages").Array()
	require.Len(t, msgs, 4)
	assert.Equal(t, "human", msgs[0].Get("type").String())
	assert.Equal(t, "create_task", msgs[1].Get("tool_calls.0.name").String())
	assert.Equal(t, "Buy milk", msgs[1].Get("tool_calls.0.args.title").String())
	assert.Equal(t, "call_1", msgs[2].Get("tool_call_id").String())
	assert.Equal(t, "Done.", msgs[3].Get("content").String())
}

func TestServer_RunErrors(t *testing.T) {
	model := llmtest.NewScripted()
	a, _ := newAgent(t, model)
	srv := newHTTPServer(t, NewServer(a))

	status, body := post(t, srv.URL+"/agents/agent", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "message is required", body.Get("error").String())

	status, _ = post(t, srv.URL+"/agents/agent", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = post(t, srv.URL+"/agents/agent", `{"message":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "model call failed", body.Get("error").String())
}

func TestServer_IterationLimitIsAResponse(t *testing.T) {
	model := llmtest.NewScripted()
	model.Repeat = llmtest.Reply(callTool("c", "get_task", `{"task_id":1}`))
	a, _ := newAgent(t, model, WithMaxRounds(2))
	srv := newHTTPServer(t, NewServer(a))

	status, body := post(t, srv.URL+"/agents/agent", `{"message":"loop"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "iteration_limit", body.Get("outcome").String())
	assert.Len(t, body.Get("messages").Array(), 5)
}

func TestServer_Tools(t *testing.T) {
	a, _ := newAgent(t, llmtest.NewScripted())
	srv := newHTTPServer(t, NewServer(a))

	resp, err := http.Get(srv.URL + "/agents/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, _ = sb.ReadFrom(resp.Body)
	tools := gjson.Parse(sb.String()).Array()
	require.Len(t, tools, 13)
	assert.Equal(t, "create_task", tools[0].Get("function.name").String())
}

func TestClient_Connect(t *testing.T) {
	model := llmtest.NewScripted(llmtest.Reply(conversation.AI("hello there")))
	a, _ := newAgent(t, model)
	srv := newHTTPServer(t, NewServer(a))
	client := NewClient(srv.Client(), srv.URL+"/")

	res, err := client.Run(context.Background(), "hi", http.Header{"X-Api-Key": {"k"}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, res.Outcome)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "hello there", res.Messages[1].Content)

	_, err = client.Run(context.Background(), "", nil)
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	tools, err := client.ListTools(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, tools, 13)
}
