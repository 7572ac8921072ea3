package llm

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

	"github.com/kazz187/notevault/internal/conversation"
)

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1760000000,
  "model": "openai/gpt-oss-120b",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "create_task", "arguments": "{\"title\":\"Buy milk\"}"}
      }]
    }
  }]
}`

func TestOpenAI_Generate(t *testing.T) {
	var body gjson.Result
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		body = gjson.ParseBytes(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolCallResponse)
	}))
	defer srv.Close()

	m := NewOpenAI(Config{BaseURL: srv.URL + "/v1", APIKey: "secret", Model: "test-model"})
	prev := conversation.NewToolCall("call_0", "get_task", `{"task_id":1}`)
	msg, err := m.Generate(context.Background(), Request{
		Messages: []conversation.Message{
			conversation.System("be helpful"),
			conversation.Human("hi"),
			conversation.AI("", prev),
			conversation.ToolResult(prev, "null"),
		},
		Tools: []ToolSpec{{
			Name:        "create_task",
			Description: "Create a new task.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "test-model", body.Get("model").String())
	assert.Equal(t, float64(0), body.Get("temperature").Float())
	assert.Equal(t, "system", body.Get("messages.0.role").String())
	assert.Equal(t, "user", body.Get("messages.1.role").String())
	assert.Equal(t, "assistant", body.Get("messages.2.role").String())
	assert.Equal(t, "call_0", body.Get("messages.2.tool_calls.0.id").String())
	assert.Equal(t, "tool", body.Get("messages.3.role").String())
	assert.Equal(t, "call_0", body.Get("messages.3.tool_call_id").String())
	assert.Equal(t, "create_task", body.Get("tools.0.function.name").String())

	require.True(t, msg.HasToolCalls())
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "create_task", msg.ToolCalls[0].Name)
	assert.JSONEq(t, `{"title":"Buy milk"}`, string(msg.ToolCalls[0].Args))
}

func TestOpenAI_GenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom"}}`)
	}))
	defer srv.Close()

	m := NewOpenAI(Config{BaseURL: srv.URL, APIKey: "k"})
	_, err := m.Generate(context.Background(), Request{Messages: []conversation.Message{conversation.Human("hi")}})
	assert.Error(t, err)
}
