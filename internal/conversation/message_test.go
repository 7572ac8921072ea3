package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_MarshalJSON(t *testing.T) {
	call := NewToolCall("call_1", "create_task", `{"title":"Buy milk"}`)
	transcript := []Message{
		System("be brief"),
		Human("Create a task called 'Buy milk'"),
		AI("", call),
		ToolResult(call, "1"),
		AI("Done."),
	}

	data, err := json.Marshal(transcript)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"system","content":"be brief"},
		{"type":"human","content":"Create a task called 'Buy milk'"},
		{"type":"ai","content":"","tool_calls":[{"id":"call_1","name":"create_task","args":{"title":"Buy milk"}}]},
		{"type":"tool","content":"1","name":"create_task","tool_call_id":"call_1"},
		{"type":"ai","content":"Done.","tool_calls":[]}
	]`, string(data))

	var decoded []Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, transcript, decoded)
}

func TestMessage_MarshalUnknownRole(t *testing.T) {
	_, err := json.Marshal(Message{Role: "robot"})
	assert.Error(t, err)
}

func TestNewToolCall_NormalizesArgs(t *testing.T) {
	for _, raw := range []string{"", "not json", "[1,2]", "null"} {
		assert.JSONEq(t, "{}", string(NewToolCall("id", "get_task", raw).Args), raw)
	}
	assert.JSONEq(t, `{"task_id":3}`, string(NewToolCall("id", "get_task", `{"task_id":3}`).Args))
}

func TestMessage_HasToolCalls(t *testing.T) {
	assert.False(t, AI("hi").HasToolCalls())
	assert.True(t, AI("", NewToolCall("1", "x", "{}")).HasToolCalls())
	assert.False(t, Human("hi").HasToolCalls())
}
