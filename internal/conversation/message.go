// Package conversation holds the message types exchanged between the agent,
// the language model and the tools during one agent run.
package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// ToolCall is a tool invocation requested by the model. Args is always a
// JSON object.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// NewToolCall normalizes raw arguments. Models occasionally emit an empty
// string or malformed JSON; both become an empty object.
func NewToolCall(id, name, rawArgs string) ToolCall {
	if !gjson.Valid(rawArgs) || !gjson.Parse(rawArgs).IsObject() {
		rawArgs = "{}"
	}
	return ToolCall{ID: id, Name: name, Args: json.RawMessage(rawArgs)}
}

type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall // ai only
	ToolCallID string     // tool only
	Name       string     // tool only
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func Human(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

func AI(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAI, Content: content, ToolCalls: calls}
}

func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}

// HasToolCalls reports whether m is an ai message requesting at least one tool.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAI && len(m.ToolCalls) > 0
}

type wireMessage struct {
	Type       Role        `json:"type"`
	Content    string      `json:"content"`
	ToolCalls  *[]ToolCall `json:"tool_calls,omitempty"`
	Name       string      `json:"name,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// MarshalJSON writes only the fields meaningful for the message's role.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{Type: m.Role, Content: m.Content}
	switch m.Role {
	case RoleAI:
		calls := m.ToolCalls
		if calls == nil {
			calls = []ToolCall{}
		}
		w.ToolCalls = &calls
	case RoleTool:
		w.Name = m.Name
		w.ToolCallID = m.ToolCallID
	case RoleSystem, RoleHuman:
	default:
		return nil, fmt.Errorf("unknown message role %q", m.Role)
	}
	return json.Marshal(w)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{Role: w.Type, Content: w.Content, Name: w.Name, ToolCallID: w.ToolCallID}
	if w.ToolCalls != nil && len(*w.ToolCalls) > 0 {
		m.ToolCalls = *w.ToolCalls
	}
	return nil
}
