// Package llm talks to chat completion models that support tool calling.
package llm

import (
	"context"

	"github.com/kazz187/notevault/internal/conversation"
)

// ToolSpec describes a callable tool to the model. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Request struct {
	Messages []conversation.Message
	Tools    []ToolSpec
}

// Model produces the next ai message for a conversation.
type Model interface {
	Generate(ctx context.Context, req Request) (conversation.Message, error)
}
