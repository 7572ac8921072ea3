package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kazz187/notevault/internal/conversation"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "openai/gpt-oss-120b"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// OpenAI is a Model backed by any OpenAI compatible chat completions endpoint.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
}

var _ Model = (*OpenAI)(nil)

func NewOpenAI(cfg Config) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		// the agent loop owns retry decisions
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (m *OpenAI) Generate(ctx context.Context, req Request) (conversation.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(m.model),
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
		Temperature: openai.Float(m.temperature),
	}
	for _, msg := range req.Messages {
		p, err := toParam(msg)
		if err != nil {
			return conversation.Message{}, err
		}
		params.Messages = append(params.Messages, p)
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		})
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return conversation.Message{}, errors.New("chat completion returned no choices")
	}
	out := resp.Choices[0].Message
	calls := make([]conversation.ToolCall, 0, len(out.ToolCalls))
	for _, tc := range out.ToolCalls {
		calls = append(calls, conversation.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}
	return conversation.AI(out.Content, calls...), nil
}

func toParam(msg conversation.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case conversation.RoleSystem:
		return openai.SystemMessage(msg.Content), nil
	case conversation.RoleHuman:
		return openai.UserMessage(msg.Content), nil
	case conversation.RoleTool:
		return openai.ToolMessage(msg.Content, msg.ToolCallID), nil
	case conversation.RoleAI:
		if len(msg.ToolCalls) == 0 {
			return openai.AssistantMessage(msg.Content), nil
		}
		assistant := &openai.ChatCompletionAssistantMessageParam{}
		if msg.Content != "" {
			assistant.Content.OfString = openai.String(msg.Content)
		}
		for _, tc := range msg.ToolCalls {
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(tc.Args),
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}, nil
	}
	return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unknown message role %q", msg.Role)
}
