// Package agent runs the tool-calling loop between a language model and the
// record tools.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/notevault/internal/conversation"
	"github.com/kazz187/notevault/internal/llm"
	"github.com/kazz187/notevault/internal/tool"
	"github.com/kazz187/notevault/pkg/cerr"
	"github.com/kazz187/notevault/pkg/clog"
)

const (
	DefaultMaxRounds    = 15
	DefaultModelTimeout = 60 * time.Second
)

var ErrIterationLimitExceeded = errors.New("agent: iteration limit exceeded")

type Outcome string

const (
	OutcomeDone           Outcome = "done"
	OutcomeIterationLimit Outcome = "iteration_limit"
)

type Result struct {
	RunID    string                 `json:"run_id"`
	Messages []conversation.Message `json:"messages"`
	Outcome  Outcome                `json:"outcome"`
}

type Agent struct {
	model         llm.Model
	tools         *tool.Registry
	specs         []llm.ToolSpec
	prompt        PromptSource
	maxRounds     int
	modelTimeout  time.Duration
	includeSystem bool
}

type Option func(*Agent)

func WithPrompt(p PromptSource) Option {
	return func(a *Agent) { a.prompt = p }
}

func WithMaxRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

func WithModelTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.modelTimeout = d
		}
	}
}

// WithIncludeSystem puts the system prompt at the head of returned transcripts.
func WithIncludeSystem(include bool) Option {
	return func(a *Agent) { a.includeSystem = include }
}

func New(model llm.Model, tools *tool.Registry, opts ...Option) *Agent {
	a := &Agent{
		model:        model,
		tools:        tools,
		prompt:       StaticPrompt(DefaultSystemPrompt),
		maxRounds:    DefaultMaxRounds,
		modelTimeout: DefaultModelTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, t := range tools.Tools() {
		a.specs = append(a.specs, llm.ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters()})
	}
	return a
}

func (a *Agent) Tools() *tool.Registry {
	return a.tools
}

// Run drives one conversation from a single human message until the model
// answers without requesting tools. When the round limit is hit the partial
// transcript is returned together with ErrIterationLimitExceeded.
func (a *Agent) Run(ctx context.Context, input string) (*Result, error) {
	if strings.TrimSpace(input) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "message is required", nil).
			AddDetailMessageWithCode("message must not be empty", "message.required")
	}
	runID := ulid.Make().String()
	clog.AddAttribute(ctx, "agent_run_id", runID)
	log := slog.With("agent_run_id", runID)

	system := conversation.System(a.prompt.Prompt())
	messages := []conversation.Message{conversation.Human(input)}

	for round := 1; round <= a.maxRounds; round++ {
		reply, err := a.generate(ctx, system, messages)
		if err != nil {
			return nil, cerr.NewError(cerr.Unavailable, "model call failed", err)
		}
		messages = append(messages, reply)
		if !reply.HasToolCalls() {
			log.DebugContext(ctx, "agent run finished", "rounds", round)
			return a.result(runID, system, messages, OutcomeDone), nil
		}
		for _, call := range reply.ToolCalls {
			messages = append(messages, a.invoke(ctx, log, call))
		}
	}

	log.WarnContext(ctx, "agent run hit the round limit", "max_rounds", a.maxRounds)
	return a.result(runID, system, messages, OutcomeIterationLimit), ErrIterationLimitExceeded
}

func (a *Agent) generate(ctx context.Context, system conversation.Message, messages []conversation.Message) (conversation.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, a.modelTimeout)
	defer cancel()
	req := llm.Request{
		Messages: append([]conversation.Message{system}, messages...),
		Tools:    a.specs,
	}
	reply, err := a.model.Generate(ctx, req)
	if err != nil {
		return conversation.Message{}, err
	}
	// Some providers answer with role-less messages; the loop only deals in ai turns.
	reply.Role = conversation.RoleAI
	return reply, nil
}

// invoke runs one tool call. Failures are reported to the model in-band.
func (a *Agent) invoke(ctx context.Context, log *slog.Logger, call conversation.ToolCall) conversation.Message {
	t, ok := a.tools.Lookup(call.Name)
	if !ok {
		log.WarnContext(ctx, "model requested unknown tool", "tool", call.Name)
		return conversation.ToolResult(call, fmt.Sprintf("Error: Tool '%s' not found", call.Name))
	}
	start := time.Now()
	out, err := t.Call(ctx, call.Args)
	if err != nil {
		log.WarnContext(ctx, "tool call failed", "tool", call.Name, "error", err)
		return conversation.ToolResult(call, fmt.Sprintf("Error calling %s: %s", call.Name, toolErrorText(err)))
	}
	log.DebugContext(ctx, "tool call", "tool", call.Name, "elapsed", time.Since(start))
	return conversation.ToolResult(call, tool.Render(out))
}

// toolErrorText prefers the client-facing message of cerr errors.
func toolErrorText(err error) string {
	var ce *cerr.Error
	if errors.As(err, &ce) {
		return ce.Msg
	}
	return err.Error()
}

func (a *Agent) result(runID string, system conversation.Message, messages []conversation.Message, outcome Outcome) *Result {
	if a.includeSystem {
		messages = append([]conversation.Message{system}, messages...)
	}
	return &Result{RunID: runID, Messages: messages, Outcome: outcome}
}
