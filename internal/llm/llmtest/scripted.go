// Package llmtest provides a scripted llm.Model for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/kazz187/notevault/internal/conversation"
	"github.com/kazz187/notevault/internal/llm"
)

var ErrScriptExhausted = errors.New("llmtest: no scripted response left")

// Step produces one model response from the request it receives.
type Step func(req llm.Request) (conversation.Message, error)

// Reply returns msg unchanged.
func Reply(msg conversation.Message) Step {
	return func(llm.Request) (conversation.Message, error) { return msg, nil }
}

func Fail(err error) Step {
	return func(llm.Request) (conversation.Message, error) { return conversation.Message{}, err }
}

// Scripted replays Steps in order and records every request.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	requests []llm.Request
	// Repeat, when set, answers once the script is exhausted.
	Repeat Step
}

var _ llm.Model = (*Scripted)(nil)

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

func (s *Scripted) Generate(ctx context.Context, req llm.Request) (conversation.Message, error) {
	if err := ctx.Err(); err != nil {
		return conversation.Message{}, err
	}
	s.mu.Lock()
	req.Messages = append([]conversation.Message(nil), req.Messages...)
	s.requests = append(s.requests, req)
	var step Step
	if len(s.steps) > 0 {
		step, s.steps = s.steps[0], s.steps[1:]
	} else {
		step = s.Repeat
	}
	s.mu.Unlock()

	if step == nil {
		return conversation.Message{}, ErrScriptExhausted
	}
	return step(req)
}

func (s *Scripted) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.requests...)
}
