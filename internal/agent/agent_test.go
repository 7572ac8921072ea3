package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/internal/conversation"
	"github.com/kazz187/notevault/internal/llm"
	"github.com/kazz187/notevault/internal/llm/llmtest"
	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/internal/record/repositoryimpl"
	"github.com/kazz187/notevault/internal/tool"
	"github.com/kazz187/notevault/pkg/cerr"
	"github.com/kazz187/notevault/pkg/docstore/blobstore"
	"github.com/kazz187/notevault/pkg/storage"
)

func newRepo(t *testing.T) record.Repository {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo, err := repositoryimpl.NewDocstoreRepository(context.Background(), blobstore.New(s))
	require.NoError(t, err)
	return repo
}

func newAgent(t *testing.T, model llm.Model, opts ...Option) (*Agent, record.Repository) {
	t.Helper()
	repo := newRepo(t)
	reg, err := tool.NewRecordRegistry(repo)
	require.NoError(t, err)
	return New(model, reg, opts...), repo
}

func callTool(id, name, args string) conversation.Message {
	return conversation.AI("", conversation.NewToolCall(id, name, args))
}

func TestAgent_BuyMilk(t *testing.T) {
	model := llmtest.NewScripted(
		llmtest.Reply(callTool("call_1", "create_task", `{"title":"Buy milk"}`)),
		llmtest.Reply(conversation.AI("I created the task 'Buy milk'.")),
	)
	a, repo := newAgent(t, model)

	res, err := a.Run(context.Background(), "Create a task called 'Buy milk'")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, res.Outcome)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Messages, 4)
	assert.Equal(t, conversation.RoleHuman, res.Messages[0].Role)
	assert.Equal(t, conversation.RoleAI, res.Messages[1].Role)
	assert.Equal(t, conversation.RoleTool, res.Messages[2].Role)
	assert.Equal(t, "1", res.Messages[2].Content)
	assert.Equal(t, "call_1", res.Messages[2].ToolCallID)
	assert.Equal(t, "create_task", res.Messages[2].Name)
	assert.Equal(t, conversation.RoleAI, res.Messages[3].Role)

	task, err := repo.GetTask(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, record.StatusPending, task.Status)
}

func TestAgent_SystemPromptPrepended(t *testing.T) {
	model := llmtest.NewScripted(
		llmtest.Reply(callTool("c1", "get_task", `{"task_id":1}`)),
		llmtest.Reply(conversation.AI("nothing there")),
	)
	a, _ := newAgent(t, model, WithPrompt(StaticPrompt("be terse")))

	res, err := a.Run(context.Background(), "show task 1")
	require.NoError(t, err)
	assert.Equal(t, conversation.RoleHuman, res.Messages[0].Role)

	reqs := model.Requests()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Equal(t, conversation.System("be terse"), req.Messages[0])
		assert.Len(t, req.Tools, 13)
	}
	assert.Len(t, reqs[1].Messages, 4)
	assert.Equal(t, "null", reqs[1].Messages[3].Content)
}

func TestAgent_IncludeSystem(t *testing.T) {
	model := llmtest.NewScripted(llmtest.Reply(conversation.AI("hello")))
	a, _ := newAgent(t, model, WithIncludeSystem(true))

	res, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, conversation.System(DefaultSystemPrompt), res.Messages[0])
}

func TestAgent_UnknownToolContinues(t *testing.T) {
	model := llmtest.NewScripted(
		llmtest.Reply(callTool("c1", "launch_rocket", `{}`)),
		llmtest.Reply(conversation.AI("I can't do that.")),
	)
	a, _ := newAgent(t, model)

	res, err := a.Run(context.Background(), "launch a rocket")
	require.NoError(t, err)
	require.Len(t, res.Messages, 4)
	assert.Equal(t, "Error: Tool 'launch_rocket' not found", res.Messages[2].Content)
	assert.Equal(t, OutcomeDone, res.Outcome)
}

func TestAgent_ToolErrorContinues(t *testing.T) {
	model := llmtest.NewScripted(
		llmtest.Reply(conversation.AI("",
			conversation.NewToolCall("c1", "get_task", `{"task_id":"abc"}`),
			conversation.NewToolCall("c2", "create_note", `{"title":"still runs"}`),
		)),
		llmtest.Reply(conversation.AI("done")),
	)
	a, repo := newAgent(t, model)

	res, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	require.Len(t, res.Messages, 5)
	assert.Contains(t, res.Messages[2].Content, "Error calling get_task: ")
	assert.Equal(t, "c1", res.Messages[2].ToolCallID)
	assert.Equal(t, "1", res.Messages[3].Content)
	assert.Equal(t, "c2", res.Messages[3].ToolCallID)

	_, err = repo.GetNote(context.Background(), 1)
	assert.NoError(t, err)
}

func TestAgent_IterationLimit(t *testing.T) {
	model := llmtest.NewScripted()
	model.Repeat = llmtest.Reply(callTool("loop", "search_tasks", `{"query":"anything"}`))
	a, _ := newAgent(t, model, WithMaxRounds(3))

	res, err := a.Run(context.Background(), "loop forever")
	require.ErrorIs(t, err, ErrIterationLimitExceeded)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeIterationLimit, res.Outcome)
	assert.Len(t, res.Messages, 7)
	assert.Len(t, model.Requests(), 3)
}

func TestAgent_ModelFailure(t *testing.T) {
	model := llmtest.NewScripted(llmtest.Fail(errors.New("rate limited")))
	a, _ := newAgent(t, model)

	res, err := a.Run(context.Background(), "hi")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.Unavailable))
	assert.ErrorContains(t, err, "rate limited")
}

func TestAgent_ModelTimeout(t *testing.T) {
	model := llmtest.NewScripted(func(req llm.Request) (conversation.Message, error) {
		return conversation.AI("fast"), nil
	})
	deadlines := make(chan time.Time, 1)
	slow := modelFunc(func(ctx context.Context, req llm.Request) (conversation.Message, error) {
		d, _ := ctx.Deadline()
		deadlines <- d
		<-ctx.Done()
		return conversation.Message{}, ctx.Err()
	})
	a, _ := newAgent(t, slow, WithModelTimeout(20*time.Millisecond))

	_, err := a.Run(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.WithinDuration(t, time.Now(), <-deadlines, time.Second)

	b, _ := newAgent(t, model)
	res, err := b.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "fast", res.Messages[1].Content)
}

func TestAgent_EmptyInput(t *testing.T) {
	a, _ := newAgent(t, llmtest.NewScripted())
	_, err := a.Run(context.Background(), "  ")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

type modelFunc func(ctx context.Context, req llm.Request) (conversation.Message, error)

func (f modelFunc) Generate(ctx context.Context, req llm.Request) (conversation.Message, error) {
	return f(ctx, req)
}
