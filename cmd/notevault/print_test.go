package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kazz187/notevault/internal/agent"
	"github.com/kazz187/notevault/internal/conversation"
	"github.com/kazz187/notevault/internal/record"
)

func TestPrinter_Transcript(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)
	call := conversation.NewToolCall("c1", "create_task", `{"title":"Buy milk"}`)
	p.transcript(&agent.Result{
		Messages: []conversation.Message{
			conversation.Human("Create a task called 'Buy milk'"),
			conversation.AI("", call),
			conversation.ToolResult(call, "1"),
			conversation.AI("Done."),
		},
		Outcome: agent.OutcomeDone,
	})
	assert.Equal(t, "you> Create a task called 'Buy milk'\n"+
		"  -> create_task {\"title\":\"Buy milk\"}\n"+
		"  <- create_task 1\n"+
		"agent> Done.\n", buf.String())
}

func TestPrinter_Tasks(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)
	p.tasks([]*record.TaskView{
		{Task: &record.Task{ID: 1, Title: "Buy milk", Status: "pending", Deadline: "2026-10-20"}},
	})
	assert.Equal(t, "#1    pending      Buy milk (due 2026-10-20)\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "a b", truncate("a\nb", 5))
}
