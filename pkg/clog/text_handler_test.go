package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug))))

	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{
		"method":    "GET",
		"procedure": "/tasks/1",
		"status":    404,
		"tool":      "get_task",
	})
	AddError(ctx, errors.New("task 1 not found"))
	logger.WarnContext(ctx, "Not Found")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `WARN GET /tasks/1 404 "Not Found" "task 1 not found"`)
	assert.Equal(t, "    tool=get_task", lines[1])
}

func TestTextHandler_Enabled(t *testing.T) {
	h := NewTextHandler(&bytes.Buffer{})
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))

	h = NewTextHandler(&bytes.Buffer{}, WithLevel(slog.LevelError))
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
}

func TestAddAttributes_MergesNestedMaps(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"agent": map[string]any{"round": 1}})
	AddAttributes(ctx, map[string]any{"agent": map[string]any{"outcome": "done"}})

	attrs := GetAttributes(ctx)
	assert.Equal(t, map[string]any{"round": 1, "outcome": "done"}, attrs["agent"])
	assert.Nil(t, GetAttributes(context.Background()))
}
