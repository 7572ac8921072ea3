package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "tasks/1.yaml", []byte("title: a")))

	exists, err := s.Exists(ctx, "tasks/1.yaml")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := s.Read(ctx, "tasks/1.yaml")
	require.NoError(t, err)
	assert.Equal(t, "title: a", string(data))

	require.NoError(t, s.Delete(ctx, "tasks/1.yaml"))

	_, err = s.Read(ctx, "tasks/1.yaml")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Delete(ctx, "tasks/1.yaml")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorage_List(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	paths, err := s.List(ctx, "notes")
	require.NoError(t, err)
	assert.Empty(t, paths)

	require.NoError(t, s.Write(ctx, "notes/2.yaml", []byte("b")))
	require.NoError(t, s.Write(ctx, "notes/1.yaml", []byte("a")))
	require.NoError(t, s.Write(ctx, "tasks/1.yaml", []byte("c")))

	paths, err = s.List(ctx, "notes")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notes/1.yaml", "notes/2.yaml"}, paths)
}

func TestLocalStorage_ResolveStaysInsideBase(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, err := NewLocalStorage(base)
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "../../escape.yaml", []byte("x")))

	exists, err := s.Exists(ctx, "escape.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
}
