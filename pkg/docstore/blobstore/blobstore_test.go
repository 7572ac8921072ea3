package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/pkg/docstore"
	"github.com/kazz187/notevault/pkg/docstore/docstoretest"
	"github.com/kazz187/notevault/pkg/storage"
)

func TestStore(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		s, err := storage.NewLocalStorage(t.TempDir())
		require.NoError(t, err)
		return New(s)
	})
}

func TestStore_Layout(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	c, err := New(s).Collection(ctx, "tasks")
	require.NoError(t, err)
	require.NoError(t, c.Upsert(ctx, docstore.Document{ID: "7", Text: "x"}))

	exists, err := s.Exists(ctx, "tasks/7.yaml")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = New(s).Collection(ctx, "../etc")
	assert.Error(t, err)
}
