package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/pkg/docstore"
	"github.com/kazz187/notevault/pkg/docstore/docstoretest"
)

func TestStore(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		s, err := Open(filepath.Join(t.TempDir(), "vault.db"))
		require.NoError(t, err)
		return s
	})
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "vault.db")

	s, err := Open(path)
	require.NoError(t, err)
	c, err := s.Collection(ctx, "notes")
	require.NoError(t, err)
	require.NoError(t, c.Upsert(ctx, docstore.Document{ID: "1", Text: "persisted", Metadata: docstore.Metadata{"created_at": "2024-01-01T00:00:00"}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	c, err = s.Collection(ctx, "notes")
	require.NoError(t, err)
	docs, err := c.Get(ctx, "1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "persisted", docs[0].Text)
	assert.Equal(t, "2024-01-01T00:00:00", docs[0].Metadata.String("created_at"))
}
