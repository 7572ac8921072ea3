// Package docstoretest provides a behavioral test suite shared by every
// docstore.Store implementation.
package docstoretest

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/pkg/docstore"
)

// Run exercises the docstore.Collection contract against stores built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()

	open := func(t *testing.T, name string) docstore.Collection {
		t.Helper()
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		c, err := s.Collection(context.Background(), name)
		require.NoError(t, err)
		return c
	}

	t.Run("UpsertGet", func(t *testing.T) {
		ctx := context.Background()
		c := open(t, "tasks")

		require.NoError(t, c.Upsert(ctx,
			docstore.Document{ID: "1", Text: "Buy milk", Metadata: docstore.Metadata{"id": 1, "title": "Buy milk"}},
			docstore.Document{ID: "2", Text: "Read book", Metadata: docstore.Metadata{"id": 2, "title": "Read book"}},
		))

		docs, err := c.Get(ctx, "2", "missing", "1")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "2", docs[0].ID)
		assert.Equal(t, "Read book", docs[0].Text)
		assert.Equal(t, "1", docs[1].ID)
		id, ok := docs[1].Metadata.Int("id")
		assert.True(t, ok)
		assert.Equal(t, 1, id)
		assert.Equal(t, "Buy milk", docs[1].Metadata.String("title"))
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		ctx := context.Background()
		c := open(t, "notes")

		require.NoError(t, c.Upsert(ctx, docstore.Document{ID: "1", Text: "old", Metadata: docstore.Metadata{"a": "x", "b": "y"}}))
		require.NoError(t, c.Upsert(ctx, docstore.Document{ID: "1", Text: "new", Metadata: docstore.Metadata{"a": "z"}}))

		docs, err := c.Get(ctx, "1")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "new", docs[0].Text)
		assert.Equal(t, "z", docs[0].Metadata.String("a"))
		assert.NotContains(t, docs[0].Metadata, "b")
	})

	t.Run("RejectsInvalidMetadata", func(t *testing.T) {
		c := open(t, "notes")
		err := c.Upsert(context.Background(), docstore.Document{ID: "1", Metadata: docstore.Metadata{"ids": []string{"1"}}})
		assert.ErrorIs(t, err, docstore.ErrInvalidMetadata)
	})

	t.Run("DeleteAndList", func(t *testing.T) {
		ctx := context.Background()
		c := open(t, "tasks")

		docs, err := c.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, docs)

		for _, id := range []string{"1", "2", "3"} {
			require.NoError(t, c.Upsert(ctx, docstore.Document{ID: id, Text: "doc " + id}))
		}
		require.NoError(t, c.Delete(ctx, "2", "missing"))
		require.NoError(t, c.Delete(ctx, "2"))

		docs, err = c.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		sort.Strings(ids)
		assert.Equal(t, []string{"1", "3"}, ids)
	})

	t.Run("Query", func(t *testing.T) {
		ctx := context.Background()
		c := open(t, "notes")

		require.NoError(t, c.Upsert(ctx,
			docstore.Document{ID: "1", Text: "Dijkstra shortest path algorithm"},
			docstore.Document{ID: "2", Text: "Grocery list: milk eggs bread"},
			docstore.Document{ID: "3", Text: "Shortest path with negative edges: Bellman-Ford"},
		))

		matches, err := c.Query(ctx, "shortest path", 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.ElementsMatch(t, []string{"1", "3"}, []string{matches[0].ID, matches[1].ID})
		assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)

		matches, err = c.Query(ctx, "shortest path", 10)
		require.NoError(t, err)
		assert.Len(t, matches, 3)
	})

	t.Run("CollectionsAreIsolated", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		tasks, err := s.Collection(ctx, "tasks")
		require.NoError(t, err)
		notes, err := s.Collection(ctx, "notes")
		require.NoError(t, err)

		require.NoError(t, tasks.Upsert(ctx, docstore.Document{ID: "1", Text: "task"}))
		docs, err := notes.Get(ctx, "1")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("ConcurrentUpserts", func(t *testing.T) {
		ctx := context.Background()
		c := open(t, "tasks")

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := string(rune('a' + i))
				assert.NoError(t, c.Upsert(ctx, docstore.Document{ID: id, Text: id}))
			}()
		}
		wg.Wait()

		docs, err := c.List(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, 20)
	})
}
