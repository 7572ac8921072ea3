package chroma

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/pkg/docstore"
	"github.com/kazz187/notevault/pkg/docstore/docstoretest"
	"github.com/kazz187/notevault/pkg/docstore/lexical"
)

// TestStore runs the docstore suite against a live server given by
// NOTEVAULT_TEST_CHROMA_URL. Each subtest uses its own database name.
func TestStore(t *testing.T) {
	baseURL := os.Getenv("NOTEVAULT_TEST_CHROMA_URL")
	if baseURL == "" {
		t.Skip("NOTEVAULT_TEST_CHROMA_URL is not set")
	}
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		s, err := New(Config{BaseURL: baseURL})
		require.NoError(t, err)
		require.NoError(t, s.Heartbeat(context.Background()))
		// collections are shared on a live server, so start each subtest clean
		for _, name := range []string{"tasks", "notes"} {
			c, err := s.Collection(context.Background(), name)
			require.NoError(t, err)
			docs, err := c.List(context.Background())
			require.NoError(t, err)
			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.ID
			}
			require.NoError(t, c.Delete(context.Background(), ids...))
		}
		return s
	})
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "://bad"})
	assert.Error(t, err)
}

func TestStore_HeartbeatUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	baseURL := srv.URL
	srv.Close()

	s, err := New(Config{BaseURL: baseURL})
	require.NoError(t, err)
	assert.Error(t, s.Heartbeat(context.Background()))
}

func TestEmbeddingFunction(t *testing.T) {
	ctx := context.Background()
	var ef EmbeddingFunction

	docs, err := ef.EmbedDocuments(ctx, []string{"buy milk", "graph theory"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, lexical.Embed("buy milk"), docs[0].ContentAsFloat32())

	q, err := ef.EmbedQuery(ctx, "milk buy")
	require.NoError(t, err)
	assert.Equal(t, docs[0].ContentAsFloat32(), q.ContentAsFloat32())
}

func TestMetadataRoundTrip(t *testing.T) {
	in := docstore.Metadata{
		"title":    "Buy milk",
		"id":       7,
		"big":      int64(1) << 40,
		"score":    0.5,
		"done":     true,
		"relation": `["1","2"]`,
	}
	got, err := fromMetadata(toMetadata(in))
	require.NoError(t, err)
	assert.Equal(t, docstore.Metadata{
		"title":    "Buy milk",
		"id":       7,
		"big":      1 << 40,
		"score":    0.5,
		"done":     true,
		"relation": `["1","2"]`,
	}, got)
}
