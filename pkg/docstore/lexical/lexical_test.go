package lexical

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/pkg/docstore"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"study", "for", "cs101", "exam"}, Tokenize("Study for CS101: exam!"))
	assert.Empty(t, Tokenize("  ... "))
}

func TestRank(t *testing.T) {
	ctx := context.Background()
	docs := []docstore.Document{
		{ID: "1", Text: "Linear algebra notes: eigenvalues and eigenvectors"},
		{ID: "2", Text: "Buy milk and eggs"},
		{ID: "3", Text: "Operating systems: scheduling and eigenvalues"},
	}
	matches, err := Rank(ctx, "Eigenvalues", docs, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.ElementsMatch(t, []string{"1", "3"}, []string{matches[0].ID, matches[1].ID})
	assert.Equal(t, 0.0, matches[0].Distance)
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)
	assert.Less(t, matches[1].Distance, 1.0)

	matches, err = Rank(ctx, "milk", docs, 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "2", matches[0].ID)
	// documents without a hit follow in id order
	assert.Equal(t, []string{"1", "3"}, []string{matches[1].ID, matches[2].ID})
	assert.Equal(t, 1.0, matches[2].Distance)

	matches, err = Rank(ctx, "", docs, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	matches, err = Rank(ctx, "anything", docs, 0)
	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestRank_NumericIDOrder(t *testing.T) {
	docs := []docstore.Document{
		{ID: "10", Text: "ten"},
		{ID: "9", Text: "nine"},
		{ID: "2", Text: "two"},
	}
	matches, err := Rank(context.Background(), "unrelated", docs, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []string{"2", "9", "10"}, []string{matches[0].ID, matches[1].ID, matches[2].ID})
}

func TestEmbed(t *testing.T) {
	v := Embed("buy milk")
	require.Len(t, v, EmbeddingDim)
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	assert.Equal(t, Embed("milk buy"), v)
	assert.Equal(t, make([]float32, EmbeddingDim), Embed(""))
}
