// Package lexical is the similarity engine of the embedded document store
// backends. Ranking runs a bleve match query over an in-memory index, and Embed
// supplies hashed term vectors to backends that expect client-side embeddings.
package lexical

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"

	"github.com/kazz187/notevault/pkg/docstore"
)

// EmbeddingDim is the length of vectors produced by Embed.
const EmbeddingDim = 384

const textField = "text"

// Tokenize lowercases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Rank returns at most n documents ordered by relevance to query. Documents
// that share no term with the query follow the hits in id order, so a query
// always fills n slots when the collection is large enough. Distance is 0 for
// the best hit and 1 for documents without a hit.
func Rank(ctx context.Context, query string, docs []docstore.Document, n int) ([]docstore.Match, error) {
	if n <= 0 || len(docs) == 0 {
		return nil, nil
	}
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	defer idx.Close()

	byID := docstore.IndexByID(docs)
	batch := idx.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, map[string]any{textField: d.Text}); err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", d.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to index documents: %w", err)
	}

	q := bleve.NewMatchQuery(query)
	q.SetField(textField)
	res, err := idx.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, n, 0, false))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]docstore.Match, 0, n)
	seen := make(map[string]bool, len(res.Hits))
	var best float64
	if len(res.Hits) > 0 {
		best = res.Hits[0].Score
	}
	for _, h := range res.Hits {
		d, ok := byID[h.ID]
		if !ok {
			continue
		}
		seen[h.ID] = true
		distance := 1.0
		if best > 0 {
			distance = 1 - h.Score/best
		}
		matches = append(matches, docstore.Match{Document: d, Distance: distance})
	}
	if len(matches) >= n {
		return matches[:n], nil
	}

	rest := make([]docstore.Document, 0, len(docs)-len(seen))
	for _, d := range docs {
		if !seen[d.ID] {
			rest = append(rest, d)
		}
	}
	slices.SortFunc(rest, func(a, b docstore.Document) int { return compareIDs(a.ID, b.ID) })
	for _, d := range rest {
		if len(matches) == n {
			break
		}
		matches = append(matches, docstore.Match{Document: d, Distance: 1})
	}
	return matches, nil
}

// compareIDs orders numeric ids numerically and everything else lexically.
func compareIDs(a, b string) int {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Embed projects text onto a fixed-size, L2-normalized vector using feature
// hashing over term counts.
func Embed(text string) []float32 {
	vec := make([]float64, EmbeddingDim)
	for _, term := range Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum32()
		sign := 1.0
		if sum&(1<<31) != 0 {
			sign = -1
		}
		vec[int(sum%EmbeddingDim)] += sign
	}
	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float32, EmbeddingDim)
	if norm == 0 {
		return out
	}
	for i, x := range vec {
		out[i] = float32(x / norm)
	}
	return out
}
