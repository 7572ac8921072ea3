// Package chroma is a docstore.Store backed by a Chroma server. Embeddings are
// computed client-side with lexical.Embed through a chroma-go embedding function.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/kazz187/notevault/pkg/docstore"
	"github.com/kazz187/notevault/pkg/docstore/lexical"
)

type Config struct {
	BaseURL  string
	Tenant   string
	Database string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

type Store struct {
	client chromago.Client

	mu          sync.Mutex
	collections map[string]*Collection
}

func New(cfg Config) (*Store, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid chroma url %q", cfg.BaseURL)
	}
	if cfg.Tenant == "" {
		cfg.Tenant = "default_tenant"
	}
	if cfg.Database == "" {
		cfg.Database = "default_database"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	client, err := chromago.NewHTTPClient(
		chromago.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")),
		chromago.WithDatabaseAndTenant(cfg.Database, cfg.Tenant),
		chromago.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	return &Store{
		client:      client,
		collections: map[string]*Collection{},
	}, nil
}

// Heartbeat checks that the server is reachable.
func (s *Store) Heartbeat(ctx context.Context) error {
	return s.client.Heartbeat(ctx)
}

func (s *Store) Collection(ctx context.Context, name string) (docstore.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	col, err := s.client.GetOrCreateCollection(ctx, name,
		chromago.WithEmbeddingFunctionCreate(EmbeddingFunction{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %s: %w", name, err)
	}
	c := &Collection{name: name, col: col}
	s.collections[name] = c
	return c, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// EmbeddingFunction embeds text with lexical.Embed.
type EmbeddingFunction struct{}

var _ embeddings.EmbeddingFunction = EmbeddingFunction{}

func (EmbeddingFunction) EmbedDocuments(_ context.Context, texts []string) ([]embeddings.Embedding, error) {
	out := make([]embeddings.Embedding, len(texts))
	for i, t := range texts {
		out[i] = embeddings.NewEmbeddingFromFloat32(lexical.Embed(t))
	}
	return out, nil
}

func (EmbeddingFunction) EmbedQuery(_ context.Context, text string) (embeddings.Embedding, error) {
	return embeddings.NewEmbeddingFromFloat32(lexical.Embed(text)), nil
}

type Collection struct {
	name string
	col  chromago.Collection
}

func (c *Collection) Upsert(ctx context.Context, docs ...docstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]chromago.DocumentID, len(docs))
	texts := make([]string, len(docs))
	metadatas := make([]chromago.DocumentMetadata, len(docs))
	for i, d := range docs {
		if err := d.Validate(); err != nil {
			return err
		}
		ids[i] = chromago.DocumentID(d.ID)
		texts[i] = d.Text
		metadatas[i] = toMetadata(d.Metadata)
	}
	err := c.col.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithMetadatas(metadatas...),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection) Get(ctx context.Context, ids ...string) ([]docstore.Document, error) {
	if len(ids) == 0 {
		return []docstore.Document{}, nil
	}
	docIDs := make([]chromago.DocumentID, len(ids))
	for i, id := range ids {
		docIDs[i] = chromago.DocumentID(id)
	}
	res, err := c.col.Get(ctx,
		chromago.WithIDsGet(docIDs...),
		chromago.WithIncludeGet(chromago.IncludeDocuments, chromago.IncludeMetadatas),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get from %s: %w", c.name, err)
	}
	found, err := toDocuments(res.GetIDs(), res.GetDocuments(), res.GetMetadatas())
	if err != nil {
		return nil, err
	}
	byID := docstore.IndexByID(found)
	docs := make([]docstore.Document, 0, len(byID))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (c *Collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	docIDs := make([]chromago.DocumentID, len(ids))
	for i, id := range ids {
		docIDs[i] = chromago.DocumentID(id)
	}
	if err := c.col.Delete(ctx, chromago.WithIDsDelete(docIDs...)); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection) List(ctx context.Context) ([]docstore.Document, error) {
	res, err := c.col.Get(ctx, chromago.WithIncludeGet(chromago.IncludeDocuments, chromago.IncludeMetadatas))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.name, err)
	}
	return toDocuments(res.GetIDs(), res.GetDocuments(), res.GetMetadatas())
}

func (c *Collection) Query(ctx context.Context, text string, n int) ([]docstore.Match, error) {
	if n <= 0 {
		return nil, nil
	}
	res, err := c.col.Query(ctx,
		chromago.WithQueryTexts(text),
		chromago.WithNResults(n),
		chromago.WithIncludeQuery(chromago.IncludeDocuments, chromago.IncludeMetadatas, chromago.IncludeDistances),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	// results are grouped per query text
	idGroups := res.GetIDGroups()
	if len(idGroups) == 0 {
		return []docstore.Match{}, nil
	}
	var (
		texts     chromago.Documents
		metadatas chromago.DocumentMetadatas
		distances embeddings.Distances
	)
	if g := res.GetDocumentsGroups(); len(g) > 0 {
		texts = g[0]
	}
	if g := res.GetMetadatasGroups(); len(g) > 0 {
		metadatas = g[0]
	}
	if g := res.GetDistancesGroups(); len(g) > 0 {
		distances = g[0]
	}
	docs, err := toDocuments(idGroups[0], texts, metadatas)
	if err != nil {
		return nil, err
	}
	matches := make([]docstore.Match, len(docs))
	for i, d := range docs {
		matches[i] = docstore.Match{Document: d}
		if i < len(distances) {
			matches[i].Distance = float64(distances[i])
		}
	}
	return matches, nil
}

func toMetadata(m docstore.Metadata) chromago.DocumentMetadata {
	attrs := make([]*chromago.MetaAttribute, 0, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case string:
			attrs = append(attrs, chromago.NewStringAttribute(k, v))
		case bool:
			attrs = append(attrs, chromago.NewBoolAttribute(k, v))
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(k, int64(v)))
		case int32:
			attrs = append(attrs, chromago.NewIntAttribute(k, int64(v)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(k, v))
		case float32:
			attrs = append(attrs, chromago.NewFloatAttribute(k, float64(v)))
		case float64:
			attrs = append(attrs, chromago.NewFloatAttribute(k, v))
		}
	}
	return chromago.NewDocumentMetadata(attrs...)
}

func toDocuments(ids chromago.DocumentIDs, texts chromago.Documents, metadatas chromago.DocumentMetadatas) ([]docstore.Document, error) {
	docs := make([]docstore.Document, 0, len(ids))
	for i, id := range ids {
		d := docstore.Document{ID: string(id), Metadata: docstore.Metadata{}}
		if i < len(texts) && texts[i] != nil {
			d.Text = texts[i].ContentString()
		}
		if i < len(metadatas) && metadatas[i] != nil {
			m, err := fromMetadata(metadatas[i])
			if err != nil {
				return nil, fmt.Errorf("failed to decode metadata of %s: %w", id, err)
			}
			d.Metadata = m
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// fromMetadata goes through the metadata's JSON form and keeps integral
// numbers as int so metadata round-trips the same way it does on the
// embedded backends.
func fromMetadata(md chromago.DocumentMetadata) (docstore.Metadata, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	raw := map[string]any{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	m := make(docstore.Metadata, len(raw))
	for k, v := range raw {
		m[k] = primitive(v)
	}
	return m, nil
}

func primitive(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	f, _ := n.Float64()
	return f
}
