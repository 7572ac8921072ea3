// Package blobstore keeps documents as YAML objects on a storage.Storage,
// one object per document under "<collection>/<id>.yaml".
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/kazz187/notevault/pkg/docstore"
	"github.com/kazz187/notevault/pkg/docstore/lexical"
	"github.com/kazz187/notevault/pkg/storage"
)

const ext = ".yaml"

type Store struct {
	storage storage.Storage

	mu          sync.Mutex
	collections map[string]*Collection
}

func New(s storage.Storage) *Store {
	return &Store{
		storage:     s,
		collections: map[string]*Collection{},
	}
}

func (s *Store) Collection(_ context.Context, name string) (docstore.Collection, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &Collection{storage: s.storage, name: name}
		s.collections[name] = c
	}
	return c, nil
}

func (s *Store) Close() error { return nil }

type Collection struct {
	storage storage.Storage
	name    string
}

func (c *Collection) path(id string) string {
	return path.Join(c.name, id+ext)
}

func (c *Collection) Upsert(ctx context.Context, docs ...docstore.Document) error {
	for _, d := range docs {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for _, d := range docs {
		data, err := docstore.MarshalDocument(d)
		if err != nil {
			return err
		}
		if err := c.storage.Write(ctx, c.path(d.ID), data); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", c.name, d.ID, err)
		}
	}
	return nil
}

func (c *Collection) Get(ctx context.Context, ids ...string) ([]docstore.Document, error) {
	docs := make([]docstore.Document, 0, len(ids))
	for _, id := range ids {
		d, err := c.read(ctx, c.path(id))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (c *Collection) read(ctx context.Context, p string) (docstore.Document, error) {
	data, err := c.storage.Read(ctx, p)
	if err != nil {
		return docstore.Document{}, err
	}
	d, err := docstore.UnmarshalDocument(data)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("%s: %w", p, err)
	}
	return d, nil
}

func (c *Collection) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := c.storage.Delete(ctx, c.path(id)); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete %s/%s: %w", c.name, id, err)
		}
	}
	return nil
}

func (c *Collection) List(ctx context.Context) ([]docstore.Document, error) {
	paths, err := c.storage.List(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.name, err)
	}
	docs := make([]docstore.Document, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, ext) {
			continue
		}
		d, err := c.read(ctx, p)
		if errors.Is(err, storage.ErrNotFound) {
			// deleted between List and Read
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (c *Collection) Query(ctx context.Context, text string, n int) ([]docstore.Match, error) {
	docs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return lexical.Rank(ctx, text, docs, n)
}
