// Package boltstore is an embedded docstore.Store backed by a single bbolt
// file. Each collection is a bucket keyed by document id.
package boltstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kazz187/notevault/pkg/docstore"
	"github.com/kazz187/notevault/pkg/docstore/lexical"
)

type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Collection(_ context.Context, name string) (docstore.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	bucket := []byte(name)
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return &Collection{db: s.db, bucket: bucket}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type Collection struct {
	db     *bolt.DB
	bucket []byte
}

func (c *Collection) Upsert(_ context.Context, docs ...docstore.Document) error {
	encoded := make([][]byte, len(docs))
	for i, d := range docs {
		if err := d.Validate(); err != nil {
			return err
		}
		data, err := docstore.MarshalDocument(d)
		if err != nil {
			return err
		}
		encoded[i] = data
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		for i, d := range docs {
			if err := b.Put([]byte(d.ID), encoded[i]); err != nil {
				return fmt.Errorf("failed to put %s/%s: %w", c.bucket, d.ID, err)
			}
		}
		return nil
	})
}

func (c *Collection) Get(_ context.Context, ids ...string) ([]docstore.Document, error) {
	docs := make([]docstore.Document, 0, len(ids))
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		for _, id := range ids {
			data := b.Get([]byte(id))
			if data == nil {
				continue
			}
			d, err := docstore.UnmarshalDocument(data)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", c.bucket, id, err)
			}
			docs = append(docs, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Collection) Delete(_ context.Context, ids ...string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete %s/%s: %w", c.bucket, id, err)
			}
		}
		return nil
	})
}

func (c *Collection) List(_ context.Context) ([]docstore.Document, error) {
	var docs []docstore.Document
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(c.bucket).ForEach(func(k, v []byte) error {
			d, err := docstore.UnmarshalDocument(v)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", c.bucket, k, err)
			}
			docs = append(docs, d)
			return nil
		})
	})
	if err != nil {
		return nil, err
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
