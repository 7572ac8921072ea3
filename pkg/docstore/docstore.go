// Package docstore defines the contract of a document store: named
// collections of text documents with flat primitive metadata, addressed by
// string id and searchable by text similarity.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidMetadata is returned when a metadata value is not a string, integer, float or bool.
	ErrInvalidMetadata = errors.New("metadata values must be primitives")
	// ErrEmptyID is returned when a document has no id.
	ErrEmptyID = errors.New("document id is required")
)

// Metadata is a flat map of primitive values.
type Metadata map[string]any

type Document struct {
	ID       string   `yaml:"id"`
	Text     string   `yaml:"text"`
	Metadata Metadata `yaml:"metadata"`
}

// Match is a query hit. Lower Distance means more similar.
type Match struct {
	Document
	Distance float64
}

// Collection is a set of documents. All operations are keyed by document id.
type Collection interface {
	// Upsert replaces documents with the same id wholesale.
	Upsert(ctx context.Context, docs ...Document) error
	// Get returns the documents that exist among ids, in the order of ids.
	// Missing ids are skipped.
	Get(ctx context.Context, ids ...string) ([]Document, error)
	// Delete removes the documents. Missing ids are ignored.
	Delete(ctx context.Context, ids ...string) error
	// List returns every document in the collection in unspecified order.
	List(ctx context.Context) ([]Document, error)
	// Query returns up to n documents ranked by similarity to text.
	Query(ctx context.Context, text string, n int) ([]Match, error)
}

// Store opens collections by name, creating them on first use.
type Store interface {
	Collection(ctx context.Context, name string) (Collection, error)
	Close() error
}

// Validate checks that a document can be stored by any backend.
func (d Document) Validate() error {
	if d.ID == "" {
		return ErrEmptyID
	}
	for k, v := range d.Metadata {
		switch v.(type) {
		case string, bool, int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("%w: %s has type %T", ErrInvalidMetadata, k, v)
		}
	}
	return nil
}

func (m Metadata) String(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int reads an integer value. Backends that round-trip through JSON hand
// back float64, and string-encoded integers are accepted too.
func (m Metadata) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), v == float64(int(v))
	case float32:
		return int(v), v == float32(int(v))
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// IndexByID maps documents to their ids.
func IndexByID(docs []Document) map[string]Document {
	m := make(map[string]Document, len(docs))
	for _, d := range docs {
		m[d.ID] = d
	}
	return m
}
