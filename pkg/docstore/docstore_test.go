package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Validate(t *testing.T) {
	assert.ErrorIs(t, Document{}.Validate(), ErrEmptyID)
	assert.NoError(t, Document{ID: "1", Metadata: Metadata{"title": "a", "id": 1, "done": false, "score": 0.5}}.Validate())
	assert.ErrorIs(t, Document{ID: "1", Metadata: Metadata{"related_notes": []int{1}}}.Validate(), ErrInvalidMetadata)
}

func TestMetadata_Int(t *testing.T) {
	m := Metadata{"a": 3, "b": float64(4), "c": "5", "d": 1.5, "e": "x"}
	for key, want := range map[string]int{"a": 3, "b": 4, "c": 5} {
		got, ok := m.Int(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	for _, key := range []string{"d", "e", "missing"} {
		_, ok := m.Int(key)
		assert.False(t, ok, key)
	}
}

func TestDocumentCodec(t *testing.T) {
	in := Document{ID: "2", Text: "Buy milk\n\n", Metadata: Metadata{"id": 2, "title": "Buy milk", "related_notes": `["1"]`}}
	data, err := MarshalDocument(in)
	require.NoError(t, err)
	out, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
