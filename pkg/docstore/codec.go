package docstore

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalDocument encodes a document for backends that persist raw bytes.
func MarshalDocument(d Document) ([]byte, error) {
	data, err := yaml.Marshal(&d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document %s: %w", d.ID, err)
	}
	return data, nil
}

func UnmarshalDocument(data []byte) (Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if d.Metadata == nil {
		d.Metadata = Metadata{}
	}
	return d, nil
}
