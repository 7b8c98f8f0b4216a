package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"inventorium/internal/inventory"
)

// JSONCodec reads and writes snapshots as a single indented JSON document.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports an inventory snapshot from JSON
func (c *JSONCodec) Parse(r io.Reader) (*inventory.Snapshot, error) {
	dec := json.NewDecoder(r)

	var snap inventory.Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	// A snapshot is one document; trailing content means the caller handed
	// us something else.
	if dec.More() {
		return nil, fmt.Errorf("failed to parse JSON: trailing data after snapshot")
	}

	return &snap, nil
}

// Export writes an inventory snapshot as indented JSON
func (c *JSONCodec) Export(snap *inventory.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
