package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"inventorium/internal/inventory"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports an inventory snapshot from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*inventory.Snapshot, error) {
	var snap inventory.Snapshot
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &snap, nil
}

// Export writes an inventory snapshot as YAML
func (c *YAMLCodec) Export(snap *inventory.Snapshot, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
