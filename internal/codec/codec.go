// Package codec imports and exports inventory snapshots in wire formats.
package codec

import (
	"io"

	"inventorium/internal/inventory"
)

// Importer parses an inventory snapshot from a serialized form.
type Importer interface {
	Parse(r io.Reader) (*inventory.Snapshot, error)
	Format() string
}

// Exporter writes an inventory snapshot in a serialized form.
type Exporter interface {
	Export(snap *inventory.Snapshot, w io.Writer) error
	Format() string
}

// ForFormat returns the codec registered for the given format identifier, or
// nil when the format is unknown. Every returned codec implements both
// Importer and Exporter.
func ForFormat(format string) interface {
	Importer
	Exporter
} {
	switch format {
	case "json":
		return NewJSONCodec()
	case "yaml":
		return NewYAMLCodec()
	case "ansible-inventory":
		return NewAnsibleCodec()
	default:
		return nil
	}
}
