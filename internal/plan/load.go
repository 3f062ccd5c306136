package plan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes a YAML plan document into a Snapshot. Dates are normalized;
// structural validation is left to Validate so that callers can still
// evaluate (and report) a defective plan.
func Load(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("plan document is empty")
		}
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	s.normalize()
	return &s, nil
}

// LoadFile reads and decodes the plan at path.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}
	s, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// FileSource yields snapshots from a YAML plan file. Every Load re-reads
// the file, so each call returns a fresh, coherent snapshot.
type FileSource struct {
	Path string
}

// Load implements the controller's source contract.
func (f FileSource) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(f.Path)
}
