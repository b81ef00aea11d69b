package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a schema.
type Document struct {
	Types []TypeSchema `yaml:"types"`
}

// Load reads a YAML schema document from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied schema path
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML schema document. Unknown keys are rejected so typos in
// relationship declarations surface at startup.
func Parse(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if len(doc.Types) == 0 {
		return nil, errors.New("decode schema: no types declared")
	}
	return NewRegistry(doc.Types...)
}
