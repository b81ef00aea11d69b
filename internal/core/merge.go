package core

import (
	"maps"
	"slices"

	"deepcopy/pkg/domain"
)

// mergeAttributes layers explicit overrides over type defaults; later layers
// win on key collision. Nil layers are skipped.
func mergeAttributes(layers ...domain.Attributes) domain.Attributes {
	merged := make(domain.Attributes)
	for _, layer := range layers {
		maps.Copy(merged, layer)
	}
	return merged
}

// applyAttributes writes each attribute the record's type exposes as
// writable and returns the keys that did not apply, sorted.
func applyAttributes(schema domain.Schema, rec *domain.Record, attrs domain.Attributes) []string {
	var ignored []string
	for key, value := range attrs {
		if !schema.Writable(rec.Type, key) {
			ignored = append(ignored, key)
			continue
		}
		rec.Set(key, value)
	}
	slices.Sort(ignored)
	return ignored
}
