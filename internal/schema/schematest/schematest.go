// Package schematest provides a shared project-planning schema for tests.
//
// Project has many Milestones and one Charter; a Milestone has many Tasks, one
// Review, and one Checklist through its Review. Project.reviews is a has_many
// through relationship and Project.owner a belongs_to; neither is duplicable.
package schematest

import (
	_ "embed"
	"testing"

	"deepcopy/internal/schema"
)

//go:embed projects.yaml
var projectsYAML []byte

// ProjectsYAML returns the raw schema document.
func ProjectsYAML() []byte { return append([]byte(nil), projectsYAML...) }

// Projects parses the shared schema, failing the test on error.
func Projects(t testing.TB) *schema.Registry {
	t.Helper()
	reg, err := schema.Parse(projectsYAML)
	if err != nil {
		t.Fatalf("parse projects schema: %v", err)
	}
	return reg
}
