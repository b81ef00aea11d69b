package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deepcopy/internal/core"
	"deepcopy/internal/schema/schematest"
	"deepcopy/pkg/domain"
)

const planJSON = `[
  {"type": "Person", "id": "u1", "attributes": {"name": "Ada"}},
  {"type": "Project", "id": "p1", "attributes": {"name": "Apollo", "owner_id": "u1"}},
  {"type": "Milestone", "id": "m1", "attributes": {"title": "Design", "project_id": "p1"}},
  {"type": "Task", "id": "t1", "attributes": {"title": "Sketch", "milestone_id": "m1"}},
  {"type": "Charter", "id": "h1", "attributes": {"body": "Go", "project_id": "p1"}}
]`

// setupEnv points the CLI at a temporary schema, sqlite file and manifest root.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(schemaPath, schematest.ProjectsYAML(), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	t.Setenv("DEEPCOPY_SCHEMA", schemaPath)
	t.Setenv("DEEPCOPY_STORAGE_DRIVER", "sqlite")
	t.Setenv("DEEPCOPY_SQLITE_PATH", filepath.Join(dir, "deepcopy.db"))
	t.Setenv("DEEPCOPY_BLOB_DRIVER", "fs")
	t.Setenv("DEEPCOPY_BLOB_FS_ROOT", filepath.Join(dir, "archive"))
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestImportDuplicateAndInspect(t *testing.T) {
	dir := setupEnv(t)
	input := filepath.Join(dir, "plan.json")
	if err := os.WriteFile(input, []byte(planJSON), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, _, err := runCLI(t, "import", input)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, `"imported": 5`) {
		t.Fatalf("unexpected import output %s", out)
	}

	metrics := filepath.Join(dir, "metrics.prom")
	out, stderr, err := runCLI(t, "duplicate", "Project", "p1", "--set", "name=Apollo II", "--set", "budget=3", "--exclude", "charter", "--metrics-file", metrics, "--trace")
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	var dup duplicateOutput
	if err := json.Unmarshal([]byte(out), &dup); err != nil {
		t.Fatalf("decode duplicate output: %v\n%s", err, out)
	}
	if len(dup.Entries) != 3 || dup.Root.Attributes["name"] != "Apollo II" || dup.Root.Attributes["status"] != "draft" {
		t.Fatalf("unexpected duplicate output %+v", dup)
	}
	if _, ok := dup.Root.Attributes["budget"]; ok {
		t.Fatalf("undeclared attribute written: %v", dup.Root.Attributes)
	}
	if !strings.Contains(stderr, `"operation":"duplicate_record"`) {
		t.Fatalf("expected trace span and audit log on stderr, got %s", stderr)
	}
	data, err := os.ReadFile(metrics)
	if err != nil || !strings.Contains(string(data), `deepcopy_service_operations_total{operation="duplicate_record",outcome="success"} 1`) {
		t.Fatalf("unexpected metrics file: %s %v", data, err)
	}

	out, _, err = runCLI(t, "get", "Project", dup.Root.ID)
	if err != nil || !strings.Contains(out, "Apollo II") {
		t.Fatalf("get copy: %s %v", out, err)
	}
	out, _, err = runCLI(t, "list", "Project")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var projects []domain.Record
	if err := json.Unmarshal([]byte(out), &projects); err != nil || len(projects) != 2 {
		t.Fatalf("expected two projects, got %s %v", out, err)
	}
	out, _, err = runCLI(t, "list", "Charter")
	if err != nil || strings.Count(out, `"type": "Charter"`) != 1 {
		t.Fatalf("excluded charter was copied: %s %v", out, err)
	}

	out, _, err = runCLI(t, "manifest", "Project", dup.Root.ID)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	var m core.Manifest
	if err := json.Unmarshal([]byte(out), &m); err != nil || m.Source.ID != "p1" || len(m.Entries) != 3 {
		t.Fatalf("unexpected manifest %s %v", out, err)
	}
}

func TestDuplicatePartialExitsNonZero(t *testing.T) {
	dir := setupEnv(t)
	input := filepath.Join(dir, "plan.json")
	broken := strings.Replace(planJSON, `"title": "Design", `, "", 1)
	if err := os.WriteFile(input, []byte(broken), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if _, _, err := runCLI(t, "import", input); err == nil {
		t.Fatalf("expected import validation failure")
	}
	if out, _, _ := runCLI(t, "list", "Person"); strings.Contains(out, "u1") {
		t.Fatalf("rejected import left records behind: %s", out)
	}

	if err := os.WriteFile(input, []byte(planJSON), 0o600); err != nil {
		t.Fatalf("rewrite input: %v", err)
	}
	if _, _, err := runCLI(t, "import", input); err != nil {
		t.Fatalf("import: %v", err)
	}
	out, _, err := runCLI(t, "duplicate", "Project", "p1", "--validate", "--set", "name=")
	if err == nil {
		t.Fatalf("expected partial duplication error")
	}
	var dup duplicateOutput
	if jsonErr := json.Unmarshal([]byte(out), &dup); jsonErr != nil {
		t.Fatalf("partial result not printed: %v\n%s", jsonErr, out)
	}
	if len(dup.Entries) != 0 || len(dup.Failures) != 1 {
		t.Fatalf("expected the root copy to fail, got %+v", dup)
	}
	out, _, _ = runCLI(t, "list", "Project")
	if strings.Count(out, `"type": "Project"`) != 1 {
		t.Fatalf("failed root copy was saved: %s", out)
	}
}

func TestCLIErrors(t *testing.T) {
	setupEnv(t)
	cases := []struct {
		name string
		args []string
	}{
		{"bad log level", []string{"--log-level", "loud", "list", "Project"}},
		{"missing record", []string{"get", "Project", "nope"}},
		{"missing source", []string{"duplicate", "Project", "nope"}},
		{"missing manifest", []string{"manifest", "Project", "nope"}},
		{"missing import file", []string{"import", "/does/not/exist.json"}},
		{"wrong arity", []string{"get", "Project"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := runCLI(t, tc.args...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	t.Setenv("DEEPCOPY_SCHEMA", "")
	if _, _, err := runCLI(t, "list", "Project"); err == nil || !strings.Contains(err.Error(), "schema required") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestParseOverrides(t *testing.T) {
	attrs, err := parseOverrides(map[string]string{"n": "3", "b": "true", "s": "text", "e": ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if attrs["n"] != 3 || attrs["b"] != true || attrs["s"] != "text" || attrs["e"] != "" {
		t.Fatalf("unexpected overrides %#v", attrs)
	}
	if attrs, err := parseOverrides(nil); err != nil || attrs != nil {
		t.Fatalf("expected nil overrides")
	}
	if _, err := parseOverrides(map[string]string{"x": "[unclosed"}); err == nil {
		t.Fatalf("expected YAML error")
	}
}
