package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImportPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred func(string) bool
		in   string
		want bool
	}{
		{"internal", InternalImportForbidden, "deepcopy/internal/core", true},
		{"internal", InternalImportForbidden, "deepcopy/pkg/domain", false},
		{"infra", InfraImportForbidden, "deepcopy/internal/infra/persistence/memory", true},
		{"infra", InfraImportForbidden, "deepcopy/internal/schema", false},
		{"driver", DriverImportForbidden, "database/sql", true},
		{"driver", DriverImportForbidden, "modernc.org/sqlite", true},
		{"driver", DriverImportForbidden, "github.com/jackc/pgx/v5/stdlib", true},
		{"driver", DriverImportForbidden, "encoding/json", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("%s(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
	combined := AnyOf(InfraImportForbidden, DriverImportForbidden)
	if !combined("database/sql") || combined("fmt") {
		t.Fatalf("AnyOf did not combine predicates")
	}
}

// TestAssertNoDirectImports exercises the success path by creating a tiny temp package with safe imports.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectViolationsReported(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"database/sql\"\nvar _ = sql.ErrNoRows\n")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), []byte("package tmp\nimport \"modernc.org/sqlite\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, DriverImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "database/sql") {
		t.Fatalf("expected single non-test violation, got %v", viols)
	}
	rec := &recordingFatal{}
	failIfDirectViolations(rec, "drivers", viols)
	if !strings.Contains(rec.msg, "drivers") {
		t.Fatalf("expected failure message, got %q", rec.msg)
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), DriverImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
