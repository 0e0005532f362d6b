package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"planql/internal/domain"
)

const validCatalogYAML = `
default_table: proj.data.cartera
fuzzy_tolerance: 0.34
tables:
  - name: proj.data.cartera
    columns: [MES, TOTAL_RIESGO, DESC_CNAE, SECTOR_COV19]
  - name: proj.data.operaciones
    columns: [MES, ID_OPERACION, SALDO_VIVO]
synonyms:
  sector: DESC_CNAE
  riesgo: TOTAL_RIESGO
`

func TestParseValidCatalog(t *testing.T) {
	snap, err := Parse([]byte(validCatalogYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.DefaultTable() != "proj.data.cartera" {
		t.Errorf("DefaultTable = %q", snap.DefaultTable())
	}
	if len(snap.Tables()) != 2 {
		t.Fatalf("Tables = %d, want 2", len(snap.Tables()))
	}
	cols, ok := snap.Columns("proj.data.operaciones")
	if !ok {
		t.Fatal("operaciones missing from snapshot")
	}
	if len(cols) != 3 || cols[1] != "ID_OPERACION" {
		t.Errorf("operaciones columns = %v", cols)
	}
	// Backticked lookups hit the same table.
	if _, ok := snap.Columns("`proj.data.cartera`"); !ok {
		t.Error("backticked table name did not resolve")
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no tables", `default_table: ""`, "no tables"},
		{"empty table name", "tables:\n  - name: \"\"\n    columns: [A]", "empty name"},
		{"duplicate table", "tables:\n  - name: t.d.a\n    columns: [A]\n  - name: t.d.a\n    columns: [B]", "duplicate"},
		{"no columns", "tables:\n  - name: t.d.a\n    columns: []", "no columns"},
		{"duplicate column", "tables:\n  - name: t.d.a\n    columns: [A, A]", "twice"},
		{"default not allowlisted", "default_table: t.d.x\ntables:\n  - name: t.d.a\n    columns: [A]", "allowlist"},
		{"tolerance out of range", "fuzzy_tolerance: 1.5\ntables:\n  - name: t.d.a\n    columns: [A]", "out of range"},
		{"empty synonym target", "tables:\n  - name: t.d.a\n    columns: [A]\nsynonyms:\n  x: \"\"", "empty"},
		{"conflicting synonyms", "tables:\n  - name: t.d.a\n    columns: [A, B]\nsynonyms:\n  foo: A\n  FOO: B", "maps to both"},
		{"not yaml", "{{{{", "parse catalog yaml"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var cfgErr *domain.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type = %T, want ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("error %q does not mention %q", err.Error(), c.want)
			}
		})
	}
}

func TestParseDefaultTolerance(t *testing.T) {
	snap, err := Parse([]byte("tables:\n  - name: t.d.a\n    columns: [A]"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.tolerance != DefaultFuzzyTolerance {
		t.Errorf("tolerance = %v, want %v", snap.tolerance, DefaultFuzzyTolerance)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(validCatalogYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.DefaultTable() != "proj.data.cartera" {
		t.Errorf("DefaultTable = %q", snap.DefaultTable())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file did not error")
	}
}
