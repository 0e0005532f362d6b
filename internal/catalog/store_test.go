package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, "tables:\n  - name: t.d.a\n    columns: [A]")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := len(store.Snapshot().Tables()); got != 1 {
		t.Fatalf("tables = %d, want 1", got)
	}

	writeCatalog(t, path, "tables:\n  - name: t.d.a\n    columns: [A]\n  - name: t.d.b\n    columns: [B]")
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := len(store.Snapshot().Tables()); got != 2 {
		t.Errorf("tables after reload = %d, want 2", got)
	}
}

func TestStoreReloadKeepsOldSnapshotOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, "tables:\n  - name: t.d.a\n    columns: [A]")

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	before := store.Snapshot()

	writeCatalog(t, path, "tables: []")
	if err := store.Reload(); err == nil {
		t.Fatal("reload of invalid catalog did not error")
	}
	if store.Snapshot() != before {
		t.Error("failed reload replaced the snapshot")
	}
}

func TestNewStoreMissingFile(t *testing.T) {
	if _, err := NewStore(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}
