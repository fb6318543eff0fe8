package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover_MatchesDefaultGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.db"))
	writeFile(t, filepath.Join(dir, "other.sqlite"))
	writeFile(t, filepath.Join(dir, "notes.txt"))

	w := New([]Root{{Path: dir}})
	cands, unhandled, errs := w.Discover(context.Background())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(cands), cands)
	}
	if len(unhandled) != 1 || filepath.Base(unhandled[0].Path) != "notes.txt" {
		t.Errorf("expected notes.txt reported unhandled, got %+v", unhandled)
	}
}

func TestDiscover_Recursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "nested.db"))

	w := New([]Root{{Path: dir}})
	cands, _, errs := w.Discover(context.Background())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
}

func TestDiscover_MissingRootIsNonFatal(t *testing.T) {
	w := New([]Root{{Path: "/this/path/does/not/exist"}})
	cands, _, errs := w.Discover(context.Background())
	if len(cands) != 0 {
		t.Errorf("expected no candidates, got %d", len(cands))
	}
	if len(errs) == 0 {
		t.Error("expected a collected error for a missing root")
	}
}

func TestDiscover_CustomGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.sqlite.db"))

	w := New([]Root{{Path: dir, Globs: []string{"*.sqlite.db"}}})
	cands, _, _ := w.Discover(context.Background())
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
}

func TestDiscover_DetectsSidecarOverrideFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	writeFile(t, dbPath)
	writeFile(t, dbPath+".db-yard.yaml")
	writeFile(t, filepath.Join(dir, "other.db")) // no sidecar sibling

	w := New([]Root{{Path: dir}})
	cands, _, errs := w.Discover(context.Background())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	var withRef, withoutRef int
	for _, c := range cands {
		if c.SidecarRef != "" {
			withRef++
			if c.SidecarRef != dbPath+".db-yard.yaml" {
				t.Errorf("SidecarRef = %q, want %q", c.SidecarRef, dbPath+".db-yard.yaml")
			}
		} else {
			withoutRef++
		}
	}
	if withRef != 1 || withoutRef != 1 {
		t.Errorf("got %d with sidecar ref and %d without, want 1 and 1", withRef, withoutRef)
	}
}
