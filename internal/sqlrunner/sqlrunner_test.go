package sqlrunner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeSqlite3 writes a shell script standing in for the sqlite3 CLI so tests
// don't depend on it being installed.
func fakeSqlite3(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell shim not supported on windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "sqlite3")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTableExists_True(t *testing.T) {
	bin := fakeSqlite3(t, `echo '[{"name":"uniform_resource"}]'`)
	r := New(bin)
	if !r.TableExists(context.Background(), "/tmp/any.db", "uniform_resource") {
		t.Error("expected TableExists to be true")
	}
}

func TestTableExists_False(t *testing.T) {
	bin := fakeSqlite3(t, `echo ''`)
	r := New(bin)
	if r.TableExists(context.Background(), "/tmp/any.db", "uniform_resource") {
		t.Error("expected TableExists to be false")
	}
}

func TestRunQuery_NonZeroExit(t *testing.T) {
	bin := fakeSqlite3(t, `echo "file is not a database" >&2; exit 1`)
	r := New(bin)
	res := r.RunQuery(context.Background(), "/tmp/corrupt.db", "select 1")
	if res.OK {
		t.Error("expected OK=false on non-zero exit")
	}
	if res.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", res.ExitCode)
	}
}
