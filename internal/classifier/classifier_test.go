package classifier

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/sqlrunner"
)

func fakeSqlite3(t *testing.T, body string) *sqlrunner.Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell shim not supported on windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "sqlite3")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return sqlrunner.New(path)
}

func TestClassify_Surveilr(t *testing.T) {
	runner := fakeSqlite3(t, `
case "$*" in
*"SELECT 1"*) echo '[{"1":1}]' ;;
*"uniform_resource"*) echo '[{"name":"uniform_resource"}]' ;;
*) echo '' ;;
esac`)
	cl := New(runner)
	got := cl.Classify(domain.Candidate{Path: "/tmp/app.db"})
	if got.Kind != domain.KindSurveilr {
		t.Errorf("got %v, want surveilr", got.Kind)
	}
}

func TestClassify_Sqlpage(t *testing.T) {
	runner := fakeSqlite3(t, `
case "$*" in
*"SELECT 1"*) echo '[{"1":1}]' ;;
*"sqlpage_files"*) echo '[{"name":"sqlpage_files"}]' ;;
*) echo '' ;;
esac`)
	cl := New(runner)
	got := cl.Classify(domain.Candidate{Path: "/tmp/app.db"})
	if got.Kind != domain.KindSqlpage {
		t.Errorf("got %v, want sqlpage", got.Kind)
	}
}

func TestClassify_PlainSQLite(t *testing.T) {
	runner := fakeSqlite3(t, `
case "$*" in
*"SELECT 1"*) echo '[{"1":1}]' ;;
*) echo '' ;;
esac`)
	cl := New(runner)
	got := cl.Classify(domain.Candidate{Path: "/tmp/app.db"})
	if got.Kind != domain.KindPlainSQLite {
		t.Errorf("got %v, want plain-sqlite", got.Kind)
	}
	if got.Exposable() {
		t.Error("plain-sqlite must not be exposable")
	}
}

func TestClassify_Unreadable(t *testing.T) {
	runner := fakeSqlite3(t, `echo "file is not a database" >&2; exit 1`)
	cl := New(runner)
	got := cl.Classify(domain.Candidate{Path: "/tmp/corrupt.db"})
	if got.Kind != domain.KindOther {
		t.Errorf("got %v, want other", got.Kind)
	}
	if got.Note == "" {
		t.Error("expected a note explaining why")
	}
}

func TestClassify_NonSQLiteExtension(t *testing.T) {
	runner := fakeSqlite3(t, `echo ''`)
	cl := New(runner)
	got := cl.Classify(domain.Candidate{Path: "/tmp/notes.txt"})
	if got.Kind != domain.KindOther {
		t.Errorf("got %v, want other", got.Kind)
	}
}

func TestToExposable_IDStableAndPrefixDerived(t *testing.T) {
	cl := New(sqlrunner.New(""))
	cand := domain.Candidate{Path: "/tmp/cargo/sub/app.sqlpage.db", Root: "/tmp/cargo"}
	cls := domain.Classification{Kind: domain.KindSqlpage}
	svc := cl.ToExposable(cand, cls, domain.Sidecar{}, []string{"/tmp/cargo"})
	if svc == nil {
		t.Fatal("expected a service")
	}
	if svc.ID != "sub/app.sqlpage" {
		t.Errorf("id = %q, want %q", svc.ID, "sub/app.sqlpage")
	}
	if svc.ProxyEndpointPrefix != "/sub/app.sqlpage" {
		t.Errorf("prefix = %q, want %q", svc.ProxyEndpointPrefix, "/sub/app.sqlpage")
	}
}

func TestToExposable_NotExposableForPlainSQLite(t *testing.T) {
	cl := New(sqlrunner.New(""))
	cand := domain.Candidate{Path: "/tmp/cargo/app.db", Root: "/tmp/cargo"}
	cls := domain.Classification{Kind: domain.KindPlainSQLite}
	svc := cl.ToExposable(cand, cls, domain.Sidecar{}, []string{"/tmp/cargo"})
	if svc != nil {
		t.Error("expected nil for a non-exposable classification")
	}
}

func TestToExposable_SidecarIDOverride(t *testing.T) {
	cl := New(sqlrunner.New(""))
	cand := domain.Candidate{Path: "/tmp/cargo/app.db", Root: "/tmp/cargo"}
	cls := domain.Classification{Kind: domain.KindSqlpage}
	overrideID := "custom-id"
	sc := domain.Sidecar{"instance.id": {String: &overrideID}}
	svc := cl.ToExposable(cand, cls, sc, []string{"/tmp/cargo"})
	if svc.ID != "custom-id" {
		t.Errorf("id = %q, want override to apply", svc.ID)
	}
}
