package tagindex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dbyard/db-yard/internal/domain"
)

func TestParseEnviron_ExtractsKnownTagsOnly(t *testing.T) {
	raw := []byte("PATH=/usr/bin\x00DB_YARD_CONTEXT_PATH=/tmp/x.context.json\x00DB_YARD_SESSION_ID=sess1\x00DB_YARD_SERVICE_ID=svc1\x00HOME=/root\x00")
	env := parseEnviron(raw)
	if env[envContextPath] != "/tmp/x.context.json" {
		t.Errorf("context path = %q", env[envContextPath])
	}
	if env[envSessionID] != "sess1" {
		t.Errorf("session id = %q", env[envSessionID])
	}
	if env[envServiceID] != "svc1" {
		t.Errorf("service id = %q", env[envServiceID])
	}
	if _, ok := env["PATH"]; ok {
		t.Error("unrelated env vars must not be captured")
	}
}

func TestParseEnviron_EmptyAndMalformedEntries(t *testing.T) {
	raw := []byte("\x00NOEQUALS\x00DB_YARD_SESSION_ID=sess1\x00")
	env := parseEnviron(raw)
	if env[envSessionID] != "sess1" {
		t.Errorf("session id = %q, want sess1", env[envSessionID])
	}
	if len(env) != 1 {
		t.Errorf("expected only one recognized key, got %v", env)
	}
}

func TestEnrich_MissingContextFileSetsIssue(t *testing.T) {
	tp := domain.TaggedProcess{PID: 42, ContextPath: "/nonexistent/path.context.json"}
	enrich(&tp)
	if tp.Issue == "" {
		t.Error("expected an issue for an unreadable context file")
	}
}

func TestEnrich_PIDMismatchSetsIssue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.context.json")
	var ctx domain.SpawnedContext
	ctx.Spawned.PID = 999
	data, err := json.Marshal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	tp := domain.TaggedProcess{PID: 42, ContextPath: path}
	enrich(&tp)
	if tp.Issue == "" {
		t.Error("expected an issue for a pid mismatch")
	}
}

func TestEnrich_MatchingPIDHasNoIssue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.context.json")
	var ctx domain.SpawnedContext
	ctx.Spawned.PID = 42
	data, err := json.Marshal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	tp := domain.TaggedProcess{PID: 42, ContextPath: path}
	enrich(&tp)
	if tp.Issue != "" {
		t.Errorf("expected no issue, got %q", tp.Issue)
	}
}
