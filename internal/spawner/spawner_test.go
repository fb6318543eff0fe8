package spawner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dbyard/db-yard/internal/domain"
)

type mockLogger struct{}

func (mockLogger) Info(string, ...any)  {}
func (mockLogger) Error(string, ...any) {}

func TestSpawn_FastExit(t *testing.T) {
	dir := t.TempDir()
	s := New(mockLogger{})
	plan := domain.SpawnPlan{
		Command:    "false",
		StdoutPath: filepath.Join(dir, "out.log"),
		StderrPath: filepath.Join(dir, "err.log"),
		Cwd:        dir,
	}
	_, err := s.Spawn(plan)
	if err == nil {
		t.Fatal("expected fast-exit error for a command that exits immediately")
	}
}

func TestSpawn_SurvivesAndKill(t *testing.T) {
	dir := t.TempDir()
	s := New(mockLogger{})
	plan := domain.SpawnPlan{
		Command:    "sleep",
		Argv:       []string{"30"},
		StdoutPath: filepath.Join(dir, "out.log"),
		StderrPath: filepath.Join(dir, "err.log"),
		Cwd:        dir,
	}
	pid, err := s.Spawn(plan)
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	if !isAlive(pid) {
		t.Fatal("expected pid to be alive immediately after spawn")
	}
	if err := s.KillPID(pid); err != nil {
		t.Fatalf("KillPID() error: %v", err)
	}
	if isAlive(pid) {
		t.Fatal("expected pid to be dead after KillPID")
	}
}

func TestKillPID_AlreadyGoneIsIdempotent(t *testing.T) {
	s := New(mockLogger{})
	if err := s.KillPID(0); err != nil {
		t.Errorf("KillPID(0) should be a no-op, got %v", err)
	}
	// A pid that has never existed in this process tree's lifetime; using a
	// very large value keeps this from colliding with a real process.
	if err := s.KillPID(1 << 30); err != nil {
		t.Errorf("KillPID(nonexistent) should succeed silently, got %v", err)
	}
}

func TestSpawn_StdoutRedirected(t *testing.T) {
	dir := t.TempDir()
	s := New(mockLogger{})
	plan := domain.SpawnPlan{
		Command:    "sh",
		Argv:       []string{"-c", "echo hello; sleep 5"},
		StdoutPath: filepath.Join(dir, "out.log"),
		StderrPath: filepath.Join(dir, "err.log"),
		Cwd:        dir,
	}
	pid, err := s.Spawn(plan)
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	defer s.KillPID(pid)

	time.Sleep(100 * time.Millisecond)
	data, err := os.ReadFile(plan.StdoutPath)
	if err != nil {
		t.Fatalf("read stdout log: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("stdout log = %q, want %q", data, "hello\n")
	}
}
