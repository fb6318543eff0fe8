package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/discovery"
	"github.com/dbyard/db-yard/internal/reconciler"
)

type noopClassifier struct{}

func (noopClassifier) Classify(c domain.Candidate) domain.Classification {
	return domain.Classification{Kind: domain.KindPlainSQLite}
}
func (noopClassifier) LoadSidecar(c domain.Candidate) (domain.Sidecar, error) {
	return domain.Sidecar{}, nil
}
func (noopClassifier) ToExposable(c domain.Candidate, cls domain.Classification, sc domain.Sidecar, roots []string) *domain.ExposableService {
	return nil
}

type noopDrivers struct{}

func (noopDrivers) Plan(svc domain.ExposableService, port int, host string) (domain.SpawnPlan, error) {
	return domain.SpawnPlan{}, nil
}

type noopSpawner struct{}

func (noopSpawner) Spawn(plan domain.SpawnPlan) (int, error) { return 0, nil }
func (noopSpawner) KillPID(pid int) error                    { return nil }

type fakeLedger struct{ home string }

func (f *fakeLedger) SessionHome() string { return f.home }
func (f *fakeLedger) OwnerToken() string  { return "owner" }
func (f *fakeLedger) SessionID() string   { return "session" }
func (f *fakeLedger) ContextPath(root string, svc domain.ExposableService) string {
	return filepath.Join(f.home, svc.ID+".context.json")
}
func (f *fakeLedger) LogPaths(p string) (string, string)                  { return p + ".out", p + ".err" }
func (f *fakeLedger) WriteContext(string, domain.SpawnedContext) error    { return nil }
func (f *fakeLedger) RemoveContext(string) error                          { return nil }
func (f *fakeLedger) RewritePIDFile([]int) error                          { return nil }

func TestMaterializeOnce_RunsExactlyOnePass(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "app.db"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	home := t.TempDir()

	var calls int
	deps := reconciler.Deps{
		Discoverer: discovery.New([]discovery.Root{{Path: root, Globs: discovery.DefaultGlobs}}),
		Classifier: noopClassifier{},
		Drivers:    noopDrivers{},
		Spawner:    noopSpawner{},
		Ledger:     &fakeLedger{home: home},
		ScanStates: func(h string) ([]domain.SpawnedState, []error) {
			calls++
			return nil, nil
		},
		Roots: []string{root},
	}
	rec := reconciler.New(deps, reconciler.Config{ListenHost: "127.0.0.1", PortStart: 20000}, nil)
	sched := New(rec, []string{root}, Config{}, nil, func() int64 { return 1000 })

	sched.MaterializeOnce(context.Background())

	if calls != 1 {
		t.Errorf("ScanStates called %d times, want 1", calls)
	}
}

func TestConfig_DefaultsApply(t *testing.T) {
	var c Config
	if c.debounce() != 400*time.Millisecond {
		t.Errorf("default debounce = %v, want 400ms", c.debounce())
	}
	if c.reconcileInterval() != 3*time.Second {
		t.Errorf("default reconcile interval = %v, want 3s", c.reconcileInterval())
	}
}
