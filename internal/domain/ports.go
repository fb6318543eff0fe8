package domain

import "context"

// Discoverer walks watch roots and yields candidate files (C2).
type Discoverer interface {
	Discover(ctx context.Context) ([]Candidate, []Unhandled, []error)
}

// Classifier decides a candidate's kind and loads its sidecar (C3).
type Classifier interface {
	Classify(c Candidate) Classification
	LoadSidecar(c Candidate) (Sidecar, error)
	ToExposable(c Candidate, cls Classification, sc Sidecar, roots []string) *ExposableService
}

// DriverRegistry turns a resolved service into a SpawnPlan (C4).
type DriverRegistry interface {
	Plan(svc ExposableService, port int, listenHost string) (SpawnPlan, error)
}

// Spawner launches and terminates detached children (C5).
type Spawner interface {
	Spawn(plan SpawnPlan) (pid int, err error)
	KillPID(pid int) error
}

// Ledger is the durable spawned-state store for one session (C6). Scanning a
// session's manifests (spec §4.5 "scan") is a free function over a
// directory path, not a method here — see ledger.ScanStates — since it has
// no need of a particular Session's in-memory state.
type Ledger interface {
	SessionHome() string
	OwnerToken() string
	SessionID() string
	ContextPath(root string, svc ExposableService) string
	LogPaths(contextPath string) (stdout, stderr string)
	WriteContext(contextPath string, ctx SpawnedContext) error
	RemoveContext(contextPath string) error
	RewritePIDFile(pids []int) error
}

// SpawnedState is one item yielded by a ledger scan: the parsed context plus
// liveness and best-effort cmdline enrichment.
type SpawnedState struct {
	Context     SpawnedContext
	Alive       bool
	Cmdline     string
	ContextPath string
	Err         error
}

// TagIndex enumerates OS processes carrying db-yard's ownership tags (C7).
type TagIndex interface {
	List() ([]TaggedProcess, error)
}

// TokenGenerator creates opaque identifiers (owner tokens, session ids).
type TokenGenerator interface {
	Generate() (string, error)
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}
