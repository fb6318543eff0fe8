// Package reconciler implements the core diff-and-act pass (C8): desired
// services from discovery/classification against observed ledger and
// process state, producing spawn/refresh/stop/GC actions plus a summary.
// Grounded on the teacher's internal/app.Service orchestration style —
// dependency-injected collaborators, explicit mutable state, never
// panicking on a per-item failure.
package reconciler

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"sync"

	"github.com/dbyard/db-yard/internal/domain"
)

// ScanFunc scans a session home for spawned-state manifests. Injected so
// reconciler tests don't need a real filesystem (spec §4.7's "pass receives
// all dependencies explicitly as parameters").
type ScanFunc func(home string) ([]domain.SpawnedState, []error)

// Deps bundles every collaborator a reconciliation pass needs. None of them
// reference each other or the reconciler (spec §9: no back-references).
type Deps struct {
	Discoverer domain.Discoverer
	Classifier domain.Classifier
	Drivers    domain.DriverRegistry
	Spawner    domain.Spawner
	Ledger     domain.Ledger
	ScanStates ScanFunc
	Roots      []string
}

// Config is per-session, rarely-changing reconciliation configuration.
type Config struct {
	ListenHost        string
	PortStart         int
	RespawnBackoffMs  int64
	AdoptForeignState bool
	SupervisorPID     int
	Host              string
}

// Summary tallies one pass's actions (spec §4.8: "one-shot... summary counts").
type Summary struct {
	Spawned   int
	Refreshed int
	Stopped   int
	Skipped   int
	Orphaned  int
	Errors    []error
}

// Reconciler runs reconciliation passes against one session. Safe for the
// scheduler to call serially; backoff state is mutex-guarded so ps/ls-style
// read paths on the same process don't race with an in-flight pass.
type Reconciler struct {
	deps Deps
	cfg  Config
	log  domain.Logger

	mu      sync.Mutex
	backoff map[string]*backoffEntry
}

// New creates a Reconciler over deps and cfg.
func New(deps Deps, cfg Config, log domain.Logger) *Reconciler {
	return &Reconciler{deps: deps, cfg: cfg, log: log, backoff: map[string]*backoffEntry{}}
}

// Pass runs one full reconciliation: discovery, classification, spawn/
// refresh/stop/GC, and a pid-file rewrite (spec §4.7 algorithm, steps 1-5).
// nowMs is injected so tests control backoff timing without sleeping.
func (r *Reconciler) Pass(ctx context.Context, nowMs int64) (Summary, []domain.Discrepancy) {
	var summary Summary
	var discrepancies []domain.Discrepancy

	candidates, _, discErrs := r.deps.Discoverer.Discover(ctx)
	for _, err := range discErrs {
		summary.Errors = append(summary.Errors, err)
	}

	desired, desiredIDs := r.buildDesired(candidates, &summary)

	states, scanErrs := r.deps.ScanStates(r.deps.Ledger.SessionHome())
	for _, err := range scanErrs {
		summary.Errors = append(summary.Errors, err)
	}
	observed, orderedObserved := indexObserved(states, &discrepancies)

	usedPorts := map[int]bool{}
	for _, st := range observed {
		if st.Alive {
			usedPorts[st.Context.Listen.Port] = true
		}
	}

	var livePids []int
	for _, id := range desiredIDs {
		svc := desired[id]
		st, isObserved := observed[id]

		if isObserved && st.Alive {
			if sourceChanged(st, svc) {
				r.refresh(svc, st, nowMs, &summary)
			} else {
				r.touchLastSeen(st, nowMs, &summary)
			}
			livePids = append(livePids, st.Context.Spawned.PID)
			continue
		}

		if !r.backoffAllows(svc.Candidate.Path, nowMs) {
			summary.Skipped++
			continue
		}

		pid, ok := r.spawn(svc, usedPorts, nowMs, &summary)
		if ok {
			livePids = append(livePids, pid)
		}
	}

	for _, id := range orderedObserved {
		if _, wanted := desired[id]; wanted {
			continue
		}
		st := observed[id]
		r.retireUnwanted(st, &summary)
	}

	if err := r.deps.Ledger.RewritePIDFile(livePids); err != nil {
		summary.Errors = append(summary.Errors, fmt.Errorf("rewrite pid file: %w", err))
	}

	return summary, discrepancies
}

// buildDesired runs classification and sidecar/exposable derivation over
// discovered candidates, collecting per-candidate errors without aborting
// the pass (spec §7).
func (r *Reconciler) buildDesired(candidates []domain.Candidate, summary *Summary) (map[string]domain.ExposableService, []string) {
	desired := make(map[string]domain.ExposableService, len(candidates))
	ids := make([]string, 0, len(candidates))

	for _, c := range candidates {
		cls := r.deps.Classifier.Classify(c)
		if !cls.Exposable() {
			continue
		}
		sc, err := r.deps.Classifier.LoadSidecar(c)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("load sidecar for %s: %w", c.Path, err))
			continue
		}
		svc := r.deps.Classifier.ToExposable(c, cls, sc, r.deps.Roots)
		if svc == nil {
			continue
		}
		desired[svc.ID] = *svc
		ids = append(ids, svc.ID)
	}

	sort.Strings(ids)
	return desired, ids
}

// indexObserved keys scan results by service id, sorted for deterministic
// iteration (spec §5). Scan errors become ledger_without_process items and
// are excluded from the observed set (spec §7: "surfaced as a discrepancy,
// not fatal").
func indexObserved(states []domain.SpawnedState, discrepancies *[]domain.Discrepancy) (map[string]domain.SpawnedState, []string) {
	observed := make(map[string]domain.SpawnedState, len(states))
	for _, st := range states {
		if st.Err != nil {
			*discrepancies = append(*discrepancies, domain.Discrepancy{
				Kind:      domain.LedgerWithoutProcess,
				ServiceID: st.Context.Service.ID,
				Detail:    st.Err.Error(),
			})
			continue
		}
		// Two records with the same id: prefer the one whose source file
		// still exists.
		if prev, dup := observed[st.Context.Service.ID]; dup {
			if _, err := os.Stat(prev.Context.Supplier.Location); err == nil {
				if _, err := os.Stat(st.Context.Supplier.Location); err != nil {
					continue
				}
			}
		}
		observed[st.Context.Service.ID] = st
	}
	ids := make([]string, 0, len(observed))
	for id := range observed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return observed, ids
}

func sourceChanged(st domain.SpawnedState, svc domain.ExposableService) bool {
	return st.Context.Supplier.Size != svc.Candidate.Size || !st.Context.Supplier.ModTime.Equal(svc.Candidate.ModTime)
}

func (r *Reconciler) touchLastSeen(st domain.SpawnedState, nowMs int64, summary *Summary) {
	ctx := st.Context
	ctx.LastSeenAtMs = nowMs
	if err := r.deps.Ledger.WriteContext(st.ContextPath, ctx); err != nil {
		summary.Errors = append(summary.Errors, fmt.Errorf("touch %s: %w", st.ContextPath, err))
	}
}

func (r *Reconciler) refresh(svc domain.ExposableService, st domain.SpawnedState, nowMs int64, summary *Summary) {
	ctx := st.Context
	ctx.Supplier.Size = svc.Candidate.Size
	ctx.Supplier.ModTime = svc.Candidate.ModTime
	ctx.Service.Label = svc.Label
	ctx.DBYardConfig = svc.Sidecar
	ctx.LastSeenAtMs = nowMs
	if err := r.deps.Ledger.WriteContext(st.ContextPath, ctx); err != nil {
		summary.Errors = append(summary.Errors, fmt.Errorf("refresh %s: %w", st.ContextPath, err))
		return
	}
	summary.Refreshed++
	if r.log != nil {
		r.log.Info("refreshed service", "id", svc.ID, "path", svc.Candidate.Path)
	}
}

// retireUnwanted handles an observed record with no matching desired
// service: stop it if owned (or adoption is enabled), garbage-collect an
// already-dead orphan, or leave a foreign live record untouched
// (spec §4.7 steps 3-4, §8 S7).
func (r *Reconciler) retireUnwanted(st domain.SpawnedState, summary *Summary) {
	owned := st.Context.Owner.OwnerToken == r.deps.Ledger.OwnerToken()

	if st.Alive {
		if !owned && !r.cfg.AdoptForeignState {
			return
		}
		if err := r.deps.Spawner.KillPID(st.Context.Spawned.PID); err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("kill %d: %w", st.Context.Spawned.PID, err))
			return
		}
		if err := r.deps.Ledger.RemoveContext(st.ContextPath); err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("remove context %s: %w", st.ContextPath, err))
			return
		}
		summary.Stopped++
		return
	}

	if !owned && !r.cfg.AdoptForeignState {
		return
	}
	if err := r.deps.Ledger.RemoveContext(st.ContextPath); err != nil {
		summary.Errors = append(summary.Errors, fmt.Errorf("gc context %s: %w", st.ContextPath, err))
		return
	}
	summary.Orphaned++
}

// allocatePort picks the next unused port starting at cfg.PortStart,
// confirming with an ephemeral-style bind-and-close probe before accepting
// it, per spec §4.7: "the operating system's ephemeral bind is the
// authoritative check."
func (r *Reconciler) allocatePort(used map[int]bool) (int, error) {
	for port := r.cfg.PortStart; port < r.cfg.PortStart+10000; port++ {
		if used[port] {
			continue
		}
		if probeBindable(r.cfg.ListenHost, port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port found from %d", r.cfg.PortStart)
}

func probeBindable(host string, port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
