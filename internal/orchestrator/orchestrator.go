// Package orchestrator composes discovery, classification, driving,
// spawning, ledgering, tag-indexing, and scheduling into the five
// operations a CLI command actually calls (C10). Grounded on the teacher's
// internal/app.Service: a thin composition root that wires domain ports
// together and holds no business logic of its own beyond orchestration.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dbyard/db-yard/internal/classifier"
	"github.com/dbyard/db-yard/internal/discovery"
	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/driver"
	"github.com/dbyard/db-yard/internal/ledger"
	"github.com/dbyard/db-yard/internal/reconciler"
	"github.com/dbyard/db-yard/internal/scheduler"
	"github.com/dbyard/db-yard/internal/spawner"
	"github.com/dbyard/db-yard/internal/sqlrunner"
)

// Config holds the resolved settings for one startSession call (spec §6
// CLI surface's global options).
type Config struct {
	Roots             []string
	Globs             []string
	LedgerRoot        string
	ListenHost        string
	PortStart         int
	ReconcileInterval time.Duration
	Debounce          time.Duration
	RespawnBackoffMs  int64
	AdoptForeignState bool
	SqliteBinary      string
}

// Orchestrator is the composition root shared across CLI invocations.
type Orchestrator struct {
	log    domain.Logger
	tokens domain.TokenGenerator
}

// New creates an Orchestrator. tokens generates owner tokens and session ids.
func New(log domain.Logger, tokens domain.TokenGenerator) *Orchestrator {
	return &Orchestrator{log: log, tokens: tokens}
}

// Session is a running (or one-shot) reconciliation session: a ledger
// directory plus the wired reconciler/scheduler that act on it.
type Session struct {
	Ledger    *ledger.Session
	Scheduler *scheduler.Scheduler
}

// StartSession creates a new session home, registers an owner token, adopts
// any still-valid records left behind by the previous session, and returns
// a Session ready for a one-shot materialize or a watch loop (spec §4.9).
func (o *Orchestrator) StartSession(cfg Config) (*Session, error) {
	priorHome, _ := ledger.CurrentSessionHome(cfg.LedgerRoot) // no prior session is not an error

	led, err := ledger.NewSession(cfg.LedgerRoot, o.tokens)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	if priorHome != "" && priorHome != led.SessionHome() {
		o.adopt(priorHome, led)
	}

	runner := sqlrunner.New(cfg.SqliteBinary)
	roots := make([]discovery.Root, len(cfg.Roots))
	for i, rootPath := range cfg.Roots {
		roots[i] = discovery.Root{Path: rootPath, Globs: cfg.Globs}
	}

	deps := reconciler.Deps{
		Discoverer: discovery.New(roots),
		Classifier: classifier.New(runner),
		Drivers:    driver.New(),
		Spawner:    spawner.New(o.log),
		Ledger:     led,
		ScanStates: ledger.ScanStates,
		Roots:      cfg.Roots,
	}
	recCfg := reconciler.Config{
		ListenHost:        cfg.ListenHost,
		PortStart:         cfg.PortStart,
		RespawnBackoffMs:  cfg.RespawnBackoffMs,
		AdoptForeignState: cfg.AdoptForeignState,
		SupervisorPID:     os.Getpid(),
		Host:              led.Host(),
	}
	rec := reconciler.New(deps, recCfg, o.log)

	sched := scheduler.New(rec, cfg.Roots, scheduler.Config{
		Debounce:          cfg.Debounce,
		ReconcileInterval: cfg.ReconcileInterval,
	}, o.log, nil)

	return &Session{Ledger: led, Scheduler: sched}, nil
}

// adopt copies still-alive, still-sourced records from a prior session into
// the new one, re-stamping ownership, so a restart doesn't needlessly kill
// and respawn services that never stopped (spec §4.9: "adopt any owned
// records whose source files still exist").
func (o *Orchestrator) adopt(priorHome string, led *ledger.Session) {
	states, _ := ledger.ScanStates(priorHome)
	for _, st := range states {
		if st.Err != nil || !st.Alive {
			continue
		}
		if _, err := os.Stat(st.Context.Supplier.Location); err != nil {
			continue
		}

		rel, err := filepath.Rel(priorHome, st.ContextPath)
		if err != nil {
			continue
		}
		newPath := filepath.Join(led.SessionHome(), rel)

		ctx := st.Context
		ctx.Owner.OwnerToken = led.OwnerToken()
		ctx.Owner.SupervisorPID = os.Getpid()
		ctx.Owner.Host = led.Host()
		ctx.Paths.Context = newPath

		if err := led.WriteContext(newPath, ctx); err != nil {
			if o.log != nil {
				o.log.Error("adoption failed", "id", ctx.Service.ID, "err", err)
			}
			continue
		}
		if o.log != nil {
			o.log.Info("adopted prior session record", "id", ctx.Service.ID, "pid", ctx.Spawned.PID)
		}
	}
}

// RunOnce runs exactly one reconciliation pass (the `start` CLI command).
func (s *Session) RunOnce(ctx context.Context) (reconciler.Summary, []domain.Discrepancy) {
	return s.Scheduler.MaterializeOnce(ctx)
}

// Watch runs the continuous reconciliation loop (the `watch` CLI command)
// until ctx is cancelled.
func (s *Session) Watch(ctx context.Context) error {
	return s.Scheduler.Watch(ctx)
}
