// Package scheduler drives reconciliation passes from three trigger
// sources: an initial run, filesystem events (debounced), and a periodic
// sweep (C9). Grounded on the fsnotify debounce/coalesce pattern in
// zkoranges-go-claw's internal/config.Watcher, generalized from "watch a
// fixed file list" to "watch whole root trees."
//
// Both call sites below — MaterializeOnce and Watch — invoke the same
// reconciler.Pass with no branch on which mode is running; the scheduler's
// only job is deciding *when* to call it, not adapting what it does.
package scheduler

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/reconciler"
)

// Config tunes watch-mode timing (spec §4.8 defaults).
type Config struct {
	Debounce          time.Duration // default 400ms, within spec's 250-750ms window
	ReconcileInterval time.Duration // default 3s
}

func (c Config) debounce() time.Duration {
	if c.Debounce > 0 {
		return c.Debounce
	}
	return 400 * time.Millisecond
}

func (c Config) reconcileInterval() time.Duration {
	if c.ReconcileInterval > 0 {
		return c.ReconcileInterval
	}
	return 3 * time.Second
}

// Scheduler owns the reconciler and decides when to run it.
type Scheduler struct {
	rec   *reconciler.Reconciler
	roots []string
	cfg   Config
	log   domain.Logger
	nowMs func() int64
}

// New creates a Scheduler over rec, watching roots when Watch is run.
// nowMs supplies millisecond timestamps for the reconciler's backoff clock;
// pass nil to use the wall clock.
func New(rec *reconciler.Reconciler, roots []string, cfg Config, log domain.Logger, nowMs func() int64) *Scheduler {
	if nowMs == nil {
		nowMs = wallClockMs
	}
	return &Scheduler{rec: rec, roots: roots, cfg: cfg, log: log, nowMs: nowMs}
}

func wallClockMs() int64 { return time.Now().UnixMilli() }

// MaterializeOnce runs discovery, classification, and spawning exactly once
// and returns (spec §4.8: "one-shot"). The supervisor does not hold the
// process tree afterward; children are already detached.
func (s *Scheduler) MaterializeOnce(ctx context.Context) (reconciler.Summary, []domain.Discrepancy) {
	return s.rec.Pass(ctx, s.nowMs())
}

// Watch runs continuously until ctx is cancelled: an initial pass, then
// debounced filesystem-event passes and a periodic full sweep, with at most
// one pass active at a time (spec §4.8, §5).
func (s *Scheduler) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, root := range s.roots {
		if addErr := addRecursive(fsw, root); addErr != nil && s.log != nil {
			s.log.Error("watch root add failed", "root", root, "err", addErr)
		}
	}

	s.runPass(ctx) // trigger source 1: initial reconciliation

	debounceTimer := time.NewTimer(s.cfg.debounce())
	debounceTimer.Stop()
	pendingCount := 0

	ticker := time.NewTicker(s.cfg.reconcileInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			pendingCount++ // set semantics collapse duplicates naturally via the debounce window
			debounceTimer.Reset(s.cfg.debounce())
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := fileIsDir(ev.Name); statErr == nil && info {
					_ = fsw.Add(ev.Name)
				}
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if s.log != nil {
				s.log.Error("watcher error", "err", err)
			}

		case <-debounceTimer.C: // trigger source 2: debounced filesystem events
			if pendingCount == 0 {
				continue
			}
			pendingCount = 0
			s.runPass(ctx)

		case <-ticker.C: // trigger source 3: periodic safety sweep
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	summary, discrepancies := s.rec.Pass(ctx, s.nowMs())
	if s.log == nil {
		return
	}
	s.log.Info("reconciliation pass complete",
		"spawned", summary.Spawned, "refreshed", summary.Refreshed,
		"stopped", summary.Stopped, "skipped", summary.Skipped,
		"orphaned", summary.Orphaned, "errors", len(summary.Errors),
		"discrepancies", len(discrepancies))
	for _, err := range summary.Errors {
		s.log.Error("reconciliation error", "err", err)
	}
}

// addRecursive adds root and every directory beneath it to fsw. fsnotify
// has no native recursive mode; new subdirectories created after this walk
// are picked up opportunistically in Watch's Create handler and, in the
// worst case, by the periodic sweep.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func fileIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
