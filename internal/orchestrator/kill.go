package orchestrator

import (
	"fmt"
	"os"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/ledger"
)

// KillOptions controls `kill`'s scope (spec §4.9, §6 `kill [--clean]`).
type KillOptions struct {
	// Clean removes the session directory itself after stopping its pids.
	Clean bool
	// StrictKillsOnly, when true, leaves a record's context file in place
	// when its kill call failed; when false, the context file is removed
	// whether or not the kill succeeded. Either way a failed kill is
	// counted as Errored, never as Killed.
	StrictKillsOnly bool
}

// KillCounts tallies one Kill call's outcome.
type KillCounts struct {
	Killed      int
	AlreadyDead int
	Errored     int
}

// Kill stops every pid referenced by the ledger under home and removes
// their context files, optionally removing the session directory
// (spec §4.9, §7: "pid no longer exists (treated as success)").
func (o *Orchestrator) Kill(home string, opts KillOptions, killer domain.Spawner) (KillCounts, error) {
	states, _ := ledger.ScanStates(home)

	var counts KillCounts
	for _, st := range states {
		if st.Err != nil {
			continue
		}
		pid := st.Context.Spawned.PID

		if pid != 0 && st.Alive {
			if err := killer.KillPID(pid); err != nil {
				counts.Errored++
				if o.log != nil {
					o.log.Error("kill failed", "pid", pid, "err", err)
				}
				if opts.StrictKillsOnly {
					continue
				}
			} else {
				counts.Killed++
			}
		} else {
			counts.AlreadyDead++
		}

		if err := removeContextFile(st.ContextPath); err != nil && o.log != nil {
			o.log.Error("remove context failed", "path", st.ContextPath, "err", err)
		}
	}

	if opts.Clean {
		if err := os.RemoveAll(home); err != nil {
			return counts, fmt.Errorf("clean session home %s: %w", home, err)
		}
	}

	return counts, nil
}

// removeContextFile is RemoveContext's tolerant-of-missing semantics,
// usable against an arbitrary (possibly foreign) session directory that we
// don't hold a *ledger.Session for.
func removeContextFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
