package orchestrator

import (
	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/ledger"
	"github.com/dbyard/db-yard/internal/tagindex"
)

// ListSessionStates scans home for spawned-state manifests with liveness
// decoration (`ls`, spec §4.9).
func (o *Orchestrator) ListSessionStates(home string) ([]domain.SpawnedState, []error) {
	return ledger.ScanStates(home)
}

// ListTaggedProcesses walks the process tag index (`ps`, spec §4.9).
func (o *Orchestrator) ListTaggedProcesses() ([]domain.TaggedProcess, error) {
	return tagindex.New().List()
}
