package orchestrator

import (
	"fmt"
	"sort"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/ledger"
	"github.com/dbyard/db-yard/internal/tagindex"
)

// DiscrepancySummary tallies one Reconcile call's findings by kind.
type DiscrepancySummary struct {
	ProcessWithoutLedger     int
	LedgerWithoutProcess     int
	ProcessAndLedgerMismatch int
}

// Reconcile diffs the process tag index against the ledger under home,
// yielding discrepancy items plus a summary (`reconcile`, spec §4.9). This
// is independent of a reconciliation pass (C8): it observes, it does not act.
func (o *Orchestrator) Reconcile(home string) ([]domain.Discrepancy, DiscrepancySummary) {
	states, _ := ledger.ScanStates(home)
	tagged, _ := tagindex.New().List()

	byService := make(map[string]domain.SpawnedState, len(states))
	for _, st := range states {
		if st.Err == nil {
			byService[st.Context.Service.ID] = st
		}
	}
	taggedByService := make(map[string]domain.TaggedProcess, len(tagged))
	for _, tp := range tagged {
		taggedByService[tp.ServiceID] = tp
	}

	var discs []domain.Discrepancy
	var summary DiscrepancySummary

	taggedIDs := make([]string, 0, len(taggedByService))
	for id := range taggedByService {
		taggedIDs = append(taggedIDs, id)
	}
	sort.Strings(taggedIDs)

	for _, id := range taggedIDs {
		tp := taggedByService[id]
		st, ok := byService[id]
		if !ok {
			discs = append(discs, domain.Discrepancy{
				Kind: domain.ProcessWithoutLedger, ServiceID: id, PID: tp.PID,
				Detail: "process is tagged but has no ledger record",
			})
			summary.ProcessWithoutLedger++
			continue
		}
		if st.Context.Spawned.PID != tp.PID {
			discs = append(discs, domain.Discrepancy{
				Kind: domain.ProcessAndLedgerMismatch, ServiceID: id, PID: tp.PID,
				Detail: fmt.Sprintf("ledger pid %d disagrees with observed pid %d", st.Context.Spawned.PID, tp.PID),
			})
			summary.ProcessAndLedgerMismatch++
		}
	}

	ledgerIDs := make([]string, 0, len(byService))
	for id := range byService {
		ledgerIDs = append(ledgerIDs, id)
	}
	sort.Strings(ledgerIDs)

	for _, id := range ledgerIDs {
		st := byService[id]
		if _, tagged := taggedByService[id]; tagged {
			continue
		}
		if st.Alive {
			continue // alive but untagged: the tag index couldn't see it, not a ledger/process conflict
		}
		discs = append(discs, domain.Discrepancy{
			Kind: domain.LedgerWithoutProcess, ServiceID: id, PID: st.Context.Spawned.PID,
			Detail: "ledger record is dead and has no tagged process",
		})
		summary.LedgerWithoutProcess++
	}

	return discs, summary
}
