// Package tagindex enumerates OS processes carrying db-yard's ownership
// environment tags (C7). Available on systems that expose per-process
// environment; see proc_linux.go / proc_other.go for the platform split.
// Grounded on the teacher's internal/app control-socket scan style of
// best-effort enrichment that never aborts on a single bad record.
package tagindex

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/dbyard/db-yard/internal/domain"
)

const (
	envContextPath = "DB_YARD_CONTEXT_PATH"
	envSessionID   = "DB_YARD_SESSION_ID"
	envServiceID   = "DB_YARD_SERVICE_ID"
)

// Index lists processes tagged with db-yard's ownership environment
// variables (spec §4.6).
type Index struct{}

// New creates a process tag Index.
func New() *Index {
	return &Index{}
}

// List enumerates every process carrying DB_YARD_CONTEXT_PATH, best-effort
// enriching from its referenced context file. Processes whose environment
// cannot be read are silently skipped (spec §4.6: "available on systems that
// expose per-process environment" — absence is not an error).
func (ix *Index) List() ([]domain.TaggedProcess, error) {
	pids, err := listPIDs()
	if err != nil {
		return nil, err
	}

	var out []domain.TaggedProcess
	for _, pid := range pids {
		env, ok := readEnviron(pid)
		if !ok {
			continue
		}
		contextPath, ok := env[envContextPath]
		if !ok {
			continue
		}
		tp := domain.TaggedProcess{
			PID:         pid,
			SessionID:   env[envSessionID],
			ServiceID:   env[envServiceID],
			ContextPath: contextPath,
		}
		enrich(&tp)
		out = append(out, tp)
	}
	return out, nil
}

// enrich reads the process's referenced context file and flags a disagreeing
// PID as an issue (spec §4.6: a stale or rewritten file).
func enrich(tp *domain.TaggedProcess) {
	data, err := os.ReadFile(tp.ContextPath)
	if err != nil {
		tp.Issue = "context file unreadable: " + err.Error()
		return
	}
	var ctx domain.SpawnedContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		tp.Issue = "context file unparseable: " + err.Error()
		return
	}
	if ctx.Spawned.PID != 0 && ctx.Spawned.PID != tp.PID {
		tp.Issue = "context pid " + strconv.Itoa(ctx.Spawned.PID) + " disagrees with observed pid " + strconv.Itoa(tp.PID)
	}
}

// parseEnviron splits a NUL-separated /proc/<pid>/environ blob into a map of
// the three well-known db-yard tag variables; unrelated variables are
// ignored.
func parseEnviron(raw []byte) map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(string(raw), "\x00") {
		if entry == "" {
			continue
		}
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		switch k {
		case envContextPath, envSessionID, envServiceID:
			out[k] = v
		}
	}
	return out
}
