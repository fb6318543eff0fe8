// Package sqlrunner treats the sqlite3 CLI as an external collaborator,
// per spec §9's design note: "the SQL runner [has] interface
// {runQuery(dbPath, sql) → {ok, rows|text, stderr, exitCode}}". Shared by the
// classifier's table-existence probes, the sidecar loader, and the admin
// ad-hoc SQL endpoint. Grounded on the teacher's extractor.TarExtractor,
// which shells out to an external binary (tar) and treats its failure modes
// as ordinary errors rather than something to reimplement.
package sqlrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the outcome of one query against one database file.
type Result struct {
	OK       bool
	Rows     []map[string]any
	Text     string
	Stderr   string
	ExitCode int
}

// Runner executes queries against SQLite files via the sqlite3 CLI.
type Runner struct {
	binary  string
	timeout time.Duration
}

// New creates a Runner. binary defaults to "sqlite3" if empty.
func New(binary string) *Runner {
	if binary == "" {
		binary = "sqlite3"
	}
	return &Runner{binary: binary, timeout: 10 * time.Second}
}

// RunQuery executes sql against dbPath with sqlite3 -json and parses rows.
// A non-zero exit or unparseable output is reported in the Result, never as
// a Go error — callers (classifier, sidecar loader, admin endpoint) decide
// how to degrade (spec §4.2, §7: "never aborting the pass").
func (r *Runner) RunQuery(ctx context.Context, dbPath, sql string) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, "-json", dbPath, sql)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{OK: false, Stderr: err.Error(), ExitCode: -1}
		}
	}

	res := Result{Stderr: stderr.String(), ExitCode: exitCode}
	if exitCode != 0 {
		res.OK = false
		res.Text = stdout.String()
		return res
	}

	trimmed := bytes.TrimSpace(stdout.Bytes())
	if len(trimmed) == 0 {
		res.OK = true
		return res
	}
	var rows []map[string]any
	if jsonErr := json.Unmarshal(trimmed, &rows); jsonErr != nil {
		res.OK = true
		res.Text = stdout.String()
		return res
	}
	res.OK = true
	res.Rows = rows
	return res
}

// TableExists reports whether a table of that name exists in dbPath, using a
// sqlite_master lookup. Unreadable databases report false with no error —
// the classifier treats that as "other" (spec §4.2).
func (r *Runner) TableExists(ctx context.Context, dbPath, table string) bool {
	sql := fmt.Sprintf("SELECT name FROM sqlite_master WHERE type='table' AND name=%s", quoteLiteral(table))
	res := r.RunQuery(ctx, dbPath, sql)
	return res.OK && len(res.Rows) > 0
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
