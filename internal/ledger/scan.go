package ledger

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbyard/db-yard/internal/domain"
)

// ScanStates yields every *.context.json manifest under home with its
// parsed payload, liveness, and best-effort cmdline enrichment. Invalid JSON
// or a missing pid yields an error item but never aborts the scan (spec §4.5).
func ScanStates(home string) ([]domain.SpawnedState, []error) {
	var states []domain.SpawnedState
	var errs []error

	walkErr := filepath.WalkDir(home, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".context.json") {
			return nil
		}

		state := domain.SpawnedState{ContextPath: path}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			state.Err = fmt.Errorf("read %s: %w", path, readErr)
			states = append(states, state)
			return nil
		}

		var ctx domain.SpawnedContext
		if jsonErr := json.Unmarshal(data, &ctx); jsonErr != nil {
			state.Err = fmt.Errorf("parse %s: %w", path, jsonErr)
			states = append(states, state)
			return nil
		}
		if ctx.Spawned.PID == 0 {
			state.Err = fmt.Errorf("%s: missing pid", path)
			state.Context = ctx
			states = append(states, state)
			return nil
		}

		state.Context = ctx
		state.Alive = isAlive(ctx.Spawned.PID)
		state.Cmdline = readCmdline(ctx.Spawned.PID)
		states = append(states, state)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return states, errs
}
