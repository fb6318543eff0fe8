// Package platform resolves db-yard's two filesystem roots — cargo-home and
// spawn-state-home — from flag, environment, then default, mirroring the
// teacher's flag>env>default resolution chain for socket/cache directories
// (originally ResolveSocketDir/CacheDir, generalized here to db-yard's own
// root-resolution needs instead of VS Code Server's).
package platform

import (
	"os"
	"path/filepath"
)

const defaultLedgerDirName = "db-yard"

// Platform resolves db-yard's filesystem roots for the current user.
type Platform struct {
	homeDir string
}

// New creates a Platform. Falls back to the current directory if the home
// directory can't be resolved — a missing $HOME should never be fatal for a
// CLI that can otherwise run fine against explicit flags.
func New() *Platform {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Platform{homeDir: home}
}

// ResolveCargoHome returns the root to discover databases under: flag,
// then DB_YARD_CARGO_HOME, then the current directory (spec §6 --cargo-home).
func (p *Platform) ResolveCargoHome(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("DB_YARD_CARGO_HOME"); v != "" {
		return v
	}
	return "."
}

// ResolveLedgerRoot returns the ledger root: flag, then
// DB_YARD_SPAWN_STATE_HOME, then a user-cache-relative default (spec §6
// --spawn-state-home).
func (p *Platform) ResolveLedgerRoot(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("DB_YARD_SPAWN_STATE_HOME"); v != "" {
		return v
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, defaultLedgerDirName)
	}
	return filepath.Join(p.homeDir, "."+defaultLedgerDirName)
}
