// Package discovery walks watch roots and yields candidate database files
// (C2). Grounded on the teacher's general "isolate one failure, keep going"
// idiom (internal/adapter/extractor, internal/adapter/downloader each treat
// one failed operation as non-fatal) generalized here to directory walking.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbyard/db-yard/internal/domain"
)

// sidecarOverrideSuffix is the sibling file discovery checks for next to
// every matched candidate (spec §4.2's ".db-yard.yaml" override enrichment).
const sidecarOverrideSuffix = ".db-yard.yaml"

// DefaultGlobs are the extensions discovery matches when a root specifies none.
var DefaultGlobs = []string{"*.db", "*.sqlite", "*.sqlite.db"}

// Root is one watched path plus its glob overrides (spec §4.1, §6 --watch).
type Root struct {
	Path  string
	Globs []string
}

// Walker discovers candidate files under a set of roots.
type Walker struct {
	roots []Root
}

// New creates a Walker over roots. Roots with no Globs use DefaultGlobs.
func New(roots []Root) *Walker {
	return &Walker{roots: roots}
}

// Discover walks every root, returning regular files matching that root's
// globs as Candidates. One unreadable directory does not halt the walk: its
// error is collected and the walk continues (spec §4.1). ctx is checked
// between roots so a cancelled watch loop doesn't block on a slow walk.
func (w *Walker) Discover(ctx context.Context) ([]domain.Candidate, []domain.Unhandled, []error) {
	var candidates []domain.Candidate
	var unhandled []domain.Unhandled
	var errs []error

	for _, root := range w.roots {
		if ctx.Err() != nil {
			break
		}

		globs := root.Globs
		if len(globs) == 0 {
			globs = DefaultGlobs
		}

		absRoot, err := filepath.Abs(root.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve root %s: %w", root.Path, err))
			continue
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				errs = append(errs, fmt.Errorf("walk %s: %w", path, err))
				return nil // isolate: one bad entry doesn't stop the rest
			}
			if d.IsDir() {
				return nil
			}
			info, statErr := d.Info()
			if statErr != nil {
				errs = append(errs, fmt.Errorf("stat %s: %w", path, statErr))
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			if !matchesAny(globs, path) {
				unhandled = append(unhandled, domain.Unhandled{Path: path, Root: absRoot})
				return nil
			}

			candidate := domain.Candidate{
				Path:    path,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				Root:    absRoot,
			}
			if sidecarPath := path + sidecarOverrideSuffix; fileExists(sidecarPath) {
				candidate.SidecarRef = sidecarPath
			}
			candidates = append(candidates, candidate)
			return nil
		})
		if walkErr != nil {
			errs = append(errs, fmt.Errorf("walk root %s: %w", absRoot, walkErr))
		}
	}

	return candidates, unhandled, errs
}

// fileExists reports whether path exists and is not a directory, without
// distinguishing "not found" from other stat errors — any error means no
// override is applied, which is the safe default (spec §4.2).
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// matchesAny reports whether path's basename matches any glob. Globs may be
// a plain pattern ("*.db") or prefixed with "**/" to make the recursive
// intent explicit; "**/" is stripped since WalkDir already recurses.
func matchesAny(globs []string, path string) bool {
	base := filepath.Base(path)
	for _, g := range globs {
		pattern := strings.TrimPrefix(g, "**/")
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
		// Multi-extension patterns like "*.sqlite.db" need the base matched
		// against the whole compound suffix, not just filepath.Match's
		// single-segment semantics.
		if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(base, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}
	return false
}
