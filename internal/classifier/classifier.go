// Package classifier decides whether a discovered candidate is an
// exposable service and which driver applies (C3). Grounded on the
// teacher's layered decision style in internal/adapter/commit.Resolver
// (cheap checks first, falling through to a more expensive external call).
package classifier

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/pathutil"
	"github.com/dbyard/db-yard/internal/sidecar"
	"github.com/dbyard/db-yard/internal/sqlrunner"
)

const (
	surveilrTable = "uniform_resource"
	sqlpageTable  = "sqlpage_files"
)

var sqliteExts = map[string]bool{
	".db":     true,
	".sqlite": true,
}

// Classifier decides a candidate's kind via cheap extension checks first,
// then the two table-existence probes from spec §3.
type Classifier struct {
	runner  *sqlrunner.Runner
	sidecar *sidecar.Loader
}

// New creates a Classifier backed by runner for external probes.
func New(runner *sqlrunner.Runner) *Classifier {
	return &Classifier{runner: runner, sidecar: sidecar.New(runner)}
}

// Classify decides c's kind. Unreadable databases yield KindOther with an
// error note, never aborting the pass (spec §4.2).
func (cl *Classifier) Classify(c domain.Candidate) domain.Classification {
	if !looksLikeSQLite(c.Path) {
		return domain.Classification{Kind: domain.KindOther}
	}

	ctx := context.Background()
	if !probeReadable(ctx, cl.runner, c.Path) {
		return domain.Classification{Kind: domain.KindOther, Note: "unreadable database"}
	}
	if cl.runner.TableExists(ctx, c.Path, surveilrTable) {
		return domain.Classification{Kind: domain.KindSurveilr}
	}
	if cl.runner.TableExists(ctx, c.Path, sqlpageTable) {
		return domain.Classification{Kind: domain.KindSqlpage}
	}
	return domain.Classification{Kind: domain.KindPlainSQLite}
}

func probeReadable(ctx context.Context, r *sqlrunner.Runner, path string) bool {
	res := r.RunQuery(ctx, path, "SELECT 1")
	return res.OK
}

func looksLikeSQLite(path string) bool {
	lower := strings.ToLower(path)
	for ext := range sqliteExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return strings.HasSuffix(lower, ".sqlite.db")
}

// LoadSidecar reads the in-database `.db-yard` table, layered under any
// discovery-time YAML override file for c (spec §3; SPEC_FULL.md §3).
func (cl *Classifier) LoadSidecar(c domain.Candidate) (domain.Sidecar, error) {
	table, err := cl.sidecar.LoadTable(context.Background(), c.Path)
	if err != nil {
		return nil, err
	}
	if c.SidecarRef == "" {
		return table, nil
	}
	override, err := cl.sidecar.LoadOverrideFile(c.SidecarRef)
	if err != nil {
		return table, err
	}
	return sidecar.Merge(table, override), nil
}

// ToExposable derives an ExposableService from a classified candidate, or
// nil if the kind isn't exposable (spec §4.2).
func (cl *Classifier) ToExposable(c domain.Candidate, cls domain.Classification, sc domain.Sidecar, roots []string) *domain.ExposableService {
	if !cls.Exposable() {
		return nil
	}

	root := pathutil.BestMatchingRoot(c.Path, roots)
	rel := pathutil.RelativeToRoot(c.Path, root)
	id := pathutil.StripOutermostExt(pathutil.NormalizeSlashes(rel))
	if id == "" {
		base := filepath.Base(c.Path)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if override := sc["instance.id"]; override.String != nil {
		id = *override.String
	}

	prefix := pathutil.ProxyPrefixFromRel(rel)

	label := id
	if override := sc["instance.label"]; override.String != nil {
		label = *override.String
	}

	return &domain.ExposableService{
		ID:                  id,
		Kind:                cls.Kind,
		Label:               label,
		ProxyEndpointPrefix: prefix,
		Candidate:           c,
		Sidecar:             sc,
	}
}
