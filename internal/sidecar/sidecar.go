// Package sidecar decodes the `.db-yard` per-file configuration: the
// in-database key/value table (spec §3, §4.2) and the optional
// discovery-time YAML override file introduced by SPEC_FULL.md §3.
package sidecar

import (
	"context"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/sqlrunner"
)

const tableName = ".db-yard"

// Loader reads sidecar configuration for a candidate.
type Loader struct {
	runner *sqlrunner.Runner
}

// New creates a sidecar Loader backed by runner.
func New(runner *sqlrunner.Runner) *Loader {
	return &Loader{runner: runner}
}

// LoadTable reads the `.db-yard` key/value table from dbPath. A missing
// table yields an empty map, never an error; a value that fails to parse as
// scalar or JSON is kept as a raw string (spec §3, §4.2).
func (l *Loader) LoadTable(ctx context.Context, dbPath string) (domain.Sidecar, error) {
	if !l.runner.TableExists(ctx, dbPath, tableName) {
		return domain.Sidecar{}, nil
	}

	res := l.runner.RunQuery(ctx, dbPath, `SELECT key, value FROM ".db-yard"`)
	if !res.OK {
		return domain.Sidecar{}, nil
	}

	out := make(domain.Sidecar, len(res.Rows))
	for _, row := range res.Rows {
		key, _ := row["key"].(string)
		if key == "" {
			continue
		}
		raw, _ := row["value"].(string)
		out[key] = decodeVariant(raw)
	}
	return out, nil
}

// LoadOverrideFile reads an optional YAML sidecar override sitting next to
// the database file (e.g. app.db.db-yard.yaml). A missing file is not an
// error: it simply yields an empty map.
func (l *Loader) LoadOverrideFile(path string) (domain.Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Sidecar{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make(domain.Sidecar, len(raw))
	for k, v := range raw {
		out[k] = variantFromAny(v)
	}
	return out, nil
}

// Merge layers override on top of base, with override values winning.
func Merge(base, override domain.Sidecar) domain.Sidecar {
	out := make(domain.Sidecar, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func decodeVariant(raw string) domain.SidecarVariant {
	if raw == "" {
		return domain.SidecarVariant{Null: true}
	}
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return variantFromAny(parsed)
	}
	// Not valid JSON: kept as the raw string (spec §3: "malformed values ⇒
	// raw string").
	s := raw
	return domain.SidecarVariant{String: &s}
}

func variantFromAny(v any) domain.SidecarVariant {
	switch t := v.(type) {
	case nil:
		return domain.SidecarVariant{Null: true}
	case bool:
		return domain.SidecarVariant{Bool: &t}
	case string:
		return domain.SidecarVariant{String: &t}
	case float64:
		return domain.SidecarVariant{Float: &t}
	case int:
		f := float64(t)
		i := int64(t)
		return domain.SidecarVariant{Int: &i, Float: &f}
	default:
		return domain.SidecarVariant{JSON: v}
	}
}
