// Package driver turns a resolved ExposableService into a SpawnPlan (C4).
// Drivers never allocate ports, never write files, and never execute
// processes; they only describe (spec §4.3). Grounded on the teacher's
// extractor/commit pattern of pure, side-effect-free decision functions
// consumed by an orchestrating caller.
package driver

import (
	"fmt"
	"strings"

	"github.com/dbyard/db-yard/internal/domain"
)

const (
	kindSqlpageLike  = "sqlpage-like"
	kindSurveilrLike = "surveilr-like"
)

// driverFor maps a classified Kind to the built-in driver that handles it.
var driverFor = map[domain.Kind]string{
	domain.KindSqlpage:  kindSqlpageLike,
	domain.KindSurveilr: kindSurveilrLike,
}

// defaultBin is each built-in driver's default binary name.
var defaultBin = map[string]string{
	kindSqlpageLike:  "sqlpage",
	kindSurveilrLike: "web-ui",
}

// Registry resolves a service's driver and produces its SpawnPlan.
type Registry struct{}

// New creates a driver Registry.
func New() *Registry {
	return &Registry{}
}

// Plan produces svc's SpawnPlan for the given allocated port and listen host.
// Sidecar keys "<kind>.bin", "<kind>.args", "<kind>.env" override the driver's
// defaults; a sidecar "driverKind" value overrides which built-in driver
// applies (spec §4.3; SPEC_FULL.md §3).
func (r *Registry) Plan(svc domain.ExposableService, port int, listenHost string) (domain.SpawnPlan, error) {
	kind := driverFor[svc.Kind]
	if override := svc.Sidecar["driverKind"]; override.String != nil {
		kind = *override.String
	}

	switch kind {
	case kindSqlpageLike:
		return r.planSqlpageLike(svc, port, listenHost), nil
	case kindSurveilrLike:
		return r.planSurveilrLike(svc, port, listenHost), nil
	default:
		return domain.SpawnPlan{}, fmt.Errorf("driver: no driver for kind %q (service %q)", svc.Kind, svc.ID)
	}
}

func (r *Registry) planSqlpageLike(svc domain.ExposableService, port int, listenHost string) domain.SpawnPlan {
	env := []string{
		fmt.Sprintf("DATABASE_URL=sqlite://%s", svc.Candidate.Path),
		fmt.Sprintf("LISTEN_ON=%s:%d", listenHost, port),
	}
	env = append(env, sidecarArgs(svc.Sidecar, kindSqlpageLike+".env")...)

	return domain.SpawnPlan{
		Command: binFor(svc.Sidecar, kindSqlpageLike),
		Argv:    sidecarArgs(svc.Sidecar, kindSqlpageLike+".args"),
		Env:     env,
	}
}

func (r *Registry) planSurveilrLike(svc domain.ExposableService, port int, listenHost string) domain.SpawnPlan {
	argv := []string{"-d", svc.Candidate.Path, "--port", fmt.Sprintf("%d", port)}
	argv = append(argv, sidecarArgs(svc.Sidecar, kindSurveilrLike+".args")...)

	return domain.SpawnPlan{
		Command: binFor(svc.Sidecar, kindSurveilrLike),
		Argv:    argv,
		Env:     sidecarArgs(svc.Sidecar, kindSurveilrLike+".env"),
	}
}

// binFor resolves the binary name for driverKind: sidecar override first,
// falling back to the built-in default.
func binFor(sc domain.Sidecar, driverKind string) string {
	if v := sc[driverKind+".bin"]; v.String != nil {
		return *v.String
	}
	return defaultBin[driverKind]
}

// sidecarArgs splits a sidecar override string on whitespace into argv/env
// entries, or returns nil if the key is absent.
func sidecarArgs(sc domain.Sidecar, key string) []string {
	v := sc[key]
	if v.String == nil || *v.String == "" {
		return nil
	}
	return strings.Fields(*v.String)
}
