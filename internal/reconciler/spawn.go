package reconciler

import (
	"fmt"
	"time"

	"github.com/dbyard/db-yard/internal/domain"
)

// spawn allocates a port, plans, and launches svc's driver, writing its
// context manifest on success. Returns the new pid and true on success.
func (r *Reconciler) spawn(svc domain.ExposableService, usedPorts map[int]bool, nowMs int64, summary *Summary) (int, bool) {
	port, err := r.allocatePort(usedPorts)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Errorf("allocate port for %s: %w", svc.ID, err))
		r.recordFailure(svc.Candidate.Path, nowMs)
		summary.Skipped++
		return 0, false
	}

	contextPath := r.deps.Ledger.ContextPath(svc.Candidate.Root, svc)
	stdoutPath, stderrPath := r.deps.Ledger.LogPaths(contextPath)

	plan, err := r.deps.Drivers.Plan(svc, port, r.cfg.ListenHost)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Errorf("plan %s: %w", svc.ID, err))
		r.recordFailure(svc.Candidate.Path, nowMs)
		summary.Skipped++
		return 0, false
	}
	plan.StdoutPath = stdoutPath
	plan.StderrPath = stderrPath
	plan.Tag = domain.ProcessTag{
		SessionID:   r.deps.Ledger.SessionID(),
		ServiceID:   svc.ID,
		ContextPath: contextPath,
	}

	pid, err := r.deps.Spawner.Spawn(plan)
	if err != nil {
		if r.log != nil {
			r.log.Error("spawn failed", "id", svc.ID, "path", svc.Candidate.Path, "err", err)
		}
		summary.Errors = append(summary.Errors, fmt.Errorf("spawn %s: %w", svc.ID, err))
		r.recordFailure(svc.Candidate.Path, nowMs)
		summary.Skipped++
		return 0, false
	}

	usedPorts[port] = true

	ctx := r.buildContext(svc, plan, contextPath, stdoutPath, stderrPath, pid, port, nowMs)
	if err := r.deps.Ledger.WriteContext(contextPath, ctx); err != nil {
		// The child is already running with no manifest. Passes read only
		// the ledger, so no later pass adopts or stops it; it appears only
		// as process_without_ledger in the orchestrator's Reconcile report.
		summary.Errors = append(summary.Errors, fmt.Errorf("write context for %s: %w", svc.ID, err))
		return 0, false
	}

	r.clearFailure(svc.Candidate.Path)
	summary.Spawned++
	if r.log != nil {
		r.log.Info("spawned service", "id", svc.ID, "pid", pid, "port", port)
	}
	return pid, true
}

func (r *Reconciler) buildContext(svc domain.ExposableService, plan domain.SpawnPlan, contextPath, stdoutPath, stderrPath string, pid, port int, nowMs int64) domain.SpawnedContext {
	var ctx domain.SpawnedContext
	now := time.Now()

	ctx.StartedAt = now
	ctx.Session.SessionID = r.deps.Ledger.SessionID()
	ctx.Session.Host = r.cfg.Host
	ctx.Session.StartedAt = now

	ctx.Service.ID = svc.ID
	ctx.Service.Kind = svc.Kind
	ctx.Service.Label = svc.Label
	ctx.Service.ProxyEndpointPrefix = svc.ProxyEndpointPrefix

	baseURL := fmt.Sprintf("http://%s:%d", r.cfg.ListenHost, port)
	ctx.Service.UpstreamURL = joinURL(baseURL, svc.ProxyEndpointPrefix)

	ctx.Supplier.Location = svc.Candidate.Path
	ctx.Supplier.Size = svc.Candidate.Size
	ctx.Supplier.ModTime = svc.Candidate.ModTime
	ctx.Supplier.Kind = svc.Kind
	ctx.Supplier.Nature = domain.SupplierLocalFile

	ctx.Listen.Host = r.cfg.ListenHost
	ctx.Listen.Port = port
	ctx.Listen.BaseURL = baseURL
	ctx.Listen.ProbeURL = baseURL + "/"

	ctx.Spawned.PID = pid
	ctx.Spawned.Plan = plan

	ctx.Paths.Context = contextPath
	ctx.Paths.Stdout = stdoutPath
	ctx.Paths.Stderr = stderrPath

	ctx.Owner.OwnerToken = r.deps.Ledger.OwnerToken()
	ctx.Owner.SupervisorPID = r.cfg.SupervisorPID
	ctx.Owner.Host = r.cfg.Host
	ctx.Owner.StartedAtMs = nowMs

	ctx.DBYardConfig = svc.Sidecar
	ctx.LastSeenAtMs = nowMs

	return ctx
}

// joinURL joins a base URL with a path prefix, avoiding a doubled slash
// (spec §6: "upstreamUrl = joinUrl(listen.baseUrl, proxyEndpointPrefix)").
func joinURL(base, prefix string) string {
	if prefix == "" || prefix == "/" {
		return base + "/"
	}
	return base + prefix
}
