// Package spawner launches detached child processes and terminates them by
// process group (C5). Grounded on the teacher's internal/adapter/server
// process runner, generalized from "blocking code-server runner" to
// "detached, non-blocking spawn with a fast-exit guard."
package spawner

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/dbyard/db-yard/internal/domain"
)

// FastExitWindow is the bounded interval a freshly spawned pid must survive
// before the spawn is considered successful (spec §4.4).
const FastExitWindow = 750 * time.Millisecond

// killPollInterval and killPollTimeout bound the liveness poll during
// termination escalation (spec §4.4, §5).
const (
	killPollInterval = 50 * time.Millisecond
	killPollTimeout  = 2 * time.Second
)

// Detached launches children in their own process group, detached from this
// process's lifetime, with stdio redirected to files.
type Detached struct {
	logger domain.Logger
}

// New creates a detached spawner.
func New(logger domain.Logger) *Detached {
	return &Detached{logger: logger}
}

// Spawn launches plan's command and confirms it survives the fast-exit
// window. The supervisor does not hold pipes to the child: stdin is closed,
// stdout/stderr are redirected to the plan's log files, which are opened and
// then released back to the OS once the child has them.
func (d *Detached) Spawn(plan domain.SpawnPlan) (int, error) {
	outFile, err := os.OpenFile(plan.StdoutPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open stdout log: %w", err)
	}
	defer outFile.Close()

	errFile, err := os.OpenFile(plan.StderrPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open stderr log: %w", err)
	}
	defer errFile.Close()

	cmd := exec.Command(plan.Command, plan.Argv...)
	cmd.Dir = plan.Cwd
	cmd.Env = append(append([]string{}, plan.Env...), plan.Tag.EnvPairs()...)
	cmd.Stdout = outFile
	cmd.Stderr = errFile
	cmd.Stdin = nil
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", plan.Command, err)
	}
	pid := cmd.Process.Pid

	// Release our handle on the child without waiting on it: the process is
	// detached and its lifetime is independent of ours. Reap in the
	// background so it never becomes a zombie if it happens to be our
	// direct child on a platform without double-fork.
	go func() { _ = cmd.Wait() }()

	time.Sleep(FastExitWindow)
	if !isAlive(pid) {
		return 0, fmt.Errorf("process exited within fast-exit window (%s)", FastExitWindow)
	}

	d.logger.Info("spawned", "pid", pid, "command", plan.Command)
	return pid, nil
}

// KillPID terminates the process group led by pid, escalating from SIGTERM
// to SIGKILL if it has not exited after killPollTimeout. Idempotent: a
// missing pid is treated as already-stopped success (spec §4.4, §7).
func (d *Detached) KillPID(pid int) error {
	if pid <= 0 {
		return nil
	}
	if !isAlive(pid) {
		return nil
	}

	signalGroupThenPID(pid, syscall.SIGTERM)
	if waitUntilDead(pid, killPollTimeout) {
		return nil
	}

	d.logger.Info("escalating to SIGKILL", "pid", pid)
	signalGroupThenPID(pid, syscall.SIGKILL)
	if waitUntilDead(pid, killPollTimeout) {
		return nil
	}
	return fmt.Errorf("pid %d still alive after SIGKILL", pid)
}

func waitUntilDead(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isAlive(pid) {
			return true
		}
		time.Sleep(killPollInterval)
	}
	return !isAlive(pid)
}

