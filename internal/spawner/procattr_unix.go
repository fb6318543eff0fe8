//go:build !windows

package spawner

import "syscall"

// sysProcAttr puts the child in its own session and process group so it
// survives this supervisor's exit and can be signaled as a group. Pdeathsig
// is a Linux-only safety net that does NOT apply here: db-yard children are
// meant to outlive the supervisor, so it is deliberately left unset (unlike
// the teacher's code-server runner, which wants the opposite).
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}

// signalGroupThenPID signals the process group led by pid, falling back to
// the bare pid if the group signal fails (e.g. pid is not a group leader).
func signalGroupThenPID(pid int, sig syscall.Signal) {
	_ = syscall.Kill(-pid, sig)
	_ = syscall.Kill(pid, sig)
}

// isAlive reports whether pid refers to a live process, via the signal-0
// probe (sends no signal, only checks permission/existence).
func isAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}
