//go:build linux

package tagindex

import (
	"os"
	"strconv"
)

// listPIDs enumerates numeric entries under /proc.
func listPIDs() ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// readEnviron reads /proc/<pid>/environ for pid, returning ok=false if the
// process has already exited or its environment can't be read (permission,
// kernel-thread, etc — not an error, just absence).
func readEnviron(pid int) (map[string]string, bool) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/environ")
	if err != nil {
		return nil, false
	}
	return parseEnviron(data), true
}
