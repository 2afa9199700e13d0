package syncengine

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/loom-dev/loom/internal/result"
)

// PidPath returns the daemon pid file's path under stateDir.
func PidPath(stateDir string) string {
	return filepath.Join(stateDir, "daemon.pid")
}

// isProcessAlive probes a pid with signal 0: a second daemon must refuse
// to start if the pid in the file is live.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// AcquirePidFile enforces the single-daemon-per-host rule: if an existing
// pid file names a live process, refuse; if it names a dead one (or is
// missing/unparseable), it is replaced with this process's pid.
func AcquirePidFile(stateDir string) *result.Error {
	path := PidPath(stateDir)
	if data, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && isProcessAlive(pid) {
			return result.New(result.InvalidState, "daemon already running with pid %d", pid)
		}
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return result.Wrap(result.CommandFailed, err, "creating state directory %s", stateDir)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return result.Wrap(result.CommandFailed, err, "writing pid file %s", path)
	}
	return nil
}

// ReleasePidFile removes the pid file on graceful shutdown.
func ReleasePidFile(stateDir string) {
	_ = os.Remove(PidPath(stateDir))
}

// PidFileStatus reports whether a live daemon owns the pid file, for the
// `daemon status` CLI command.
func PidFileStatus(stateDir string) (pid int, running bool) {
	data, err := os.ReadFile(PidPath(stateDir))
	if err != nil {
		return 0, false
	}
	pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
	if perr != nil {
		return 0, false
	}
	return pid, isProcessAlive(pid)
}
