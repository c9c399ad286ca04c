// Package pidfile manages the daemon PID files used for "is a daemon
// alive" checks and clean stop. A stale PID file whose process no longer
// exists is tolerated: every check probes the PID before acting on it.
// The probe tells only whether some process holds the PID, not whether it
// is the daemon that wrote the file, so a PID reused by another process
// reads as alive.
package pidfile

import (
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// File is a PID file at a fixed path.
type File struct {
	Path string
}

// New returns a File at path.
func New(path string) *File {
	return &File{Path: path}
}

// Write atomically records the current process's PID.
func (f *File) Write() error {
	body := strconv.Itoa(os.Getpid())
	return errors.Wrapf(renameio.WriteFile(f.Path, []byte(body), 0o644), "write pid file %s", f.Path)
}

// Remove deletes the PID file. Missing is not an error.
func (f *File) Remove() error {
	err := os.Remove(f.Path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove pid file %s", f.Path)
	}
	return nil
}

// Read parses the recorded PID. Returns an error if the file is missing,
// empty, or doesn't contain a single integer.
func (f *File) Read() (int, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return 0, errors.Wrapf(err, "read pid file %s", f.Path)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, errors.Wrapf(err, "parse pid file %s", f.Path)
	}
	return pid, nil
}

// Alive reports whether the recorded PID belongs to a live process.
// A missing file or a PID with no live process is "not alive", never an
// error — both are the ordinary stale-pidfile case.
func (f *File) Alive() (bool, int, error) {
	pid, err := f.Read()
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return processAlive(pid), pid, nil
}

// Stop sends sig to the recorded process, if it's alive. A stale (dead or
// absent) PID file is treated as already-stopped, not an error.
func (f *File) Stop(sig os.Signal) error {
	alive, pid, err := f.Alive()
	if err != nil {
		return err
	}
	if !alive {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrapf(err, "find process %d", pid)
	}
	return errors.Wrapf(proc.Signal(sig), "signal process %d", pid)
}

// processAlive checks whether a process holds pid by sending the null
// signal, the standard liveness probe: it never actually affects the
// target, and it does not check which program that process runs.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
