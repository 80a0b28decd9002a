// Package pid guards against two daemons writing the same store.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/wattlog/internal/errors"
)

const defaultName = "energyd.pid"

// File is a PID file at Path.
type File struct {
	Path string
}

// New returns the PID file in dir, or in the temp directory when dir is
// empty.
func New(dir string) File {
	if dir == "" {
		dir = os.TempDir()
	}
	return File{Path: filepath.Join(dir, defaultName)}
}

// Write records the current process ID. It fails with ErrAlreadyRunning when
// the file names a live process; a stale file is replaced.
func (f File) Write() error {
	errFactory := errors.New()

	if data, err := os.ReadFile(f.Path); err == nil {
		if pid, convErr := strconv.Atoi(strings.TrimSpace(string(data))); convErr == nil && alive(pid) {
			return errFactory.WithData(errors.ErrAlreadyRunning, struct {
				Path string
				PID  int
			}{f.Path, pid})
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	err := os.WriteFile(f.Path, []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the PID file if it exists.
func (f File) Remove() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
