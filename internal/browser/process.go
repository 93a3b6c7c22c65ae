package browser

import (
	"errors"
	"os"
	"runtime"
	"syscall"
)

// ProcessExited reports whether pid no longer names a live process.
func ProcessExited(pid int) bool {
	if pid <= 0 {
		return true
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	if runtime.GOOS == "windows" {
		// FindProcess opens a handle there, so success means it is still running.
		_ = p.Release()
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}
