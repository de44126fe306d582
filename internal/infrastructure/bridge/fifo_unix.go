//go:build unix

package bridge

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MakeFifo creates a named pipe at path. An existing path is an error.
func MakeFifo(path string) error {
	if err := unix.Mkfifo(path, 0o666); err != nil {
		return &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

// RedirectOutput points the process's stdout and stderr file descriptors at f,
// so output written by anything in the process (or inherited by children)
// ends up there.
func RedirectOutput(f *os.File) error {
	fd := int(f.Fd())
	if err := unix.Dup2(fd, int(os.Stdout.Fd())); err != nil {
		return fmt.Errorf("failed to redirect stdout: %w", err)
	}
	if err := unix.Dup2(fd, int(os.Stderr.Fd())); err != nil {
		return fmt.Errorf("failed to redirect stderr: %w", err)
	}
	return nil
}
