//go:build unix

package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// ReadyFD is the descriptor number the monitor receives the ready pipe on.
// exec.Cmd.ExtraFiles entry 0 becomes fd 3 in the child.
const ReadyFD = 3

const readyMessage = "ready"

// Detacher runs the long-lived monitor as a separate process and releases
// the caller once the monitor reports that the subsystem is up.
//
// This replaces a fork: Go cannot fork a running runtime, so the monitor is
// the same binary re-executed with different arguments. There is no session
// change and no second fork.
type Detacher struct {
	// Stdout and Stderr are inherited by the monitor
	Stdout *os.File
	Stderr *os.File

	Logger *slog.Logger

	// Path is the monitor executable; defaults to os.Executable()
	Path string

	// Args are the monitor's arguments (without argv[0])
	Args []string
}

// Detach starts the monitor and waits for its verdict. It returns nil once
// the monitor signals readiness; the monitor keeps running afterwards. If
// the monitor exits without signaling, its exit status is returned as a
// *StartupError.
func (d *Detacher) Detach(ctx context.Context) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := d.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		path = exe
	}

	readyR, readyW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create ready pipe: %w", err)
	}
	defer func() {
		_ = readyR.Close()
	}()

	//nolint:gosec // G204: re-executes this binary
	cmd := exec.Command(path, d.Args...)
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr
	cmd.ExtraFiles = []*os.File{readyW}

	if err := cmd.Start(); err != nil {
		_ = readyW.Close()
		return fmt.Errorf("failed to start monitor: %w", err)
	}
	_ = readyW.Close()

	logger.Debug("monitor started", "pid", cmd.Process.Pid)

	verdict := make(chan bool, 1)
	go func() {
		line, err := bufio.NewReader(readyR).ReadString('\n')
		verdict <- (err == nil || errors.Is(err, io.EOF)) && strings.TrimSpace(line) == readyMessage
	}()

	select {
	case ready := <-verdict:
		if ready {
			logger.Debug("monitor reported ready, detaching", "pid", cmd.Process.Pid)
			return cmd.Process.Release()
		}
	case <-ctx.Done():
		// The monitor is left running; it owns the subsystem now.
		_ = cmd.Process.Release()
		return ctx.Err()
	}

	_ = cmd.Wait()
	return &StartupError{ExitCode: cmd.ProcessState.ExitCode()}
}

// SignalReady tells the waiting caller that the subsystem is up and closes
// the ready pipe.
func SignalReady(w io.WriteCloser) error {
	if _, err := io.WriteString(w, readyMessage+"\n"); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to signal readiness: %w", err)
	}
	return w.Close()
}

// ReadyPipe returns the ready pipe inherited from the caller. The
// descriptor is marked close-on-exec so the subsystem and its children
// cannot keep the caller waiting.
func ReadyPipe() *os.File {
	return inheritedPipe(ReadyFD)
}

func inheritedPipe(fd int) *os.File {
	unix.CloseOnExec(fd)
	return os.NewFile(uintptr(fd), "ready")
}
