// Package bridge launches the external subsystem behind a pair of named
// pipes, waits for it to report readiness and keeps its output flowing into
// a log file once the caller has been released.
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
	"sync"
	"time"
)

// Placeholders replaced in the subsystem command.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// StartupError indicates the subsystem closed its output before signaling readiness.
type StartupError struct {
	// ExitCode is the subsystem's exit status, or -1 if it was not available in time
	ExitCode int
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("subsystem failed to start (return code %d)", e.ExitCode)
}

// ExpandCommand substitutes the pipe paths into a command template.
func ExpandCommand(template []string, inputPipe, outputPipe string) []string {
	replacer := strings.NewReplacer(InputPlaceholder, inputPipe, OutputPlaceholder, outputPipe)
	argv := make([]string, len(template))
	for i, arg := range template {
		argv[i] = replacer.Replace(arg)
	}
	return argv
}

// Supervisor starts the subsystem and watches its output.
type Supervisor struct {
	// Log receives every output line of the subsystem plus status lines
	Log io.Writer

	// Logger is used for diagnostics; defaults to slog.Default()
	Logger *slog.Logger

	// Sentinel is the substring of an output line that signals readiness
	Sentinel string

	// Dir is the subsystem's working directory (empty = current)
	Dir string

	// Command is the subsystem argv
	Command []string

	// StatusTimeout bounds the wait for the exit status after a failed start
	StatusTimeout time.Duration
}

// Session is a running subsystem whose output is still being read.
type Session struct {
	cmd      *exec.Cmd
	pipe     *os.File
	reader   *bufio.Reader
	log      io.Writer
	waitOnce sync.Once
	waitDone chan struct{}
	waitErr  error
}

// Start launches the subsystem and blocks until it prints the sentinel.
//
// Stdin is /dev/null and stderr shares stdout's pipe. Lines before the
// sentinel are copied to the log; the sentinel line itself is not. If the
// output ends first, the exit status is logged and a *StartupError returned.
func (s *Supervisor) Start(ctx context.Context) (*Session, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(s.Command) == 0 {
		return nil, fmt.Errorf("subsystem command is empty")
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}

	//nolint:gosec // G204: the command comes from the bridge's own configuration
	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	cmd.Dir = s.Dir
	cmd.Stdout = pw
	cmd.Stderr = pw

	logger.Debug("launching subsystem", "command", s.Command, "dir", s.Dir)

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("failed to launch %s: %w", s.Command[0], err)
	}
	// Only the child holds the write end now, so EOF means it is gone.
	_ = pw.Close()

	session := &Session{
		cmd:      cmd,
		pipe:     pr,
		reader:   bufio.NewReader(pr),
		log:      s.Log,
		waitDone: make(chan struct{}),
	}

	ready, err := session.waitReady(s.Sentinel)
	if err != nil {
		session.abort(s.StatusTimeout)
		return nil, err
	}
	if !ready {
		code := session.exitCode(s.StatusTimeout)
		_ = pr.Close()
		startupErr := &StartupError{ExitCode: code}
		if err := session.logf("Subsystem failed to start. Return code: %d\n", code); err != nil {
			return nil, errors.Join(startupErr, err)
		}
		return nil, startupErr
	}

	if err := session.logf("Subsystem started, forking.\n"); err != nil {
		session.abort(s.StatusTimeout)
		return nil, err
	}
	logger.Debug("subsystem ready", "pid", cmd.Process.Pid)
	return session, nil
}

// waitReady copies lines to the log until one contains sentinel.
// It reports false when the output ends first.
func (s *Session) waitReady(sentinel string) (bool, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if strings.Contains(line, sentinel) {
			return true, nil
		}
		if line != "" {
			if werr := s.write(line); werr != nil {
				return false, werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, fmt.Errorf("failed to read subsystem output: %w", err)
		}
	}
}

// Drain copies the remaining output to the log until the subsystem closes it.
// A failed log write stops the copy.
func (s *Session) Drain() error {
	defer func() {
		_ = s.pipe.Close()
	}()

	for {
		line, err := s.reader.ReadString('\n')
		if line != "" {
			if werr := s.write(line); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read subsystem output: %w", err)
		}
	}
}

// Logf writes a status line to the session log.
func (s *Session) Logf(format string, args ...interface{}) error {
	return s.logf(format, args...)
}

// Pid returns the subsystem's process id.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// exitCode waits up to timeout for the subsystem to exit.
func (s *Session) exitCode(timeout time.Duration) int {
	s.waitOnce.Do(func() {
		go func() {
			s.waitErr = s.cmd.Wait()
			close(s.waitDone)
		}()
	})

	select {
	case <-s.waitDone:
		return s.cmd.ProcessState.ExitCode()
	case <-time.After(timeout):
		return -1
	}
}

// abort stops a subsystem that will not be handed over and reaps it.
func (s *Session) abort(timeout time.Duration) {
	_ = s.pipe.Close()
	_ = s.cmd.Process.Kill()
	s.exitCode(timeout)
}

func (s *Session) logf(format string, args ...interface{}) error {
	return s.write(fmt.Sprintf(format, args...))
}

// write appends text to the log, flushing buffered writers immediately.
func (s *Session) write(text string) error {
	if s.log == nil {
		return nil
	}
	if _, err := io.WriteString(s.log, text); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}
	if f, ok := s.log.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush log: %w", err)
		}
	}
	return nil
}
