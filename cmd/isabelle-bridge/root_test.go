//go:build unix

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scala-isabelle/devscripts/internal/infrastructure/bridge"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	configErr = nil
	t.Cleanup(func() {
		viper.Reset()
		configErr = nil
	})
}

func TestResolveRoot(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		dir := t.TempDir()
		root, err := resolveRoot(dir, "/nonexistent", "/opt/bridge/bin/isabelle-bridge")
		require.NoError(t, err)
		assert.Equal(t, dir, root)
	})

	t.Run("enclosing worktree", func(t *testing.T) {
		repoRoot := t.TempDir()
		_, err := git.PlainInit(repoRoot, false)
		require.NoError(t, err)
		sub := filepath.Join(repoRoot, "scripts")
		require.NoError(t, os.MkdirAll(sub, 0o755))

		root, err := resolveRoot("", sub, "/opt/bridge/bin/isabelle-bridge")
		require.NoError(t, err)
		assert.Equal(t, repoRoot, root)
	})

	t.Run("executable location", func(t *testing.T) {
		root, err := resolveRoot("", t.TempDir(), "/opt/bridge/bin/isabelle-bridge")
		require.NoError(t, err)
		assert.Equal(t, "/opt/bridge", root)
	})
}

func TestMonitorArgs(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		verbose    bool
		want       []string
	}{
		{
			name: "plain",
			want: []string{"monitor", "--", "in", "out"},
		},
		{
			name:       "config and verbose",
			configPath: "/etc/bridge.yaml",
			verbose:    true,
			want:       []string{"monitor", "--config", "/etc/bridge.yaml", "--verbose", "--", "in", "out"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, monitorArgs(tt.configPath, tt.verbose, "in", "out"))
		})
	}
}

func TestExitStatus(t *testing.T) {
	assert.Equal(t, 3, exitStatus(&bridge.StartupError{ExitCode: 3}))
	assert.Equal(t, 1, exitStatus(&bridge.StartupError{ExitCode: 0}))
	assert.Equal(t, 1, exitStatus(&bridge.StartupError{ExitCode: -1}))
	assert.Equal(t, 1, exitStatus(assert.AnError))
}

func TestRunMonitor_Ready(t *testing.T) {
	resetConfig(t)
	viper.Set("subsystem.command", []string{"/bin/sh", "-c", `echo "listening on $0 $1"; echo "[STARTED]"; echo done`, "{input}", "{output}"})
	viper.Set("subsystem.status_timeout", 5*time.Second)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	var log bytes.Buffer
	require.NoError(t, runMonitor(context.Background(), "in.fifo", "out.fifo", &log, w))

	signal, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ready\n", string(signal))
	assert.Equal(t, "listening on in.fifo out.fifo\nSubsystem started, forking.\nForked.\ndone\n", log.String())
}

func TestRunMonitor_FailedStart(t *testing.T) {
	resetConfig(t)
	viper.Set("subsystem.command", []string{"/bin/sh", "-c", `echo "compile error"; exit 2`})
	viper.Set("subsystem.status_timeout", 5*time.Second)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	var log bytes.Buffer
	err = runMonitor(context.Background(), "in", "out", &log, w)

	var startupErr *bridge.StartupError
	require.ErrorAs(t, err, &startupErr)
	assert.Equal(t, 2, startupErr.ExitCode)
	assert.Equal(t, 2, exitStatus(err))

	signal, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, signal)
	assert.Equal(t, "compile error\nSubsystem failed to start. Return code: 2\n", log.String())
}

func TestRunMonitor_ConfigError(t *testing.T) {
	resetConfig(t)
	configErr = assert.AnError

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	assert.ErrorIs(t, runMonitor(context.Background(), "in", "out", io.Discard, w), assert.AnError)

	signal, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, signal)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = cmd.Hidden
	}

	hidden, ok := names["monitor"]
	require.True(t, ok)
	assert.True(t, hidden)
	assert.Contains(t, names, "version")
}
