//go:build unix

package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/scala-isabelle/devscripts/internal/infrastructure/bridge"
)

// monitorCmd is the background half of the bridge. It is started by the
// root command with the ready pipe on fd 3 and the log as stdout.
var monitorCmd = &cobra.Command{
	Use:    "monitor <input-pipe> <output-pipe>",
	Short:  "Run the subsystem and copy its output to the log",
	Hidden: true,
	Args:   cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd.Context(), args[0], args[1], os.Stdout, bridge.ReadyPipe())
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// runMonitor starts the subsystem, reports readiness on ready and then
// drains the subsystem's output into log. ready is closed in every case.
func runMonitor(ctx context.Context, inputPipe, outputPipe string, log io.Writer, ready io.WriteCloser) error {
	cfg, err := loadConfig()
	if err != nil {
		_ = ready.Close()
		return err
	}

	supervisor := &bridge.Supervisor{
		Log:           log,
		Sentinel:      cfg.Subsystem.Sentinel,
		Command:       bridge.ExpandCommand(cfg.Subsystem.Command, inputPipe, outputPipe),
		StatusTimeout: cfg.Subsystem.StatusTimeout,
	}

	session, err := supervisor.Start(ctx)
	if err != nil {
		_ = ready.Close()
		return err
	}

	if err := bridge.SignalReady(ready); err != nil {
		return err
	}
	if err := session.Logf("Forked.\n"); err != nil {
		return err
	}

	return session.Drain()
}
