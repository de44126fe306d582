//go:build unix

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scala-isabelle/devscripts/internal/version"
)

var versionShort bool

// versionCmd implements the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of isabelle-bridge",
	Run: func(cmd *cobra.Command, _ []string) {
		info := version.Get(rootCmd.Name())
		if versionShort {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), info.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the binary name and release")
}
