//go:build unix

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scala-isabelle/devscripts/internal/infrastructure/bridge"
	"github.com/scala-isabelle/devscripts/internal/infrastructure/system"
	"github.com/scala-isabelle/devscripts/internal/infrastructure/vcs"
)

const envPrefix = "ISABELLE_BRIDGE"

var (
	cfgFile string
	verbose bool

	// configErr holds a failure to read an explicitly requested config file
	configErr error
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "isabelle-bridge <input-pipe> <output-pipe> <logfile>",
	Short: "Start the Isabelle control process behind two named pipes",
	Long: `isabelle-bridge changes into the distribution directory, creates the two
named pipes and launches the control process connected to them. All output goes
to the log file. The command returns as soon as the process reports [STARTED];
a background monitor keeps copying its output into the log until it exits.

Pipe and log paths are interpreted relative to the distribution directory.`,
	Args: cobra.ExactArgs(3),
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBridge(cmd.Context(), args[0], args[1], args[2])
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. A subsystem that fails to start ends the
// process with its exit status where possible. That failure is already in
// the log as the subsystem's return code, so it is not logged again.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !isStartupFailure(err) {
			slog.Error("command failed", "error", err)
		}
		os.Exit(exitStatus(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .isabelle-bridge.yaml in the current or home directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.Flags().String("root", "", "distribution directory (default: the enclosing git worktree, else two levels above the executable)")
	_ = viper.BindPFlag("root", rootCmd.Flags().Lookup("root"))
}

// initConfig loads configuration from the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".isabelle-bridge")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err == nil {
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
		return
	}
	var notFound viper.ConfigFileNotFoundError
	if cfgFile != "" || !errors.As(err, &notFound) {
		configErr = fmt.Errorf("failed to read config file: %w", err)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// os.Stderr is the log file once output has been redirected
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func loadConfig() (*system.BridgeConfig, error) {
	if configErr != nil {
		return nil, configErr
	}
	return system.LoadBridgeConfig(viper.GetViper())
}

// runBridge prepares the pipes and the log, then hands over to the monitor.
func runBridge(ctx context.Context, inputPipe, outputPipe, logPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The monitor starts in the distribution directory, so the config file
	// must be located before leaving the current one.
	configPath := viper.ConfigFileUsed()
	if configPath != "" {
		if configPath, err = filepath.Abs(configPath); err != nil {
			return fmt.Errorf("failed to resolve config file: %w", err)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	root, err := resolveRoot(cfg.Root, cwd, exe)
	if err != nil {
		return err
	}
	if err := os.Chdir(root); err != nil {
		return fmt.Errorf("failed to change to %s: %w", root, err)
	}

	//nolint:gosec // G302/G304: the log path is a command argument
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		_ = logFile.Close()
	}()

	if err := bridge.RedirectOutput(logFile); err != nil {
		return err
	}
	slog.Debug("bridge starting", "root", root, "input", inputPipe, "output", outputPipe)

	for _, pipe := range []string{inputPipe, outputPipe} {
		if err := bridge.MakeFifo(pipe); err != nil {
			return err
		}
	}

	detacher := &bridge.Detacher{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: slog.Default(),
		Args:   monitorArgs(configPath, verbose, inputPipe, outputPipe),
	}
	return detacher.Detach(ctx)
}

// resolveRoot picks the distribution directory: the configured one, else the
// git worktree containing cwd, else two levels above the executable.
func resolveRoot(configured, cwd, exe string) (string, error) {
	if configured != "" {
		root, err := filepath.Abs(configured)
		if err != nil {
			return "", fmt.Errorf("failed to resolve root %s: %w", configured, err)
		}
		return root, nil
	}

	if repo, err := vcs.Open(cwd); err == nil {
		return repo.Root(), nil
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe)), nil
}

// monitorArgs builds the command line the monitor is re-executed with.
func monitorArgs(configPath string, verbose bool, inputPipe, outputPipe string) []string {
	args := []string{monitorCmd.Name()}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if verbose {
		args = append(args, "--verbose")
	}
	return append(args, "--", inputPipe, outputPipe)
}

func isStartupFailure(err error) bool {
	var startupErr *bridge.StartupError
	return errors.As(err, &startupErr)
}

// exitStatus maps a failed start to the subsystem's own status.
func exitStatus(err error) int {
	var startupErr *bridge.StartupError
	if errors.As(err, &startupErr) && startupErr.ExitCode > 0 && startupErr.ExitCode < 256 {
		return startupErr.ExitCode
	}
	return 1
}
