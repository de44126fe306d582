package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scala-isabelle/devscripts/internal/application/dto"
	"github.com/scala-isabelle/devscripts/internal/application/ports"
	"github.com/scala-isabelle/devscripts/internal/application/services"
	"github.com/scala-isabelle/devscripts/internal/domain/catalog"
	"github.com/scala-isabelle/devscripts/internal/infrastructure/config"
	"github.com/scala-isabelle/devscripts/internal/infrastructure/system"
	"github.com/scala-isabelle/devscripts/internal/infrastructure/vcs"
)

const envPrefix = "CIRCLECI_RANDOMIZE"

var (
	cfgFile     string
	verbose     bool
	force       bool
	pick        string
	interactive bool

	// configErr holds a failure to read an explicitly requested config file
	configErr error
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "circleci-randomize",
	Short: "Regenerate the Circle CI configuration from a picked profile",
	Long: `circleci-randomize renders .circleci/template.yml into .circleci/config.yml,
substituting @{key} placeholders from one of the profiles in .circleci/configs.yml.
The profile is the catalog's "pick" entry (a name, or "random") unless one is given
with --pick or chosen with --interactive. The result is staged with git.

Without flags the file is only regenerated when the working tree has changes and
the output itself has none, so it is meant to run from a pre-commit hook.`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runGenerate(cmd.Context(), cmd.OutOrStdout())
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .circleci-randomize.yaml in the current or home directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "regenerate even if nothing changed")
	rootCmd.Flags().StringVarP(&pick, "pick", "p", "", `profile to use instead of the catalog's choice ("random" picks one)`)
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose the profile from a list")

	_ = rootCmd.RegisterFlagCompletionFunc("pick", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		names, err := profileCompletions(cwd)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
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
		viper.SetConfigName(".circleci-randomize")
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// runGenerate wires the repository containing the working directory into the
// generator and runs it once.
func runGenerate(ctx context.Context, out io.Writer) error {
	if configErr != nil {
		return configErr
	}

	cfg, err := system.LoadGeneratorConfig(viper.GetViper())
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	repo, err := vcs.Open(cwd)
	if err != nil {
		return err
	}

	var picker ports.ProfilePicker
	if interactive {
		picker = formPicker{}
	}

	uc := services.NewGenerateConfigUseCase(repo, config.NewCatalogLoader(), picker, out, slog.Default())
	_, err = uc.Execute(ctx, dto.GenerateConfigRequest{
		Paths: dto.GeneratePaths{
			CatalogPath:  cfg.Catalog,
			TemplatePath: cfg.Template,
			OutputPath:   cfg.Output,
		},
		Options: dto.GenerateOptions{
			Pick:        pick,
			HookMarker:  cfg.HookMarker,
			Force:       force,
			Interactive: interactive,
		},
	})
	return err
}

// profileCompletions lists the values --pick accepts for the repository
// containing dir.
func profileCompletions(dir string) ([]string, error) {
	cfg, err := system.LoadGeneratorConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	repo, err := vcs.Open(dir)
	if err != nil {
		return nil, err
	}

	catalogPath := cfg.Catalog
	if !filepath.IsAbs(catalogPath) {
		catalogPath = filepath.Join(repo.Root(), catalogPath)
	}

	names, err := config.NewCatalogLoader().ProfileNames(catalogPath)
	if err != nil {
		return nil, err
	}
	return append(names, catalog.RandomPick), nil
}
