// Package system provides infrastructure for tool-level configuration.
// Settings are layered by viper (config file, environment, defaults) and
// unmarshalled into the typed structs below.
package system

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// GeneratorConfig configures circleci-randomize.
// Paths are relative to the repository root.
type GeneratorConfig struct {
	Catalog    string `mapstructure:"catalog"`
	Template   string `mapstructure:"template"`
	Output     string `mapstructure:"output"`
	HookMarker string `mapstructure:"hook_marker"`
}

// BridgeConfig configures isabelle-bridge.
type BridgeConfig struct {
	// Root is the directory the bridge runs in. Empty means auto-detect.
	Root      string          `mapstructure:"root"`
	Subsystem SubsystemConfig `mapstructure:"subsystem"`
}

// SubsystemConfig describes how the external subsystem is launched.
type SubsystemConfig struct {
	// Command is the argv; "{input}" and "{output}" are replaced by the pipe paths
	Command []string `mapstructure:"command"`

	// Sentinel is the substring of an output line that signals readiness
	Sentinel string `mapstructure:"sentinel"`

	// StatusTimeout bounds the wait for the exit status after a failed start
	StatusTimeout time.Duration `mapstructure:"status_timeout"`
}

// DefaultGeneratorConfig returns the generator's built-in settings.
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		Catalog:    ".circleci/configs.yml",
		Template:   ".circleci/template.yml",
		Output:     ".circleci/config.yml",
		HookMarker: "circleci-randomize",
	}
}

// DefaultBridgeConfig returns the bridge's built-in settings.
func DefaultBridgeConfig() *BridgeConfig {
	return &BridgeConfig{
		Subsystem: SubsystemConfig{
			Command: []string{
				"sbt",
				"runMain de.unruh.isabelle.control.ConnectToRunningIsabelle {input} {output}",
			},
			Sentinel:      "[STARTED]",
			StatusTimeout: 10 * time.Second,
		},
	}
}

// SetGeneratorDefaults registers the generator defaults with v.
func SetGeneratorDefaults(v *viper.Viper) {
	d := DefaultGeneratorConfig()
	v.SetDefault("catalog", d.Catalog)
	v.SetDefault("template", d.Template)
	v.SetDefault("output", d.Output)
	v.SetDefault("hook_marker", d.HookMarker)
}

// SetBridgeDefaults registers the bridge defaults with v.
func SetBridgeDefaults(v *viper.Viper) {
	d := DefaultBridgeConfig()
	v.SetDefault("root", d.Root)
	v.SetDefault("subsystem.command", d.Subsystem.Command)
	v.SetDefault("subsystem.sentinel", d.Subsystem.Sentinel)
	v.SetDefault("subsystem.status_timeout", d.Subsystem.StatusTimeout)
}

// LoadGeneratorConfig unmarshals the generator settings from v.
func LoadGeneratorConfig(v *viper.Viper) (*GeneratorConfig, error) {
	SetGeneratorDefaults(v)

	var cfg GeneratorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse generator config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadBridgeConfig unmarshals the bridge settings from v.
func LoadBridgeConfig(v *viper.Viper) (*BridgeConfig, error) {
	SetBridgeDefaults(v)

	var cfg BridgeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse bridge config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that all paths are set.
func (c *GeneratorConfig) Validate() error {
	switch {
	case c.Catalog == "":
		return fmt.Errorf("catalog path cannot be empty")
	case c.Template == "":
		return fmt.Errorf("template path cannot be empty")
	case c.Output == "":
		return fmt.Errorf("output path cannot be empty")
	}
	return nil
}

// Validate checks that the subsystem can be launched.
func (c *BridgeConfig) Validate() error {
	if len(c.Subsystem.Command) == 0 || c.Subsystem.Command[0] == "" {
		return fmt.Errorf("subsystem command cannot be empty")
	}
	if c.Subsystem.Sentinel == "" {
		return fmt.Errorf("subsystem sentinel cannot be empty")
	}
	if c.Subsystem.StatusTimeout < 0 {
		return fmt.Errorf("subsystem status timeout cannot be negative")
	}
	return nil
}
