package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGeneratorConfig_Defaults(t *testing.T) {
	cfg, err := LoadGeneratorConfig(viper.New())

	require.NoError(t, err)
	assert.Equal(t, DefaultGeneratorConfig(), cfg)
}

func TestLoadGeneratorConfig_File(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yaml := `
catalog: ci/profiles.yml
output: ci/generated.yml
`
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadGeneratorConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "ci/profiles.yml", cfg.Catalog)
	assert.Equal(t, "ci/generated.yml", cfg.Output)
	assert.Equal(t, ".circleci/template.yml", cfg.Template)
}

func TestLoadGeneratorConfig_EmptyPath(t *testing.T) {
	v := viper.New()
	v.Set("template", "")

	_, err := LoadGeneratorConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template path")
}

func TestLoadBridgeConfig_Defaults(t *testing.T) {
	cfg, err := LoadBridgeConfig(viper.New())

	require.NoError(t, err)
	assert.Empty(t, cfg.Root)
	assert.Equal(t, "sbt", cfg.Subsystem.Command[0])
	assert.Equal(t, "[STARTED]", cfg.Subsystem.Sentinel)
	assert.Equal(t, 10*time.Second, cfg.Subsystem.StatusTimeout)
}

func TestLoadBridgeConfig_Overrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bridge.yaml")

	yaml := `
root: /srv/isabelle
subsystem:
  command: ["./bin/control", "{input}", "{output}"]
  sentinel: READY
  status_timeout: 2s
`
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadBridgeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/srv/isabelle", cfg.Root)
	assert.Equal(t, []string{"./bin/control", "{input}", "{output}"}, cfg.Subsystem.Command)
	assert.Equal(t, "READY", cfg.Subsystem.Sentinel)
	assert.Equal(t, 2*time.Second, cfg.Subsystem.StatusTimeout)
}

func TestBridgeConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BridgeConfig)
		errMsg string
	}{
		{"empty command", func(c *BridgeConfig) { c.Subsystem.Command = nil }, "command"},
		{"empty program", func(c *BridgeConfig) { c.Subsystem.Command = []string{""} }, "command"},
		{"empty sentinel", func(c *BridgeConfig) { c.Subsystem.Sentinel = "" }, "sentinel"},
		{"negative timeout", func(c *BridgeConfig) { c.Subsystem.StatusTimeout = -time.Second }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBridgeConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
