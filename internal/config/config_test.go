package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, Dir, SimulationFileName), cfg.Simulation.Path)
	assert.Equal(t, DefaultStartingBalance, cfg.Simulation.StartingBalance)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadReadsConfigFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, Dir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, Dir, "config.toml"), []byte(`
[simulation]
path = "/tmp/sim.toml"
starting_balance = 2500

[log]
level = "debug"
`), 0o644))
	t.Setenv("MEMSIM_LOG_FORMAT", "json")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sim.toml", cfg.Simulation.Path)
	assert.Equal(t, 2500.0, cfg.Simulation.StartingBalance)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Simulation: SimulationConfig{Path: "/tmp/sim.toml", StartingBalance: 1000},
		Log:        LogConfig{Level: "info", Format: "text"},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty path", mutate: func(c *Config) { c.Simulation.Path = " " }, wantErr: "simulation path is empty"},
		{name: "negative balance", mutate: func(c *Config) { c.Simulation.StartingBalance = -1 }, wantErr: "starting balance"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "unsupported log level"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "unsupported log format"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
