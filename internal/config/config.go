package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "MEMSIM"

	// Dir is the per-user directory holding config.toml and the saved
	// simulation, relative to the home directory.
	Dir = ".memsim"

	SimulationPathKey  = "simulation.path"
	StartingBalanceKey = "simulation.starting_balance"
	LogLevelKey        = "log.level"
	LogFormatKey       = "log.format"

	DefaultStartingBalance = 1000.0
	SimulationFileName     = "simulation.toml"
)

// Config holds all memsim configuration.
type Config struct {
	Simulation SimulationConfig
	Log        LogConfig
}

type SimulationConfig struct {
	Path            string
	StartingBalance float64
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// Load reads ~/.memsim/config.toml into v (a missing file is fine), applies
// MEMSIM_* environment overrides and defaults, and validates the result.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Join(homeDir, Dir))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(SimulationPathKey, filepath.Join(homeDir, Dir, SimulationFileName))
	v.SetDefault(StartingBalanceKey, DefaultStartingBalance)
	v.SetDefault(LogLevelKey, "warn")
	v.SetDefault(LogFormatKey, "text")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Simulation: SimulationConfig{
			Path:            v.GetString(SimulationPathKey),
			StartingBalance: v.GetFloat64(StartingBalanceKey),
		},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString(LogLevelKey))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString(LogFormatKey))),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Simulation.Path) == "" {
		return errors.New("simulation path is empty")
	}
	if c.Simulation.StartingBalance < 0 {
		return fmt.Errorf("starting balance must not be negative, got %g", c.Simulation.StartingBalance)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}

	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("unsupported log level %q", l.Level)
	}
	return level, nil
}
