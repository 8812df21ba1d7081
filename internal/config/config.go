// Package config loads the ambient process-level settings each binary
// needs before it ever touches a scenario file: listen/dial
// addresses, the output root directory, and the log level. This is
// distinct from internal/scenario, which decodes the YAML scenario
// document describing agents and runtime stages.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix both binaries read
// overrides from, e.g. OTUSBENCH_LOG_LEVEL.
const EnvPrefix = "OTUSBENCH"

// Controller holds the controller binary's process settings.
type Controller struct {
	Scenario string `mapstructure:"scenario"`
	OutDir   string `mapstructure:"outdir"`
	LogLevel string `mapstructure:"log_level"`
}

// Agent holds the agent binary's process settings.
type Agent struct {
	Listen   string `mapstructure:"listen"`
	OutDir   string `mapstructure:"outdir"`
	LogLevel string `mapstructure:"log_level"`
}

// newViper prepares a viper instance with the shared env-var wiring;
// file is optional (empty means flags/env/defaults only).
func newViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if file == "" {
		return v, nil
	}
	dir := filepath.Dir(file)
	ext := filepath.Ext(file)
	name := strings.TrimSuffix(filepath.Base(file), ext)

	v.SetConfigName(name)
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", file, err)
	}
	return v, nil
}

// LoadController builds a Controller config from defaults, an
// optional file, and OTUSBENCH_* environment overrides, in that
// precedence order (flags, applied by the caller after Load returns,
// take final precedence).
func LoadController(file string) (Controller, error) {
	v, err := newViper(file)
	if err != nil {
		return Controller{}, err
	}
	v.SetDefault("scenario", "")
	v.SetDefault("outdir", "./out")
	v.SetDefault("log_level", "info")

	var cfg Controller
	if err := v.Unmarshal(&cfg); err != nil {
		return Controller{}, fmt.Errorf("config: unmarshal controller config: %w", err)
	}
	return cfg, nil
}

// LoadAgent builds an Agent config the same way.
func LoadAgent(file string) (Agent, error) {
	v, err := newViper(file)
	if err != nil {
		return Agent{}, err
	}
	v.SetDefault("listen", "127.0.0.1:7070")
	v.SetDefault("outdir", "./out")
	v.SetDefault("log_level", "info")

	var cfg Agent
	if err := v.Unmarshal(&cfg); err != nil {
		return Agent{}, fmt.Errorf("config: unmarshal agent config: %w", err)
	}
	return cfg, nil
}
