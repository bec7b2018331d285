package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "LIBRARY"

// Config is the effective configuration of the CLI.
type Config struct {
	DataDir           string `yaml:"data-dir" mapstructure:"data-dir"`
	HistoryFile       string `yaml:"history-file" mapstructure:"history-file"`
	AdminPasswordHash string `yaml:"admin-password-hash" mapstructure:"admin-password-hash"`
	Verbose           bool   `yaml:"verbose" mapstructure:"verbose"`
}

// HistoryPath resolves the audit log location against the data directory.
func (c Config) HistoryPath() string {
	if filepath.IsAbs(c.HistoryFile) {
		return c.HistoryFile
	}
	return filepath.Join(c.DataDir, c.HistoryFile)
}

// loadConfig merges, lowest precedence first: defaults, the config file,
// LIBRARY_* environment variables and command line flags.
func loadConfig(v *viper.Viper, configFile string, flags *pflag.FlagSet) (Config, error) {
	v.SetDefault("data-dir", ".")
	v.SetDefault("history-file", "operation_history.txt")
	v.SetDefault("admin-password-hash", "")
	v.SetDefault("verbose", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("library")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.library")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// an explicit --config must exist, the search path is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for _, name := range []string{"data-dir", "history-file", "verbose"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(name, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
