// Package config assembles the run configuration from defaults, config
// files, environment variables, and flags. Core packages never read
// configuration themselves; they consume the Config struct built here.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/sidl-dev/sidlgen/errors"
)

// Config is the full configuration of one compiler invocation.
type Config struct {
	// Roots maps package prefixes to source directories, as ordered
	// "prefix:path" entries. Later flags append; remapping a prefix to a
	// different path is rejected by the resolver.
	Roots []string `mapstructure:"roots"`

	// OutputPath is the directory artifacts are written under.
	OutputPath string `mapstructure:"output"`

	// Target selects the generation backend.
	Target string `mapstructure:"target"`

	// Enforce selects stability enforcement: none, hash or no-hash.
	Enforce string `mapstructure:"enforce"`

	// TestMode marks manifest generation for test packages. It is an
	// explicit field so nothing downstream consults ambient state.
	TestMode bool `mapstructure:"test_mode"`

	// Verbosity is the -v count.
	Verbosity int `mapstructure:"verbosity"`

	// JSONLogs switches log output to machine-readable JSON.
	JSONLogs bool `mapstructure:"json_logs"`
}

// RootMapping is one parsed prefix:path entry.
type RootMapping struct {
	Prefix string
	Path   string
}

// ParseRootMapping splits a "prefix:path" flag value.
func ParseRootMapping(s string) (RootMapping, error) {
	prefix, path, ok := strings.Cut(s, ":")
	if !ok || prefix == "" || path == "" {
		return RootMapping{}, errors.Newf("package root %q must be of the form prefix:path", s)
	}
	return RootMapping{Prefix: prefix, Path: path}, nil
}

// RootMappings parses every configured root.
func (c *Config) RootMappings() ([]RootMapping, error) {
	out := make([]RootMapping, 0, len(c.Roots))
	for _, raw := range c.Roots {
		m, err := ParseRootMapping(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

var viperInstance *viper.Viper

// Load reads the configuration from all sources.
func Load() (*Config, error) {
	return LoadWithViper(initViper())
}

// LoadWithViper unmarshals a Config from a prepared Viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &config, nil
}

// GetViper returns the shared Viper instance so the CLI can bind flags.
func GetViper() *viper.Viper {
	return initViper()
}

// Reset clears the cached instance. Tests use this between cases.
func Reset() {
	viperInstance = nil
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("SIDLGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// SetDefaults installs the built-in defaults on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output", ".")
	v.SetDefault("target", "check")
	v.SetDefault("enforce", "none")
	v.SetDefault("test_mode", false)
	v.SetDefault("verbosity", 0)
	v.SetDefault("json_logs", false)
}

// findProjectConfig walks up from the working directory looking for a
// sidlgen.toml, so invocations from anywhere inside a source tree pick
// up the tree's settings.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, "sidlgen.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// mergeConfigFiles merges config files lowest precedence first: user
// config, then project config. Environment variables override both.
func mergeConfigFiles(v *viper.Viper) {
	var paths []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".sidlgen", "config.toml"))
	}
	if projectConfig := findProjectConfig(); projectConfig != "" {
		paths = append(paths, projectConfig)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fileViper := viper.New()
		fileViper.SetConfigFile(path)
		fileViper.SetConfigType("toml")
		if err := fileViper.ReadInConfig(); err != nil {
			continue
		}
		for key, value := range fileViper.AllSettings() {
			v.Set(key, value)
		}
	}
}
