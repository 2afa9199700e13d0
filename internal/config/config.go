// Package config loads and validates loom.toml, the ambient configuration
// file covering state directory override, trunk override,
// debounce/timeout/poll intervals, and the host API base URL.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved, defaulted configuration for one process.
type Config struct {
	StateDir          string        `mapstructure:"state_dir"`
	Trunk             string        `mapstructure:"trunk"`
	DebounceInterval  time.Duration `mapstructure:"debounce_interval"`
	SubprocessTimeout time.Duration `mapstructure:"subprocess_timeout"`
	MergePollInterval time.Duration `mapstructure:"merge_poll_interval"`
	MergePollTimeout  time.Duration `mapstructure:"merge_poll_timeout"`
	HostAPIBaseURL    string        `mapstructure:"host_api_base_url"`
}

// Defaults applied when loom.toml omits a field.
const (
	DefaultDebounceInterval  = 500 * time.Millisecond
	DefaultSubprocessTimeout = 10 * time.Second
	DefaultMergePollInterval = 2 * time.Second
	DefaultMergePollTimeout  = 60 * time.Second
	DefaultHostAPIBaseURL    = "https://api.github.com"
)

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".loom"
	}
	return filepath.Join(home, ".loom")
}

// Load reads loom.toml at path. A missing config file is not an error;
// defaults apply. LOOM_-prefixed environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("LOOM")
	v.AutomaticEnv()

	v.SetDefault("state_dir", defaultStateDir())
	v.SetDefault("debounce_interval", DefaultDebounceInterval)
	v.SetDefault("subprocess_timeout", DefaultSubprocessTimeout)
	v.SetDefault("merge_poll_interval", DefaultMergePollInterval)
	v.SetDefault("merge_poll_timeout", DefaultMergePollTimeout)
	v.SetDefault("host_api_base_url", DefaultHostAPIBaseURL)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate checks a loaded config for obviously-broken values, returning
// one error per problem so the CLI can print them all before exiting 2.
func Validate(cfg *Config) []error {
	var errs []error
	if cfg.StateDir == "" {
		errs = append(errs, fmt.Errorf("state_dir must not be empty"))
	}
	if cfg.DebounceInterval <= 0 {
		errs = append(errs, fmt.Errorf("debounce_interval must be positive"))
	}
	if cfg.SubprocessTimeout <= 0 {
		errs = append(errs, fmt.Errorf("subprocess_timeout must be positive"))
	}
	if cfg.MergePollInterval <= 0 {
		errs = append(errs, fmt.Errorf("merge_poll_interval must be positive"))
	}
	if cfg.MergePollTimeout <= 0 || cfg.MergePollTimeout < cfg.MergePollInterval {
		errs = append(errs, fmt.Errorf("merge_poll_timeout must be positive and >= merge_poll_interval"))
	}
	if cfg.HostAPIBaseURL == "" {
		errs = append(errs, fmt.Errorf("host_api_base_url must not be empty"))
	}
	return errs
}
