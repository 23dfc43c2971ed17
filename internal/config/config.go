// Package config handles configuration loading and validation for fixnames.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"fixnames/internal/audit"
	"fixnames/internal/charset"
	"fixnames/internal/normalizer"
	"fixnames/internal/organizer"
	"fixnames/internal/scanner"
	"fixnames/internal/substitution"
	"fixnames/internal/watcher"
)

// EnvPrefix prefixes the environment variables that override config keys,
// e.g. FIXNAMES_FS_ENCODING or FIXNAMES_WATCH_DEBOUNCE_MS.
const EnvPrefix = "FIXNAMES"

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidFormat   ConfigErrorType = "INVALID_FORMAT"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidFormat:
		return fmt.Sprintf("cannot parse configuration file %s: %s", e.Path, e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SubstitutionRule is one literal replacement from the config file.
type SubstitutionRule struct {
	From string `mapstructure:"from" yaml:"from" validate:"required"`
	To   string `mapstructure:"to" yaml:"to"`
}

// WatchSettings configures watch mode.
type WatchSettings struct {
	DebounceMs        int      `mapstructure:"debounce_ms" yaml:"debounce_ms" validate:"gte=0"`
	StableThresholdMs int      `mapstructure:"stable_threshold_ms" yaml:"stable_threshold_ms" validate:"gte=0"`
	IgnorePatterns    []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns,omitempty"`
}

// Config holds all settings for fixnames.
type Config struct {
	Root            string `mapstructure:"root" yaml:"root,omitempty"`
	FollowLinks     bool   `mapstructure:"follow_links" yaml:"follow_links"`
	Verbose         bool   `mapstructure:"verbose" yaml:"verbose"`
	TargetEncoding  string `mapstructure:"target_encoding" yaml:"target_encoding" validate:"required"`
	FSEncoding      string `mapstructure:"fs_encoding" yaml:"fs_encoding" validate:"required"`
	StripDiacritics bool   `mapstructure:"strip_diacritics" yaml:"strip_diacritics"`
	CollisionPolicy string `mapstructure:"collision_policy" yaml:"collision_policy" validate:"required,oneof=suffix skip"`

	// Cascade lists decode strategies in order; empty selects the default cascade.
	Cascade []string `mapstructure:"cascade" yaml:"cascade,omitempty" validate:"dive,required"`

	PruneDirs  []string `mapstructure:"prune_dirs" yaml:"prune_dirs"`
	PruneFiles []string `mapstructure:"prune_files" yaml:"prune_files"`

	// Substitutions run after the built-in table, or instead of it when
	// ReplaceSubstitutions is set.
	Substitutions        []SubstitutionRule `mapstructure:"substitutions" yaml:"substitutions,omitempty" validate:"dive"`
	ReplaceSubstitutions bool               `mapstructure:"replace_substitutions" yaml:"replace_substitutions"`

	// Journal is decoded by audit.DecodeOptions.
	Journal map[string]any `mapstructure:"journal" yaml:"journal,omitempty"`

	Watch WatchSettings `mapstructure:"watch" yaml:"watch"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	watch := watcher.DefaultWatchConfig()
	cfg := &Config{
		Watch: WatchSettings{
			DebounceMs:        watch.DebounceMs,
			StableThresholdMs: watch.StableThresholdMs,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued settings. Boolean switches stay as they are.
func ApplyDefaults(cfg *Config) {
	if cfg.TargetEncoding == "" {
		cfg.TargetEncoding = string(charset.UTF8)
	}
	if cfg.FSEncoding == "" {
		cfg.FSEncoding = string(charset.UTF8)
	}
	cfg.CollisionPolicy = strings.ToLower(strings.TrimSpace(cfg.CollisionPolicy))
	if cfg.CollisionPolicy == "" {
		cfg.CollisionPolicy = string(organizer.PolicySuffix)
	}
	if cfg.PruneDirs == nil {
		cfg.PruneDirs = append([]string(nil), scanner.DefaultPruneDirs...)
	}
	if cfg.PruneFiles == nil {
		cfg.PruneFiles = append([]string(nil), scanner.DefaultPruneFiles...)
	}
	if cfg.Journal == nil {
		opts := audit.DefaultOptions()
		cfg.Journal = map[string]any{
			"enabled":       opts.Enabled,
			"directory":     opts.Directory,
			"rotation_size": opts.RotationSize,
		}
	}
	if cfg.Watch.IgnorePatterns == nil {
		cfg.Watch.IgnorePatterns = watcher.DefaultIgnorePatterns()
	}
}

// Load reads the configuration with Read and validates it.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the configuration without validating it.
//
// Precedence (highest to lowest):
//  1. Environment variables (FIXNAMES_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath searches the user config directory; finding nothing
// there is not an error. An explicit path must exist.
func Read(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Type: InvalidFormat, Path: v.ConfigFileUsed(), Message: err.Error(), Err: err}
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// setupViper registers defaults, environment variables and config file search.
func setupViper(v *viper.Viper, configPath string) {
	defaults := Default()
	v.SetDefault("root", "")
	v.SetDefault("follow_links", false)
	v.SetDefault("verbose", false)
	v.SetDefault("target_encoding", defaults.TargetEncoding)
	v.SetDefault("fs_encoding", defaults.FSEncoding)
	v.SetDefault("strip_diacritics", false)
	v.SetDefault("collision_policy", defaults.CollisionPolicy)
	v.SetDefault("replace_substitutions", false)
	for key, value := range defaults.Journal {
		v.SetDefault("journal."+key, value)
	}
	v.SetDefault("watch.debounce_ms", watcher.DefaultWatchConfig().DebounceMs)
	v.SetDefault("watch.stable_threshold_ms", watcher.DefaultWatchConfig().StableThresholdMs)

	// Example: FIXNAMES_JOURNAL_ENABLED=false
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getConfigDir())
}

// readConfigFile reads the configuration file if there is one.
func readConfigFile(v *viper.Viper, configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &ConfigError{Type: FileNotFound, Path: configPath, Err: err}
			}
			return &ConfigError{Type: InvalidFormat, Path: configPath, Message: err.Error(), Err: err}
		}
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	path := v.ConfigFileUsed()
	if path == "" {
		path = configPath
	}
	return &ConfigError{Type: InvalidFormat, Path: path, Message: err.Error(), Err: err}
}

// getConfigDir returns $XDG_CONFIG_HOME/fixnames, ~/.config/fixnames, or "."
// when no home directory is known.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fixnames")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "fixnames")
}

// DefaultConfigPath returns where init-config writes by default.
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// Save writes cfg as YAML, creating the parent directory if needed.
func Save(cfg *Config, filePath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return &ConfigError{Type: InvalidFormat, Path: filePath, Message: err.Error(), Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// Policy returns the parsed collision policy.
func (c *Config) Policy() (organizer.CollisionPolicy, error) {
	return organizer.ParseCollisionPolicy(c.CollisionPolicy)
}

// PruneSets returns the configured prune sets.
func (c *Config) PruneSets() scanner.PruneSets {
	return scanner.NewPruneSets(c.PruneDirs, c.PruneFiles)
}

// Detector builds the decode cascade.
func (c *Config) Detector() (*charset.Detector, error) {
	if len(c.Cascade) == 0 {
		return charset.DefaultDetector(), nil
	}
	strategies := make([]charset.Strategy, 0, len(c.Cascade))
	for i, name := range c.Cascade {
		s, err := charset.StrategyByName(name)
		if err != nil {
			return nil, fmt.Errorf("cascade[%d]: %w", i, err)
		}
		strategies = append(strategies, s)
	}
	return charset.NewDetector(strategies...), nil
}

// Table builds the substitution table.
func (c *Config) Table() (*substitution.Table, error) {
	var rules []substitution.Rule
	if !c.ReplaceSubstitutions {
		rules = substitution.DefaultRules()
	}
	for _, r := range c.Substitutions {
		rules = append(rules, substitution.Rule{From: r.From, To: r.To})
	}
	return substitution.NewTable(rules)
}

// Normalizer builds the name normalizer.
func (c *Config) Normalizer() (*normalizer.Normalizer, error) {
	detector, err := c.Detector()
	if err != nil {
		return nil, err
	}
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	return normalizer.New(normalizer.Config{
		Detector:        detector,
		Table:           table,
		StripDiacritics: c.StripDiacritics,
		TargetEncoding:  c.TargetEncoding,
		FSEncoding:      c.FSEncoding,
	})
}

// JournalOptions decodes the journal section.
func (c *Config) JournalOptions() (audit.Options, error) {
	return audit.DecodeOptions(c.Journal)
}

// WatchConfig returns the watcher settings.
func (c *Config) WatchConfig() *watcher.WatchConfig {
	return &watcher.WatchConfig{
		DebounceMs:        c.Watch.DebounceMs,
		StableThresholdMs: c.Watch.StableThresholdMs,
		IgnorePatterns:    c.Watch.IgnorePatterns,
	}
}
