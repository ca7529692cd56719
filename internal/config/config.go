package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"archlens/internal/paths"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// SupportedConfigVersions lists schema versions LoadConfig accepts.
var SupportedConfigVersions = []int{1}

// ConfigPlaceholder is replaced with the rule config path in Analyzer.ConfigArgs.
const ConfigPlaceholder = "{config}"

// EnvPrefix prefixes every environment override, e.g. ARCHLENS_ANALYZER_TIMEOUTMS.
const EnvPrefix = "ARCHLENS"

// Config represents the archlens configuration
type Config struct {
	Version  int            `json:"version" mapstructure:"version"`
	Analyzer AnalyzerConfig `json:"analyzer" mapstructure:"analyzer"`
	Rules    RulesConfig    `json:"rules" mapstructure:"rules"`
	History  HistoryConfig  `json:"history" mapstructure:"history"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// AnalyzerConfig describes the external dependency analyzer process
type AnalyzerConfig struct {
	Command           string   `json:"command" mapstructure:"command"`
	Args              []string `json:"args" mapstructure:"args"`
	ConfigArgs        []string `json:"configArgs" mapstructure:"configArgs"`
	TimeoutMs         int      `json:"timeoutMs" mapstructure:"timeoutMs"`
	VersionConstraint string   `json:"versionConstraint,omitempty" mapstructure:"versionConstraint"`
	Builtin           bool     `json:"builtin" mapstructure:"builtin"`
}

// RulesConfig contains rule engine settings that apply when the
// project's rule document does not set them.
type RulesConfig struct {
	EntryBloatThreshold int    `json:"entryBloatThreshold" mapstructure:"entryBloatThreshold"`
	ConfigFile          string `json:"configFile,omitempty" mapstructure:"configFile"`
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path,omitempty" mapstructure:"path"`
	Keep    int    `json:"keep" mapstructure:"keep"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file,omitempty" mapstructure:"file"`
	MaxSize    string `json:"maxSize,omitempty" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Analyzer: AnalyzerConfig{
			Command:    "depcruise",
			Args:       []string{"--output-type", "json"},
			ConfigArgs: []string{"--config", ConfigPlaceholder},
			TimeoutMs:  60000,
		},
		Rules: RulesConfig{
			EntryBloatThreshold: 15,
		},
		History: HistoryConfig{
			Enabled: false,
			Keep:    100,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "warn",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// Timeout returns the analyzer deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Analyzer.TimeoutMs) * time.Millisecond
}

// HistoryPath resolves the history database location for a project root.
func (c *Config) HistoryPath(repoRoot string) string {
	if c.History.Path == "" {
		return paths.HistoryPath(repoRoot)
	}
	if filepath.IsAbs(c.History.Path) {
		return c.History.Path
	}
	return filepath.Join(repoRoot, c.History.Path)
}

func newViper() *viper.Viper {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("analyzer.command", def.Analyzer.Command)
	v.SetDefault("analyzer.args", def.Analyzer.Args)
	v.SetDefault("analyzer.configArgs", def.Analyzer.ConfigArgs)
	v.SetDefault("analyzer.timeoutMs", def.Analyzer.TimeoutMs)
	v.SetDefault("analyzer.versionConstraint", def.Analyzer.VersionConstraint)
	v.SetDefault("analyzer.builtin", def.Analyzer.Builtin)
	v.SetDefault("rules.entryBloatThreshold", def.Rules.EntryBloatThreshold)
	v.SetDefault("rules.configFile", def.Rules.ConfigFile)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.path", def.History.Path)
	v.SetDefault("history.keep", def.History.Keep)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.maxSize", def.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", def.Logging.MaxBackups)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from <repoRoot>/.archlens/config.{json,yaml,toml}.
// A missing file yields the defaults with environment overrides applied.
func LoadConfig(repoRoot string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(paths.DataDir(repoRoot))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return decode(v)
}

// LoadConfigFromPath loads configuration from an explicit file. The file must exist.
func LoadConfigFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to .archlens/config.json
func (c *Config) Save(repoRoot string) error {
	dir, err := paths.EnsureDataDir(repoRoot)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	supported := false
	for _, v := range SupportedConfigVersions {
		if c.Version == v {
			supported = true
		}
	}
	if !supported {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported version %d", c.Version)}
	}
	if strings.TrimSpace(c.Analyzer.Command) == "" && !c.Analyzer.Builtin {
		return &ConfigError{Field: "analyzer.command", Message: "must not be empty"}
	}
	if c.Analyzer.TimeoutMs <= 0 {
		return &ConfigError{Field: "analyzer.timeoutMs", Message: "must be positive"}
	}
	if c.Rules.EntryBloatThreshold < 0 {
		return &ConfigError{Field: "rules.entryBloatThreshold", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
