// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     config
// Description: TOML/YAML configuration for build, tokenizer and parser tools
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	pcerror "github.com/msto63/parsecheck/pkg/core/error"
	"github.com/msto63/parsecheck/pkg/core/logging"
)

// EnvConfigPath names the environment variable holding the config file path
const EnvConfigPath = "PARSECHECK_CONFIG"

// Config holds the complete application configuration
type Config struct {
	General   GeneralConfig   `toml:"general" yaml:"general"`
	Build     BuildConfig     `toml:"build" yaml:"build"`
	Tokenizer TokenizerConfig `toml:"tokenizer" yaml:"tokenizer"`
	Parser    ParserConfig    `toml:"parser" yaml:"parser"`
	Artifacts ArtifactsConfig `toml:"artifacts" yaml:"artifacts"`
	History   HistoryConfig   `toml:"history" yaml:"history"`

	// path of the file this configuration was loaded from, empty for defaults
	source string
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// BuildConfig describes how the tokenizer is cleaned and built
type BuildConfig struct {
	Dir         string   `toml:"dir" yaml:"dir"`
	Command     string   `toml:"command" yaml:"command"`
	CleanTarget string   `toml:"clean_target" yaml:"clean_target"`
	BuildTarget string   `toml:"build_target" yaml:"build_target"`
	SkipClean   bool     `toml:"skip_clean" yaml:"skip_clean"`
	SkipBuild   bool     `toml:"skip_build" yaml:"skip_build"`
	Timeout     Duration `toml:"timeout" yaml:"timeout"`
}

// TokenizerConfig describes the debug-tokens binary
type TokenizerConfig struct {
	Binary  string   `toml:"binary" yaml:"binary"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// ParserConfig describes the parser-interpreter invocation
type ParserConfig struct {
	Command      string   `toml:"command" yaml:"command"`
	Args         []string `toml:"args" yaml:"args"`
	Grammar      string   `toml:"grammar" yaml:"grammar"`
	Timeout      Duration `toml:"timeout" yaml:"timeout"`
	FailOnReject *bool    `toml:"fail_on_reject" yaml:"fail_on_reject"`
}

// ArtifactsConfig controls where per-run workspaces are created
type ArtifactsConfig struct {
	Root string `toml:"root" yaml:"root"`
	Keep bool   `toml:"keep" yaml:"keep"`
}

// HistoryConfig controls the run history store
type HistoryConfig struct {
	Enabled *bool  `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Default returns the configuration that reproduces the classic layout:
// make clean, make debugtokens, ./debugtokens.native and
// menhir --interpret --interpret-show-cst parser.mly in the current directory
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML or YAML file, chosen by extension
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pcerror.Newf("config file not found: %s", path).WithCode(pcerror.CodeConfigError)
		}
		return nil, pcerror.Wrap(err, "failed to read config").WithCode(pcerror.CodeConfigError)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, pcerror.Wrap(err, "failed to parse config").WithCode(pcerror.CodeInvalidConfig)
		}
	default:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, pcerror.Wrap(err, "failed to parse config").WithCode(pcerror.CodeInvalidConfig)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, pcerror.Newf("unknown config keys: %v", undecoded).WithCode(pcerror.CodeInvalidConfig)
		}
	}

	cfg.source = path
	cfg.applyDefaults()
	cfg.expandEnvVars()

	return &cfg, nil
}

// Discover resolves the configuration file: explicit path, then
// PARSECHECK_CONFIG, then the default locations. Without any file the
// built-in defaults are used. Environment overrides apply in every case.
func Discover(explicit string) (*Config, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		for _, p := range DefaultPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// DefaultPaths lists the locations searched for a configuration file
func DefaultPaths() []string {
	paths := []string{
		"./parsecheck.toml",
		"./parsecheck.yaml",
		"./configs/parsecheck.toml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "parsecheck", "config.toml"))
	}
	return paths
}

// Source returns the file the configuration was loaded from
func (c *Config) Source() string {
	return c.source
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "text"
	}

	if c.Build.Dir == "" {
		c.Build.Dir = "."
	}
	if c.Build.Command == "" {
		c.Build.Command = "make"
	}
	if c.Build.CleanTarget == "" {
		c.Build.CleanTarget = "clean"
	}
	if c.Build.BuildTarget == "" {
		c.Build.BuildTarget = "debugtokens"
	}
	if c.Build.Timeout.Duration == 0 {
		c.Build.Timeout.Duration = 10 * time.Minute
	}

	if c.Tokenizer.Binary == "" {
		c.Tokenizer.Binary = "./debugtokens.native"
	}
	if c.Tokenizer.Timeout.Duration == 0 {
		c.Tokenizer.Timeout.Duration = time.Minute
	}

	if c.Parser.Command == "" {
		c.Parser.Command = "menhir"
	}
	if c.Parser.Args == nil {
		c.Parser.Args = []string{"--interpret", "--interpret-show-cst"}
	}
	if c.Parser.Grammar == "" {
		c.Parser.Grammar = "parser.mly"
	}
	if c.Parser.Timeout.Duration == 0 {
		c.Parser.Timeout.Duration = time.Minute
	}
	if c.Parser.FailOnReject == nil {
		v := true
		c.Parser.FailOnReject = &v
	}

	if c.History.Enabled == nil {
		v := true
		c.History.Enabled = &v
	}
	if c.History.Path == "" {
		c.History.Path = defaultHistoryPath()
	}
}

func defaultHistoryPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "parsecheck", "history.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "parsecheck", "history.db")
	}
	return filepath.Join(os.TempDir(), "parsecheck-history.db")
}

// expandEnvVars expands environment variables in path values
func (c *Config) expandEnvVars() {
	c.Build.Dir = os.ExpandEnv(c.Build.Dir)
	c.Tokenizer.Binary = os.ExpandEnv(c.Tokenizer.Binary)
	c.Parser.Grammar = os.ExpandEnv(c.Parser.Grammar)
	c.Artifacts.Root = os.ExpandEnv(c.Artifacts.Root)
	c.History.Path = os.ExpandEnv(c.History.Path)
}

// applyEnvOverrides applies PARSECHECK_* variables on top of file values
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PARSECHECK_BUILD_DIR"); v != "" {
		c.Build.Dir = v
	}
	if v := os.Getenv("PARSECHECK_TOKENIZER"); v != "" {
		c.Tokenizer.Binary = v
	}
	if v := os.Getenv("PARSECHECK_GRAMMAR"); v != "" {
		c.Parser.Grammar = v
	}
	if v := os.Getenv("PARSECHECK_PARSER"); v != "" {
		c.Parser.Command = v
	}
	if v := os.Getenv("PARSECHECK_LOG_LEVEL"); v != "" {
		c.General.LogLevel = v
	}
}

// Validate checks the configuration for values no run could succeed with
func (c *Config) Validate() error {
	var problems []string

	if _, err := logging.ParseLevel(c.General.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := logging.ParseFormat(c.General.LogFormat); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(c.Build.Command) == "" && !(c.Build.SkipClean && c.Build.SkipBuild) {
		problems = append(problems, "build.command must not be empty")
	}
	if strings.TrimSpace(c.Tokenizer.Binary) == "" {
		problems = append(problems, "tokenizer.binary must not be empty")
	}
	if strings.TrimSpace(c.Parser.Command) == "" {
		problems = append(problems, "parser.command must not be empty")
	}
	if strings.TrimSpace(c.Parser.Grammar) == "" {
		problems = append(problems, "parser.grammar must not be empty")
	}
	for name, d := range map[string]Duration{
		"build.timeout":     c.Build.Timeout,
		"tokenizer.timeout": c.Tokenizer.Timeout,
		"parser.timeout":    c.Parser.Timeout,
	} {
		if d.Duration < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative", name))
		}
	}

	if len(problems) > 0 {
		return pcerror.New("invalid configuration: "+strings.Join(problems, "; ")).
			WithCode(pcerror.CodeInvalidConfig).
			WithDetail("problems", len(problems))
	}
	return nil
}

// TokenizerPath returns the absolute tokenizer binary path; relative
// values are resolved against the build directory
func (c *Config) TokenizerPath() string {
	return c.resolve(c.Tokenizer.Binary)
}

// GrammarPath returns the absolute grammar path; relative values are
// resolved against the build directory
func (c *Config) GrammarPath() string {
	return c.resolve(c.Parser.Grammar)
}

// ArtifactRoot returns the directory per-run workspaces are created in
func (c *Config) ArtifactRoot() string {
	if c.Artifacts.Root == "" {
		return os.TempDir()
	}
	return c.Artifacts.Root
}

// HistoryEnabled reports whether runs are recorded
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled != nil && *c.History.Enabled
}

// FailOnReject reports whether a REJECT or OVERSHOOT verdict fails the run
func (c *Config) FailOnReject() bool {
	return c.Parser.FailOnReject == nil || *c.Parser.FailOnReject
}

// SetAllTimeouts overrides every stage timeout
func (c *Config) SetAllTimeouts(d time.Duration) {
	c.Build.Timeout.Duration = d
	c.Tokenizer.Timeout.Duration = d
	c.Parser.Timeout.Duration = d
}

// resolve always yields an absolute path: exec evaluates relative command
// paths against the child's working directory, not ours.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	joined := filepath.Join(c.Build.Dir, p)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return joined
	}
	return abs
}

// BuildDir returns the absolute build directory
func (c *Config) BuildDir() string {
	abs, err := filepath.Abs(c.Build.Dir)
	if err != nil {
		return c.Build.Dir
	}
	return abs
}
