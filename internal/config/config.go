package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/restyle"
	"git.home.luguber.info/inful/docrestyle/internal/retry"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "docrestyle.yaml"

// Config represents the application configuration.
type Config struct {
	Restyle RestyleConfig `yaml:"restyle"`
	Site    SiteConfig    `yaml:"site"`
	State   StateConfig   `yaml:"state"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Events  EventsConfig  `yaml:"events"`
}

// RestyleConfig maps generator markup onto the target framework's classes.
type RestyleConfig struct {
	Tables     TablesConfig     `yaml:"tables"`
	InlineCode InlineCodeConfig `yaml:"inline_code"`
	Search     SearchConfig     `yaml:"search"`
}

// TablesConfig selects generator tables and the classes they receive.
type TablesConfig struct {
	Selector    string   `yaml:"selector"`
	MarkerClass string   `yaml:"marker_class"`
	Classes     []string `yaml:"classes"`
	// Border is the value written to the legacy border attribute. An explicit
	// empty string removes the attribute instead.
	Border *string `yaml:"border,omitempty"`
}

// InlineCodeConfig selects inline literals and their replacement tag.
type InlineCodeConfig struct {
	Selector       string `yaml:"selector"`
	Tag            string `yaml:"tag"`
	ReferenceClass string `yaml:"reference_class"`
}

// SearchConfig names the search setup entry point called on page load.
type SearchConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	EntryPoint string `yaml:"entry_point"`
}

// SiteConfig describes the rendered site to post-process.
type SiteConfig struct {
	Root        string   `yaml:"root"`
	Extensions  []string `yaml:"extensions"`
	Exclude     []string `yaml:"exclude,omitempty"`
	Workers     int      `yaml:"workers"`
	Incremental *bool    `yaml:"incremental,omitempty"`
}

// StateConfig locates the SQLite state database. Empty keeps state in memory.
type StateConfig struct {
	Path string `yaml:"path,omitempty"`
}

// DaemonConfig controls watch mode.
type DaemonConfig struct {
	// HTTPAddr is the status server address. An explicit empty string
	// disables the server.
	HTTPAddr      *string `yaml:"http_addr,omitempty"`
	Debounce      string  `yaml:"debounce"`
	SweepInterval string  `yaml:"sweep_interval,omitempty"`
}

// EventsConfig enables NATS notifications for completed runs.
type EventsConfig struct {
	Enabled bool        `yaml:"enabled"`
	NATSURL string      `yaml:"nats_url,omitempty"`
	Subject string      `yaml:"subject"`
	Stream  string      `yaml:"stream"`
	Retry   RetryConfig `yaml:"retry"`
}

// RetryConfig controls republishing of run events after transient failures.
type RetryConfig struct {
	Backoff    string `yaml:"backoff"` // fixed|linear|exponential
	Initial    string `yaml:"initial"`
	Max        string `yaml:"max"`
	MaxRetries *int   `yaml:"max_retries,omitempty"`
}

// SearchEnabled reports whether the search hook should be injected.
func (c *Config) SearchEnabled() bool {
	return c.Restyle.Search.Enabled == nil || *c.Restyle.Search.Enabled
}

// IncrementalEnabled reports whether unchanged pages are skipped by hash.
func (c *Config) IncrementalEnabled() bool {
	return c.Site.Incremental == nil || *c.Site.Incremental
}

// RestyleOptions converts the restyle section into restyle.Options.
func (c *Config) RestyleOptions() restyle.Options {
	opts := restyle.Options{
		TableSelector:      c.Restyle.Tables.Selector,
		TableMarkerClass:   c.Restyle.Tables.MarkerClass,
		TableClasses:       c.Restyle.Tables.Classes,
		InlineCodeSelector: c.Restyle.InlineCode.Selector,
		InlineCodeTag:      c.Restyle.InlineCode.Tag,
		ReferenceClass:     c.Restyle.InlineCode.ReferenceClass,
	}
	if c.Restyle.Tables.Border != nil {
		opts.TableBorder = *c.Restyle.Tables.Border
	}
	if c.SearchEnabled() {
		opts.SearchEntryPoint = c.Restyle.Search.EntryPoint
	}
	return opts
}

// StatusAddr returns the status server address, or "" when it is disabled.
func (c *Config) StatusAddr() string {
	if c.Daemon.HTTPAddr == nil {
		return ""
	}
	return *c.Daemon.HTTPAddr
}

// DebounceDuration returns the parsed daemon debounce window.
func (c *Config) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Daemon.Debounce)
	return d
}

// SweepIntervalDuration returns the parsed sweep interval; zero disables sweeps.
func (c *Config) SweepIntervalDuration() time.Duration {
	if c.Daemon.SweepInterval == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Daemon.SweepInterval)
	return d
}

// EventsRetryPolicy returns the publish retry policy.
func (c *Config) EventsRetryPolicy() retry.Policy {
	r := c.Events.Retry
	initial, _ := time.ParseDuration(r.Initial)
	maxDelay, _ := time.ParseDuration(r.Max)
	maxRetries := -1
	if r.MaxRetries != nil {
		maxRetries = *r.MaxRetries
	}
	return retry.NewPolicy(retry.BackoffMode(r.Backoff), initial, maxDelay, maxRetries)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load loads, defaults and validates configuration from the specified file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError(errors.CategoryNotFound, "configuration file not found").
				WithContext("path", configPath).UserAction().Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).Build()
	}

	return Parse(data)
}

// LoadOptional behaves like Load but returns defaults when the file does not exist.
func LoadOptional(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if errors.HasCategory(err, errors.CategoryNotFound) {
		cfg = Default()
		return cfg, ValidateConfig(cfg)
	}
	return cfg, err
}

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").Build()
	}

	applyDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

const initHeader = `# docrestyle configuration
#
# restyle: how generator markup maps onto presentation classes
# site:    the rendered HTML tree to rewrite in place
# state:   SQLite file used to skip unchanged pages (empty keeps it in memory)
# daemon:  watch mode settings
# events:  optional NATS notification per run
`

// Init writes a default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal default config").Build()
	}

	if err := os.WriteFile(configPath, append([]byte(initHeader), data...), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}
