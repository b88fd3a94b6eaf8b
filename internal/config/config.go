// Package config holds the sync settings: YAML file over documented
// defaults, environment overrides, and validation. CLI flags are
// applied on top by the command layer before Validate runs.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for everything a config file may omit.
const (
	DefaultLocal          = "."
	DefaultListing        = "recursive"
	DefaultTransfers      = 4
	DefaultCommandTimeout = "90s"
)

// Config is the full configuration of one sync invocation.
type Config struct {
	// Remote is the public MEGA folder link to mirror.
	Remote string `yaml:"remote"`
	// Local is the directory the remote tree is mirrored into.
	Local string `yaml:"local"`
	// Listing selects the enumeration strategy: "recursive" (one
	// listing call for the whole tree) or "walk" (shallow listing per
	// directory).
	Listing string `yaml:"listing"`
	// Transfers bounds concurrent fetch dispatches.
	Transfers int `yaml:"transfers"`
	// CommandTimeout bounds each MEGAcmd invocation, e.g. "90s".
	CommandTimeout string `yaml:"command_timeout"`
	// LogFile, when set, receives the full debug log stream in
	// addition to the console.
	LogFile string `yaml:"log_file"`

	timeout time.Duration
}

// Default returns the configuration used when no file or flags say
// otherwise. Remote has no default; it must be configured.
func Default() *Config {
	return &Config{
		Local:          DefaultLocal,
		Listing:        DefaultListing,
		Transfers:      DefaultTransfers,
		CommandTimeout: DefaultCommandTimeout,
	}
}

// Load reads the YAML file at path and unmarshals it over the
// defaults. A missing file is not an error: the defaults are returned
// unchanged. Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets the folder link stay out of config files and
// shell history.
func (c *Config) applyEnvOverrides() {
	if link := os.Getenv("MEGAMIRROR_REMOTE"); link != "" {
		c.Remote = link
	}
	if file := os.Getenv("MEGAMIRROR_LOG_FILE"); file != "" {
		c.LogFile = file
	}
}

// Validate checks the assembled configuration and caches the parsed
// timeout. It must pass before the config is used.
func (c *Config) Validate() error {
	if c.Remote == "" {
		return errors.New("remote folder link is required (config \"remote\", flag --remote or MEGAMIRROR_REMOTE)")
	}
	u, err := url.Parse(c.Remote)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote %q is not a folder link", c.Remote)
	}
	if c.Local == "" {
		return errors.New("local directory is required")
	}
	if c.Listing != "recursive" && c.Listing != "walk" {
		return fmt.Errorf("listing %q: must be \"recursive\" or \"walk\"", c.Listing)
	}
	if c.Transfers < 1 {
		return fmt.Errorf("transfers %d: must be at least 1", c.Transfers)
	}
	d, err := time.ParseDuration(c.CommandTimeout)
	if err != nil {
		return fmt.Errorf("command_timeout %q: %w", c.CommandTimeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("command_timeout %q: must be positive", c.CommandTimeout)
	}
	c.timeout = d
	return nil
}

// Timeout is the parsed per-command timeout. Valid after Validate.
func (c *Config) Timeout() time.Duration {
	return c.timeout
}
