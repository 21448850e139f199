// Package config materializes all runtime configuration at startup: an
// optional YAML file, overridden by KKH_* environment variables, validated
// once and then passed around as an explicit struct. Nothing in the pipeline
// reads configuration ambiently after this.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kakehashi/kakehashi/common/environment"
	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

// Resolver strategy names accepted in the config.
const (
	ResolverParser = "parser"
	ResolverModel  = "model"
)

// Matrix is the chat front-end configuration.
type Matrix struct {
	Homeserver  string   `yaml:"homeserver"`
	UserID      string   `yaml:"user_id"`
	AccessToken string   `yaml:"access_token"`
	Rooms       []string `yaml:"rooms"`
}

// Backend holds the credential triple for one backend family. A family with
// an incomplete triple runs in mock mode.
type Backend struct {
	URL      string `yaml:"url"`
	Email    string `yaml:"email"`
	APIToken string `yaml:"api_token"`
}

// configured reports whether the full credential triple is present.
func (b Backend) configured() bool {
	return b.URL != "" && b.Email != "" && b.APIToken != ""
}

// Model is the text-generation endpoint configuration.
type Model struct {
	URL     string        `yaml:"url"`
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config is the full runtime configuration.
type Config struct {
	Matrix   Matrix  `yaml:"matrix"`
	Tracker  Backend `yaml:"tracker"`
	Wiki     Backend `yaml:"wiki"`
	Resolver string  `yaml:"resolver"`
	Model    Model   `yaml:"model"`

	// DatabasePath is the SQLite file holding the Matrix sync position.
	DatabasePath string `yaml:"database_path"`

	// BackendTimeout bounds each tracker/wiki HTTP call.
	BackendTimeout time.Duration `yaml:"backend_timeout"`
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, fills defaults, and
// validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Environment-only configuration is fine.
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Matrix.Homeserver = environment.StringOr("KKH_MATRIX_HOMESERVER", c.Matrix.Homeserver)
	c.Matrix.UserID = environment.StringOr("KKH_MATRIX_USER_ID", c.Matrix.UserID)
	c.Matrix.AccessToken = environment.StringOr("KKH_MATRIX_ACCESS_TOKEN", c.Matrix.AccessToken)
	c.Matrix.Rooms = environment.StringSliceOr("KKH_MATRIX_ROOMS", c.Matrix.Rooms)

	c.Tracker.URL = environment.StringOr("KKH_TRACKER_URL", c.Tracker.URL)
	c.Tracker.Email = environment.StringOr("KKH_TRACKER_EMAIL", c.Tracker.Email)
	c.Tracker.APIToken = environment.StringOr("KKH_TRACKER_TOKEN", c.Tracker.APIToken)

	c.Wiki.URL = environment.StringOr("KKH_WIKI_URL", c.Wiki.URL)
	c.Wiki.Email = environment.StringOr("KKH_WIKI_EMAIL", c.Wiki.Email)
	c.Wiki.APIToken = environment.StringOr("KKH_WIKI_TOKEN", c.Wiki.APIToken)

	c.Resolver = environment.StringOr("KKH_RESOLVER", c.Resolver)
	c.Model.URL = environment.StringOr("KKH_MODEL_URL", c.Model.URL)
	c.Model.Name = environment.StringOr("KKH_MODEL_NAME", c.Model.Name)
	c.Model.Timeout = environment.DurationOr("KKH_MODEL_TIMEOUT", c.Model.Timeout)

	c.DatabasePath = environment.StringOr("KKH_DATABASE_PATH", c.DatabasePath)
	c.BackendTimeout = environment.DurationOr("KKH_BACKEND_TIMEOUT", c.BackendTimeout)
}

func (c *Config) applyDefaults() {
	if c.Resolver == "" {
		c.Resolver = ResolverParser
	}
	if c.Model.Timeout == 0 {
		c.Model.Timeout = 60 * time.Second
	}
	if c.BackendTimeout == 0 {
		c.BackendTimeout = 15 * time.Second
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "kakehashi.db"
	}

	// A wiki with no credentials of its own shares the tracker's account,
	// the common single-site Atlassian setup. The wiki URL stays its own
	// setting; credential fallback does not imply URL fallback.
	if c.Wiki.URL != "" && (c.Wiki.Email == "" || c.Wiki.APIToken == "") {
		c.Wiki.Email = c.Tracker.Email
		c.Wiki.APIToken = c.Tracker.APIToken
	}
}

// Validate rejects configurations the process cannot run with.
func (c *Config) Validate() error {
	switch c.Resolver {
	case ResolverParser, ResolverModel:
	default:
		return fmt.Errorf("config: unknown resolver %q (want %q or %q)",
			c.Resolver, ResolverParser, ResolverModel)
	}
	for _, room := range c.Matrix.Rooms {
		if !strings.HasPrefix(room, "!") {
			return fmt.Errorf("config: %q is not a room ID (room IDs start with '!')", room)
		}
	}
	return nil
}

// TrackerMode derives the issue-tracker execution mode from credential
// presence.
func (c *Config) TrackerMode() tools.Mode {
	if c.Tracker.configured() {
		return tools.Live
	}
	return tools.Mock
}

// WikiMode derives the wiki execution mode from credential presence, after
// the tracker-credential fallback has been applied.
func (c *Config) WikiMode() tools.Mode {
	if c.Wiki.configured() {
		return tools.Live
	}
	return tools.Mock
}
