// Package config handles configuration loading and validation for codetribute.
package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/styles"
)

// Bugzilla statuses considered open enough to pick up.
var defaultStatuses = []string{"NEW", "UNCONFIRMED", "ASSIGNED", "REOPENED"}

// Accounts Bugzilla uses when a bug has no real owner.
var defaultUnassigned = []string{
	"nobody@mozilla.org",
	"nobody@bugzilla.bugs",
	"@mozilla.bugs",
}

// Language names (lowercase) mapped to their Bugzilla whiteboard lang= value.
var defaultLanguages = map[string]string{
	"c":          "c",
	"c++":        "c++",
	"css":        "css",
	"html":       "html",
	"java":       "java",
	"javascript": "js",
	"kotlin":     "kotlin",
	"python":     "python",
	"rust":       "rust",
	"shell":      "shell",
	"swift":      "swift",
}

// Config holds the application configuration.
type Config struct {
	GitHub      GitHubConfig   `yaml:"github"`
	Bugzilla    BugzillaConfig `yaml:"bugzilla"`
	ProjectsDir string         `yaml:"projects_dir"` // empty uses the built-in project list
	Workers     int            `yaml:"workers"`
	HTTPTimeout time.Duration  `yaml:"http_timeout"`
	Cache       CacheConfig    `yaml:"cache"`
	Theme       string         `yaml:"theme"`
}

// GitHubConfig configures the GitHub search transport. Endpoint is the REST
// API root.
type GitHubConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	PageSize int    `yaml:"page_size"`
}

// BugzillaConfig configures the Bugzilla REST search transport.
type BugzillaConfig struct {
	Endpoint   string            `yaml:"endpoint"`
	BugURL     string            `yaml:"bug_url"`
	PageSize   int               `yaml:"page_size"`
	Keyword    string            `yaml:"keyword"`
	Statuses   []string          `yaml:"statuses"`
	Unassigned []string          `yaml:"unassigned"`
	Languages  map[string]string `yaml:"languages"`
}

// CacheConfig configures the response cache wrapped around both transports.
type CacheConfig struct {
	Enabled       *bool         `yaml:"enabled"` // nil means enabled
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// IsEnabled reports whether response caching is on.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitHub: GitHubConfig{
			Endpoint: "https://api.github.com/",
			PageSize: 100,
		},
		Bugzilla: BugzillaConfig{
			Endpoint:   "https://bugzilla.mozilla.org/rest",
			BugURL:     "https://bugzilla.mozilla.org/show_bug.cgi?id=",
			PageSize:   100,
			Keyword:    "good-first-bug",
			Statuses:   slices.Clone(defaultStatuses),
			Unassigned: slices.Clone(defaultUnassigned),
			Languages:  maps.Clone(defaultLanguages),
		},
		Workers:     4,
		HTTPTimeout: 30 * time.Second,
		Cache: CacheConfig{
			TTL:           5 * time.Minute,
			SweepInterval: time.Minute,
		},
		Theme: styles.DefaultTheme,
	}
}

// Load reads configuration from the given path.
// If configPath is empty or doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.GitHub.Endpoint == "" {
		c.GitHub.Endpoint = defaults.GitHub.Endpoint
	}
	if c.GitHub.PageSize == 0 {
		c.GitHub.PageSize = defaults.GitHub.PageSize
	}
	if c.Bugzilla.Endpoint == "" {
		c.Bugzilla.Endpoint = defaults.Bugzilla.Endpoint
	}
	if c.Bugzilla.BugURL == "" {
		c.Bugzilla.BugURL = defaults.Bugzilla.BugURL
	}
	if c.Bugzilla.PageSize == 0 {
		c.Bugzilla.PageSize = defaults.Bugzilla.PageSize
	}
	if c.Bugzilla.Keyword == "" {
		c.Bugzilla.Keyword = defaults.Bugzilla.Keyword
	}
	if len(c.Bugzilla.Statuses) == 0 {
		c.Bugzilla.Statuses = defaults.Bugzilla.Statuses
	}
	if c.Bugzilla.Unassigned == nil {
		c.Bugzilla.Unassigned = defaults.Bugzilla.Unassigned
	}
	if c.Bugzilla.Languages == nil {
		c.Bugzilla.Languages = defaults.Bugzilla.Languages
	}
	if c.Workers == 0 {
		c.Workers = defaults.Workers
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = defaults.HTTPTimeout
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaults.Cache.TTL
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = defaults.Cache.SweepInterval
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if c.GitHub.PageSize < 1 || c.GitHub.PageSize > 100 {
		return fmt.Errorf("github.page_size must be between 1 and 100")
	}

	if c.Bugzilla.PageSize < 1 {
		return fmt.Errorf("bugzilla.page_size must be at least 1")
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative")
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}

	if _, ok := styles.GetPalette(c.Theme); !ok {
		return fmt.Errorf("theme %q is not one of %s", c.Theme, strings.Join(styles.ThemeNames(), ", "))
	}

	return nil
}

// Language returns the whiteboard lang= value for a language name,
// matched case-insensitively.
func (c BugzillaConfig) Language(language string) (string, bool) {
	if v, ok := c.Languages[language]; ok {
		return v, true
	}
	for k, v := range c.Languages {
		if strings.EqualFold(k, language) {
			return v, true
		}
	}
	return "", false
}
