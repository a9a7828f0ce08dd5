package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default GitHub endpoints.
const (
	DefaultAPIURL     = "https://api.github.com"
	DefaultGraphQLURL = "https://api.github.com/graphql"
)

// DefaultLogLevel keeps stderr quiet unless something goes wrong.
const DefaultLogLevel = "warn"

// Config holds the ratewatch configuration.
type Config struct {
	HTTP        HTTPConfig      `yaml:"http"`
	GitHub      GitHubConfig    `yaml:"github"`
	Watch       WatchConfig     `yaml:"watch"`
	Logging     LoggingConfig   `yaml:"logging"`
	Accounts    []AccountConfig `yaml:"accounts"`
	AccountsDir string          `yaml:"accounts_dir"`

	// Inline is the single credential given on the command line or via env.
	Inline *AccountConfig `yaml:"-"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// HTTPConfig holds metrics server settings. Port 0 disables the server.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// GitHubConfig holds API endpoint and polling settings.
type GitHubConfig struct {
	APIURL         string `yaml:"api_url"`
	GraphQLURL     string `yaml:"graphql_url"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	MaxConcurrency int    `yaml:"max_concurrency"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Enabled     bool `yaml:"enabled"`
	IntervalSec int  `yaml:"interval_sec"`
}

// AccountConfig is one credential block. Either Token or AppID+PrivateKeyPath is set.
type AccountConfig struct {
	Name           string `yaml:"name" json:"name"`
	Token          string `yaml:"token" json:"token"`
	AppID          string `yaml:"app_id" json:"app_id"`
	InstallationID string `yaml:"installation_id" json:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path" json:"private_key_path"`
}

// IsZero reports whether no credential field is set.
func (a AccountConfig) IsZero() bool {
	return a.Token == "" && a.AppID == "" && a.InstallationID == "" && a.PrivateKeyPath == ""
}

// Load reads configuration from path. An empty path falls back to config/<env>.yaml
// when it exists, and to pure defaults otherwise.
func Load(env, path string) (Config, error) {
	var cfg Config

	if path == "" {
		if p := findConfigPath(env); fileExists(p) {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = DefaultAPIURL
	}
	if c.GitHub.GraphQLURL == "" {
		c.GitHub.GraphQLURL = DefaultGraphQLURL
	}
	if c.GitHub.TimeoutSec <= 0 {
		c.GitHub.TimeoutSec = 10
	}
	if c.GitHub.MaxConcurrency <= 0 {
		c.GitHub.MaxConcurrency = 10
	}
	if c.Watch.IntervalSec <= 0 {
		c.Watch.IntervalSec = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 0 and 65535, got %d", c.HTTP.Port)
	}
	if !strings.HasPrefix(c.GitHub.APIURL, "http://") && !strings.HasPrefix(c.GitHub.APIURL, "https://") {
		return fmt.Errorf("github.api_url must be an http(s) URL, got %q", c.GitHub.APIURL)
	}
	if !strings.HasPrefix(c.GitHub.GraphQLURL, "http://") && !strings.HasPrefix(c.GitHub.GraphQLURL, "https://") {
		return fmt.Errorf("github.graphql_url must be an http(s) URL, got %q", c.GitHub.GraphQLURL)
	}
	return nil
}

// findConfigPath resolves config/<env>.yaml against the working directory.
// The file may be absent; Load then runs on defaults.
func findConfigPath(env string) string {
	return filepath.Join("config", fmt.Sprintf("%s.yaml", env))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
