// Package internal provides the application configuration and the serve runtime.
package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Site   SiteConfig        `yaml:"site"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Mail   MailConfig        `yaml:"mail"`
	Agent  AgentConfig       `yaml:"agent"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Mail.Validate(); err != nil {
		return err
	}
	return c.Agent.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Editor   string     `yaml:"editor"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the preview HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig locates the static-site source tree and its collection registry.
type SiteConfig struct {
	// Root is the fallback site root used when a collection directory is
	// not found under the current working directory.
	Root string `yaml:"root"`
	// Registry is the collections file, relative to Root unless absolute.
	Registry string `yaml:"registry"`
	// BaseURL is the public site URL used when printing item links.
	BaseURL string `yaml:"base_url"`
}

// RegistryPath resolves the registry file location against the site root.
func (c *SiteConfig) RegistryPath() string {
	if filepath.IsAbs(c.Registry) {
		return c.Registry
	}
	return filepath.Join(c.Root, c.Registry)
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Registry, validation.Required),
	)
}

// SQLiteConfig holds the content index database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds preview API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// MailConfig describes the external mail CLI used by pull.
type MailConfig struct {
	// Command is the mail CLI binary name.
	Command string `yaml:"command"`
	// AddressPattern is the recipient filter with a %s placeholder for the
	// collection's email suffix, e.g. "me+%s@example.com".
	AddressPattern string `yaml:"address_pattern"`
	// MaxResults bounds one inbox search.
	MaxResults int `yaml:"max_results"`
}

// Validate validates the mail configuration.
func (c *MailConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
		validation.Field(&c.AddressPattern, validation.Required),
		validation.Field(&c.MaxResults, validation.Min(1), validation.Max(500)),
	); err != nil {
		return err
	}
	if !strings.Contains(c.AddressPattern, "%s") {
		return fmt.Errorf("mail: address_pattern must contain a %%s placeholder")
	}
	return nil
}

// Address renders the recipient address for a collection's email suffix.
func (c *MailConfig) Address(suffix string) string {
	return fmt.Sprintf(c.AddressPattern, suffix)
}

// AgentConfig describes the external AI agent CLI.
type AgentConfig struct {
	// Command is the agent CLI binary name.
	Command string `yaml:"command"`
	// Model is passed through to the agent for classification calls.
	Model string `yaml:"model"`
	// DefaultCollection receives candidates the classifier cannot place.
	DefaultCollection string `yaml:"default_collection"`
}

// Validate validates the agent configuration.
func (c *AgentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
		validation.Field(&c.DefaultCollection, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8787,
			},
		},
		Site: SiteConfig{
			Root:     "./site",
			Registry: "_data/collections.yaml",
			BaseURL:  "http://localhost:4000",
		},
		SQLite: SQLiteConfig{
			Path: "./ansuz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Mail: MailConfig{
			Command:        "gmail",
			AddressPattern: "me+%s@example.com",
			MaxResults:     50,
		},
		Agent: AgentConfig{
			Command:           "claude",
			Model:             "haiku",
			DefaultCollection: "random",
		},
	}
}
