package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/atelier/internal/autosave"
	"github.com/starford/atelier/internal/catalog"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Project  ProjectConfig     `yaml:"project"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Project.Validate(); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.Autosave.Validate(); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	return c.SQLite.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ProjectConfig locates the project to open.
//
// With CreateIfMissing a project is created at Path on start when none
// exists yet; Name and Client are then required.
type ProjectConfig struct {
	Path            string `yaml:"path"`
	CreateIfMissing bool   `yaml:"create_if_missing"`
	Name            string `yaml:"name"`
	Client          string `yaml:"client"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Name, validation.When(c.CreateIfMissing, validation.Required)),
		validation.Field(&c.Client, validation.When(c.CreateIfMissing, validation.Required)),
	)
}

// CatalogConfig holds block catalog settings. An empty allow-list permits
// every dependency.
type CatalogConfig struct {
	AllowedDependencies []string      `yaml:"allowed_dependencies"`
	Debounce            time.Duration `yaml:"debounce"`
	CacheSize           int           `yaml:"cache_size"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AllowedDependencies, validation.Each(validation.Required)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.CacheSize, validation.Min(0)),
	)
}

// AutosaveConfig holds the autosave quiet period.
type AutosaveConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Delay, validation.Required, validation.Min(time.Millisecond)),
	)
}

// SQLiteConfig holds the block index database location. ":memory:" keeps
// the index in process.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Project: ProjectConfig{
			Path: "./site",
		},
		Catalog: CatalogConfig{
			AllowedDependencies: []string{},
			Debounce:            catalog.DefaultDebounce,
			CacheSize:           catalog.DefaultCacheSize,
		},
		Autosave: AutosaveConfig{
			Delay: autosave.DefaultDelay,
		},
		SQLite: SQLiteConfig{
			Path: ":memory:",
		},
	}
}
