// Package config holds the mouldlens service configuration: a yaml file with
// environment variable overrides, loaded once at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all mouldlens configuration.
type Config struct {
	// HTTP listen address
	Addr string `yaml:"addr"`

	// SQLite database path for telemetry records
	DatabasePath string `yaml:"database_path"`

	// Camera identifier used when the uploader omits one
	DefaultCameraID string `yaml:"default_camera_id"`

	// Vision model settings
	Extraction ExtractionConfig `yaml:"extraction"`
}

// ExtractionConfig configures the vision model client.
type ExtractionConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`

	// Binding selects how the model output is bound: "text" parses free-text
	// JSON (fence-tolerant), "schema" requests structured output directly.
	Binding string `yaml:"binding"`

	// End-to-end deadline for one upload's extraction, in seconds.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Binding values.
const (
	BindingText   = "text"
	BindingSchema = "schema"
)

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8000",
		DatabasePath:    "mouldlens.db",
		DefaultCameraID: "CAM_01",
		Extraction: ExtractionConfig{
			Model:          "gemini-2.5-flash",
			Binding:        BindingText,
			TimeoutSeconds: 60,
		},
	}
}

// Load reads configuration from the given yaml file. A missing file is not an
// error: defaults are used. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the given yaml file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Extraction.APIKey = key
	}
	if addr := os.Getenv("MOULDLENS_ADDR"); addr != "" {
		c.Addr = addr
	}
	if path := os.Getenv("MOULDLENS_DB"); path != "" {
		c.DatabasePath = path
	}
	if cam := os.Getenv("MOULDLENS_CAMERA_ID"); cam != "" {
		c.DefaultCameraID = cam
	}
}

func (c *Config) validate() error {
	switch c.Extraction.Binding {
	case BindingText, BindingSchema:
	default:
		return fmt.Errorf("invalid extraction binding %q (want %q or %q)",
			c.Extraction.Binding, BindingText, BindingSchema)
	}
	if c.Extraction.TimeoutSeconds <= 0 {
		return fmt.Errorf("extraction timeout_seconds must be positive, got %d", c.Extraction.TimeoutSeconds)
	}
	return nil
}
