package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all irisd configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	DBPath    string          `yaml:"db_path"`
	Model     ModelConfig     `yaml:"model"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ModelConfig locates the classification model artifact.
// Path is a local path, a file:// URL or an s3://bucket/key URL.
type ModelConfig struct {
	Path string   `yaml:"path"`
	S3   S3Config `yaml:"s3"`
}

// S3Config configures access to artifacts stored in S3 or an
// S3-compatible object store.
type S3Config struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// AuthConfig controls bearer token validation.
type AuthConfig struct {
	Secret        string `yaml:"secret"`
	Algorithm     string `yaml:"algorithm"`
	ExpirySeconds int    `yaml:"expiry_seconds"`
}

// Expiry returns the token lifetime as a duration.
func (a AuthConfig) Expiry() time.Duration {
	return time.Duration(a.ExpirySeconds) * time.Second
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
	Metrics     bool   `yaml:"metrics"`
	Tracing     string `yaml:"tracing"` // none|stdout
}

var (
	validAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
	validTracing    = map[string]bool{"none": true, "stdout": true}
)

// Default returns a Config with sensible defaults. Auth.Secret has no
// default and must be provided.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "predictions.db",
		Model: ModelConfig{
			Path: "models/iris_tree.json",
		},
		Auth: AuthConfig{
			Algorithm:     "HS256",
			ExpirySeconds: 3600,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "irisd",
			Metrics:     true,
			Tracing:     "none",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if !validAlgorithms[c.Auth.Algorithm] {
		return fmt.Errorf("unsupported auth.algorithm: %q", c.Auth.Algorithm)
	}
	if c.Auth.ExpirySeconds <= 0 {
		return fmt.Errorf("auth.expiry_seconds must be positive, got %d", c.Auth.ExpirySeconds)
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("unknown log.level: %q", c.Log.Level)
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("unknown log.format: %q", c.Log.Format)
	}
	if !validTracing[c.Telemetry.Tracing] {
		return fmt.Errorf("unknown telemetry.tracing: %q", c.Telemetry.Tracing)
	}
	return nil
}
