// Package config loads server configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults
//  2. an optional YAML file named by RECORDKEEPER_CONFIG
//  3. environment variables (PORT, LOG_LEVEL, DB_DRIVER, DB_DSN,
//     BODY_LIMIT, CONTENT_TYPE_REQUIRED)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/recordkeeper/internal/jsonbody"
)

// FileEnv names the environment variable holding the config file path.
const FileEnv = "RECORDKEEPER_CONFIG"

type Config struct {
	Version  int    `yaml:"version"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	DB       DB     `yaml:"db"`
	Body     Body   `yaml:"body"`
}

type DB struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Body configures the request body classifier.
type Body struct {
	Limit               int64    `yaml:"limit"`
	ContentTypeRequired bool     `yaml:"content_type_required"`
	ExtraContentTypes   []string `yaml:"extra_content_types"`
}

func Default() Config {
	return Config{
		Version:  1,
		Port:     8080,
		LogLevel: "info",
		DB: DB{
			Driver: "sqlite",
			DSN:    "data/records.db",
		},
		Body: Body{
			Limit:               jsonbody.DefaultLimit,
			ContentTypeRequired: true,
		},
	}
}

// Load builds the configuration from defaults, the optional file, and the
// environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if path := getenv(FileEnv); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if cfg, err = Parse(b); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of the defaults. Keys the document
// leaves out keep their default values.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	cfg.Version = 0
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if cfg.Version != 1 {
		return Config{}, errors.New("config: unsupported version")
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q", v)
		}
		c.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("DB_DRIVER"); v != "" {
		c.DB.Driver = v
	}
	if v := getenv("DB_DSN"); v != "" {
		c.DB.DSN = v
	}
	if v := getenv("BODY_LIMIT"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid BODY_LIMIT %q", v)
		}
		c.Body.Limit = limit
	}
	if v := getenv("CONTENT_TYPE_REQUIRED"); v != "" {
		required, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid CONTENT_TYPE_REQUIRED %q", v)
		}
		c.Body.ContentTypeRequired = required
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Body.Limit <= 0 {
		return fmt.Errorf("config: body limit must be positive, got %d", c.Body.Limit)
	}
	if c.DB.DSN == "" {
		return errors.New("config: db dsn is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// Classifier returns the body classifier settings.
func (c Config) Classifier() jsonbody.Config {
	return jsonbody.Config{
		Limit:               c.Body.Limit,
		ContentTypeRequired: c.Body.ContentTypeRequired,
		AcceptContentType:   jsonbody.AcceptMediaTypes(c.Body.ExtraContentTypes...),
	}
}
