// Package config loads sopforge settings from a YAML file, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sopforge/core/internal/risk"
)

// Environment variables that override the file.
const (
	EnvGraphPath  = "SOP_GRAPH_PATH"
	EnvComponents = "SOP_COMPONENTS_DIR"
	EnvListenAddr = "SOP_LISTEN_ADDR"
	EnvCORSOrigin = "CORS_ALLOWED_ORIGIN"
	EnvLogLevel   = "SOP_LOG_LEVEL"
	EnvLogFormat  = "SOP_LOG_FORMAT"
	EnvAuditDB    = "SOP_AUDIT_DB"
)

var validate = validator.New()

type GraphConfig struct {
	Path          string        `yaml:"path" validate:"required"`
	ComponentsDir string        `yaml:"components_dir"`
	Watch         bool          `yaml:"watch"`
	Debounce      time.Duration `yaml:"debounce" validate:"gte=0"`
}

type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr" validate:"required"`
	CORSOrigin   string        `yaml:"cors_allowed_origin" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type AuditConfig struct {
	// DBPath enables the audit trail when set.
	DBPath string `yaml:"db_path"`
}

type BuildConfig struct {
	OutputDir string `yaml:"output_dir" validate:"required"`
}

type Config struct {
	Graph  GraphConfig  `yaml:"graph"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Audit  AuditConfig  `yaml:"audit"`
	Build  BuildConfig  `yaml:"build"`
	Risk   risk.Policy  `yaml:"risk"`
}

func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Path:          "graph/sop-graph.json",
			ComponentsDir: "sop-components",
			Debounce:      200 * time.Millisecond,
		},
		Server: ServerConfig{
			ListenAddr:   ":8080",
			CORSOrigin:   "*",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		Build: BuildConfig{OutputDir: "dist"},
		Risk:  risk.DefaultPolicy(),
	}
}

// Load reads path over the defaults, then applies environment overrides and
// validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from non-empty environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvGraphPath, &c.Graph.Path)
	set(EnvComponents, &c.Graph.ComponentsDir)
	set(EnvListenAddr, &c.Server.ListenAddr)
	set(EnvCORSOrigin, &c.Server.CORSOrigin)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvLogFormat, &c.Log.Format)
	set(EnvAuditDB, &c.Audit.DBPath)
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %s", verrs[0].Error())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
