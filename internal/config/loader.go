package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr            = ":8080"
	DefaultModelsDir       = "~/models"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultMaxWorkers      = 10
	DefaultMaxMemoryMB     = 1024
	DefaultIdleTimeoutSec  = 60
	DefaultReapIntervalSec = 60
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	MaxWorkers      int `json:"max_workers" yaml:"max_workers" toml:"max_workers"`
	MaxMemoryMB     int `json:"max_memory_mb" yaml:"max_memory_mb" toml:"max_memory_mb"`
	IdleTimeoutSec  int `json:"idle_timeout_sec" yaml:"idle_timeout_sec" toml:"idle_timeout_sec"`
	ReapIntervalSec int `json:"reap_interval_sec" yaml:"reap_interval_sec" toml:"reap_interval_sec"`

	// Device overrides.
	ForceCPU      bool `json:"force_cpu" yaml:"force_cpu" toml:"force_cpu"`
	DisableNative bool `json:"disable_native" yaml:"disable_native" toml:"disable_native"`

	// WarmModels lists model ids to build specialized workers for at startup.
	WarmModels []string `json:"warm_models" yaml:"warm_models" toml:"warm_models"`
	// ReportsPath, if set, persists execution reports across restarts.
	ReportsPath string `json:"reports_path" yaml:"reports_path" toml:"reports_path"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unspecified fields in place.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.MaxMemoryMB <= 0 {
		c.MaxMemoryMB = DefaultMaxMemoryMB
	}
	if c.IdleTimeoutSec <= 0 {
		c.IdleTimeoutSec = DefaultIdleTimeoutSec
	}
	if c.ReapIntervalSec <= 0 {
		c.ReapIntervalSec = DefaultReapIntervalSec
	}
}

// IdleTimeout returns IdleTimeoutSec as a duration.
func (c Config) IdleTimeout() time.Duration { return time.Duration(c.IdleTimeoutSec) * time.Second }

// ReapInterval returns ReapIntervalSec as a duration.
func (c Config) ReapInterval() time.Duration { return time.Duration(c.ReapIntervalSec) * time.Second }
