// Package config loads coagen settings from an optional YAML file and
// COAGEN_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"coagen/internal/auth"
	"coagen/internal/composition"
	"coagen/internal/fill"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COAGEN_"

// Config holds the full coagen configuration.
type Config struct {
	Addr        string `yaml:"addr"`
	DBPath      string `yaml:"db"`
	TemplateDir string `yaml:"template_dir"`
	OutputDir   string `yaml:"output_dir"`
	Policy      string `yaml:"policy"`
	Mode        string `yaml:"mode"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
	// RateLimit is API requests per client per minute; 0 disables it.
	RateLimit          int        `yaml:"rate_limit"`
	AuditRetentionDays int        `yaml:"audit_retention_days"`
	LogMode            string     `yaml:"log_mode"` // production | development
	APIKeys            []auth.Key `yaml:"api_keys"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:               ":9000",
		DBPath:             "coagen.db",
		TemplateDir:        ".",
		OutputDir:          "generated_coas",
		Policy:             composition.FixedBaselineName,
		Mode:               "preserve",
		MaxUploadMB:        20,
		RateLimit:          100,
		AuditRetentionDays: 365,
		LogMode:            "production",
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides. A missing file is an error only when path was
// given explicitly.
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
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides fields from COAGEN_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ADDR":         &c.Addr,
		"DB":           &c.DBPath,
		"TEMPLATE_DIR": &c.TemplateDir,
		"OUTPUT_DIR":   &c.OutputDir,
		"POLICY":       &c.Policy,
		"MODE":         &c.Mode,
		"LOG_MODE":     &c.LogMode,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_UPLOAD_MB":        &c.MaxUploadMB,
		"RATE_LIMIT":           &c.RateLimit,
		"AUDIT_RETENTION_DAYS": &c.AuditRetentionDays,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %q is not an integer", EnvPrefix, name, v)
		}
		*dst = n
	}

	// COAGEN_API_KEY adds one key, given as name:bcrypt-hash.
	if v, ok := lookup(EnvPrefix + "API_KEY"); ok && v != "" {
		name, hash, found := strings.Cut(v, ":")
		if !found || name == "" || hash == "" {
			return fmt.Errorf("%sAPI_KEY must be name:hash", EnvPrefix)
		}
		c.APIKeys = append(c.APIKeys, auth.Key{Name: name, Hash: hash})
	}
	return nil
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0")
	}
	if _, err := composition.ForName(c.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if _, err := fill.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	switch c.LogMode {
	case "production", "prod", "development", "dev":
	default:
		return fmt.Errorf("unsupported log_mode %q (use production or development)", c.LogMode)
	}
	for i, k := range c.APIKeys {
		if k.Name == "" || k.Hash == "" {
			return fmt.Errorf("api_keys[%d]: name and hash are required", i)
		}
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
