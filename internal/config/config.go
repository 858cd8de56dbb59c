// Copyright 2025 Joseph Cumines
//
// Configuration package for the Thea automation agent

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the agent.
//
// Fields are populated from defaults, then an optional YAML file, then
// environment variables, in that order of increasing precedence.
type Config struct {
	HTTPAddress      string        `yaml:"http_address"`
	AppName          string        `yaml:"app_name"`
	URLScheme        string        `yaml:"url_scheme"`
	OSAScriptPath    string        `yaml:"osascript"`
	AuditLogPath     string        `yaml:"audit_log"`
	MetricsAddress   string        `yaml:"metrics_address"`
	HealthAddress    string        `yaml:"health_address"`
	JaegerEndpoint   string        `yaml:"jaeger_endpoint"`
	ScriptTimeout    time.Duration `yaml:"script_timeout"`
	ActivateDelay    time.Duration `yaml:"activate_delay"`
	FocusDelay       time.Duration `yaml:"focus_delay"`
	KeyDelay         time.Duration `yaml:"key_delay"`
	HTTPReadTimeout  time.Duration `yaml:"http_read_timeout"`
	HTTPWriteTimeout time.Duration `yaml:"http_write_timeout"`
	Serialize        bool          `yaml:"serialize"`
	StrictKeys       bool          `yaml:"strict_keys"`
	Debug            bool          `yaml:"debug"`
}

// Default returns the built-in configuration. It matches the behavior of the
// agent with no file and no environment overrides.
func Default() *Config {
	return &Config{
		HTTPAddress:      "127.0.0.1:18792",
		AppName:          "Thea",
		URLScheme:        "thea://",
		OSAScriptPath:    "osascript",
		ScriptTimeout:    10 * time.Second,
		ActivateDelay:    500 * time.Millisecond,
		FocusDelay:       300 * time.Millisecond,
		KeyDelay:         200 * time.Millisecond,
		HTTPReadTimeout:  30 * time.Second,
		HTTPWriteTimeout: 90 * time.Second,
		Serialize:        true,
	}
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads the configuration from the YAML file at path (skipped when
// path is empty), then applies environment variable overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.HTTPAddress = getEnv("THEA_AGENT_HTTP_ADDRESS", c.HTTPAddress)
	c.AppName = getEnv("THEA_AGENT_APP_NAME", c.AppName)
	c.URLScheme = getEnv("THEA_AGENT_URL_SCHEME", c.URLScheme)
	c.OSAScriptPath = getEnv("THEA_AGENT_OSASCRIPT", c.OSAScriptPath)
	c.AuditLogPath = getEnv("THEA_AGENT_AUDIT_LOG", c.AuditLogPath)
	c.MetricsAddress = getEnv("THEA_AGENT_METRICS_ADDRESS", c.MetricsAddress)
	c.HealthAddress = getEnv("THEA_AGENT_HEALTH_ADDRESS", c.HealthAddress)
	c.JaegerEndpoint = getEnv("THEA_AGENT_JAEGER_ENDPOINT", c.JaegerEndpoint)
	c.Serialize = getEnvAsBool("THEA_AGENT_SERIALIZE", c.Serialize)
	c.StrictKeys = getEnvAsBool("THEA_AGENT_STRICT_KEYS", c.StrictKeys)
	c.Debug = getEnvAsBool("THEA_AGENT_DEBUG", c.Debug)

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&c.ScriptTimeout, "THEA_AGENT_SCRIPT_TIMEOUT"},
		{&c.ActivateDelay, "THEA_AGENT_ACTIVATE_DELAY"},
		{&c.FocusDelay, "THEA_AGENT_FOCUS_DELAY"},
		{&c.KeyDelay, "THEA_AGENT_KEY_DELAY"},
		{&c.HTTPReadTimeout, "THEA_AGENT_HTTP_READ_TIMEOUT"},
		{&c.HTTPWriteTimeout, "THEA_AGENT_HTTP_WRITE_TIMEOUT"},
	}
	for _, d := range durations {
		v, err := getEnvAsDuration(d.key, *d.dst)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	return nil
}

// Validate reports the first invalid field, if any.
func (c *Config) Validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http address cannot be empty")
	}
	if strings.TrimSpace(c.AppName) == "" {
		return fmt.Errorf("app name cannot be empty")
	}
	if c.URLScheme == "" {
		return fmt.Errorf("url scheme cannot be empty")
	}
	if c.OSAScriptPath == "" {
		return fmt.Errorf("osascript path cannot be empty")
	}
	if c.ScriptTimeout <= 0 {
		return fmt.Errorf("invalid script timeout: %v (must be positive)", c.ScriptTimeout)
	}
	for name, d := range map[string]time.Duration{
		"activate delay": c.ActivateDelay,
		"focus delay":    c.FocusDelay,
		"key delay":      c.KeyDelay,
	} {
		if d < 0 {
			return fmt.Errorf("invalid %s: %v (must not be negative)", name, d)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected duration, e.g., '500ms', '10s')", key, value)
	}
	return d, nil
}
