/*
Package config loads the server configuration and the leave policy.

SOURCES (later wins):
  1. Built-in defaults (Default)
  2. YAML file passed to Load; absent keys keep their defaults
  3. LEAVE_* environment variables

EXAMPLE (config.yaml):
  server:
    addr: ":8080"
    allowed_origins: ["http://localhost:5173"]
  database:
    path: ./data/leave.db
  log:
    level: info
    development: false
  leave:
    policy: anniversary        # or calendar
    carryover_months: 0
    alert_window_days: 60
    initial_status: approved   # or pending
    allowances:
      sick_days: 30
      personal_days: 14
      marriage_days: 8
      extra:                   # config-only categories, registered on load
        volunteer: 2
  alerts:
    enabled: true
    scan_interval: 24h
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/warp/leave-engine/timeoff"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Leave    LeaveConfig    `yaml:"leave"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" for a throwaway database.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LeaveConfig mirrors timeoff.Policy in YAML form.
type LeaveConfig struct {
	Policy          string             `yaml:"policy"`
	CarryoverMonths int                `yaml:"carryover_months"`
	AlertWindowDays int                `yaml:"alert_window_days"`
	InitialStatus   string             `yaml:"initial_status"`
	Allowances      timeoff.Allowances `yaml:"allowances"`
}

type AlertsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	ScanInterval    time.Duration `yaml:"-"`
	ScanIntervalRaw string        `yaml:"scan_interval"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	p := timeoff.DefaultPolicy()
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "leave.db"},
		Log:      LogConfig{Level: "info"},
		Leave: LeaveConfig{
			Policy:          string(p.Kind),
			CarryoverMonths: p.CarryoverMonths,
			AlertWindowDays: p.AlertWindowDays,
			InitialStatus:   string(p.InitialStatus),
			Allowances:      p.Allowances,
		},
		Alerts: AlertsConfig{Enabled: true, ScanIntervalRaw: "24h"},
	}
}

// Load reads path (optional; "" means defaults only), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv layers LEAVE_* variables over c. A malformed number or boolean
// is an error; every bad variable is reported, not only the first.
func (c *Config) applyEnv() error {
	env := &envReader{}

	c.Server.Addr = env.String("LEAVE_SERVER_ADDR", c.Server.Addr)
	if origins := env.String("LEAVE_ALLOWED_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Database.Path = env.String("LEAVE_DB_PATH", c.Database.Path)
	c.Log.Level = env.String("LEAVE_LOG_LEVEL", c.Log.Level)
	c.Log.Development = env.Bool("LEAVE_LOG_DEVELOPMENT", c.Log.Development)

	c.Leave.Policy = env.String("LEAVE_POLICY", c.Leave.Policy)
	c.Leave.CarryoverMonths = env.Int("LEAVE_CARRYOVER_MONTHS", c.Leave.CarryoverMonths)
	c.Leave.AlertWindowDays = env.Int("LEAVE_ALERT_WINDOW_DAYS", c.Leave.AlertWindowDays)
	c.Leave.InitialStatus = env.String("LEAVE_INITIAL_STATUS", c.Leave.InitialStatus)
	c.Leave.Allowances.SickDays = env.Int("LEAVE_SICK_DAYS", c.Leave.Allowances.SickDays)
	c.Leave.Allowances.PersonalDays = env.Int("LEAVE_PERSONAL_DAYS", c.Leave.Allowances.PersonalDays)
	c.Leave.Allowances.MarriageDays = env.Int("LEAVE_MARRIAGE_DAYS", c.Leave.Allowances.MarriageDays)

	c.Alerts.Enabled = env.Bool("LEAVE_ALERTS_ENABLED", c.Alerts.Enabled)
	c.Alerts.ScanIntervalRaw = env.String("LEAVE_ALERT_SCAN_INTERVAL", c.Alerts.ScanIntervalRaw)

	return env.err
}

// registerExtraCategories normalizes the allowances.extra keys and makes
// each one a known category, so requests and balances accept it.
func (c *Config) registerExtraCategories() error {
	if len(c.Leave.Allowances.Extra) == 0 {
		return nil
	}
	extra := make(map[timeoff.Category]int, len(c.Leave.Allowances.Extra))
	for name, days := range c.Leave.Allowances.Extra {
		cat := timeoff.Category(strings.ToLower(strings.TrimSpace(string(name))))
		if cat == "" {
			return fmt.Errorf("config: leave.allowances.extra: empty category name")
		}
		if _, dup := extra[cat]; dup {
			return fmt.Errorf("config: leave.allowances.extra: duplicate category %q", cat)
		}
		extra[cat] = days
	}
	for cat := range extra {
		timeoff.RegisterCategory(cat)
	}
	c.Leave.Allowances.Extra = extra
	return nil
}

func (c *Config) validateAndNormalize() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config: server.addr must be set")
	}
	for i, o := range c.Server.AllowedOrigins {
		c.Server.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("config: database.path must be set")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}

	c.Leave.Policy = strings.ToLower(strings.TrimSpace(c.Leave.Policy))
	c.Leave.InitialStatus = strings.ToLower(strings.TrimSpace(c.Leave.InitialStatus))
	if err := c.registerExtraCategories(); err != nil {
		return err
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("config: leave: %w", err)
	}

	interval, err := parseDurationAllowEmpty(c.Alerts.ScanIntervalRaw)
	if err != nil {
		return fmt.Errorf("config: alerts.scan_interval: %w", err)
	}
	if interval < 0 {
		return fmt.Errorf("config: alerts.scan_interval must not be negative")
	}
	if interval == 0 {
		interval = 24 * time.Hour
	}
	c.Alerts.ScanInterval = interval

	return nil
}

// Policy converts the leave section into the engine's policy value.
func (c Config) Policy() timeoff.Policy {
	return timeoff.Policy{
		Kind:            timeoff.PolicyKind(c.Leave.Policy),
		CarryoverMonths: c.Leave.CarryoverMonths,
		AlertWindowDays: c.Leave.AlertWindowDays,
		Allowances:      c.Leave.Allowances,
		InitialStatus:   timeoff.Status(c.Leave.InitialStatus),
	}
}

// NewLogger builds a zap logger at the configured level.
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

// envReader reads typed environment variables, collecting parse failures.
type envReader struct {
	err error
}

func (r *envReader) String(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (r *envReader) Bool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.err = multierr.Append(r.err, fmt.Errorf("%s: %q is not a boolean", key, value))
		return fallback
	}
	return parsed
}

func (r *envReader) Int(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.err = multierr.Append(r.err, fmt.Errorf("%s: %q is not an integer", key, value))
		return fallback
	}
	return parsed
}
