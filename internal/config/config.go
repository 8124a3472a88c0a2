// Package config loads the YAML configuration with ${ENV_VAR} expansion.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"traveldesk/internal/models"
)

// BackupConfig controls the timed database backup service.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// RedisConfig points at the reconciliation result cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SheetsConfig enables the Google Sheets summary push.
type SheetsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis RedisConfig `yaml:"redis"`

	Server struct {
		Address         string  `yaml:"address"`
		APIKey          string  `yaml:"api_key"`
		RateLimitRPS    float64 `yaml:"rate_limit_rps"`
		RateLimitBurst  int     `yaml:"rate_limit_burst"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"server"`

	Sheets SheetsConfig `yaml:"sheets"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	// Policy defaults applied to new projects.
	Policy struct {
		MaxGapDays          int    `yaml:"max_gap_days"`
		WeekendPolicy       string `yaml:"weekend_policy"`
		ArrivalBufferDays   int    `yaml:"arrival_buffer_days"`
		DepartureBufferDays int    `yaml:"departure_buffer_days"`
	} `yaml:"policy"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/traveldesk.db"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RateLimitRPS <= 0 {
		c.Server.RateLimitRPS = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 300
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Sheets.SheetName == "" {
		c.Sheets.SheetName = "Summary"
	}
	if c.Policy.WeekendPolicy == "" {
		c.Policy.WeekendPolicy = string(models.WeekendWorkIfAdjacent)
	}
}

// BackupInterval returns the backup period, defaulting to daily.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// CacheTTL returns the reconciliation cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Server.CacheTTLSeconds) * time.Second
}

// DefaultPolicy returns the configured policy defaults for new projects.
func (c *Config) DefaultPolicy() models.Policy {
	return models.Policy{
		MaxGapDays:          c.Policy.MaxGapDays,
		WeekendPolicy:       models.WeekendPolicy(c.Policy.WeekendPolicy),
		ArrivalBufferDays:   c.Policy.ArrivalBufferDays,
		DepartureBufferDays: c.Policy.DepartureBufferDays,
	}
}
