package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ftahirops/airtop/model"
)

// Source kinds.
const (
	SourceDemo     = "demo"
	SourceInflux   = "influx"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// Config holds user-configurable defaults and integrations.
type Config struct {
	DefaultScale model.TimeScale  `json:"default_scale"`
	Source       string           `json:"source"`
	RefreshSec   int              `json:"refresh_sec"`
	MaxValue     int              `json:"max_value"`
	Timezone     string           `json:"timezone,omitempty"`
	Influx       InfluxConfig     `json:"influx"`
	SQLite       SQLiteConfig     `json:"sqlite"`
	Postgres     PostgresConfig   `json:"postgres"`
	Prometheus   PrometheusConfig `json:"prometheus"`
}

type InfluxConfig struct {
	URL         string `json:"url"`
	Token       string `json:"token,omitempty"`
	Org         string `json:"org"`
	Bucket      string `json:"bucket"`
	Measurement string `json:"measurement"`
	Field       string `json:"field"`
	DeviceID    string `json:"device_id,omitempty"`
}

type SQLiteConfig struct {
	Path string `json:"path"`
}

// PostgresConfig points at a table of raw readings. The DSN may carry a
// password and is never written back to disk.
type PostgresConfig struct {
	DSN      string `json:"dsn,omitempty"`
	Table    string `json:"table"`
	MaxConns int32  `json:"max_conns,omitempty"`
}

// PrometheusConfig controls the HTTP exporter (/metrics plus the JSON API).
type PrometheusConfig struct {
	Enabled     bool     `json:"enabled"`
	Addr        string   `json:"addr"`
	CORSOrigins []string `json:"cors_origins,omitempty"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		DefaultScale: model.ScaleDays,
		Source:       SourceDemo,
		RefreshSec:   60,
		MaxValue:     10,
		Influx: InfluxConfig{
			Measurement: "air_quality",
			Field:       "score",
		},
		Postgres: PostgresConfig{
			Table: "readings",
		},
		Prometheus: PrometheusConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9101",
		},
	}
}

// Path returns ~/.config/airtop/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "airtop", "config.json")
}

// Load loads config from disk and the environment; returns defaults on error.
func Load() Config {
	cfg := LoadFile(Path())
	LoadEnv(&cfg)
	return cfg
}

// LoadFile loads config from path; missing or unreadable files yield defaults.
func LoadFile(path string) Config {
	cfg := Default()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("airtop: warning: config parse error: %v", err)
	}
	return cfg
}

// LoadEnv overlays settings from the environment, reading a .env file in the
// working directory first when present.
func LoadEnv(cfg *Config) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("airtop: warning: .env: %v", err)
	}
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Source, "AIRTOP_SOURCE")
	setString(&cfg.Timezone, "AIRTOP_TIMEZONE")
	setString(&cfg.SQLite.Path, "AIRTOP_SQLITE_PATH")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setString(&cfg.Postgres.DSN, "AIRTOP_POSTGRES_DSN")
	setString(&cfg.Postgres.Table, "AIRTOP_POSTGRES_TABLE")
	setString(&cfg.Influx.URL, "INFLUXDB_URL")
	setString(&cfg.Influx.Token, "INFLUXDB_TOKEN")
	setString(&cfg.Influx.Org, "INFLUXDB_ORG")
	setString(&cfg.Influx.Bucket, "INFLUXDB_BUCKET")
	setString(&cfg.Influx.Measurement, "INFLUXDB_MEASUREMENT")
	setString(&cfg.Influx.Field, "INFLUXDB_FIELD")
	setString(&cfg.Influx.DeviceID, "INFLUXDB_DEVICE_ID")
	if v := os.Getenv("AIRTOP_REFRESH_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RefreshSec = n
		} else {
			log.Printf("airtop: warning: ignoring AIRTOP_REFRESH_SEC=%q", v)
		}
	}
	if v := os.Getenv("AIRTOP_SCALE"); v != "" {
		if s, err := model.ParseTimeScale(v); err == nil {
			cfg.DefaultScale = s
		} else {
			log.Printf("airtop: warning: %v", err)
		}
	}
}

// Validate checks that the selected source is fully configured.
func (c Config) Validate() error {
	switch c.Source {
	case SourceDemo:
	case SourceInflux:
		if c.Influx.URL == "" || c.Influx.Token == "" || c.Influx.Org == "" || c.Influx.Bucket == "" {
			return fmt.Errorf("InfluxDB configuration is incomplete. Please set INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG and INFLUXDB_BUCKET")
		}
	case SourceSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite source needs a database path (sqlite.path or AIRTOP_SQLITE_PATH)")
		}
	case SourcePostgres:
		if c.Postgres.DSN == "" || c.Postgres.Table == "" {
			return fmt.Errorf("postgres source needs a DSN and a table (AIRTOP_POSTGRES_DSN or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown source %q (want %s, %s, %s or %s)",
			c.Source, SourceDemo, SourceInflux, SourceSQLite, SourcePostgres)
	}
	if c.MaxValue <= 0 {
		return fmt.Errorf("max_value must be positive, got %d", c.MaxValue)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone; empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Refresh returns the refresh interval; zero disables periodic refresh.
func (c Config) Refresh() time.Duration {
	return time.Duration(c.RefreshSec) * time.Second
}

// Save writes the config to disk. Credentials (InfluxDB token, Postgres DSN)
// are never persisted.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	cfg.Influx.Token = ""
	cfg.Postgres.DSN = ""
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
