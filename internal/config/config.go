package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"porschevents/internal/ics"
)

// Source kinds.
const (
	SourceFixture = "fixture"
	SourceSQL     = "sql"
	SourceICS     = "ics"
)

// Session kinds.
const (
	SessionFile   = "file"
	SessionRedis  = "redis"
	SessionMemory = "memory"
)

const envPrefix = "PORSCHEVENTS_"

// Duration is a time.Duration written as "800ms", "1h" etc. in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// SourceConfig selects where events and users come from.
type SourceConfig struct {
	// Kind is one of "fixture", "sql" or "ics".
	Kind string `yaml:"kind" json:"kind"`

	// Driver and DSN configure the sql kind. Driver is "sqlite3" or "pgx".
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	// Seed loads the demo catalogue into an sql source on startup.
	Seed bool `yaml:"seed" json:"seed"`

	// Latency is the simulated delay of the fixture source.
	Latency Duration `yaml:"latency" json:"latency"`

	// ICS feeds and expansion bounds for the ics kind.
	ICS         []ics.Feed `yaml:"ics" json:"ics"`
	CacheDir    string     `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
	HorizonDays int        `yaml:"horizon_days" json:"horizon_days"`
}

// SessionConfig selects where the auth session is persisted.
type SessionConfig struct {
	Kind     string `yaml:"kind" json:"kind"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	RedisURL string `yaml:"redis_url,omitempty" json:"redis_url,omitempty"`
	Key      string `yaml:"key,omitempty" json:"key,omitempty"`
}

type AuthConfig struct {
	JWTSecret string   `yaml:"jwt_secret" json:"-"`
	TokenTTL  Duration `yaml:"token_ttl" json:"token_ttl"`
}

type EventsConfig struct {
	PreserveFiltersOnRefresh bool `yaml:"preserve_filters_on_refresh" json:"preserve_filters_on_refresh"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for floating feed times and logs.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is the cron schedule of the background catalogue refresh.
	// "-" disables it.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Source  SourceConfig  `yaml:"source" json:"source"`
	Session SessionConfig `yaml:"session" json:"session"`
	Auth    AuthConfig    `yaml:"auth" json:"auth"`
	Events  EventsConfig  `yaml:"events" json:"events"`

	// SearchDebounce coalesces /api/search calls. Zero applies each call.
	SearchDebounce Duration `yaml:"search_debounce" json:"search_debounce"`

	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in zero values so partially written files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Los_Angeles"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}

	switch c.Source.Kind {
	case SourceFixture, SourceSQL, SourceICS:
	default:
		c.Source.Kind = SourceFixture
	}
	if c.Source.Kind == SourceSQL && c.Source.Driver == "" {
		c.Source.Driver = "sqlite3"
	}
	if c.Source.Kind == SourceSQL && c.Source.DSN == "" {
		c.Source.DSN = "file:porschevents.db?_foreign_keys=on"
	}
	if c.Source.HorizonDays <= 0 {
		c.Source.HorizonDays = 90
	}
	if c.Source.ICS == nil {
		c.Source.ICS = []ics.Feed{}
	}
	for i := range c.Source.ICS {
		if c.Source.ICS[i].ID == "" {
			c.Source.ICS[i].ID = fmt.Sprintf("feed-%d", i+1)
		}
	}

	switch c.Session.Kind {
	case SessionFile, SessionRedis, SessionMemory:
	default:
		c.Session.Kind = SessionFile
	}
	if c.Session.Kind == SessionFile && c.Session.Path == "" {
		c.Session.Path = "./var/session.json"
	}
	if c.Session.Kind == SessionRedis && c.Session.RedisURL == "" {
		c.Session.RedisURL = "redis://localhost:6379/0"
	}

	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = Duration(7 * 24 * time.Hour)
	}
	if c.SearchDebounce < 0 {
		c.SearchDebounce = 0
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if c.Source.Kind == SourceICS && len(c.Source.ICS) == 0 {
		errs = append(errs, errors.New("source.ics: at least one feed is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is empty"))
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		errs = append(errs, errors.New("basic_auth needs both username and password"))
	}
	return errors.Join(errs...)
}

// Load reads the YAML file at path.
//
// On first run the file does not exist: a default config with a random
// jwt secret is written with 0600 perms and returned. Environment overrides are applied after
// the file is read and never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.JWTSecret = secret
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.Normalize()
	return cfg, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables already set. Missing files
// are ignored.
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides selected keys from PORSCHEVENTS_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("LISTEN", &c.Listen)
	str("TIMEZONE", &c.Timezone)
	str("REFRESH", &c.RefreshCron)
	str("SOURCE_KIND", &c.Source.Kind)
	str("SOURCE_DRIVER", &c.Source.Driver)
	str("SOURCE_DSN", &c.Source.DSN)
	str("SESSION_KIND", &c.Session.Kind)
	str("SESSION_PATH", &c.Session.Path)
	str("REDIS_URL", &c.Session.RedisURL)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(envPrefix + "SOURCE_SEED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Source.Seed = b
		}
	}
	if v, ok := lookup(envPrefix + "PRESERVE_FILTERS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Events.PreserveFiltersOnRefresh = b
		}
	}
	if v, ok := lookup(envPrefix + "CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	user, uok := lookup(envPrefix + "BASIC_AUTH_USER")
	pass, pok := lookup(envPrefix + "BASIC_AUTH_PASSWORD")
	if uok && pok && user != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
}

// Save writes cfg to path atomically via a temp file and a rename. The
// parent directory is created 0700 and the file ends up 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".porschevents-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
