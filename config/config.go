package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/entityindex/registry"
	"github.com/jonwraymond/entityindex/store"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the entityindex configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Resolver ResolverConfig `yaml:"resolver"`
	Registry RegistryConfig `yaml:"registry"`
	Entities Entities       `yaml:"entities"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, dev, prod (default: local)
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// IndexConfig holds bleve index settings.
type IndexConfig struct {
	Path        string        `yaml:"path"` // empty: in memory
	LockTimeout time.Duration `yaml:"lock_timeout"`
	BatchSize   int           `yaml:"batch_size"`
	Parallelism int           `yaml:"parallelism"`
}

// SearchConfig holds paging limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// DatabaseConfig holds the system of record connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, sqlite3, pgx (default: sqlite)
	DSN    string `yaml:"dsn"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ResolverConfig holds searchable id cache settings.
type ResolverConfig struct {
	CacheSize int           `yaml:"cache_size"` // 0 disables the cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// RegistryConfig holds registry construction settings.
type RegistryConfig struct {
	StrictBoosts bool `yaml:"strict_boosts"`
}

// Load reads configuration from a YAML file, expands ${VAR} and
// ${VAR:-default} from the environment, applies defaults and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
	if c.Index.LockTimeout <= 0 {
		c.Index.LockTimeout = 5 * time.Second
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 500
	}
	if c.Index.Parallelism <= 0 {
		c.Index.Parallelism = 4
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 1000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = store.DriverSQLite
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	for i := range c.Entities {
		e := &c.Entities[i]
		if e.Table == "" {
			e.Table = e.Name
		}
		if e.PrimaryKey == "" {
			e.PrimaryKey = "id"
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Logging.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("%w: logging.env must be local, dev or prod, got %q", ErrInvalidConfig, c.Logging.Env)
	}
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverSQLite3, store.DriverPgx:
	default:
		return fmt.Errorf("%w: database.driver must be sqlite, sqlite3 or pgx, got %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("%w: search.default_limit %d exceeds search.max_limit %d",
			ErrInvalidConfig, c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Resolver.CacheSize < 0 {
		return fmt.Errorf("%w: resolver.cache_size must not be negative", ErrInvalidConfig)
	}
	if len(c.Entities) == 0 {
		return fmt.Errorf("%w: entities is required", ErrInvalidConfig)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required", ErrInvalidConfig)
	}
	for _, e := range c.Entities {
		if len(e.Fields) == 0 && !e.OptionalAttributes.Enabled() {
			return fmt.Errorf("%w: entities.%s declares neither fields nor optional_attributes", ErrInvalidConfig, e.Name)
		}
	}
	return nil
}

// RegistryOptions returns the registry options the configuration selects.
func (c *Config) RegistryOptions() []registry.Option {
	var opts []registry.Option
	if c.Registry.StrictBoosts {
		opts = append(opts, registry.WithStrictBoosts())
	}
	return opts
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
