// Package config manages environment variables.
//
// It reads variables from an optional YAML file and the process
// environment (including a `.env` file), loads them into structured
// Go types, and validates that required values are present so they
// can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (e.g. observability).
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it gets loaded into the
	// process env before any env var is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

/*
	Key idea in this file:
	- An optional YAML file (path in COVID_CONFIG_FILE) is loaded first
	- Env vars are read using a prefix: COVID_, and win over the file
	- Keys are normalized (lowercased, prefix removed)
	- Nested struct fields are mapped via "dot notation" using the "." delimiter
	  e.g. COVID_SERVER.PORT -> server.port -> Config.Server.Port
*/

const (
	// EnvPrefix is the prefix every environment variable must carry.
	EnvPrefix = "COVID_"

	// ConfigFileEnv names the env var holding an optional YAML config path.
	ConfigFileEnv = "COVID_CONFIG_FILE"

	// ServiceName tags logs and traces.
	ServiceName = "covid-api"
)

// Database drivers understood by the repository layer.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// we inject defaults at runtime.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Cache         CacheConfig          `koanf:"cache"`
	App           AppConfig            `koanf:"app"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
//
// Read/write/idle timeouts are seconds. RequestTimeout bounds every request
// context, including store calls.
type ServerConfig struct {
	Port               string        `koanf:"port" validate:"required"`
	ReadTimeout        int           `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int           `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int           `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins" validate:"required"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	DocsEnabled        bool          `koanf:"docs_enabled"`
	RateLimitRPS       float64       `koanf:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst     int           `koanf:"rate_limit_burst" validate:"gte=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
//
// With Driver set to "memory" the connection fields are ignored and the
// process keeps all data in memory.
type DatabaseConfig struct {
	Driver          string `koanf:"driver" validate:"omitempty,oneof=postgres memory"`
	Host            string `koanf:"host" validate:"required_unless=Driver memory"`
	Port            int    `koanf:"port" validate:"required_unless=Driver memory"`
	User            string `koanf:"user" validate:"required_unless=Driver memory"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required_unless=Driver memory"`
	SSLMode         string `koanf:"ssl_mode"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// UsesMemory reports whether the in-memory stores are selected.
func (d DatabaseConfig) UsesMemory() bool {
	return d.Driver == DriverMemory
}

// DSN builds the postgres URL for pgx. The password is URL-escaped.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	hostPort := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		d.User, url.QueryEscape(d.Password), hostPort, d.Name, sslMode)
}

// RedisConfig contains Redis connection details.
// Address is "host:port"; empty disables the cache and background jobs.
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// AuthConfig stores authentication-related secrets.
//
// TokenTTL of zero issues tokens without an expiry claim.
type AuthConfig struct {
	SecretKey  string        `koanf:"secret_key" validate:"required,min=16"`
	TokenTTL   time.Duration `koanf:"token_ttl" validate:"gte=0"`
	BcryptCost int           `koanf:"bcrypt_cost" validate:"omitempty,min=10,max=31"`
}

// IntegrationConfig holds credentials for third-party services.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	EmailFrom    string `koanf:"email_from"`
}

// CacheConfig controls the summary cache stored in Redis.
//
// SummaryTTL of zero takes DefaultSummaryTTL; a negative value disables
// summary caching.
type CacheConfig struct {
	SummaryTTL time.Duration `koanf:"summary_ttl"`
}

// AppConfig holds domain tuning knobs.
type AppConfig struct {
	// AggregationConcurrency bounds parallel per-country lookups.
	AggregationConcurrency int `koanf:"aggregation_concurrency" validate:"gte=0"`

	// CountriesFile optionally replaces the embedded country reference list.
	CountriesFile string `koanf:"countries_file"`
}

// Default values applied after unmarshal when a field is left empty.
const (
	DefaultBcryptCost             = 10
	DefaultRequestTimeout         = 10 * time.Second
	DefaultAggregationConcurrency = 8
	DefaultSummaryTTL             = time.Minute
	DefaultRateLimitRPS           = 5
	DefaultRateLimitBurst         = 10
)

// LoadConfig loads configuration from an optional YAML file and environment
// variables, unmarshals it into Config, validates it, applies defaults, and
// returns the resulting config.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("could not load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := mainConfig.Finalize(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// listKeys are read from env as comma-separated values.
var listKeys = map[string]bool{
	"server.cors_allowed_origins": true,
}

// envValue maps COVID_SERVER.PORT to server.port and splits list values.
func envValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if !listKeys[key] {
		return key, value
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return key, items
}

// Finalize applies defaults and runs struct and observability validation.
// LoadConfig calls it; tests building a Config by hand call it directly.
func (c *Config) Finalize() error {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = DefaultBcryptCost
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = DefaultRequestTimeout
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = DefaultRateLimitRPS
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = DefaultRateLimitBurst
	}
	if c.App.AggregationConcurrency == 0 {
		c.App.AggregationConcurrency = DefaultAggregationConcurrency
	}
	if c.Cache.SummaryTTL == 0 {
		c.Cache.SummaryTTL = DefaultSummaryTTL
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment always come from the primary block so
	// every log line and trace is labelled consistently.
	c.Observability.ServiceName = ServiceName
	c.Observability.Environment = c.Primary.Env

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}
