package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/service-calculator/internal/solver"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultEnvFile        = ".env"

	defaultExactMaxItems = 6
	defaultNodeBudget    = 2_000_000
	defaultMaxAdditional = 50
	defaultSearchMargin  = 5
	defaultTolerance     = 0.01
	defaultCacheTTL      = 10 * time.Minute

	defaultJSONCatalogPath   = "catalog.json"
	defaultSQLiteCatalogPath = "catalog.db"
)

// Catalog drivers.
const (
	DriverMemory = "memory"
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables (.env included) > YAML config > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int

	CatalogDriver string
	CatalogPath   string

	ExactMaxItems  int
	MaxAdditional  int
	SearchMargin   int
	NodeBudget     int
	TiePolicy      string
	FloorAtCurrent bool
	Tolerance      float64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	LogLevel  string
	LogFormat string
}

// CacheEnabled reports whether a Redis address is configured.
func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Catalog              yamlCatalog   `yaml:"catalog"`
	Solver               yamlSolver    `yaml:"solver"`
	Cache                yamlCache     `yaml:"cache"`
	Logging              yamlLogging   `yaml:"logging"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlCatalog struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type yamlSolver struct {
	ExactMaxItems  *int     `yaml:"exact_max_items"`
	MaxAdditional  *int     `yaml:"max_additional"`
	SearchMargin   *int     `yaml:"search_margin"`
	NodeBudget     *int     `yaml:"node_budget"`
	TiePolicy      string   `yaml:"tie_policy"`
	FloorAtCurrent *bool    `yaml:"floor_at_current"`
	Tolerance      *float64 `yaml:"tolerance"`
}

type yamlCache struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       *int   `yaml:"redis_db"`
	TTL           string `yaml:"ttl"`
}

type yamlLogging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	CatalogDriver  *string
	CatalogPath    *string
	RedisAddr      *string
	ExactMaxItems  *int
	TiePolicy      *string
	FloorAtCurrent *bool
	LogLevel       *string
	LogFormat      *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables (.env included) > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// .env never overrides variables already present in the environment
	envFile := defaultEnvFile
	explicitEnv := false
	if overrides != nil && overrides.EnvFile != "" {
		envFile = overrides.EnvFile
		explicitEnv = true
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicitEnv || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	// Apply environment variables (override YAML)
	applyEnvConfig(&cfg)

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	resolveCatalogPath(&cfg)

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		CatalogDriver:        DriverMemory,
		ExactMaxItems:        defaultExactMaxItems,
		MaxAdditional:        defaultMaxAdditional,
		SearchMargin:         defaultSearchMargin,
		NodeBudget:           defaultNodeBudget,
		TiePolicy:            solver.PreferUndershoot.String(),
		FloorAtCurrent:       true,
		Tolerance:            defaultTolerance,
		CacheTTL:             defaultCacheTTL,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"cache.ttl", yamlCfg.Cache.TTL, &cfg.CacheTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Catalog.Driver != "" {
		cfg.CatalogDriver = yamlCfg.Catalog.Driver
	}
	if yamlCfg.Catalog.Path != "" {
		cfg.CatalogPath = yamlCfg.Catalog.Path
	}

	if yamlCfg.Solver.ExactMaxItems != nil {
		cfg.ExactMaxItems = *yamlCfg.Solver.ExactMaxItems
	}
	if yamlCfg.Solver.MaxAdditional != nil {
		cfg.MaxAdditional = *yamlCfg.Solver.MaxAdditional
	}
	if yamlCfg.Solver.SearchMargin != nil {
		cfg.SearchMargin = *yamlCfg.Solver.SearchMargin
	}
	if yamlCfg.Solver.NodeBudget != nil {
		cfg.NodeBudget = *yamlCfg.Solver.NodeBudget
	}
	if yamlCfg.Solver.TiePolicy != "" {
		cfg.TiePolicy = yamlCfg.Solver.TiePolicy
	}
	if yamlCfg.Solver.FloorAtCurrent != nil {
		cfg.FloorAtCurrent = *yamlCfg.Solver.FloorAtCurrent
	}
	if yamlCfg.Solver.Tolerance != nil {
		cfg.Tolerance = *yamlCfg.Solver.Tolerance
	}

	if yamlCfg.Cache.RedisAddr != "" {
		cfg.RedisAddr = yamlCfg.Cache.RedisAddr
	}
	if yamlCfg.Cache.RedisPassword != "" {
		cfg.RedisPassword = yamlCfg.Cache.RedisPassword
	}
	if yamlCfg.Cache.RedisDB != nil {
		cfg.RedisDB = *yamlCfg.Cache.RedisDB
	}

	if yamlCfg.Logging.Level != "" {
		cfg.LogLevel = yamlCfg.Logging.Level
	}
	if yamlCfg.Logging.Format != "" {
		cfg.LogFormat = yamlCfg.Logging.Format
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
// Malformed values are ignored and the previous setting is kept.
func applyEnvConfig(cfg *Config) {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if raw := env("ENABLE_REQUEST_LOGGING"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.EnableRequestLogging = value
		}
	}

	if driver := env("CATALOG_DRIVER"); driver != "" {
		cfg.CatalogDriver = strings.ToLower(driver)
	}
	if path := env("CATALOG_PATH"); path != "" {
		cfg.CatalogPath = path
	}

	envInt("SOLVER_EXACT_MAX_ITEMS", &cfg.ExactMaxItems)
	envInt("SOLVER_MAX_ADDITIONAL", &cfg.MaxAdditional)
	envInt("SOLVER_SEARCH_MARGIN", &cfg.SearchMargin)
	envInt("SOLVER_NODE_BUDGET", &cfg.NodeBudget)
	if policy := env("SOLVER_TIE_POLICY"); policy != "" {
		cfg.TiePolicy = policy
	}
	if raw := env("SOLVER_FLOOR_AT_CURRENT"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.FloorAtCurrent = value
		}
	}
	if raw := env("SOLVER_TOLERANCE"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.Tolerance = value
		}
	}

	if addr := env("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	if password := env("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}
	envInt("REDIS_DB", &cfg.RedisDB)
	if raw := env("CACHE_TTL"); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil && value >= 0 {
			cfg.CacheTTL = value
		}
	}

	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := env("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string, dst *int) {
	raw := env(key)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
		*dst = value
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.CatalogDriver != nil && *overrides.CatalogDriver != "" {
		cfg.CatalogDriver = strings.ToLower(*overrides.CatalogDriver)
	}
	if overrides.CatalogPath != nil && *overrides.CatalogPath != "" {
		cfg.CatalogPath = *overrides.CatalogPath
	}
	if overrides.RedisAddr != nil && *overrides.RedisAddr != "" {
		cfg.RedisAddr = *overrides.RedisAddr
	}
	if overrides.ExactMaxItems != nil && *overrides.ExactMaxItems >= 0 {
		cfg.ExactMaxItems = *overrides.ExactMaxItems
	}
	if overrides.TiePolicy != nil && *overrides.TiePolicy != "" {
		cfg.TiePolicy = *overrides.TiePolicy
	}
	if overrides.FloorAtCurrent != nil {
		cfg.FloorAtCurrent = *overrides.FloorAtCurrent
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.LogFormat != nil && *overrides.LogFormat != "" {
		cfg.LogFormat = *overrides.LogFormat
	}
}

func resolveCatalogPath(cfg *Config) {
	if cfg.CatalogPath != "" {
		return
	}
	switch cfg.CatalogDriver {
	case DriverJSON:
		cfg.CatalogPath = defaultJSONCatalogPath
	case DriverSQLite:
		cfg.CatalogPath = defaultSQLiteCatalogPath
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	switch cfg.CatalogDriver {
	case DriverMemory, DriverJSON, DriverSQLite:
	default:
		return fmt.Errorf("catalog driver must be one of memory, json, sqlite; got %q", cfg.CatalogDriver)
	}
	if cfg.ExactMaxItems < 0 || cfg.MaxAdditional < 0 || cfg.SearchMargin < 0 {
		return fmt.Errorf("solver limits must be >= 0")
	}
	if cfg.NodeBudget <= 0 {
		return fmt.Errorf("solver node budget must be > 0, got %d", cfg.NodeBudget)
	}
	if _, err := solver.ParseTiePolicy(cfg.TiePolicy); err != nil {
		return err
	}
	if cfg.Tolerance <= 0 || cfg.Tolerance >= 1 {
		return fmt.Errorf("solver tolerance must be between 0 and 1, got %v", cfg.Tolerance)
	}
	if cfg.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must be >= 0")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be json or console, got %q", cfg.LogFormat)
	}
	return nil
}
