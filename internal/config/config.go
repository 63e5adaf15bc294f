package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory        = "memory"
	BackendS3            = "s3"
	BackendDynamoDB      = "dynamodb"
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"
)

// Pagination modes selectable with PAGINATION_MODE.
const (
	PaginationSortThenPaginate = "sort-then-paginate"
	PaginationPaginateThenSort = "paginate-then-sort"
)

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

type Config struct {
	Environment    string
	LogLevel       zerolog.Level
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration
	Port           int

	StoreBackend string
	Store        *StoreConfig

	// StrictQueryValidation rejects malformed query parameters with a 400
	// instead of silently ignoring them.
	StrictQueryValidation bool
	PaginationMode        string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the timeout used when fetching seed data over HTTP
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

func WithStoreBackend(backend string) Option {
	return func(c *Config) {
		c.StoreBackend = strings.ToLower(backend)
	}
}

func WithStoreConfig(store *StoreConfig) Option {
	return func(c *Config) {
		c.Store = store
	}
}

func WithStrictQueryValidation(strict bool) Option {
	return func(c *Config) {
		c.StrictQueryValidation = strict
	}
}

func WithPaginationMode(mode string) Option {
	return func(c *Config) {
		c.PaginationMode = strings.ToLower(mode)
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:    "production",
		LogLevel:       zerolog.InfoLevel,
		HTTPTimeout:    10 * time.Second,
		RequestTimeout: 10 * time.Second,
		Port:           3000,
		StoreBackend:   BackendMemory,
		Store:          DefaultStoreConfig(),
		PaginationMode: PaginationSortThenPaginate,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Validate checks the settings New and the options cannot correct on their own.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "REQUEST_TIMEOUT", Message: "must be positive"})
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "HTTP_TIMEOUT", Message: "must be positive"})
	}
	switch c.StoreBackend {
	case BackendMemory, BackendS3, BackendDynamoDB, BackendPostgres, BackendElasticsearch:
	default:
		errs = append(errs, &ConfigError{Field: "STORE_BACKEND", Message: fmt.Sprintf("unknown backend %q", c.StoreBackend)})
	}
	switch c.PaginationMode {
	case PaginationSortThenPaginate, PaginationPaginateThenSort:
	default:
		errs = append(errs, &ConfigError{Field: "PAGINATION_MODE", Message: fmt.Sprintf("unknown mode %q", c.PaginationMode)})
	}
	if c.Store == nil {
		errs = append(errs, &ConfigError{Field: "Store", Message: "store configuration is missing"})
	} else {
		errs = append(errs, c.Store.validate(c.StoreBackend))
	}
	return errors.Join(errs...)
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

// LoadFromEnv loads configuration from environment variables, and from the
// file named by FIZY_CONFIG_FILE when it is set. Environment variables win.
func LoadFromEnv() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	port := v.GetInt("PORT")
	if raw := v.GetString("PORT"); raw != "" && port == 0 {
		return nil, &ConfigError{Field: "PORT", Message: "must be a valid integer"}
	}

	cfg := New(
		WithEnvironment(v.GetString("ENV")),
		WithLogLevel(v.GetString("LOG_LEVEL")),
		WithHTTPTimeout(getDuration(v, "HTTP_TIMEOUT", 10*time.Second)),
		WithRequestTimeout(getDuration(v, "REQUEST_TIMEOUT", 10*time.Second)),
		WithPort(port),
		WithStoreBackend(v.GetString("STORE_BACKEND")),
		WithStoreConfig(loadStoreConfig(v)),
		WithStrictQueryValidation(v.GetBool("STRICT_QUERY_VALIDATION")),
		WithPaginationMode(v.GetString("PAGINATION_MODE")),
	)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "3000")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("STRICT_QUERY_VALIDATION", false)
	v.SetDefault("PAGINATION_MODE", PaginationSortThenPaginate)
	setStoreDefaults(v)

	if file := os.Getenv("FIZY_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
		log.Debug().Str("file", file).Msg("Loaded config file")
	}
	return v, nil
}

func getDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	if value := v.GetString(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Warn().Str("key", key).Msg("Invalid duration value, using default")
	}
	return defaultValue
}
