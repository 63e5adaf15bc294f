package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// StoreConfig holds the settings of every station store backend. Only the
// fields of the selected backend are required.
type StoreConfig struct {
	// Memory store seeding; SeedFile wins over SeedURL.
	SeedFile string
	SeedURL  string

	// S3 snapshot
	S3Bucket string
	S3Key    string

	// DynamoDB
	DynamoTable     string
	DynamoEndpoint  string
	BatchSize       int
	MaxBatchRetries int

	// PostgreSQL
	DatabaseURL  string
	MaxConns     int
	QueryTimeout time.Duration

	// Elasticsearch
	ElasticsearchURL   string
	ElasticsearchIndex string
	MaxSearchHits      int
}

const (
	defaultS3Key              = "stations.json"
	defaultDynamoTable        = "fuel-stations"
	defaultBatchSize          = 25
	defaultMaxBatchRetries    = 3
	defaultMaxConns           = 10
	defaultQueryTimeout       = 5 * time.Second
	defaultElasticsearchIndex = "stations"
	defaultMaxSearchHits      = 10000
)

func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		S3Key:              defaultS3Key,
		DynamoTable:        defaultDynamoTable,
		BatchSize:          defaultBatchSize,
		MaxBatchRetries:    defaultMaxBatchRetries,
		MaxConns:           defaultMaxConns,
		QueryTimeout:       defaultQueryTimeout,
		ElasticsearchIndex: defaultElasticsearchIndex,
		MaxSearchHits:      defaultMaxSearchHits,
	}
}

func setStoreDefaults(v *viper.Viper) {
	v.SetDefault("S3_KEY", defaultS3Key)
	v.SetDefault("DYNAMODB_TABLE", defaultDynamoTable)
	v.SetDefault("DYNAMODB_BATCH_SIZE", defaultBatchSize)
	v.SetDefault("DYNAMODB_MAX_BATCH_RETRIES", defaultMaxBatchRetries)
	v.SetDefault("DATABASE_MAX_CONNS", defaultMaxConns)
	v.SetDefault("ELASTICSEARCH_INDEX", defaultElasticsearchIndex)
	v.SetDefault("ELASTICSEARCH_MAX_HITS", defaultMaxSearchHits)
}

func loadStoreConfig(v *viper.Viper) *StoreConfig {
	cfg := &StoreConfig{
		SeedFile:           v.GetString("SEED_FILE"),
		SeedURL:            v.GetString("SEED_URL"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Key:              v.GetString("S3_KEY"),
		DynamoTable:        v.GetString("DYNAMODB_TABLE"),
		DynamoEndpoint:     v.GetString("DYNAMODB_ENDPOINT"),
		BatchSize:          getPositiveInt(v, "DYNAMODB_BATCH_SIZE", defaultBatchSize),
		MaxBatchRetries:    getPositiveInt(v, "DYNAMODB_MAX_BATCH_RETRIES", defaultMaxBatchRetries),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		MaxConns:           getPositiveInt(v, "DATABASE_MAX_CONNS", defaultMaxConns),
		QueryTimeout:       getDuration(v, "STORE_QUERY_TIMEOUT", defaultQueryTimeout),
		ElasticsearchURL:   v.GetString("ELASTICSEARCH_URL"),
		ElasticsearchIndex: v.GetString("ELASTICSEARCH_INDEX"),
		MaxSearchHits:      getPositiveInt(v, "ELASTICSEARCH_MAX_HITS", defaultMaxSearchHits),
	}

	log.Debug().
		Str("S3Bucket", cfg.S3Bucket).
		Str("S3Key", cfg.S3Key).
		Str("DynamoTable", cfg.DynamoTable).
		Int("BatchSize", cfg.BatchSize).
		Int("MaxBatchRetries", cfg.MaxBatchRetries).
		Int("MaxConns", cfg.MaxConns).
		Dur("QueryTimeout", cfg.QueryTimeout).
		Str("ElasticsearchIndex", cfg.ElasticsearchIndex).
		Int("MaxSearchHits", cfg.MaxSearchHits).
		Msg("Store configuration loaded")

	return cfg
}

func (c *StoreConfig) validate(backend string) error {
	switch backend {
	case BackendS3:
		if c.S3Bucket == "" {
			return &ConfigError{Field: "S3_BUCKET", Message: "required for the s3 backend"}
		}
	case BackendDynamoDB:
		if c.DynamoTable == "" {
			return &ConfigError{Field: "DYNAMODB_TABLE", Message: "required for the dynamodb backend"}
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return &ConfigError{Field: "DATABASE_URL", Message: "required for the postgres backend"}
		}
	case BackendElasticsearch:
		if c.ElasticsearchURL == "" {
			return &ConfigError{Field: "ELASTICSEARCH_URL", Message: "required for the elasticsearch backend"}
		}
	}
	if c.QueryTimeout <= 0 {
		return &ConfigError{Field: "STORE_QUERY_TIMEOUT", Message: "must be positive"}
	}
	return nil
}

func getPositiveInt(v *viper.Viper, key string, defaultVal int) int {
	if val := v.GetInt(key); val > 0 {
		return val
	}
	log.Warn().Str("key", key).Msg("Invalid integer value in configuration, using default")
	return defaultVal
}
