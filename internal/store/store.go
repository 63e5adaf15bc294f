// Package store holds the station storage backends. Every backend returns
// stations ordered by ascending ID and may use the filter criteria to narrow
// what it returns; pagination is never pushed down.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/fizy-app/fizy/backend-go/internal/config"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/fizy-app/fizy/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

// Store is a readable and writable station backend.
type Store interface {
	models.StationStore
	models.StationWriter
	Close()
}

// New builds the backend selected by cfg.StoreBackend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	sc := cfg.Store
	log.Info().Str("backend", cfg.StoreBackend).Msg("Initializing station store")

	switch cfg.StoreBackend {
	case config.BackendMemory:
		return newSeededMemoryStore(ctx, cfg)

	case config.BackendS3:
		awsCfg, err := NewAWSConfig(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		snapshot := NewS3Snapshot(NewS3Client(awsCfg), sc.S3Bucket, sc.S3Key)
		return NewSnapshotStore(ctx, snapshot)

	case config.BackendDynamoDB:
		client, err := NewDynamoClient(ctx, sc.DynamoEndpoint)
		if err != nil {
			return nil, fmt.Errorf("creating DynamoDB client: %w", err)
		}
		return NewDynamoStore(client, sc), nil

	case config.BackendPostgres:
		return NewPostgresStore(ctx, sc)

	case config.BackendElasticsearch:
		return NewElasticStore(ctx, sc)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func newSeededMemoryStore(ctx context.Context, cfg *config.Config) (*MemoryStore, error) {
	store := NewMemoryStore(nil)

	var src Source
	switch {
	case cfg.Store.SeedFile != "":
		src = FileSource{Path: cfg.Store.SeedFile}
	case cfg.Store.SeedURL != "":
		src = NewHTTPSource(client.New(client.Options{Timeout: cfg.HTTPTimeout}), cfg.Store.SeedURL)
	default:
		log.Warn().Msg("No seed configured, memory store starts empty")
		return store, nil
	}

	if err := store.Load(ctx, src); err != nil {
		return nil, err
	}
	return store, nil
}

func sortByID(stations []models.Station) {
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].ID < stations[j].ID
	})
}
