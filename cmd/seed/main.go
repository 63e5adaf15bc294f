// Command seed loads a station list from a JSON file or URL and writes it to
// the configured store backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fizy-app/fizy/backend-go/internal/config"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/fizy-app/fizy/backend-go/internal/store"
	"github.com/fizy-app/fizy/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

var (
	errNoSource      = errors.New("one of -file or -url is required")
	errMemoryBackend = errors.New("the memory backend does not persist; set STORE_BACKEND to s3, dynamodb, postgres or elasticsearch")
)

// checkBackend rejects backends whose writes are lost when the process exits.
func checkBackend(cfg *config.Config) error {
	if cfg.StoreBackend == config.BackendMemory {
		return errMemoryBackend
	}
	return nil
}

// sourceFromArgs parses the command line into a station source.
func sourceFromArgs(args []string, cfg *config.Config, output io.Writer) (store.Source, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(output)
	file := fs.String("file", "", "path to a JSON station list")
	url := fs.String("url", "", "URL of a JSON station list")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case *file != "":
		return store.FileSource{Path: *file}, nil
	case *url != "":
		return store.NewHTTPSource(client.New(client.Options{Timeout: cfg.HTTPTimeout}), *url), nil
	default:
		return nil, errNoSource
	}
}

// validStations drops stations that fail validation, logging each one.
func validStations(stations []models.Station) []models.Station {
	valid := make([]models.Station, 0, len(stations))
	for i := range stations {
		if err := stations[i].Validate(); err != nil {
			log.Warn().Err(err).Int64("id", stations[i].ID).Msg("Skipping invalid station")
			continue
		}
		valid = append(valid, stations[i])
	}
	return valid
}

// run loads stations from src and saves the valid ones to dst.
func run(ctx context.Context, src store.Source, dst models.StationWriter) (int, error) {
	stations, err := src.LoadStations(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading stations from %s: %w", src, err)
	}

	valid := validStations(stations)
	if len(valid) == 0 {
		return 0, fmt.Errorf("no valid stations in %s", src)
	}

	if err := dst.SaveStations(ctx, valid); err != nil {
		return 0, fmt.Errorf("saving stations: %w", err)
	}
	return len(valid), nil
}

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.InitializeLogging()

	if err := checkBackend(cfg); err != nil {
		log.Fatal().Err(err).Msg("Unsupported store backend")
	}

	src, err := sourceFromArgs(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid arguments")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer st.Close()

	count, err := run(ctx, src, st)
	if err != nil {
		log.Error().Err(err).Msg("Seeding failed")
		return
	}
	log.Info().Int("count", count).Str("backend", cfg.StoreBackend).Str("source", src.String()).Msg("Seeded stations")
}
