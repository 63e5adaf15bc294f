package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/fizy-app/fizy/backend-go/internal/config"
	"github.com/fizy-app/fizy/backend-go/internal/handler"
	"github.com/fizy-app/fizy/backend-go/internal/station"
	"github.com/fizy-app/fizy/backend-go/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	lambdaStart     = lambda.Start // Allow mocking of lambda.Start in tests
	stationsHandler *handler.StationsHandler
	setupOnce       sync.Once
	setupErr        error
)

// setup builds the handler once per container; warm invocations reuse it.
func setup(ctx context.Context) error {
	setupOnce.Do(func() {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			setupErr = fmt.Errorf("loading config: %w", err)
			return
		}
		cfg.InitializeLogging()

		st, err := store.New(ctx, cfg)
		if err != nil {
			setupErr = fmt.Errorf("initializing %s store: %w", cfg.StoreBackend, err)
			return
		}

		mode, err := station.ParsePaginationMode(cfg.PaginationMode)
		if err != nil {
			setupErr = err
			return
		}

		stationsHandler = handler.NewStationsHandler(st,
			station.NewEngine(mode),
			handler.WithStrictQueryValidation(cfg.StrictQueryValidation),
			handler.WithRequestTimeout(cfg.RequestTimeout),
		)

		log.Info().
			Str("backend", cfg.StoreBackend).
			Str("pagination_mode", string(mode)).
			Bool("strict", cfg.StrictQueryValidation).
			Msg("Stations handler ready")
	})
	return setupErr
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return stationsHandler.HandleRequest(ctx, request)
}

func main() {
	if err := setup(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize stations function")
	}
	lambdaStart(handleRequest)
}
