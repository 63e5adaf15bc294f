package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fizy-app/fizy/backend-go/internal/config"
	"github.com/fizy-app/fizy/backend-go/internal/handler"
	"github.com/fizy-app/fizy/backend-go/internal/server"
	"github.com/fizy-app/fizy/backend-go/internal/station"
	"github.com/fizy-app/fizy/backend-go/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// newServer builds the HTTP server and the store backing it. The caller owns
// the returned store and must close it.
func newServer(ctx context.Context, cfg *config.Config) (*http.Server, store.Store, error) {
	st, err := store.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing %s store: %w", cfg.StoreBackend, err)
	}

	mode, err := station.ParsePaginationMode(cfg.PaginationMode)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	h := handler.NewStationsHandler(st,
		station.NewEngine(mode),
		handler.WithStrictQueryValidation(cfg.StrictQueryValidation),
	)

	if cfg.Environment != "local" && cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.NewRouter(h, cfg.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, st, nil
}

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.InitializeLogging()

	srv, st, err := newServer(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}
	defer st.Close()

	go func() {
		log.Info().Int("port", cfg.Port).Str("backend", cfg.StoreBackend).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shut down")
		return
	}
	log.Info().Msg("Server stopped")
}
