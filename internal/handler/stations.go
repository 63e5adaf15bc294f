package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/fizy-app/fizy/backend-go/internal/api"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/fizy-app/fizy/backend-go/internal/station"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrStationNotFound is returned by Get for unknown or malformed IDs.
var ErrStationNotFound = errors.New("station not found")

const (
	messageStorageUnavailable = "station storage is unavailable"
	messageRequestTimeout     = "request timed out"
)

type StationsHandler struct {
	store   models.StationStore
	engine  *station.Engine
	parse   station.ParseOptions
	timeout time.Duration
}

type Option func(*StationsHandler)

func WithStrictQueryValidation(strict bool) Option {
	return func(h *StationsHandler) {
		h.parse.Strict = strict
	}
}

// WithRequestTimeout bounds each Lambda invocation; zero leaves the context alone.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(h *StationsHandler) {
		h.timeout = timeout
	}
}

func NewStationsHandler(store models.StationStore, engine *station.Engine, opts ...Option) *StationsHandler {
	if engine == nil {
		engine = station.NewEngine(station.SortThenPaginate)
	}
	h := &StationsHandler{
		store:  store,
		engine: engine,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// List parses the query, fetches candidates from the store and runs the engine.
func (h *StationsHandler) List(ctx context.Context, params map[string]string) (*models.Result, error) {
	query, err := station.ParseQuery(params, h.parse)
	if err != nil {
		return nil, err
	}

	stations, err := h.store.FindStations(ctx, query.Criteria())
	if err != nil {
		return nil, err
	}

	result := h.engine.Query(stations, query)

	Logger(ctx).Debug().
		Int("station_count", len(stations)).
		Int("page", result.Page).
		Int("limit", result.Limit).
		Int("count", result.Count).
		Msg("Listed stations")
	return &result, nil
}

// Get looks a single station up by its decimal ID.
func (h *StationsHandler) Get(ctx context.Context, rawID string) (*models.Station, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrStationNotFound
	}

	s, err := h.store.GetStation(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrStationNotFound
	}
	return s, nil
}

// Classify maps an error from List or Get to what the client is told. Store
// errors are logged here and never echoed.
func Classify(ctx context.Context, err error) (api.ErrorKind, string) {
	var invalid *station.InvalidQueryError
	switch {
	case errors.As(err, &invalid):
		return api.KindInvalidQuery, invalid.Error()
	case errors.Is(err, ErrStationNotFound):
		return api.KindNotFound, ErrStationNotFound.Error()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		Logger(ctx).Warn().Err(err).Msg("Request deadline exceeded")
		return api.KindRequestTimeout, messageRequestTimeout
	default:
		Logger(ctx).Error().Err(err).Msg("Station store failed")
		return api.KindStorageUnavailable, messageStorageUnavailable
	}
}

// HandleRequest is the Lambda entry point. Requests carrying an "id" path
// parameter are lookups; everything else is a listing.
func (h *StationsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := log.With().Str("request_id", request.RequestContext.RequestID).Logger()
	ctx = logger.WithContext(ctx)

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if request.HTTPMethod != "" && request.HTTPMethod != http.MethodGet {
		return api.Error(api.KindNotFound, "route not found")
	}

	if id, ok := request.PathParameters["id"]; ok {
		s, err := h.Get(ctx, id)
		if err != nil {
			return api.Error(Classify(ctx, err))
		}
		return api.Success(api.NewStationResponse(*s))
	}

	result, err := h.List(ctx, request.QueryStringParameters)
	if err != nil {
		return api.Error(Classify(ctx, err))
	}
	return api.Success(api.NewStationsResponse(*result))
}

// Logger returns the request-scoped logger, or the global one outside a request.
func Logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
