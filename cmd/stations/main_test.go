package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/fizy-app/fizy/backend-go/internal/handler"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/fizy-app/fizy/backend-go/internal/station"
	"github.com/fizy-app/fizy/backend-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStations() []models.Station {
	return []models.Station{
		{ID: 1, Name: "Posto Shell", Address: "Av. São Carlos, 100", Latitude: -22.0195, Longitude: -47.891, Rating: 4.5},
		{ID: 2, Name: "Ipiranga", Address: "Rua Episcopal, 200", Latitude: -22.01, Longitude: -47.89, Rating: 3.9},
	}
}

func TestMain(m *testing.M) {
	// Set up test environment
	for _, key := range []string{"FIZY_CONFIG_FILE", "STORE_BACKEND", "SEED_URL", "PORT", "PAGINATION_MODE", "STRICT_QUERY_VALIDATION"} {
		_ = os.Unsetenv(key)
	}
	_ = os.Setenv("LOG_LEVEL", "debug")
	_ = os.Setenv("ENV", "test")

	os.Exit(m.Run())
}

func TestLambdaInit(t *testing.T) {
	data, err := json.Marshal(createTestStations())
	require.NoError(t, err)
	seed := filepath.Join(t.TempDir(), "stations.json")
	require.NoError(t, os.WriteFile(seed, data, 0o600))
	t.Setenv("SEED_FILE", seed)

	originalStartFn := lambdaStart
	originalHandler := stationsHandler
	defer func() {
		lambdaStart = originalStartFn
		stationsHandler = originalHandler
	}()

	var startCalled bool
	lambdaStart = func(handler interface{}) {
		startCalled = true

		// Verify the handler has the correct signature
		handlerType := reflect.TypeOf(handler)
		require.Equal(t, reflect.Func, handlerType.Kind())

		contextInterface := reflect.TypeOf((*context.Context)(nil)).Elem()
		errorInterface := reflect.TypeOf((*error)(nil)).Elem()
		assert.Equal(t, 2, handlerType.NumIn())
		assert.Equal(t, 2, handlerType.NumOut())
		assert.True(t, handlerType.In(0).Implements(contextInterface))
		assert.Equal(t, reflect.TypeOf(events.APIGatewayProxyRequest{}), handlerType.In(1))
		assert.Equal(t, reflect.TypeOf(events.APIGatewayProxyResponse{}), handlerType.Out(0))
		assert.True(t, handlerType.Out(1).Implements(errorInterface))
	}

	main()

	assert.True(t, startCalled, "Lambda start was not called")
	require.NotNil(t, stationsHandler)

	response, err := handleRequest(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Body, "Posto Shell")
}

func TestHandleRequest(t *testing.T) {
	tests := []struct {
		name           string
		request        events.APIGatewayProxyRequest
		expectedStatus int
		expectedType   string
	}{
		{
			name: "listing",
			request: events.APIGatewayProxyRequest{
				Path:                  "/api/stations/all",
				QueryStringParameters: map[string]string{"limit": "1"},
			},
			expectedStatus: http.StatusOK,
			expectedType:   "stations",
		},
		{
			name: "lookup by ID",
			request: events.APIGatewayProxyRequest{
				Path:           "/api/stations/2",
				PathParameters: map[string]string{"id": "2"},
			},
			expectedStatus: http.StatusOK,
			expectedType:   "station",
		},
		{
			name: "station not found",
			request: events.APIGatewayProxyRequest{
				PathParameters: map[string]string{"id": "404"},
			},
			expectedStatus: http.StatusNotFound,
			expectedType:   "error",
		},
	}

	originalHandler := stationsHandler
	defer func() { stationsHandler = originalHandler }()
	stationsHandler = handler.NewStationsHandler(store.NewMemoryStore(createTestStations()), station.NewEngine(station.SortThenPaginate))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := handleRequest(context.Background(), tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, response.StatusCode)

			var responseBody map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(response.Body), &responseBody))
			assert.Equal(t, tt.expectedType, responseBody["responseType"])
		})
	}
}

type brokenStore struct{}

func (brokenStore) FindStations(context.Context, models.FilterCriteria) ([]models.Station, error) {
	return nil, errors.New("scan failed: ResourceNotFoundException")
}

func (brokenStore) GetStation(context.Context, int64) (*models.Station, error) {
	return nil, errors.New("get failed")
}

func TestErrorHandling(t *testing.T) {
	originalHandler := stationsHandler
	defer func() { stationsHandler = originalHandler }()
	stationsHandler = handler.NewStationsHandler(brokenStore{}, nil)

	response, err := handleRequest(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, response.StatusCode)

	var responseBody map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(response.Body), &responseBody))
	assert.Equal(t, "error", responseBody["responseType"])
	assert.Equal(t, "storage_unavailable", responseBody["kind"])
	assert.Equal(t, "station storage is unavailable", responseBody["message"])
}
