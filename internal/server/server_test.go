package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fizy-app/fizy/backend-go/internal/api"
	"github.com/fizy-app/fizy/backend-go/internal/handler"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/fizy-app/fizy/backend-go/internal/station"
	"github.com/fizy-app/fizy/backend-go/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testStations() []models.Station {
	return []models.Station{
		{ID: 1, Name: "Posto Shell", Address: "Av. São Carlos, 100", Latitude: -22.0195, Longitude: -47.891, Rating: 4.5},
		{ID: 2, Name: "Ipiranga", Address: "Rua Episcopal, 200", Latitude: -22.01, Longitude: -47.89, Rating: 3.9},
		{ID: 3, Name: "Auto Posto BR", Address: "Rua XV, 15", Latitude: -21.98, Longitude: -47.88, Rating: 4.1},
		{ID: 4, Name: "Posto Ale", Address: "Rua Shellington, 9", Latitude: -22.05, Longitude: -47.91, Rating: 3.2},
	}
}

func newTestRouter(strict bool) *gin.Engine {
	h := handler.NewStationsHandler(
		store.NewMemoryStore(testStations()),
		station.NewEngine(station.SortThenPaginate),
		handler.WithStrictQueryValidation(strict),
	)
	return NewRouter(h, time.Second)
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serve(newTestRouter(false), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestListStations(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		strict     bool
		wantStatus int
		wantIDs    []int64
		wantPage   int
		wantLimit  int
		wantKind   api.ErrorKind
	}{
		{
			name:       "defaults",
			target:     "/api/stations/all",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{1, 2, 3, 4},
			wantPage:   1,
			wantLimit:  50,
		},
		{
			name:       "second page",
			target:     "/api/stations/all?page=2&limit=2",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{3, 4},
			wantPage:   2,
			wantLimit:  2,
		},
		{
			name:       "limit is clamped",
			target:     "/api/stations/all?limit=500",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{1, 2, 3, 4},
			wantPage:   1,
			wantLimit:  100,
		},
		{
			name:       "search matches name or address",
			target:     "/api/stations/all?search=shell",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{1, 4},
			wantPage:   1,
			wantLimit:  50,
		},
		{
			name:       "nearest first",
			target:     "/api/stations/all?userLat=-22.05&userLng=-47.91&limit=2",
			wantStatus: http.StatusOK,
			wantIDs:    []int64{4, 1},
			wantPage:   1,
			wantLimit:  2,
		},
		{
			name:       "strict mode rejects a partial box",
			target:     "/api/stations/all?minLat=-23&maxLat=-21",
			strict:     true,
			wantStatus: http.StatusBadRequest,
			wantKind:   api.KindInvalidQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newTestRouter(tt.strict), http.MethodGet, tt.target)
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

			if tt.wantKind != "" {
				var resp api.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantKind, resp.Kind)
				return
			}

			var resp api.StationsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "stations", resp.ResponseType)
			assert.Equal(t, tt.wantPage, resp.Page)
			assert.Equal(t, tt.wantLimit, resp.Limit)
			assert.Equal(t, len(tt.wantIDs), resp.Count)

			ids := make([]int64, 0, len(resp.Data))
			for _, s := range resp.Data {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDistanceOmittedWithoutObserver(t *testing.T) {
	w := serve(newTestRouter(false), http.MethodGet, "/api/stations/all?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "distanceMeters")

	w = serve(newTestRouter(false), http.MethodGet, "/api/stations/all?limit=1&userLat=-22.0195&userLng=-47.891")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"distanceMeters":0`)
}

func TestGetStation(t *testing.T) {
	router := newTestRouter(false)

	w := serve(router, http.MethodGet, "/api/stations/2")
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.StationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "station", resp.ResponseType)
	assert.Equal(t, "Ipiranga", resp.Data.Name)

	w = serve(router, http.MethodGet, "/api/stations/99")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"not_found"`)
}

func TestUnknownRoute(t *testing.T) {
	w := serve(newTestRouter(false), http.MethodGet, "/api/pumps")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"not_found"`)
}

func TestCORSPreflight(t *testing.T) {
	w := serve(newTestRouter(false), http.MethodOptions, "/api/stations/all")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	newTestRouter(false).ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

type failingStore struct {
	err error
}

func (f failingStore) FindStations(ctx context.Context, _ models.FilterCriteria) ([]models.Station, error) {
	if f.err == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, f.err
}

func (f failingStore) GetStation(ctx context.Context, _ int64) (*models.Station, error) {
	return nil, f.err
}

func TestStoreFailure(t *testing.T) {
	h := handler.NewStationsHandler(failingStore{err: errors.New("pq: password authentication failed")}, nil)
	w := serve(NewRouter(h, time.Second), http.MethodGet, "/api/stations/all")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"storage_unavailable"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestTimeout(t *testing.T) {
	h := handler.NewStationsHandler(failingStore{}, nil)
	w := serve(NewRouter(h, 20*time.Millisecond), http.MethodGet, "/api/stations/all")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"request_timeout"`)
}

func TestZeroTimeoutAddsNoDeadline(t *testing.T) {
	h := handler.NewStationsHandler(store.NewMemoryStore(testStations()), nil)
	w := serve(NewRouter(h, 0), http.MethodGet, "/api/stations/all")

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.StationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)

	router := gin.New()
	router.Use(Timeout(-time.Second))
	router.GET("/deadline", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"hasDeadline": ok})
	})
	w = serve(router, http.MethodGet, "/deadline")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hasDeadline":false}`, w.Body.String())
}

func TestTimeoutMiddlewareWithSilentHandler(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(10 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := serve(router, http.MethodGet, "/slow")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "request_timeout")
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(router, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}
