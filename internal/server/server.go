// Package server exposes the station handler over HTTP with gin.
package server

import (
	"net/http"
	"time"

	"github.com/fizy-app/fizy/backend-go/internal/api"
	"github.com/fizy-app/fizy/backend-go/internal/handler"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the middleware chain and the station routes.
func NewRouter(h *handler.StationsHandler, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger())
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Timeout(requestTimeout))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	stations := router.Group("/api/stations")
	{
		stations.GET("/all", listStations(h))
		stations.GET("/:id", getStation(h))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.NewErrorResponse(api.KindNotFound, "route not found"))
	})

	return router
}

func listStations(h *handler.StationsHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		result, err := h.List(ctx, queryParams(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, api.NewStationsResponse(*result))
	}
}

func getStation(h *handler.StationsHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, api.NewStationResponse(*s))
	}
}

func writeError(c *gin.Context, err error) {
	kind, message := handler.Classify(c.Request.Context(), err)
	c.JSON(kind.StatusCode(), api.NewErrorResponse(kind, message))
}

// queryParams flattens the query string, keeping the first value of each key.
func queryParams(c *gin.Context) map[string]string {
	values := c.Request.URL.Query()
	params := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params
}
