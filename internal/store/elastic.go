package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/fizy-app/fizy/backend-go/internal/config"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog/log"
)

// geo_point values are stored with limited precision, so the pushed-down box
// is widened slightly and the engine applies the exact one.
const boundingBoxPadding = 1e-5

const stationIndexMapping = `{
	"mappings": {
		"properties": {
			"id":       {"type": "long"},
			"name":     {"type": "text"},
			"address":  {"type": "text"},
			"lat":      {"type": "double"},
			"lng":      {"type": "double"},
			"rating":   {"type": "float"},
			"location": {"type": "geo_point"},
			"fuels":    {"type": "object", "enabled": false}
		}
	}
}`

// stationDocument is a station plus the geo_point the index filters on.
type stationDocument struct {
	models.Station
	Location elastic.GeoPoint `json:"location"`
}

type ElasticStore struct {
	client       *elastic.Client
	index        string
	pageSize     int
	queryTimeout time.Duration
}

// NewElasticStore connects without sniffing and creates the index when missing.
func NewElasticStore(ctx context.Context, cfg *config.StoreConfig) (*ElasticStore, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(cfg.ElasticsearchURL),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	store := newElasticStore(client, cfg)
	if err := store.EnsureIndex(ctx); err != nil {
		client.Stop()
		return nil, err
	}
	return store, nil
}

func newElasticStore(client *elastic.Client, cfg *config.StoreConfig) *ElasticStore {
	return &ElasticStore{
		client:       client,
		index:        cfg.ElasticsearchIndex,
		pageSize:     cfg.MaxSearchHits,
		queryTimeout: cfg.QueryTimeout,
	}
}

func (s *ElasticStore) EnsureIndex(ctx context.Context) error {
	exists, err := s.client.IndexExists(s.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("checking index %s: %w", s.index, err)
	}
	if exists {
		return nil
	}

	created, err := s.client.CreateIndex(s.index).BodyString(stationIndexMapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", s.index, err)
	}
	if !created.Acknowledged {
		log.Warn().Str("index", s.index).Msg("Index creation was not acknowledged")
	}
	log.Info().Str("index", s.index).Msg("Created station index")
	return nil
}

// FindStations scrolls through every hit, pushing the bounding box down as a
// geo_bounding_box filter. The search term is left to the engine.
func (s *ElasticStore) FindStations(ctx context.Context, criteria models.FilterCriteria) ([]models.Station, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := elastic.NewBoolQuery()
	if box := criteria.BoundingBox; box != nil {
		top, left, bottom, right := paddedBounds(*box)
		query = query.Filter(elastic.NewGeoBoundingBoxQuery("location").
			TopLeft(top, left).
			BottomRight(bottom, right))
	}

	scroll := s.client.Scroll(s.index).
		Query(query).
		Sort("id", true).
		Size(s.pageSize)
	defer func() {
		if err := scroll.Clear(context.Background()); err != nil {
			log.Debug().Err(err).Msg("Error clearing scroll")
		}
	}()

	stations := make([]models.Station, 0)
	for {
		res, err := scroll.Do(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("searching stations in elasticsearch: %w", err)
		}

		for _, hit := range res.Hits.Hits {
			var doc stationDocument
			if err := json.Unmarshal(hit.Source, &doc); err != nil {
				return nil, fmt.Errorf("decoding station %s: %w", hit.Id, err)
			}
			stations = append(stations, doc.Station)
		}
	}

	sortByID(stations)
	return stations, nil
}

// paddedBounds widens box by boundingBoxPadding and clamps it to valid
// coordinates, since Elasticsearch rejects out-of-range corners. Map clients
// send longitudes beyond ±180 when zoomed out.
func paddedBounds(box models.BoundingBox) (top, left, bottom, right float64) {
	top = clamp(box.MaxLat+boundingBoxPadding, -90, 90)
	bottom = clamp(box.MinLat-boundingBoxPadding, -90, 90)
	left = clamp(box.MinLng-boundingBoxPadding, -180, 180)
	right = clamp(box.MaxLng+boundingBoxPadding, -180, 180)
	return top, left, bottom, right
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func (s *ElasticStore) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.client.Get().Index(s.index).Id(strconv.FormatInt(id, 10)).Do(ctx)
	if elastic.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting station from elasticsearch: %w", err)
	}
	if !res.Found {
		return nil, nil
	}

	var doc stationDocument
	if err := json.Unmarshal(res.Source, &doc); err != nil {
		return nil, fmt.Errorf("decoding station %d: %w", id, err)
	}
	return &doc.Station, nil
}

// SaveStations indexes every station in one bulk request.
func (s *ElasticStore) SaveStations(ctx context.Context, stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	bulk := s.client.Bulk().Index(s.index)
	for i := range stations {
		station := stations[i]
		if err := station.Validate(); err != nil {
			return fmt.Errorf("invalid station %d: %w", station.ID, err)
		}
		doc := stationDocument{
			Station:  station,
			Location: elastic.GeoPoint{Lat: station.Latitude, Lon: station.Longitude},
		}
		bulk.Add(elastic.NewBulkIndexRequest().Id(strconv.FormatInt(station.ID, 10)).Doc(doc))
	}

	res, err := bulk.Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk indexing stations: %w", err)
	}
	if failed := res.Failed(); len(failed) > 0 {
		reason := "unknown"
		if failed[0].Error != nil {
			reason = failed[0].Error.Reason
		}
		return fmt.Errorf("bulk indexing stations: %d of %d failed, first: %s", len(failed), len(stations), reason)
	}

	log.Debug().Int("station_count", len(stations)).Msg("Indexed stations in elasticsearch")
	return nil
}

func (s *ElasticStore) Close() {
	s.client.Stop()
}
