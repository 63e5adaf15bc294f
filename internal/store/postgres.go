package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fizy-app/fizy/backend-go/internal/config"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	createStationsTable = `CREATE TABLE IF NOT EXISTS stations(
		id      BIGINT PRIMARY KEY,
		name    TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat     DOUBLE PRECISION NOT NULL,
		lng     DOUBLE PRECISION NOT NULL,
		rating  DOUBLE PRECISION NOT NULL DEFAULT 0,
		fuels   JSONB
	);`

	createStationsLocationIndex = `CREATE INDEX IF NOT EXISTS idx_stations_lat_lng ON stations(lat, lng);`

	selectStationColumns = `SELECT id, name, address, lat, lng, rating, fuels FROM stations`

	upsertStation = `INSERT INTO stations(id, name, address, lat, lng, rating, fuels)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			rating = EXCLUDED.rating,
			fuels = EXCLUDED.fuels`
)

// pgxConn is the subset of *pgxpool.Pool the store uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PostgresStore struct {
	conn         pgxConn
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore connects, pings and makes sure the stations table exists.
func NewPostgresStore(ctx context.Context, cfg *config.StoreConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{conn: pool, pool: pool, queryTimeout: cfg.QueryTimeout}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Int32("max_conns", poolCfg.MaxConns).Msg("Connected to PostgreSQL")
	return store, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createStationsTable, createStationsLocationIndex} {
		if _, err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("storage: EnsureSchema: %w", err)
		}
	}
	return nil
}

// FindStations pushes both the bounding box and the search term down.
func (s *PostgresStore) FindStations(ctx context.Context, criteria models.FilterCriteria) ([]models.Station, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query, args := buildFindQuery(criteria)
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: FindStations: %w", err)
	}
	defer rows.Close()

	stations := make([]models.Station, 0)
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: FindStations: %w", err)
		}
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: FindStations: %w", err)
	}

	return stations, nil
}

// GetStation returns a single station by ID, or (nil, nil) if not found.
func (s *PostgresStore) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	station, err := scanStation(s.conn.QueryRow(ctx, selectStationColumns+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: GetStation: %w", err)
	}
	return &station, nil
}

// SaveStations upserts every station in a single batch.
func (s *PostgresStore) SaveStations(ctx context.Context, stations []models.Station) error {
	batch := &pgx.Batch{}
	for i := range stations {
		station := stations[i]
		if err := station.Validate(); err != nil {
			return fmt.Errorf("invalid station %d: %w", station.ID, err)
		}
		fuels, err := encodeFuels(station.Fuels)
		if err != nil {
			return fmt.Errorf("encoding fuels of station %d: %w", station.ID, err)
		}
		batch.Queue(upsertStation,
			station.ID, station.Name, station.Address,
			station.Latitude, station.Longitude, station.Rating, fuels)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := s.conn.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("storage: SaveStations: station %d: %w", stations[i].ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("storage: SaveStations: %w", err)
	}

	log.Debug().Int("station_count", len(stations)).Msg("Saved stations to PostgreSQL")
	return nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildFindQuery(criteria models.FilterCriteria) (string, []any) {
	var (
		where []string
		args  []any
	)
	if box := criteria.BoundingBox; box != nil {
		args = append(args, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
		where = append(where, "lat BETWEEN $1 AND $2", "lng BETWEEN $3 AND $4")
	}
	if criteria.SearchTerm != "" {
		args = append(args, "%"+escapeLike(criteria.SearchTerm)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(name ILIKE $%d ESCAPE '\' OR address ILIKE $%d ESCAPE '\')`, n, n))
	}

	query := selectStationColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY id", args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func scanStation(row pgx.Row) (models.Station, error) {
	var (
		station models.Station
		fuels   []byte
	)
	err := row.Scan(&station.ID, &station.Name, &station.Address,
		&station.Latitude, &station.Longitude, &station.Rating, &fuels)
	if err != nil {
		return models.Station{}, err
	}
	if len(fuels) > 0 {
		if err := json.Unmarshal(fuels, &station.Fuels); err != nil {
			return models.Station{}, fmt.Errorf("decoding fuels of station %d: %w", station.ID, err)
		}
	}
	return station, nil
}

func encodeFuels(fuels map[models.FuelKind]models.FuelPrice) ([]byte, error) {
	if len(fuels) == 0 {
		return nil, nil
	}
	return json.Marshal(fuels)
}
