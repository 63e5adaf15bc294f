package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

// MemoryStore keeps the full station list in process. The slice it holds is
// never mutated in place; writers swap in a fresh copy so readers can hand the
// current slice out without copying.
type MemoryStore struct {
	stations    []models.Station
	byID        map[int64]int
	lastUpdated time.Time
	mu          sync.RWMutex
}

func NewMemoryStore(stations []models.Station) *MemoryStore {
	s := &MemoryStore{}
	s.SetStations(stations)
	return s
}

// SetStations replaces the whole station list.
func (s *MemoryStore) SetStations(stations []models.Station) {
	next := make([]models.Station, len(stations))
	copy(next, stations)
	sortByID(next)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stations = next
	s.byID = indexByID(next)
	s.lastUpdated = time.Now()
}

func (s *MemoryStore) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stations)
}

// FindStations returns every station; filtering is left to the engine.
func (s *MemoryStore) FindStations(ctx context.Context, _ models.FilterCriteria) ([]models.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stations, nil
}

func (s *MemoryStore) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	station := s.stations[i]
	return &station, nil
}

// SaveStations upserts by ID.
func (s *MemoryStore) SaveStations(ctx context.Context, stations []models.Station) error {
	return s.saveWith(ctx, stations, nil)
}

// saveWith merges stations into the current list and calls persist with the
// merged list while the write lock is held. The list is only swapped in once
// persist succeeds, so a failed persist leaves the store unchanged.
func (s *MemoryStore) saveWith(ctx context.Context, stations []models.Station, persist func([]models.Station) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range stations {
		if err := stations[i].Validate(); err != nil {
			return fmt.Errorf("invalid station %d: %w", stations[i].ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Station, len(s.stations), len(s.stations)+len(stations))
	copy(next, s.stations)
	index := indexByID(next)
	for _, station := range stations {
		if i, ok := index[station.ID]; ok {
			next[i] = station
			continue
		}
		index[station.ID] = len(next)
		next = append(next, station)
	}
	sortByID(next)

	if persist != nil {
		if err := persist(next); err != nil {
			return err
		}
	}

	s.stations = next
	s.byID = indexByID(next)
	s.lastUpdated = time.Now()

	log.Debug().Int("station_count", len(stations)).Msg("Saved stations to memory store")
	return nil
}

// Load replaces the station list with whatever the source yields.
func (s *MemoryStore) Load(ctx context.Context, src Source) error {
	stations, err := src.LoadStations(ctx)
	if err != nil {
		return fmt.Errorf("loading stations from %s: %w", src, err)
	}
	s.SetStations(stations)

	log.Info().
		Int("station_count", len(stations)).
		Str("source", src.String()).
		Msg("Loaded stations into memory store")
	return nil
}

func (s *MemoryStore) Close() {}

func indexByID(stations []models.Station) map[int64]int {
	index := make(map[int64]int, len(stations))
	for i, station := range stations {
		index[station.ID] = i
	}
	return index
}
