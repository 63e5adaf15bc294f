package models

import "context"

// FilterCriteria is what a store may use to narrow its candidate set. Stores
// are free to ignore it and return a superset.
type FilterCriteria struct {
	BoundingBox *BoundingBox
	SearchTerm  string
}

// StationStore returns stations ordered by ascending ID.
type StationStore interface {
	FindStations(ctx context.Context, criteria FilterCriteria) ([]Station, error)
	// GetStation returns (nil, nil) when the station does not exist.
	GetStation(ctx context.Context, id int64) (*Station, error)
}

type StationWriter interface {
	SaveStations(ctx context.Context, stations []Station) error
}
