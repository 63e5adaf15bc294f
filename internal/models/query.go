package models

// BoundingBox is an inclusive lat/lng rectangle in degrees.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
)

// Query is built once per request. Nil BoundingBox and Observer mean the
// corresponding stage is skipped.
type Query struct {
	Page        int
	Limit       int
	BoundingBox *BoundingBox
	SearchTerm  string
	Observer    *Location
}

// Normalized returns a copy with page and limit forced into their valid ranges.
func (q Query) Normalized() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Criteria is the part of the query a store may push down.
func (q Query) Criteria() FilterCriteria {
	return FilterCriteria{
		BoundingBox: q.BoundingBox,
		SearchTerm:  q.SearchTerm,
	}
}

type Result struct {
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Count int             `json:"count"`
	Items []StationResult `json:"data"`
}
