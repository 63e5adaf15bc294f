package station

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fizy-app/fizy/backend-go/internal/models"
)

// PaginationMode decides whether the distance sort sees the whole filtered set
// or only the requested page.
type PaginationMode string

const (
	// SortThenPaginate sorts every filtered station by distance before slicing,
	// so pages are globally ordered.
	SortThenPaginate PaginationMode = "sort-then-paginate"
	// PaginateThenSort slices first and sorts only the page. Kept for parity
	// with the legacy listing endpoint.
	PaginateThenSort PaginationMode = "paginate-then-sort"
)

func ParsePaginationMode(s string) (PaginationMode, error) {
	switch PaginationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortThenPaginate:
		return SortThenPaginate, nil
	case PaginateThenSort:
		return PaginateThenSort, nil
	default:
		return "", fmt.Errorf("unknown pagination mode: %q", s)
	}
}

// Engine filters, pages and distance-sorts station collections. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	mode PaginationMode
}

func NewEngine(mode PaginationMode) *Engine {
	if mode != PaginateThenSort {
		mode = SortThenPaginate
	}
	return &Engine{mode: mode}
}

func (e *Engine) Mode() PaginationMode {
	return e.mode
}

// Query runs the bounding box filter, the text filter, pagination and the
// optional distance sort over stations. The input slice is never modified.
func (e *Engine) Query(stations []models.Station, q models.Query) models.Result {
	q = q.Normalized()

	filtered := filterByBoundingBox(stations, q.BoundingBox)
	filtered = filterBySearchTerm(filtered, q.SearchTerm)

	var items []models.StationResult
	switch {
	case q.Observer == nil:
		items = toResults(paginate(filtered, q.Page, q.Limit))
	case e.mode == PaginateThenSort:
		items = sortByDistance(withDistances(paginate(filtered, q.Page, q.Limit), *q.Observer))
	default:
		items = paginate(sortByDistance(withDistances(filtered, *q.Observer)), q.Page, q.Limit)
	}

	return models.Result{
		Page:  q.Page,
		Limit: q.Limit,
		Count: len(items),
		Items: items,
	}
}

func filterByBoundingBox(stations []models.Station, box *models.BoundingBox) []models.Station {
	if box == nil {
		return stations
	}
	filtered := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if box.Contains(s.Latitude, s.Longitude) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func filterBySearchTerm(stations []models.Station, term string) []models.Station {
	if term == "" {
		return stations
	}
	term = strings.ToLower(term)
	filtered := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.Address), term) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// paginate returns items[(page-1)*limit : page*limit], clipped to the slice.
// page and limit must already be normalized.
func paginate[T any](items []T, page, limit int) []T {
	// Checked before multiplying so a huge page number cannot overflow.
	if page-1 > len(items)/limit {
		return []T{}
	}
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func toResults(stations []models.Station) []models.StationResult {
	results := make([]models.StationResult, len(stations))
	for i, s := range stations {
		results[i] = models.StationResult{Station: s}
	}
	return results
}

func withDistances(stations []models.Station, observer models.Location) []models.StationResult {
	results := make([]models.StationResult, len(stations))
	for i, s := range stations {
		distance := DistanceMeters(observer, s.Latitude, s.Longitude)
		results[i] = models.StationResult{Station: s, DistanceMeters: &distance}
	}
	return results
}

// sortByDistance sorts in place; ties keep their incoming order.
func sortByDistance(results []models.StationResult) []models.StationResult {
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].DistanceMeters < *results[j].DistanceMeters
	})
	return results
}
