package station

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fizy-app/fizy/backend-go/internal/models"
)

// Query string parameter names accepted by the listing endpoint.
const (
	ParamPage    = "page"
	ParamLimit   = "limit"
	ParamMinLat  = "minLat"
	ParamMaxLat  = "maxLat"
	ParamMinLng  = "minLng"
	ParamMaxLng  = "maxLng"
	ParamSearch  = "search"
	ParamUserLat = "userLat"
	ParamUserLng = "userLng"
)

// InvalidQueryError is only produced in strict mode.
type InvalidQueryError struct {
	Param  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Reason)
}

type ParseOptions struct {
	// Strict rejects malformed or partial parameters instead of ignoring them.
	Strict bool
}

// ParseQuery builds a Query from raw query string parameters.
//
// In permissive mode it never fails: a number that does not parse as a finite
// value counts as absent, a bounding box needs all four bounds and an observer
// needs both coordinates, otherwise the stage is skipped. In strict mode the
// same inputs produce an *InvalidQueryError. A limit above the cap is clamped
// in both modes.
func ParseQuery(params map[string]string, opts ParseOptions) (models.Query, error) {
	q := models.Query{
		Page:       models.DefaultPage,
		Limit:      models.DefaultLimit,
		SearchTerm: params[ParamSearch],
	}

	page, err := parsePositiveInt(params, ParamPage, opts)
	if err != nil {
		return models.Query{}, err
	}
	if page > 0 {
		q.Page = page
	}

	limit, err := parsePositiveInt(params, ParamLimit, opts)
	if err != nil {
		return models.Query{}, err
	}
	if limit > 0 {
		q.Limit = limit
	}

	q.BoundingBox, err = parseBoundingBox(params, opts)
	if err != nil {
		return models.Query{}, err
	}

	q.Observer, err = parseObserver(params, opts)
	if err != nil {
		return models.Query{}, err
	}

	return q.Normalized(), nil
}

// parsePositiveInt returns 0 when the parameter is absent or, in permissive
// mode, unusable.
func parsePositiveInt(params map[string]string, name string, opts ParseOptions) (int, error) {
	raw, ok := lookup(params, name)
	if !ok {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		if opts.Strict {
			return 0, &InvalidQueryError{Param: name, Reason: "must be an integer"}
		}
		return 0, nil
	}
	if v < 1 {
		if opts.Strict {
			return 0, &InvalidQueryError{Param: name, Reason: "must be at least 1"}
		}
		return 0, nil
	}
	return v, nil
}

func parseBoundingBox(params map[string]string, opts ParseOptions) (*models.BoundingBox, error) {
	names := []string{ParamMinLat, ParamMaxLat, ParamMinLng, ParamMaxLng}
	values, err := parseCoordinateGroup(params, names, opts)
	if err != nil || values == nil {
		return nil, err
	}

	box := &models.BoundingBox{MinLat: values[0], MaxLat: values[1], MinLng: values[2], MaxLng: values[3]}
	if opts.Strict {
		if err := checkLatitude(ParamMinLat, box.MinLat); err != nil {
			return nil, err
		}
		if err := checkLatitude(ParamMaxLat, box.MaxLat); err != nil {
			return nil, err
		}
		if err := checkLongitude(ParamMinLng, box.MinLng); err != nil {
			return nil, err
		}
		if err := checkLongitude(ParamMaxLng, box.MaxLng); err != nil {
			return nil, err
		}
		if box.MinLat > box.MaxLat {
			return nil, &InvalidQueryError{Param: ParamMinLat, Reason: "must not be greater than maxLat"}
		}
		if box.MinLng > box.MaxLng {
			return nil, &InvalidQueryError{Param: ParamMinLng, Reason: "must not be greater than maxLng"}
		}
	}
	return box, nil
}

func parseObserver(params map[string]string, opts ParseOptions) (*models.Location, error) {
	values, err := parseCoordinateGroup(params, []string{ParamUserLat, ParamUserLng}, opts)
	if err != nil || values == nil {
		return nil, err
	}

	if opts.Strict {
		if err := checkLatitude(ParamUserLat, values[0]); err != nil {
			return nil, err
		}
		if err := checkLongitude(ParamUserLng, values[1]); err != nil {
			return nil, err
		}
	}
	return &models.Location{Latitude: values[0], Longitude: values[1]}, nil
}

// parseCoordinateGroup parses parameters that only mean something together.
// It returns nil values when the group should be ignored.
func parseCoordinateGroup(params map[string]string, names []string, opts ParseOptions) ([]float64, error) {
	values := make([]float64, len(names))
	var present, valid int
	var firstMissing string
	for i, name := range names {
		raw, ok := lookup(params, name)
		if !ok {
			if firstMissing == "" {
				firstMissing = name
			}
			continue
		}
		present++
		v, ok := parseFinite(raw)
		if !ok {
			if opts.Strict {
				return nil, &InvalidQueryError{Param: name, Reason: "must be a finite number"}
			}
			continue
		}
		values[i] = v
		valid++
	}

	if present == 0 {
		return nil, nil
	}
	if valid < len(names) {
		if opts.Strict {
			return nil, &InvalidQueryError{
				Param:  firstMissing,
				Reason: "required together with " + strings.Join(names, ", "),
			}
		}
		return nil, nil
	}
	return values, nil
}

func lookup(params map[string]string, name string) (string, bool) {
	raw := strings.TrimSpace(params[name])
	return raw, raw != ""
}

func parseFinite(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func checkLatitude(name string, v float64) error {
	if v < -90 || v > 90 {
		return &InvalidQueryError{Param: name, Reason: "latitude must be between -90 and 90"}
	}
	return nil
}

func checkLongitude(name string, v float64) error {
	if v < -180 || v > 180 {
		return &InvalidQueryError{Param: name, Reason: "longitude must be between -180 and 180"}
	}
	return nil
}
