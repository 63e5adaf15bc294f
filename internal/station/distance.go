package station

import (
	"math"

	"github.com/fizy-app/fizy/backend-go/internal/models"
)

const earthRadiusKm = 6371.0

// DistanceKm is the haversine great-circle distance between two points given in degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DistanceMeters rounds the distance from the observer to the nearest whole meter.
func DistanceMeters(from models.Location, lat, lon float64) int64 {
	return int64(math.Round(DistanceKm(from.Latitude, from.Longitude, lat, lon) * 1000))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
