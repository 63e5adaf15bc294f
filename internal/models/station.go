package models

import (
	"fmt"
	"time"
)

type FuelKind string

const (
	FuelGasoline FuelKind = "gasoline"
	FuelEthanol  FuelKind = "ethanol"
	FuelDiesel   FuelKind = "diesel"
)

type FuelPrice struct {
	Price     float64    `json:"price" dynamodbav:"price"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}

// Station is a fuel station as owned by the storage layer. Rating and Fuels are
// carried through to clients untouched.
type Station struct {
	ID        int64                  `json:"id" dynamodbav:"id"`
	Name      string                 `json:"name" dynamodbav:"name"`
	Address   string                 `json:"address" dynamodbav:"address"`
	Latitude  float64                `json:"lat" dynamodbav:"lat"`
	Longitude float64                `json:"lng" dynamodbav:"lng"`
	Rating    float64                `json:"rating" dynamodbav:"rating"`
	Fuels     map[FuelKind]FuelPrice `json:"fuels,omitempty" dynamodbav:"fuels,omitempty"`
}

// Validate checks the fields a station must carry before it is written to a store
func (s *Station) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("station ID must be positive")
	}
	if s.Name == "" {
		return fmt.Errorf("station name is required")
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %f", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %f", s.Longitude)
	}
	if s.Rating < 0 || s.Rating > 5 {
		return fmt.Errorf("invalid rating: %f", s.Rating)
	}
	for kind, fuel := range s.Fuels {
		if fuel.Price < 0 {
			return fmt.Errorf("invalid %s price: %f", kind, fuel.Price)
		}
	}
	return nil
}

// StationResult is a station as returned by a listing. DistanceMeters is only
// set when the caller supplied an observer location.
type StationResult struct {
	Station
	DistanceMeters *int64 `json:"distanceMeters,omitempty"`
}
