// Package model contains domain models passed between layers.
package model

import "time"

// Coordinate is an immutable WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" koanf:"lat"`
	Longitude float64 `json:"longitude" koanf:"lon"`
}

// Valid reports whether the coordinate lies within latitude [-90,90] and
// longitude [-180,180].
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Fix is a single position reading from a location source.
type Fix struct {
	Position  Coordinate `json:"position"`
	AccuracyM float64    `json:"accuracy_m,omitempty"`
	At        time.Time  `json:"at"`
}
