package utils

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/okapiride/dispatch/internal/pkg/models"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points in
// kilometers using the Haversine formula.
func DistanceKm(a, b models.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// ValidCoordinates reports whether the location is a plausible WGS84 point.
func ValidCoordinates(loc models.Location) bool {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return false
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return false
	}
	return true
}

// DemandCell returns the geohash cell a pickup falls into, at the configured
// precision. Demand counters are aggregated over the cell and its neighbors.
func DemandCell(loc models.Location, precision uint) string {
	return geohash.EncodeWithPrecision(loc.Latitude, loc.Longitude, precision)
}

// DemandCells returns the pickup's cell plus its eight neighbors.
func DemandCells(loc models.Location, precision uint) []string {
	center := geohash.EncodeWithPrecision(loc.Latitude, loc.Longitude, precision)
	return append([]string{center}, geohash.Neighbors(center)...)
}
