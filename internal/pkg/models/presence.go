package models

import "time"

// DriverStatus is the live dispatch status of a driver.
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusEnRoute   DriverStatus = "en_route_to_pickup"
	DriverStatusOnTrip    DriverStatus = "on_trip"
	DriverStatusOffline   DriverStatus = "offline"
)

// DriverPresence is the ephemeral, expiring record of a driver's live position
// and availability. Absence of a presence record means the driver is not
// reachable for dispatch, regardless of any durable online flag.
type DriverPresence struct {
	DriverID  string       `json:"driver_id"`
	Location  Location     `json:"location"`
	Heading   float64      `json:"heading"`
	SpeedKmh  float64      `json:"speed_kmh"`
	Status    DriverStatus `json:"status"`
	RideID    string       `json:"ride_id,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NearbyDriver is a driver returned from a radius query, with the computed
// distance from the query point.
type NearbyDriver struct {
	Presence   DriverPresence `json:"presence"`
	DistanceKm float64        `json:"distance_km"`
}
