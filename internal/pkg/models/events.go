package models

import "time"

// RideEvent is published on every lifecycle transition. Notification and UI
// layers consume these; the core never blocks on their delivery.
type RideEvent struct {
	RideID    string     `json:"ride_id"`
	Status    RideStatus `json:"status"`
	ClientID  string     `json:"client_id"`
	DriverID  string     `json:"driver_id,omitempty"`
	ActorID   string     `json:"actor_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// OpenOffer is broadcast to eligible drivers when no confident match exists.
// The first driver to accept through the transactional path wins.
type OpenOffer struct {
	RideID         string   `json:"ride_id"`
	Pickup         Location `json:"pickup"`
	Dropoff        Location `json:"dropoff"`
	EstimatedPrice int64    `json:"estimated_price"`
	DriverIDs      []string `json:"driver_ids"`
}
