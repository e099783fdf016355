package models

import (
	"time"

	"github.com/google/uuid"
)

// RideStatus represents the lifecycle state of a ride.
type RideStatus string

const (
	RideStatusPending        RideStatus = "pending"
	RideStatusAccepted       RideStatus = "accepted"
	RideStatusDriverArriving RideStatus = "driver_arriving"
	RideStatusInProgress     RideStatus = "in_progress"
	RideStatusCompleted      RideStatus = "completed"
	RideStatusCancelled      RideStatus = "cancelled"
	RideStatusRejected       RideStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled || s == RideStatusRejected
}

// Active statuses bind a driver to the ride. A driver may hold at most one
// ride in an active status at any time.
func (s RideStatus) IsActive() bool {
	return s == RideStatusAccepted || s == RideStatusDriverArriving || s == RideStatusInProgress
}

// Ride is the durable ride record. Rides are never deleted; terminal states
// are retained for history.
type Ride struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	ClientID           uuid.UUID  `json:"client_id" db:"client_id"`
	DriverID           *uuid.UUID `json:"driver_id,omitempty" db:"driver_id"`
	Pickup             Location   `json:"pickup"`
	Dropoff            Location   `json:"dropoff"`
	Status             RideStatus `json:"status" db:"status"`
	EstimatedPrice     int64      `json:"estimated_price" db:"estimated_price"`
	FinalPrice         *int64     `json:"final_price,omitempty" db:"final_price"`
	CancellationFee    int64      `json:"cancellation_fee,omitempty" db:"cancellation_fee"`
	DistanceKm         float64    `json:"distance_km" db:"distance_km"`
	DurationMinutes    float64    `json:"duration_minutes" db:"duration_minutes"`
	PaymentMethod      string     `json:"payment_method" db:"payment_method"`
	CancellationReason string     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	Rating             *float64   `json:"rating,omitempty" db:"rating"`
	RequestedAt        time.Time  `json:"requested_at" db:"requested_at"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	StartedAt          *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// RideRequest is the client payload that opens a ride.
type RideRequest struct {
	ClientID      string   `json:"client_id"`
	Pickup        Location `json:"pickup"`
	Dropoff       Location `json:"dropoff"`
	PaymentMethod string   `json:"payment_method"`
}

// AcceptRequest is a driver's claim on a pending ride.
type AcceptRequest struct {
	RideID   string `json:"ride_id"`
	DriverID string `json:"driver_id"`
}

// CancelRequest carries the cancelling party and reason.
type CancelRequest struct {
	RideID      string `json:"ride_id"`
	CancelledBy string `json:"cancelled_by"` // "client" or "driver"
	Reason      string `json:"reason"`
}

// CompleteRequest optionally overrides the estimate with a metered final price.
// Only the assigned driver may complete a ride.
type CompleteRequest struct {
	RideID     string `json:"ride_id"`
	DriverID   string `json:"driver_id"`
	FinalPrice *int64 `json:"final_price,omitempty"`
}

// DriverStats aggregates a driver's recent history for match scoring.
type DriverStats struct {
	DriverID       string  `db:"driver_id"`
	Rating         float64 `db:"rating"`
	Completed30d   int     `db:"completed_30d"`
	Cancelled30d   int     `db:"cancelled_30d"`
	OffersReceived int     `db:"offers_received"`
	OffersAccepted int     `db:"offers_accepted"`
}
