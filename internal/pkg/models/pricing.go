package models

import "time"

// PriceTable is the durable, externally editable pricing configuration.
// A single active row is read-mostly and cached with a bounded TTL.
type PriceTable struct {
	ID                 int64     `db:"id"`
	BaseFare           float64   `db:"base_fare"`
	PerKmRate          float64   `db:"per_km_rate"`
	RushHourMultiplier float64   `db:"rush_hour_multiplier"`
	NightMultiplier    float64   `db:"night_multiplier"`
	WeekendMultiplier  float64   `db:"weekend_multiplier"`
	SurgeDiscount      float64   `db:"surge_discount"`
	SurgeNormal        float64   `db:"surge_normal"`
	SurgeModerate      float64   `db:"surge_moderate"`
	SurgeHigh          float64   `db:"surge_high"`
	SurgePeak          float64   `db:"surge_peak"`
	Currency           string    `db:"currency"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// PriceMultipliers records the factors applied on top of the base price.
type PriceMultipliers struct {
	Time  float64 `json:"time"`
	Day   float64 `json:"day"`
	Surge float64 `json:"surge"`
}

// PriceQuote is the transient result of a pricing invocation. Only the
// estimated/final price scalar is absorbed into the Ride record.
type PriceQuote struct {
	Price           int64            `json:"price"`
	BasePrice       int64            `json:"base_price"`
	DistanceKm      float64          `json:"distance_km"`
	DurationMinutes float64          `json:"duration_minutes"`
	Multipliers     PriceMultipliers `json:"multipliers"`
	Currency        string           `json:"currency"`
	Breakdown       string           `json:"breakdown"`
}

// QuoteRequest is the synchronous quote payload.
type QuoteRequest struct {
	Pickup  Location `json:"pickup"`
	Dropoff Location `json:"dropoff"`
}

// RouteEstimate is the routing collaborator's answer for a leg.
type RouteEstimate struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
	Approximate     bool    `json:"approximate"` // true when the great-circle fallback served the estimate
}
