package constants

// Redis key formats
const (
	KeyDriverPresence = "driver:presence:%s" // Format: driver:presence:{driver_id}
	KeyDriverGeo      = "drivers:geo"        // GEO set of live driver positions
	KeyActiveRides    = "rides:active"       // Set of ride IDs with a bound driver
	KeyDemandCell     = "demand:cell:%s"     // Format: demand:cell:{geohash}
)

// Redis hash fields for driver presence
const (
	FieldLatitude  = "lat"
	FieldLongitude = "lng"
	FieldHeading   = "heading"
	FieldSpeedKmh  = "speed_kmh"
	FieldStatus    = "status"
	FieldRideID    = "ride_id"
	FieldUpdatedAt = "updated_at"
)
