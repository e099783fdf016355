package location

import (
	"context"

	"github.com/okapiride/dispatch/internal/pkg/models"
)

// PresenceRepo is the ephemeral location store contract. Every operation
// fails fast when the store is unreachable (wrapping apperr.ErrStoreDegraded)
// so callers can fall back to the durable index instead of blocking.
type PresenceRepo interface {
	// Upsert writes the presence record and resets its expiry window in a
	// single round trip.
	Upsert(ctx context.Context, p *models.DriverPresence) error
	// Get returns the live presence or apperr.ErrDriverNotFound.
	Get(ctx context.Context, driverID string) (*models.DriverPresence, error)
	// NearbyAvailable returns non-expired available drivers within radiusKm
	// of loc, nearest first.
	NearbyAvailable(ctx context.Context, loc models.Location, radiusKm float64) ([]models.NearbyDriver, error)
	// Remove forces immediate expiry (explicit offline toggle).
	Remove(ctx context.Context, driverID string) error
	// SetDispatchState atomically updates the driver's dispatch sub-state
	// (status + bound ride) without touching position or expiry.
	SetDispatchState(ctx context.Context, driverID string, status models.DriverStatus, rideID string) error
	// TrackRide/UntrackRide maintain the active-ride index the broadcaster
	// walks on each tick.
	TrackRide(ctx context.Context, rideID, driverID string) error
	UntrackRide(ctx context.Context, rideID string) error
	// ActiveRides returns rideID -> driverID for every tracked ride.
	ActiveRides(ctx context.Context) (map[string]string, error)
}

// DurableIndex is the write side of the durable driver position index the
// matcher falls back to when the live store is empty or degraded. Writes are
// best effort; the live store remains the source of truth for reachability.
type DurableIndex interface {
	// RecordPosition mirrors a position push along with whether the driver
	// is actually free, so the fallback never offers rides to a driver who
	// is mid-trip.
	RecordPosition(ctx context.Context, driverID string, loc models.Location, available bool) error
	SetAvailable(ctx context.Context, driverID string, available bool) error
}

// LocationUC is the inbound surface for driver position pushes.
type LocationUC interface {
	UpdateDriverLocation(ctx context.Context, p *models.DriverPresence) error
	SetAvailability(ctx context.Context, driverID string, available bool, loc *models.Location) error
	GetNearbyDrivers(ctx context.Context, loc models.Location, radiusKm float64) ([]models.NearbyDriver, error)
}
