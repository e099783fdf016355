package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/metrics"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/location"
)

// LocationUC implements the location.LocationUC interface
type LocationUC struct {
	repo  location.PresenceRepo
	index location.DurableIndex
}

// NewLocationUC creates a new location use case
func NewLocationUC(repo location.PresenceRepo, index location.DurableIndex) *LocationUC {
	return &LocationUC{repo: repo, index: index}
}

// UpdateDriverLocation refreshes a driver's presence from a position push.
// A push from a driver with no live record recreates it; a driver pushing
// while on a ride keeps their dispatch sub-state.
func (uc *LocationUC) UpdateDriverLocation(ctx context.Context, p *models.DriverPresence) error {
	if !utils.ValidCoordinates(p.Location) {
		return fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}
	if p.Location.Timestamp.IsZero() {
		p.Location.Timestamp = time.Now()
	}

	// Preserve dispatch sub-state across pushes: the state machine owns
	// status and ride binding once a ride is active.
	if existing, err := uc.repo.Get(ctx, p.DriverID); err == nil {
		if existing.Status == models.DriverStatusEnRoute || existing.Status == models.DriverStatusOnTrip {
			p.Status = existing.Status
			p.RideID = existing.RideID
		}
	}
	if p.Status == "" {
		p.Status = models.DriverStatusAvailable
	}

	if err := uc.repo.Upsert(ctx, p); err != nil {
		return err
	}
	metrics.PresenceUpserts.Inc()

	// Mirror into the durable fallback index. Best effort only. A driver
	// serving a ride is mirrored as unavailable so the fallback source
	// never offers them more work.
	if err := uc.index.RecordPosition(ctx, p.DriverID, p.Location, p.Status == models.DriverStatusAvailable); err != nil {
		logger.Warn("durable position mirror failed", logrus.Fields{
			"driver_id": p.DriverID,
			"error":     err.Error(),
		})
	}
	return nil
}

// SetAvailability toggles a driver online or offline. Going offline removes
// the presence eagerly rather than waiting for expiry.
func (uc *LocationUC) SetAvailability(ctx context.Context, driverID string, available bool, loc *models.Location) error {
	if !available {
		if err := uc.repo.Remove(ctx, driverID); err != nil {
			return err
		}
		uc.mirrorAvailability(ctx, driverID, false)
		return nil
	}
	if loc == nil || !utils.ValidCoordinates(*loc) {
		return fmt.Errorf("%w: going online requires a valid position", apperr.ErrInvalid)
	}
	err := uc.repo.Upsert(ctx, &models.DriverPresence{
		DriverID:  driverID,
		Location:  *loc,
		Status:    models.DriverStatusAvailable,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	uc.mirrorAvailability(ctx, driverID, true)
	return nil
}

func (uc *LocationUC) mirrorAvailability(ctx context.Context, driverID string, available bool) {
	if err := uc.index.SetAvailable(ctx, driverID, available); err != nil {
		logger.Warn("durable availability mirror failed", logrus.Fields{
			"driver_id": driverID,
			"error":     err.Error(),
		})
	}
}

// GetNearbyDrivers returns available drivers within radiusKm of loc.
func (uc *LocationUC) GetNearbyDrivers(ctx context.Context, loc models.Location, radiusKm float64) ([]models.NearbyDriver, error) {
	if !utils.ValidCoordinates(loc) {
		return nil, fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}
	return uc.repo.NearbyAvailable(ctx, loc, radiusKm)
}
