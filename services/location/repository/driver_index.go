package repository

import (
	"context"
	"fmt"

	"github.com/okapiride/dispatch/internal/pkg/database"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/services/location"
)

// driverIndexRepo mirrors each position push into the drivers table so the
// matcher has a durable fallback when the live store is down. Rows lag the
// street by design; the accept transition still re-verifies the geofence.
type driverIndexRepo struct {
	db *database.PostgresClient
}

// NewDriverIndexRepository creates the durable driver index writer
func NewDriverIndexRepository(db *database.PostgresClient) location.DurableIndex {
	return &driverIndexRepo{db: db}
}

const recordPositionQuery = `
	UPDATE drivers
	SET last_latitude = $1, last_longitude = $2, last_seen_at = NOW(), available = $3
	WHERE id = $4`

func (r *driverIndexRepo) RecordPosition(ctx context.Context, driverID string, loc models.Location, available bool) error {
	_, err := r.db.GetDB().ExecContext(ctx, recordPositionQuery, loc.Latitude, loc.Longitude, available, driverID)
	if err != nil {
		return fmt.Errorf("failed to record driver position: %w", err)
	}
	return nil
}

func (r *driverIndexRepo) SetAvailable(ctx context.Context, driverID string, available bool) error {
	_, err := r.db.GetDB().ExecContext(ctx,
		`UPDATE drivers SET available = $1, last_seen_at = NOW() WHERE id = $2`,
		available, driverID)
	if err != nil {
		return fmt.Errorf("failed to update driver availability: %w", err)
	}
	return nil
}
