package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/okapiride/dispatch/internal/pkg/database"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/services/match"
)

// statsRepo aggregates 30-day ride history and offer responses per driver.
type statsRepo struct {
	db     *database.PostgresClient
	window time.Duration
}

// NewStatsRepository creates the driver stats repository
func NewStatsRepository(db *database.PostgresClient) match.StatsRepo {
	return &statsRepo{db: db, window: 30 * 24 * time.Hour}
}

const driverStatsQuery = `
	SELECT d.id AS driver_id,
	       d.rating AS rating,
	       COALESCE(r.completed, 0) AS completed_30d,
	       COALESCE(r.cancelled, 0) AS cancelled_30d,
	       COALESCE(o.received, 0) AS offers_received,
	       COALESCE(o.accepted, 0) AS offers_accepted
	FROM drivers d
	LEFT JOIN (
		SELECT driver_id,
		       COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		       COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM rides
		WHERE requested_at > ?
		GROUP BY driver_id
	) r ON r.driver_id = d.id
	LEFT JOIN (
		SELECT driver_id,
		       COUNT(*) AS received,
		       COUNT(*) FILTER (WHERE accepted) AS accepted
		FROM ride_offers
		WHERE offered_at > ?
		GROUP BY driver_id
	) o ON o.driver_id = d.id
	WHERE d.id IN (?)`

func (s *statsRepo) StatsFor(ctx context.Context, driverIDs []string) (map[string]models.DriverStats, error) {
	if len(driverIDs) == 0 {
		return map[string]models.DriverStats{}, nil
	}

	since := time.Now().Add(-s.window)
	query, args, err := sqlx.In(driverStatsQuery, since, since, driverIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.GetDB().Rebind(query)

	var rows []models.DriverStats
	if err := s.db.GetDB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make(map[string]models.DriverStats, len(rows))
	for _, row := range rows {
		out[row.DriverID] = row
	}
	return out, nil
}
