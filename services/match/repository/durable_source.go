package repository

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/okapiride/dispatch/internal/pkg/database"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/match"
)

// durableSource serves candidates from the drivers table when the live store
// has nothing to offer. Positions here are the last durably recorded ones and
// may lag the street by minutes, so the engine marks results as not-from-store
// and the accept transition still re-verifies the geofence.
type durableSource struct {
	db        *database.PostgresClient
	staleness time.Duration
}

// NewDurableSource creates the durable fallback candidate source
func NewDurableSource(db *database.PostgresClient, staleness time.Duration) match.CandidateSource {
	if staleness <= 0 {
		staleness = 15 * time.Minute
	}
	return &durableSource{db: db, staleness: staleness}
}

func (s *durableSource) Name() string { return "durable" }

type durableDriverRow struct {
	ID        string  `db:"id"`
	Latitude  float64 `db:"last_latitude"`
	Longitude float64 `db:"last_longitude"`
}

const durableCandidatesQuery = `
	SELECT id, last_latitude, last_longitude
	FROM drivers
	WHERE available = TRUE
	  AND last_seen_at > $1
	  AND last_latitude BETWEEN $2 AND $3
	  AND last_longitude BETWEEN $4 AND $5`

// Candidates pre-filters with a bounding box in SQL and applies the exact
// great-circle cut in process.
func (s *durableSource) Candidates(ctx context.Context, loc models.Location, radiusKm float64) ([]models.NearbyDriver, error) {
	latDelta := radiusKm / 111.0
	lngDelta := radiusKm / (111.0 * math.Cos(loc.Latitude*math.Pi/180))

	var rows []durableDriverRow
	err := s.db.GetDB().SelectContext(ctx, &rows, durableCandidatesQuery,
		time.Now().Add(-s.staleness),
		loc.Latitude-latDelta, loc.Latitude+latDelta,
		loc.Longitude-lngDelta, loc.Longitude+lngDelta,
	)
	if err != nil {
		return nil, err
	}

	out := make([]models.NearbyDriver, 0, len(rows))
	for _, row := range rows {
		driverLoc := models.Location{Latitude: row.Latitude, Longitude: row.Longitude}
		dist := utils.DistanceKm(loc, driverLoc)
		if dist > radiusKm {
			continue
		}
		out = append(out, models.NearbyDriver{
			Presence: models.DriverPresence{
				DriverID: row.ID,
				Location: driverLoc,
				Status:   models.DriverStatusAvailable,
			},
			DistanceKm: dist,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}
