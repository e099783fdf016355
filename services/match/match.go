package match

import (
	"context"

	"github.com/okapiride/dispatch/internal/pkg/models"
)

// CandidateSource yields available drivers near a pickup point. The engine
// holds two: the live presence store and the durable index it falls back to
// when the store is empty or degraded. Each fallback is an explicit strategy
// with its own tests, not an ad hoc code path.
type CandidateSource interface {
	// Candidates returns available drivers within radiusKm of loc, nearest
	// first.
	Candidates(ctx context.Context, loc models.Location, radiusKm float64) ([]models.NearbyDriver, error)
	// Name identifies the source in logs and metrics.
	Name() string
}

// StatsRepo provides the recent-history aggregates the scorer consumes.
type StatsRepo interface {
	// StatsFor returns per-driver aggregates for the given ids. Drivers with
	// no history are absent from the map.
	StatsFor(ctx context.Context, driverIDs []string) (map[string]models.DriverStats, error)
}

// MatchUC is the matching engine surface. FindMatch returns
// apperr.ErrNoMatch when no candidate clears the minimum score.
type MatchUC interface {
	FindMatch(ctx context.Context, pickup models.Location) (*models.MatchResult, error)
	// EligibleDrivers lists every in-range candidate id, used to address an
	// open offer when no confident match exists.
	EligibleDrivers(ctx context.Context, pickup models.Location) ([]string, error)
}
