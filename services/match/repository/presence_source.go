package repository

import (
	"context"

	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/services/location"
	"github.com/okapiride/dispatch/services/match"
)

// presenceSource serves candidates straight from the live location store.
// This is the primary source; results reflect drivers reachable right now.
type presenceSource struct {
	presence location.PresenceRepo
}

// NewPresenceSource creates the live-store candidate source
func NewPresenceSource(presence location.PresenceRepo) match.CandidateSource {
	return &presenceSource{presence: presence}
}

func (s *presenceSource) Name() string { return "presence" }

func (s *presenceSource) Candidates(ctx context.Context, loc models.Location, radiusKm float64) ([]models.NearbyDriver, error) {
	return s.presence.NearbyAvailable(ctx, loc, radiusKm)
}
