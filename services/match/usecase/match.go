package usecase

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/metrics"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/services/match"
)

// Component weights sum to 100 so each contribution reads as a percentage.
const (
	weightDistance     = 40.0
	weightRating       = 25.0
	weightAvailability = 15.0
	weightCompletion   = 10.0
	weightAcceptance   = 10.0

	// Neutral component value for drivers with no history.
	neutralComponent = 50.0

	runnerUpCount = 3
)

// MatchUC implements the matching engine: candidate lookup with an explicit
// store-to-durable fallback, weighted scoring, and threshold-gated selection.
type MatchUC struct {
	primary  match.CandidateSource
	fallback match.CandidateSource
	stats    match.StatsRepo

	maxRadiusKm       float64
	preferredRadiusKm float64
	minScore          float64
}

// NewMatchUC creates a new matching engine
func NewMatchUC(primary, fallback match.CandidateSource, stats match.StatsRepo, cfg models.DispatchConfig) *MatchUC {
	return &MatchUC{
		primary:           primary,
		fallback:          fallback,
		stats:             stats,
		maxRadiusKm:       cfg.MaxRadiusKm,
		preferredRadiusKm: cfg.PreferredRadiusKm,
		minScore:          cfg.MinMatchScore,
	}
}

// FindMatch scores every in-range candidate and returns the best one, or
// apperr.ErrNoMatch when none clears the minimum score. The result carries up
// to three runner-ups for observability, never for automatic retry.
func (uc *MatchUC) FindMatch(ctx context.Context, pickup models.Location) (*models.MatchResult, error) {
	nearby, fromStore, err := uc.candidates(ctx, pickup)
	if err != nil {
		return nil, err
	}
	if len(nearby) == 0 {
		metrics.MatchesTotal.WithLabelValues("no_match").Inc()
		return nil, apperr.ErrNoMatch
	}

	ids := make([]string, len(nearby))
	for i, n := range nearby {
		ids[i] = n.Presence.DriverID
	}
	stats, err := uc.stats.StatsFor(ctx, ids)
	if err != nil {
		// History only sharpens the ranking; score on neutral defaults
		// rather than failing the whole match.
		logger.Warn("driver stats unavailable, scoring with defaults", logrus.Fields{"error": err.Error()})
		stats = map[string]models.DriverStats{}
	}

	scored := make([]models.MatchCandidate, 0, len(nearby))
	for _, n := range nearby {
		st, hasStats := stats[n.Presence.DriverID]
		scored = append(scored, uc.score(n, st, hasStats))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].DistanceKm < scored[j].DistanceKm
	})

	best := scored[0]
	if best.Score < uc.minScore {
		metrics.MatchesTotal.WithLabelValues("no_match").Inc()
		logger.Info("best candidate below threshold", logrus.Fields{
			"driver_id": best.Driver.DriverID,
			"score":     best.Score,
			"threshold": uc.minScore,
		})
		return nil, apperr.ErrNoMatch
	}

	result := &models.MatchResult{Best: best, FromStore: fromStore}
	for _, c := range scored[1:] {
		if len(result.RunnersUp) == runnerUpCount {
			break
		}
		result.RunnersUp = append(result.RunnersUp, models.RunnerUp{DriverID: c.Driver.DriverID, Score: c.Score})
	}

	metrics.MatchesTotal.WithLabelValues("matched").Inc()
	return result, nil
}

// EligibleDrivers lists every candidate inside the max radius regardless of
// score, for addressing an open offer.
func (uc *MatchUC) EligibleDrivers(ctx context.Context, pickup models.Location) ([]string, error) {
	nearby, _, err := uc.candidates(ctx, pickup)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(nearby))
	for i, n := range nearby {
		ids[i] = n.Presence.DriverID
	}
	return ids, nil
}

// candidates tries the live store first and falls back to the durable index
// when the store is degraded or empty.
func (uc *MatchUC) candidates(ctx context.Context, pickup models.Location) ([]models.NearbyDriver, bool, error) {
	nearby, err := uc.primary.Candidates(ctx, pickup, uc.maxRadiusKm)
	if err != nil {
		if !errors.Is(err, apperr.ErrStoreDegraded) {
			return nil, false, err
		}
		logger.Warn("live store degraded, using durable index", logrus.Fields{"error": err.Error()})
	}
	if err == nil && len(nearby) > 0 {
		return nearby, true, nil
	}

	fallback, ferr := uc.fallback.Candidates(ctx, pickup, uc.maxRadiusKm)
	if ferr != nil {
		if err != nil {
			// Both sources down; surface the store error.
			return nil, false, err
		}
		return nil, false, ferr
	}
	if len(fallback) > 0 {
		metrics.StoreFallbacks.Inc()
		metrics.MatchesTotal.WithLabelValues("fallback").Inc()
	}
	return fallback, false, nil
}

func (uc *MatchUC) score(n models.NearbyDriver, st models.DriverStats, hasStats bool) models.MatchCandidate {
	b := models.ScoreBreakdown{
		Distance:     weightDistance * uc.distanceComponent(n.DistanceKm) / 100,
		Rating:       weightRating * ratingComponent(st, hasStats) / 100,
		Availability: weightAvailability * availabilityComponent(n.Presence.Status) / 100,
		Completion:   weightCompletion * completionComponent(st, hasStats) / 100,
		Acceptance:   weightAcceptance * acceptanceComponent(st, hasStats) / 100,
	}
	return models.MatchCandidate{
		Driver:     n.Presence,
		DistanceKm: n.DistanceKm,
		Score:      b.Distance + b.Rating + b.Availability + b.Completion + b.Acceptance,
		Breakdown:  b,
	}
}

// distanceComponent ramps linearly from 100 at the preferred radius down to 0
// at the max radius.
func (uc *MatchUC) distanceComponent(distKm float64) float64 {
	switch {
	case distKm <= uc.preferredRadiusKm:
		return 100
	case distKm >= uc.maxRadiusKm:
		return 0
	default:
		return 100 * (uc.maxRadiusKm - distKm) / (uc.maxRadiusKm - uc.preferredRadiusKm)
	}
}

func ratingComponent(st models.DriverStats, hasStats bool) float64 {
	if !hasStats || st.Rating <= 0 {
		return neutralComponent
	}
	v := st.Rating * 20
	if v > 100 {
		v = 100
	}
	return v
}

func availabilityComponent(status models.DriverStatus) float64 {
	switch status {
	case models.DriverStatusAvailable:
		return 100
	case models.DriverStatusEnRoute, models.DriverStatusOnTrip:
		return 50
	default:
		return 0
	}
}

func completionComponent(st models.DriverStats, hasStats bool) float64 {
	total := st.Completed30d + st.Cancelled30d
	if !hasStats || total == 0 {
		return neutralComponent
	}
	return 100 * float64(st.Completed30d) / float64(total)
}

func acceptanceComponent(st models.DriverStats, hasStats bool) float64 {
	if !hasStats || st.OffersReceived == 0 {
		return neutralComponent
	}
	v := 100 * float64(st.OffersAccepted) / float64(st.OffersReceived)
	if v > 100 {
		v = 100
	}
	return v
}
