package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/location"
	"github.com/okapiride/dispatch/services/pricing"
)

// Surge ratio tier boundaries (pending requests per available driver).
const (
	surgeRatioDiscount = 0.5
	surgeRatioNormal   = 1.0
	surgeRatioModerate = 2.0
	surgeRatioHigh     = 3.0
)

// PricingUC implements the pricing engine. A quote is a pure function of the
// route estimate, the cached configuration row, the clock and the local
// demand/supply ratio.
type PricingUC struct {
	config   pricing.ConfigRepo
	demand   pricing.DemandRepo
	routing  pricing.RoutingGW
	presence location.PresenceRepo
	cfg      models.PricingConfig

	now func() time.Time
}

// NewPricingUC creates a new pricing engine
func NewPricingUC(config pricing.ConfigRepo, demand pricing.DemandRepo, routing pricing.RoutingGW, presence location.PresenceRepo, cfg models.PricingConfig) *PricingUC {
	return &PricingUC{
		config:   config,
		demand:   demand,
		routing:  routing,
		presence: presence,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Quote estimates the route and prices it at the current moment.
func (uc *PricingUC) Quote(ctx context.Context, req *models.QuoteRequest) (*models.PriceQuote, error) {
	if !utils.ValidCoordinates(req.Pickup) || !utils.ValidCoordinates(req.Dropoff) {
		return nil, fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}

	est, err := uc.routing.Estimate(ctx, req.Pickup, req.Dropoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRoutingDegraded, err)
	}
	return uc.quoteAt(ctx, est, req.Pickup, uc.now())
}

// RecordDemand feeds a pending request into the surge window. Failures are
// logged and swallowed; losing one demand sample must never block a ride.
func (uc *PricingUC) RecordDemand(ctx context.Context, pickup models.Location) error {
	if err := uc.demand.RecordRequest(ctx, pickup); err != nil {
		logger.Warn("demand sample dropped", logrus.Fields{"error": err.Error()})
	}
	return nil
}

// UpdateConfig persists new pricing constants and invalidates the cache.
func (uc *PricingUC) UpdateConfig(ctx context.Context, t *models.PriceTable) error {
	if t.BaseFare < 0 || t.PerKmRate <= 0 {
		return fmt.Errorf("%w: base fare and per-km rate must be positive", apperr.ErrInvalid)
	}
	return uc.config.Update(ctx, t)
}

// quoteAt prices an estimated route at a fixed moment.
func (uc *PricingUC) quoteAt(ctx context.Context, est *models.RouteEstimate, pickup models.Location, at time.Time) (*models.PriceQuote, error) {
	table, err := uc.config.Active(ctx)
	if err != nil {
		return nil, err
	}

	mult := models.PriceMultipliers{
		Time:  uc.timeMultiplier(table, at),
		Day:   uc.dayMultiplier(table, at),
		Surge: uc.surgeMultiplier(ctx, table, pickup),
	}

	base := table.BaseFare + est.DistanceKm*table.PerKmRate
	price := base * mult.Time * mult.Day * mult.Surge

	return &models.PriceQuote{
		Price:           int64(math.Round(price)),
		BasePrice:       int64(math.Round(base)),
		DistanceKm:      est.DistanceKm,
		DurationMinutes: est.DurationMinutes,
		Multipliers:     mult,
		Currency:        table.Currency,
		Breakdown: fmt.Sprintf("(%.0f + %.2f km x %.0f) x time %.2f x day %.2f x surge %.2f",
			table.BaseFare, est.DistanceKm, table.PerKmRate, mult.Time, mult.Day, mult.Surge),
	}, nil
}

// timeMultiplier applies the rush-hour rate inside the two daily windows and
// the night rate inside the overnight window. The windows never overlap.
func (uc *PricingUC) timeMultiplier(table *models.PriceTable, at time.Time) float64 {
	hour := at.Hour()
	if (hour >= uc.cfg.RushHourStart1 && hour < uc.cfg.RushHourEnd1) ||
		(hour >= uc.cfg.RushHourStart2 && hour < uc.cfg.RushHourEnd2) {
		return table.RushHourMultiplier
	}
	if hour >= uc.cfg.NightStart || hour < uc.cfg.NightEnd {
		return table.NightMultiplier
	}
	return 1.0
}

func (uc *PricingUC) dayMultiplier(table *models.PriceTable, at time.Time) float64 {
	switch at.Weekday() {
	case time.Saturday, time.Sunday:
		return table.WeekendMultiplier
	}
	return 1.0
}

// surgeMultiplier maps the pending-to-available ratio around the pickup onto
// five ordered tiers. Demand with no reachable drivers is forced to the top
// tier. When the store cannot answer, surge is neutral rather than failing
// the quote.
func (uc *PricingUC) surgeMultiplier(ctx context.Context, table *models.PriceTable, pickup models.Location) float64 {
	pendingCount, err := uc.demand.PendingNearby(ctx, pickup)
	if err != nil {
		logger.Warn("surge demand unavailable, using neutral surge", logrus.Fields{"error": err.Error()})
		return table.SurgeNormal
	}

	drivers, err := uc.presence.NearbyAvailable(ctx, pickup, uc.cfg.SupplyRadiusKm)
	if err != nil {
		logger.Warn("surge supply unavailable, using neutral surge", logrus.Fields{"error": err.Error()})
		return table.SurgeNormal
	}
	supply := len(drivers)

	if supply == 0 {
		if pendingCount > 0 {
			return table.SurgePeak
		}
		return table.SurgeNormal
	}

	ratio := float64(pendingCount) / float64(supply)
	switch {
	case ratio < surgeRatioDiscount:
		return table.SurgeDiscount
	case ratio < surgeRatioNormal:
		return table.SurgeNormal
	case ratio < surgeRatioModerate:
		return table.SurgeModerate
	case ratio < surgeRatioHigh:
		return table.SurgeHigh
	default:
		return table.SurgePeak
	}
}
