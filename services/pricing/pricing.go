package pricing

import (
	"context"

	"github.com/okapiride/dispatch/internal/pkg/models"
)

// ConfigRepo serves the single active pricing row. Reads are cached with a
// bounded TTL; Update invalidates so an in-flight quote never mixes stale and
// fresh constants.
type ConfigRepo interface {
	Active(ctx context.Context) (*models.PriceTable, error)
	Update(ctx context.Context, t *models.PriceTable) error
	Invalidate()
}

// DemandRepo tracks recent ride requests per map cell for surge computation.
type DemandRepo interface {
	// RecordRequest counts a new pending request at loc, expiring after the
	// surge lookback window.
	RecordRequest(ctx context.Context, loc models.Location) error
	// PendingNearby returns the number of recent requests around loc.
	PendingNearby(ctx context.Context, loc models.Location) (int64, error)
}

// RoutingGW is the external routing collaborator. Implementations fall back
// to a great-circle approximation when the routing backend is unreachable.
type RoutingGW interface {
	Estimate(ctx context.Context, pickup, dropoff models.Location) (*models.RouteEstimate, error)
}

// PricingUC is the pricing engine surface.
type PricingUC interface {
	Quote(ctx context.Context, req *models.QuoteRequest) (*models.PriceQuote, error)
	// RecordDemand feeds a new pending request into the surge window.
	RecordDemand(ctx context.Context, pickup models.Location) error
	UpdateConfig(ctx context.Context, t *models.PriceTable) error
}
