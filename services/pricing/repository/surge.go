package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/constants"
	"github.com/okapiride/dispatch/internal/pkg/database"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/pricing"
)

// demandRepo counts recent ride requests in per-cell Redis counters. Each
// counter expires after the surge lookback window, so a pending count is
// always scoped to recent demand without any sweep job.
type demandRepo struct {
	redisClient *database.RedisClient
	lookback    time.Duration
	cellDigits  uint
}

// NewDemandRepository creates the surge demand repository
func NewDemandRepository(redisClient *database.RedisClient, lookback time.Duration, cellDigits uint) pricing.DemandRepo {
	if lookback <= 0 {
		lookback = 10 * time.Minute
	}
	if cellDigits == 0 {
		cellDigits = 6
	}
	return &demandRepo{redisClient: redisClient, lookback: lookback, cellDigits: cellDigits}
}

func demandKey(cell string) string {
	return fmt.Sprintf(constants.KeyDemandCell, cell)
}

func (r *demandRepo) RecordRequest(ctx context.Context, loc models.Location) error {
	cell := utils.DemandCell(loc, r.cellDigits)

	pipe := r.redisClient.GetClient().TxPipeline()
	pipe.Incr(ctx, demandKey(cell))
	pipe.Expire(ctx, demandKey(cell), r.lookback)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: record demand: %v", apperr.ErrStoreDegraded, err)
	}
	return nil
}

// PendingNearby sums the demand counters of the pickup's cell and its eight
// neighbors in one round trip.
func (r *demandRepo) PendingNearby(ctx context.Context, loc models.Location) (int64, error) {
	cells := utils.DemandCells(loc, r.cellDigits)
	keys := make([]string, len(cells))
	for i, cell := range cells {
		keys[i] = demandKey(cell)
	}

	values, err := r.redisClient.GetClient().MGet(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: pending demand: %v", apperr.ErrStoreDegraded, err)
	}

	var total int64
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			var n int64
			if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
				total += n
			}
		}
	}
	return total, nil
}
