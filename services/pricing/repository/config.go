package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/database"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/services/pricing"
)

// configRepo serves the single active pricing_config row through a TTL cache.
// Update rewrites the row and invalidates, so the next quote reads fresh
// constants instead of waiting out the TTL.
type configRepo struct {
	db  *database.PostgresClient
	ttl time.Duration

	mu        sync.Mutex
	cached    *models.PriceTable
	expiresAt time.Time
}

// NewConfigRepository creates the pricing configuration repository
func NewConfigRepository(db *database.PostgresClient, ttl time.Duration) pricing.ConfigRepo {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &configRepo{db: db, ttl: ttl}
}

const activeConfigQuery = `
	SELECT id, base_fare, per_km_rate,
	       rush_hour_multiplier, night_multiplier, weekend_multiplier,
	       surge_discount, surge_normal, surge_moderate, surge_high, surge_peak,
	       currency, updated_at
	FROM pricing_config
	WHERE active = TRUE
	ORDER BY updated_at DESC
	LIMIT 1`

func (r *configRepo) Active(ctx context.Context) (*models.PriceTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && time.Now().Before(r.expiresAt) {
		cp := *r.cached
		return &cp, nil
	}

	var t models.PriceTable
	if err := r.db.GetDB().GetContext(ctx, &t, activeConfigQuery); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no active pricing configuration")
		}
		// Serve the stale row past its TTL rather than failing the quote.
		if r.cached != nil {
			logger.Warn("pricing config reload failed, serving stale row", logrus.Fields{"error": err.Error()})
			cp := *r.cached
			return &cp, nil
		}
		return nil, err
	}

	r.cached = &t
	r.expiresAt = time.Now().Add(r.ttl)
	cp := t
	return &cp, nil
}

const updateConfigQuery = `
	UPDATE pricing_config
	SET base_fare = :base_fare,
	    per_km_rate = :per_km_rate,
	    rush_hour_multiplier = :rush_hour_multiplier,
	    night_multiplier = :night_multiplier,
	    weekend_multiplier = :weekend_multiplier,
	    surge_discount = :surge_discount,
	    surge_normal = :surge_normal,
	    surge_moderate = :surge_moderate,
	    surge_high = :surge_high,
	    surge_peak = :surge_peak,
	    currency = :currency,
	    updated_at = NOW()
	WHERE active = TRUE`

func (r *configRepo) Update(ctx context.Context, t *models.PriceTable) error {
	res, err := r.db.GetDB().NamedExecContext(ctx, updateConfigQuery, t)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no active pricing configuration to update")
	}
	r.Invalidate()
	return nil
}

func (r *configRepo) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.expiresAt = time.Time{}
}
