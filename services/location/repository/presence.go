package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/constants"
	"github.com/okapiride/dispatch/internal/pkg/database"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/services/location"
)

// presenceRepo implements location.PresenceRepo on Redis. Each driver's
// record is a hash with a TTL; positions are mirrored into a GEO set for
// radius queries. Hash expiry is the sole removal mechanism; GEO members
// whose hash has expired are filtered on read and pruned lazily.
type presenceRepo struct {
	redisClient *database.RedisClient
	ttl         time.Duration
	timeout     time.Duration
}

// NewPresenceRepository creates a new presence repository
func NewPresenceRepository(redisClient *database.RedisClient, ttl, timeout time.Duration) location.PresenceRepo {
	return &presenceRepo{
		redisClient: redisClient,
		ttl:         ttl,
		timeout:     timeout,
	}
}

func presenceKey(driverID string) string {
	return fmt.Sprintf(constants.KeyDriverPresence, driverID)
}

func (r *presenceRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func degraded(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperr.ErrStoreDegraded, op, err)
}

// Upsert writes the presence hash, resets its expiry and refreshes the GEO
// member in one pipelined round trip.
func (r *presenceRepo) Upsert(ctx context.Context, p *models.DriverPresence) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}

	fields := map[string]interface{}{
		constants.FieldLatitude:  strconv.FormatFloat(p.Location.Latitude, 'f', -1, 64),
		constants.FieldLongitude: strconv.FormatFloat(p.Location.Longitude, 'f', -1, 64),
		constants.FieldHeading:   strconv.FormatFloat(p.Heading, 'f', -1, 64),
		constants.FieldSpeedKmh:  strconv.FormatFloat(p.SpeedKmh, 'f', -1, 64),
		constants.FieldStatus:    string(p.Status),
		constants.FieldRideID:    p.RideID,
		constants.FieldUpdatedAt: strconv.FormatInt(p.UpdatedAt.Unix(), 10),
	}

	pipe := r.redisClient.GetClient().TxPipeline()
	pipe.HSet(ctx, presenceKey(p.DriverID), fields)
	pipe.Expire(ctx, presenceKey(p.DriverID), r.ttl)
	pipe.GeoAdd(ctx, constants.KeyDriverGeo, &redis.GeoLocation{
		Longitude: p.Location.Longitude,
		Latitude:  p.Location.Latitude,
		Name:      p.DriverID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return degraded("upsert presence", err)
	}
	return nil
}

// Get returns the live presence record, or apperr.ErrDriverNotFound once the
// hash has expired.
func (r *presenceRepo) Get(ctx context.Context, driverID string) (*models.DriverPresence, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	values, err := r.redisClient.GetClient().HGetAll(ctx, presenceKey(driverID)).Result()
	if err != nil {
		return nil, degraded("get presence", err)
	}
	if len(values) == 0 {
		return nil, apperr.ErrDriverNotFound
	}
	return presenceFromHash(driverID, values)
}

// NearbyAvailable walks the GEO set around loc and filters hits against the
// live presence hashes. Members whose hash has expired are pruned from the
// GEO set as they are encountered.
func (r *presenceRepo) NearbyAvailable(ctx context.Context, loc models.Location, radiusKm float64) ([]models.NearbyDriver, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	hits, err := r.redisClient.GeoRadius(ctx, constants.KeyDriverGeo, loc.Longitude, loc.Latitude, radiusKm)
	if err != nil {
		return nil, degraded("geo radius", err)
	}

	out := make([]models.NearbyDriver, 0, len(hits))
	for _, hit := range hits {
		p, err := r.Get(ctx, hit.Name)
		if err != nil {
			if err == apperr.ErrDriverNotFound {
				// stale GEO member, hash expired
				r.redisClient.GetClient().ZRem(ctx, constants.KeyDriverGeo, hit.Name)
				continue
			}
			return nil, err
		}
		if p.Status != models.DriverStatusAvailable {
			continue
		}
		out = append(out, models.NearbyDriver{Presence: *p, DistanceKm: hit.Dist})
	}
	return out, nil
}

// Remove deletes the presence hash and its GEO member immediately.
func (r *presenceRepo) Remove(ctx context.Context, driverID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipe := r.redisClient.GetClient().TxPipeline()
	pipe.Del(ctx, presenceKey(driverID))
	pipe.ZRem(ctx, constants.KeyDriverGeo, driverID)
	if _, err := pipe.Exec(ctx); err != nil {
		return degraded("remove presence", err)
	}
	return nil
}

// SetDispatchState updates status and bound ride as one hash write. The TTL
// set by the last position push is left untouched so an idle record still
// expires on schedule.
func (r *presenceRepo) SetDispatchState(ctx context.Context, driverID string, status models.DriverStatus, rideID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	exists, err := r.redisClient.GetClient().Exists(ctx, presenceKey(driverID)).Result()
	if err != nil {
		return degraded("set dispatch state", err)
	}
	if exists == 0 {
		return apperr.ErrDriverNotFound
	}

	err = r.redisClient.GetClient().HSet(ctx, presenceKey(driverID), map[string]interface{}{
		constants.FieldStatus: string(status),
		constants.FieldRideID: rideID,
	}).Err()
	if err != nil {
		return degraded("set dispatch state", err)
	}
	return nil
}

func (r *presenceRepo) TrackRide(ctx context.Context, rideID, driverID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.redisClient.GetClient().HSet(ctx, constants.KeyActiveRides, rideID, driverID).Err(); err != nil {
		return degraded("track ride", err)
	}
	return nil
}

func (r *presenceRepo) UntrackRide(ctx context.Context, rideID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.redisClient.GetClient().HDel(ctx, constants.KeyActiveRides, rideID).Err(); err != nil {
		return degraded("untrack ride", err)
	}
	return nil
}

func (r *presenceRepo) ActiveRides(ctx context.Context) (map[string]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rides, err := r.redisClient.GetClient().HGetAll(ctx, constants.KeyActiveRides).Result()
	if err != nil {
		return nil, degraded("active rides", err)
	}
	return rides, nil
}

// presenceFromHash rebuilds a DriverPresence from its Redis hash fields.
func presenceFromHash(driverID string, values map[string]string) (*models.DriverPresence, error) {
	lat, err := strconv.ParseFloat(values[constants.FieldLatitude], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude for driver %s: %w", driverID, err)
	}
	lng, err := strconv.ParseFloat(values[constants.FieldLongitude], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude for driver %s: %w", driverID, err)
	}

	p := &models.DriverPresence{
		DriverID: driverID,
		Location: models.Location{Latitude: lat, Longitude: lng},
		Status:   models.DriverStatus(values[constants.FieldStatus]),
		RideID:   values[constants.FieldRideID],
	}

	if v := values[constants.FieldHeading]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.Heading = f
		}
	}
	if v := values[constants.FieldSpeedKmh]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.SpeedKmh = f
		}
	}
	if v := values[constants.FieldUpdatedAt]; v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			logger.Warn("invalid presence timestamp", logrus.Fields{"driver_id": driverID, "value": v})
		} else {
			p.UpdatedAt = time.Unix(ts, 0)
		}
	}
	return p, nil
}
