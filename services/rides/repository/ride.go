package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/database"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/services/rides"
)

// rideRepo persists rides in Postgres. The ride row is the lock domain for
// the accept transition; everything else is a guarded single-row update.
type rideRepo struct {
	db *database.PostgresClient
}

// NewRideRepository creates a new ride repository
func NewRideRepository(db *database.PostgresClient) rides.RideRepo {
	return &rideRepo{db: db}
}

// rideRow flattens the ride for sqlx scanning.
type rideRow struct {
	ID                 uuid.UUID       `db:"id"`
	ClientID           uuid.UUID       `db:"client_id"`
	DriverID           uuid.NullUUID   `db:"driver_id"`
	PickupLatitude     float64         `db:"pickup_latitude"`
	PickupLongitude    float64         `db:"pickup_longitude"`
	PickupAddress      sql.NullString  `db:"pickup_address"`
	DropoffLatitude    float64         `db:"dropoff_latitude"`
	DropoffLongitude   float64         `db:"dropoff_longitude"`
	DropoffAddress     sql.NullString  `db:"dropoff_address"`
	Status             string          `db:"status"`
	EstimatedPrice     int64           `db:"estimated_price"`
	FinalPrice         sql.NullInt64   `db:"final_price"`
	CancellationFee    int64           `db:"cancellation_fee"`
	DistanceKm         float64         `db:"distance_km"`
	DurationMinutes    float64         `db:"duration_minutes"`
	PaymentMethod      string          `db:"payment_method"`
	CancellationReason sql.NullString  `db:"cancellation_reason"`
	Rating             sql.NullFloat64 `db:"rating"`
	RequestedAt        time.Time       `db:"requested_at"`
	AcceptedAt         sql.NullTime    `db:"accepted_at"`
	StartedAt          sql.NullTime    `db:"started_at"`
	CompletedAt        sql.NullTime    `db:"completed_at"`
	CancelledAt        sql.NullTime    `db:"cancelled_at"`
}

const rideColumns = `id, client_id, driver_id,
	pickup_latitude, pickup_longitude, pickup_address,
	dropoff_latitude, dropoff_longitude, dropoff_address,
	status, estimated_price, final_price, cancellation_fee,
	distance_km, duration_minutes, payment_method,
	cancellation_reason, rating,
	requested_at, accepted_at, started_at, completed_at, cancelled_at`

func (row *rideRow) toModel() *models.Ride {
	ride := &models.Ride{
		ID:       row.ID,
		ClientID: row.ClientID,
		Pickup: models.Location{
			Latitude:  row.PickupLatitude,
			Longitude: row.PickupLongitude,
			Address:   row.PickupAddress.String,
		},
		Dropoff: models.Location{
			Latitude:  row.DropoffLatitude,
			Longitude: row.DropoffLongitude,
			Address:   row.DropoffAddress.String,
		},
		Status:          models.RideStatus(row.Status),
		EstimatedPrice:  row.EstimatedPrice,
		CancellationFee: row.CancellationFee,
		DistanceKm:      row.DistanceKm,
		DurationMinutes: row.DurationMinutes,
		PaymentMethod:   row.PaymentMethod,
		RequestedAt:     row.RequestedAt,
	}
	if row.DriverID.Valid {
		id := row.DriverID.UUID
		ride.DriverID = &id
	}
	if row.FinalPrice.Valid {
		v := row.FinalPrice.Int64
		ride.FinalPrice = &v
	}
	if row.CancellationReason.Valid {
		ride.CancellationReason = row.CancellationReason.String
	}
	if row.Rating.Valid {
		v := row.Rating.Float64
		ride.Rating = &v
	}
	if row.AcceptedAt.Valid {
		t := row.AcceptedAt.Time
		ride.AcceptedAt = &t
	}
	if row.StartedAt.Valid {
		t := row.StartedAt.Time
		ride.StartedAt = &t
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		ride.CompletedAt = &t
	}
	if row.CancelledAt.Valid {
		t := row.CancelledAt.Time
		ride.CancelledAt = &t
	}
	return ride
}

const insertRideQuery = `
	INSERT INTO rides (
		id, client_id,
		pickup_latitude, pickup_longitude, pickup_address,
		dropoff_latitude, dropoff_longitude, dropoff_address,
		status, estimated_price, distance_km, duration_minutes,
		payment_method, requested_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (r *rideRepo) CreateRide(ctx context.Context, ride *models.Ride) error {
	if ride.ID == uuid.Nil {
		ride.ID = uuid.New()
	}
	if ride.RequestedAt.IsZero() {
		ride.RequestedAt = time.Now()
	}
	if ride.Status == "" {
		ride.Status = models.RideStatusPending
	}

	_, err := r.db.GetDB().ExecContext(ctx, insertRideQuery,
		ride.ID, ride.ClientID,
		ride.Pickup.Latitude, ride.Pickup.Longitude, ride.Pickup.Address,
		ride.Dropoff.Latitude, ride.Dropoff.Longitude, ride.Dropoff.Address,
		ride.Status, ride.EstimatedPrice, ride.DistanceKm, ride.DurationMinutes,
		ride.PaymentMethod, ride.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}
	return nil
}

func (r *rideRepo) GetRideByID(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	var row rideRow
	query := fmt.Sprintf("SELECT %s FROM rides WHERE id = $1", rideColumns)
	if err := r.db.GetDB().GetContext(ctx, &row, query, rideID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrRideNotFound
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	return row.toModel(), nil
}

const activeRideCountQuery = `
	SELECT COUNT(*) FROM rides
	WHERE driver_id = $1 AND status IN ('accepted', 'driver_arriving', 'in_progress')`

// AcceptRide is the critical-section transition. The ride row is locked and
// re-read, both preconditions re-verified, and the driver bound, all in one
// transaction. Any failed check rolls the whole unit back.
func (r *rideRepo) AcceptRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin accept transaction: %w", err)
	}
	defer tx.Rollback()

	var row rideRow
	query := fmt.Sprintf("SELECT %s FROM rides WHERE id = $1 FOR UPDATE", rideColumns)
	if err := tx.GetContext(ctx, &row, query, rideID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrRideNotFound
		}
		return nil, fmt.Errorf("failed to lock ride: %w", err)
	}
	if models.RideStatus(row.Status) != models.RideStatusPending {
		return nil, apperr.ErrRideTaken
	}

	var activeCount int
	if err := tx.GetContext(ctx, &activeCount, activeRideCountQuery, driverID); err != nil {
		return nil, fmt.Errorf("failed to check driver rides: %w", err)
	}
	if activeCount > 0 {
		return nil, apperr.ErrDriverBusy
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE rides SET driver_id = $1, status = $2, accepted_at = $3 WHERE id = $4`,
		driverID, models.RideStatusAccepted, now, rideID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept ride: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ride_offers (ride_id, driver_id, offered_at, accepted)
		 VALUES ($1, $2, $3, TRUE)
		 ON CONFLICT (ride_id, driver_id) DO UPDATE SET accepted = TRUE`,
		rideID, driverID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record accepted offer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit accept: %w", err)
	}

	row.DriverID = uuid.NullUUID{UUID: driverID, Valid: true}
	row.Status = string(models.RideStatusAccepted)
	row.AcceptedAt = sql.NullTime{Time: now, Valid: true}
	return row.toModel(), nil
}

// UpdateProgress advances the ride only when its current status matches the
// expected one; the guard is in the WHERE clause so a lost race surfaces as
// zero rows.
func (r *rideRepo) UpdateProgress(ctx context.Context, rideID uuid.UUID, from, to models.RideStatus) (*models.Ride, error) {
	stamp := ""
	switch to {
	case models.RideStatusInProgress:
		stamp = ", started_at = NOW()"
	}

	query := fmt.Sprintf(`UPDATE rides SET status = $1%s WHERE id = $2 AND status = $3`, stamp)
	res, err := r.db.GetDB().ExecContext(ctx, query, to, rideID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to update ride status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, getErr := r.GetRideByID(ctx, rideID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: ride is not %s", apperr.ErrInvalidTransition, from)
	}
	return r.GetRideByID(ctx, rideID)
}

const completeRideQuery = `
	UPDATE rides
	SET status = $1, final_price = $2, completed_at = NOW()
	WHERE id = $3 AND status = $4`

func (r *rideRepo) CompleteRide(ctx context.Context, rideID uuid.UUID, finalPrice int64) (*models.Ride, error) {
	res, err := r.db.GetDB().ExecContext(ctx, completeRideQuery,
		models.RideStatusCompleted, finalPrice, rideID, models.RideStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to complete ride: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, getErr := r.GetRideByID(ctx, rideID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: ride is not in progress", apperr.ErrInvalidTransition)
	}
	return r.GetRideByID(ctx, rideID)
}

const cancelRideQuery = `
	UPDATE rides
	SET status = $1, cancellation_fee = $2, cancellation_reason = $3, cancelled_at = NOW()
	WHERE id = $4 AND status NOT IN ('completed', 'cancelled', 'rejected')`

// CancelRide terminates any non-terminal ride; status selects rejected vs
// cancelled. The terminal guard lives in the WHERE clause.
func (r *rideRepo) CancelRide(ctx context.Context, rideID uuid.UUID, status models.RideStatus, fee int64, reason string) (*models.Ride, error) {
	res, err := r.db.GetDB().ExecContext(ctx, cancelRideQuery, status, fee, reason, rideID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel ride: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, getErr := r.GetRideByID(ctx, rideID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: ride already terminal", apperr.ErrInvalidTransition)
	}
	return r.GetRideByID(ctx, rideID)
}

const updateRatingQuery = `
	UPDATE rides SET rating = $1 WHERE id = $2 AND status = 'completed'`

func (r *rideRepo) UpdateRating(ctx context.Context, rideID uuid.UUID, rating float64) error {
	res, err := r.db.GetDB().ExecContext(ctx, updateRatingQuery, rating, rideID)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, getErr := r.GetRideByID(ctx, rideID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: only completed rides can be rated", apperr.ErrInvalidTransition)
	}

	// Refresh the driver's aggregate rating the matcher scores on.
	_, err = r.db.GetDB().ExecContext(ctx, `
		UPDATE drivers d
		SET rating = sub.avg_rating
		FROM (
			SELECT driver_id, AVG(rating) AS avg_rating
			FROM rides
			WHERE rating IS NOT NULL AND driver_id = (SELECT driver_id FROM rides WHERE id = $1)
			GROUP BY driver_id
		) sub
		WHERE d.id = sub.driver_id`, rideID)
	if err != nil {
		return fmt.Errorf("failed to refresh driver rating: %w", err)
	}
	return nil
}

func (r *rideRepo) RecordOffers(ctx context.Context, rideID uuid.UUID, driverIDs []string) error {
	if len(driverIDs) == 0 {
		return nil
	}

	now := time.Now()
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin offers transaction: %w", err)
	}
	defer tx.Rollback()

	for _, driverID := range driverIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ride_offers (ride_id, driver_id, offered_at, accepted)
			 VALUES ($1, $2, $3, FALSE)
			 ON CONFLICT (ride_id, driver_id) DO NOTHING`,
			rideID, driverID, now)
		if err != nil {
			return fmt.Errorf("failed to record offer: %w", err)
		}
	}
	return tx.Commit()
}
