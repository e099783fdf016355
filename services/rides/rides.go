package rides

import (
	"context"

	"github.com/google/uuid"

	"github.com/okapiride/dispatch/internal/pkg/models"
)

// RideRepo owns the durable ride record and the accept critical section. The
// ride row is the authoritative lock domain: AcceptRide runs as one
// transaction and exactly one of N concurrent calls for the same ride
// succeeds.
type RideRepo interface {
	CreateRide(ctx context.Context, ride *models.Ride) error
	GetRideByID(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	// AcceptRide re-reads the ride under lock, verifies it is still pending
	// (else apperr.ErrRideTaken) and that the driver holds no other active
	// ride (else apperr.ErrDriverBusy), then binds the driver.
	AcceptRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	// UpdateProgress moves the ride from one expected status to the next,
	// failing with apperr.ErrInvalidTransition when the row has moved on.
	UpdateProgress(ctx context.Context, rideID uuid.UUID, from, to models.RideStatus) (*models.Ride, error)
	// CompleteRide finalizes price and stamps completion, in_progress only.
	CompleteRide(ctx context.Context, rideID uuid.UUID, finalPrice int64) (*models.Ride, error)
	// CancelRide terminates any non-terminal ride with a fee and reason.
	CancelRide(ctx context.Context, rideID uuid.UUID, status models.RideStatus, fee int64, reason string) (*models.Ride, error)
	// UpdateRating records the client's rating on a completed ride.
	UpdateRating(ctx context.Context, rideID uuid.UUID, rating float64) error
	// RecordOffers logs the drivers an open offer was addressed to. The
	// winning offer row is flagged inside the accept transaction.
	RecordOffers(ctx context.Context, rideID uuid.UUID, driverIDs []string) error
}

// EventGW publishes lifecycle events to the message bus. Fire-and-forget;
// the state machine never blocks on delivery.
type EventGW interface {
	PublishRideEvent(topic string, ev *models.RideEvent) error
	PublishOpenOffer(offer *models.OpenOffer) error
}

// PaymentGW records that a charge should occur. The core never captures
// funds itself.
type PaymentGW interface {
	RecordCharge(ctx context.Context, ride *models.Ride) error
}

// Notifier pushes a single immediate position update to a ride's subscribers,
// so a fresh accept is visible before the next broadcast tick.
type Notifier interface {
	BroadcastNow(ctx context.Context, rideID, driverID string) error
}

// RideUC is the dispatch state machine surface.
type RideUC interface {
	CreateRide(ctx context.Context, req *models.RideRequest) (*models.Ride, error)
	GetRide(ctx context.Context, rideID string) (*models.Ride, error)
	AcceptRide(ctx context.Context, rideID, driverID string) (*models.Ride, error)
	MarkArriving(ctx context.Context, rideID, driverID string) (*models.Ride, error)
	StartRide(ctx context.Context, rideID, driverID string) (*models.Ride, error)
	CompleteRide(ctx context.Context, req *models.CompleteRequest) (*models.Ride, error)
	CancelRide(ctx context.Context, req *models.CancelRequest) (*models.Ride, error)
	RateRide(ctx context.Context, rideID string, rating float64) error
}
