package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/constants"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/metrics"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/location"
	"github.com/okapiride/dispatch/services/match"
	"github.com/okapiride/dispatch/services/pricing"
	"github.com/okapiride/dispatch/services/rides"
)

// Degraded-quote constants, used only when the pricing engine cannot answer.
// A ride request must never fail because pricing is down.
const (
	fallbackBaseFare   = 1000.0
	fallbackPerKmRate  = 500.0
	fallbackSpeedKmh   = 30.0
	fallbackWindingFac = 1.3
)

// RideUC implements the dispatch state machine. Both the automatic
// assignment on create and the driver-initiated claim funnel through the one
// transactional AcceptRide path; there is no second write path to race it.
type RideUC struct {
	repo     rides.RideRepo
	presence location.PresenceRepo
	matcher  match.MatchUC
	pricer   pricing.PricingUC
	events   rides.EventGW
	payment  rides.PaymentGW
	notifier rides.Notifier
	cfg      models.DispatchConfig
	currency string
}

// NewRideUC creates the dispatch state machine
func NewRideUC(
	repo rides.RideRepo,
	presence location.PresenceRepo,
	matcher match.MatchUC,
	pricer pricing.PricingUC,
	events rides.EventGW,
	payment rides.PaymentGW,
	notifier rides.Notifier,
	cfg models.DispatchConfig,
	currency string,
) *RideUC {
	return &RideUC{
		repo:     repo,
		presence: presence,
		matcher:  matcher,
		pricer:   pricer,
		events:   events,
		payment:  payment,
		notifier: notifier,
		cfg:      cfg,
		currency: currency,
	}
}

// CreateRide persists a pending ride with its quote, then tries to assign a
// driver: a confident match is accepted on the client's behalf; otherwise an
// open offer goes out and the first driver to accept wins.
func (uc *RideUC) CreateRide(ctx context.Context, req *models.RideRequest) (*models.Ride, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid client id", apperr.ErrInvalid)
	}
	if !utils.ValidCoordinates(req.Pickup) || !utils.ValidCoordinates(req.Dropoff) {
		return nil, fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}

	quote := uc.quoteOrApproximate(ctx, req)
	ride := &models.Ride{
		ID:              uuid.New(),
		ClientID:        clientID,
		Pickup:          req.Pickup,
		Dropoff:         req.Dropoff,
		Status:          models.RideStatusPending,
		EstimatedPrice:  quote.Price,
		DistanceKm:      quote.DistanceKm,
		DurationMinutes: quote.DurationMinutes,
		PaymentMethod:   req.PaymentMethod,
		RequestedAt:     time.Now(),
	}
	if err := uc.repo.CreateRide(ctx, ride); err != nil {
		return nil, err
	}

	_ = uc.pricer.RecordDemand(ctx, req.Pickup)
	uc.publishEvent(constants.TopicRideCreated, ride, req.ClientID)

	uc.dispatch(ctx, ride)
	return uc.repo.GetRideByID(ctx, ride.ID)
}

// dispatch runs the matcher and either auto-accepts or broadcasts an open
// offer. A ride with no candidate at all is rejected outright.
func (uc *RideUC) dispatch(ctx context.Context, ride *models.Ride) {
	result, err := uc.matcher.FindMatch(ctx, ride.Pickup)
	if err == nil {
		_, aerr := uc.AcceptRide(ctx, ride.ID.String(), result.Best.Driver.DriverID)
		if aerr == nil {
			return
		}
		fields := logrus.Fields{
			"ride_id":   ride.ID.String(),
			"driver_id": result.Best.Driver.DriverID,
			"error":     aerr.Error(),
		}
		if apperr.IsConflict(aerr) {
			logger.Info("auto-assignment lost the accept race, broadcasting open offer", fields)
		} else {
			logger.Warn("auto-assignment failed, broadcasting open offer", fields)
		}
	} else if !errors.Is(err, apperr.ErrNoMatch) {
		logger.Warn("matching failed, broadcasting open offer", logrus.Fields{
			"ride_id": ride.ID.String(),
			"error":   err.Error(),
		})
	}

	eligible, err := uc.matcher.EligibleDrivers(ctx, ride.Pickup)
	if err != nil {
		// Infrastructure failure, not a verdict on driver supply. The ride
		// stays pending; it becomes dispatchable again once the stores
		// recover, and the client can cancel for free in the meantime.
		logger.Error("candidate lookup failed, leaving ride pending", logrus.Fields{
			"ride_id": ride.ID.String(),
			"error":   err.Error(),
		})
		return
	}
	if len(eligible) == 0 {
		rejected, rerr := uc.repo.CancelRide(ctx, ride.ID, models.RideStatusRejected, 0, "no drivers available")
		if rerr != nil {
			logger.Error("failed to reject unmatchable ride", logrus.Fields{
				"ride_id": ride.ID.String(),
				"error":   rerr.Error(),
			})
			return
		}
		uc.publishEvent(constants.TopicRideStatus, rejected, "")
		return
	}

	if err := uc.repo.RecordOffers(ctx, ride.ID, eligible); err != nil {
		logger.Warn("failed to record open offers", logrus.Fields{"ride_id": ride.ID.String(), "error": err.Error()})
	}
	if err := uc.events.PublishOpenOffer(&models.OpenOffer{
		RideID:         ride.ID.String(),
		Pickup:         ride.Pickup,
		Dropoff:        ride.Dropoff,
		EstimatedPrice: ride.EstimatedPrice,
		DriverIDs:      eligible,
	}); err != nil {
		logger.Warn("failed to publish open offer", logrus.Fields{"ride_id": ride.ID.String(), "error": err.Error()})
	}
}

// AcceptRide is the single claim path for both auto-assignment and
// driver-initiated accepts. The geofence distance is recomputed server-side
// from the live presence; the ride row transaction then re-verifies status
// and driver availability, so exactly one of N concurrent claims wins.
func (uc *RideUC) AcceptRide(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	rid, err := uuid.Parse(rideID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ride id", apperr.ErrInvalid)
	}
	did, err := uuid.Parse(driverID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid driver id", apperr.ErrInvalid)
	}

	p, err := uc.presence.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}

	ride, err := uc.repo.GetRideByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if ride.Status != models.RideStatusPending {
		metrics.AcceptsTotal.WithLabelValues("taken").Inc()
		return nil, apperr.ErrRideTaken
	}

	dist := utils.DistanceKm(p.Location, ride.Pickup)
	if dist > uc.cfg.GeofenceKm {
		metrics.AcceptsTotal.WithLabelValues("out_of_range").Inc()
		return nil, fmt.Errorf("%w: driver is %.1f km from pickup", apperr.ErrOutOfRange, dist)
	}

	accepted, err := uc.repo.AcceptRide(ctx, rid, did)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrRideTaken):
			metrics.AcceptsTotal.WithLabelValues("taken").Inc()
		case errors.Is(err, apperr.ErrDriverBusy):
			metrics.AcceptsTotal.WithLabelValues("busy").Inc()
		}
		return nil, err
	}
	metrics.AcceptsTotal.WithLabelValues("accepted").Inc()

	// Presence mutations happen after commit. If one is lost the record
	// self-heals through TTL expiry and the next position push.
	uc.bindPresence(ctx, driverID, models.DriverStatusEnRoute, rideID)
	if err := uc.presence.TrackRide(ctx, rideID, driverID); err != nil {
		logger.Warn("failed to track active ride", logrus.Fields{"ride_id": rideID, "error": err.Error()})
	}

	uc.publishEvent(constants.TopicRideAccepted, accepted, driverID)
	if err := uc.notifier.BroadcastNow(ctx, rideID, driverID); err != nil {
		logger.Debug("immediate broadcast skipped", logrus.Fields{"ride_id": rideID, "error": err.Error()})
	}
	return accepted, nil
}

// MarkArriving moves accepted → driver_arriving.
func (uc *RideUC) MarkArriving(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	rid, did, err := uc.parseRideDriver(rideID, driverID)
	if err != nil {
		return nil, err
	}
	if err := uc.verifyAssignedDriver(ctx, rid, did); err != nil {
		return nil, err
	}

	ride, err := uc.repo.UpdateProgress(ctx, rid, models.RideStatusAccepted, models.RideStatusDriverArriving)
	if err != nil {
		return nil, err
	}
	uc.publishEvent(constants.TopicRideStatus, ride, driverID)
	return ride, nil
}

// StartRide moves driver_arriving → in_progress and flips the driver on trip.
func (uc *RideUC) StartRide(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	rid, did, err := uc.parseRideDriver(rideID, driverID)
	if err != nil {
		return nil, err
	}
	if err := uc.verifyAssignedDriver(ctx, rid, did); err != nil {
		return nil, err
	}

	ride, err := uc.repo.UpdateProgress(ctx, rid, models.RideStatusDriverArriving, models.RideStatusInProgress)
	if err != nil {
		return nil, err
	}
	uc.bindPresence(ctx, driverID, models.DriverStatusOnTrip, rideID)
	uc.publishEvent(constants.TopicRideStatus, ride, driverID)
	return ride, nil
}

// CompleteRide finalizes the price, frees the driver and records the charge.
// Like the other progress steps, only the assigned driver may call it.
func (uc *RideUC) CompleteRide(ctx context.Context, req *models.CompleteRequest) (*models.Ride, error) {
	rid, did, err := uc.parseRideDriver(req.RideID, req.DriverID)
	if err != nil {
		return nil, err
	}
	if err := uc.verifyAssignedDriver(ctx, rid, did); err != nil {
		return nil, err
	}

	ride, err := uc.repo.GetRideByID(ctx, rid)
	if err != nil {
		return nil, err
	}

	finalPrice := ride.EstimatedPrice
	if req.FinalPrice != nil {
		if *req.FinalPrice < 0 {
			return nil, fmt.Errorf("%w: final price must not be negative", apperr.ErrInvalid)
		}
		finalPrice = *req.FinalPrice
	}

	completed, err := uc.repo.CompleteRide(ctx, rid, finalPrice)
	if err != nil {
		return nil, err
	}

	uc.releaseDriver(ctx, completed)
	if err := uc.payment.RecordCharge(ctx, completed); err != nil {
		logger.Error("failed to record charge", logrus.Fields{"ride_id": req.RideID, "error": err.Error()})
	}
	uc.publishEvent(constants.TopicRideCompleted, completed, driverIDString(completed))
	return completed, nil
}

// CancelRide terminates a non-terminal ride with a progress-scaled fee and
// frees the driver if one was bound.
func (uc *RideUC) CancelRide(ctx context.Context, req *models.CancelRequest) (*models.Ride, error) {
	rid, err := uuid.Parse(req.RideID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ride id", apperr.ErrInvalid)
	}

	ride, err := uc.repo.GetRideByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if ride.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: ride already terminal", apperr.ErrInvalidTransition)
	}

	fee := uc.cancellationFee(ride)
	cancelled, err := uc.repo.CancelRide(ctx, rid, models.RideStatusCancelled, fee, req.Reason)
	if err != nil {
		return nil, err
	}

	uc.releaseDriver(ctx, cancelled)
	if fee > 0 {
		if err := uc.payment.RecordCharge(ctx, &models.Ride{
			ID: cancelled.ID, ClientID: cancelled.ClientID, CancellationFee: fee,
		}); err != nil {
			logger.Error("failed to record cancellation fee", logrus.Fields{"ride_id": req.RideID, "error": err.Error()})
		}
	}
	uc.publishEvent(constants.TopicRideCancelled, cancelled, req.CancelledBy)
	return cancelled, nil
}

// RateRide records the client's rating on a completed ride.
func (uc *RideUC) RateRide(ctx context.Context, rideID string, rating float64) error {
	rid, err := uuid.Parse(rideID)
	if err != nil {
		return fmt.Errorf("%w: invalid ride id", apperr.ErrInvalid)
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", apperr.ErrInvalid)
	}
	return uc.repo.UpdateRating(ctx, rid, rating)
}

func (uc *RideUC) GetRide(ctx context.Context, rideID string) (*models.Ride, error) {
	rid, err := uuid.Parse(rideID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ride id", apperr.ErrInvalid)
	}
	return uc.repo.GetRideByID(ctx, rid)
}

// cancellationFee scales with ride progress: free while pending, a share of
// the estimate once accepted, a larger share once the trip is underway.
func (uc *RideUC) cancellationFee(ride *models.Ride) int64 {
	var pct float64
	switch ride.Status {
	case models.RideStatusAccepted, models.RideStatusDriverArriving:
		pct = uc.cfg.CancelFeeAcceptedPct
	case models.RideStatusInProgress:
		pct = uc.cfg.CancelFeeOngoingPct
	default:
		return 0
	}
	return int64(math.Round(float64(ride.EstimatedPrice) * pct / 100))
}

// quoteOrApproximate never fails: when the pricing engine cannot answer, the
// estimate degrades to base plus great-circle distance.
func (uc *RideUC) quoteOrApproximate(ctx context.Context, req *models.RideRequest) *models.PriceQuote {
	quote, err := uc.pricer.Quote(ctx, &models.QuoteRequest{Pickup: req.Pickup, Dropoff: req.Dropoff})
	if err == nil {
		return quote
	}
	logger.Warn("pricing degraded, using approximate estimate", logrus.Fields{"error": err.Error()})

	distKm := utils.DistanceKm(req.Pickup, req.Dropoff) * fallbackWindingFac
	return &models.PriceQuote{
		Price:           int64(math.Round(fallbackBaseFare + distKm*fallbackPerKmRate)),
		BasePrice:       int64(math.Round(fallbackBaseFare + distKm*fallbackPerKmRate)),
		DistanceKm:      distKm,
		DurationMinutes: distKm / fallbackSpeedKmh * 60,
		Multipliers:     models.PriceMultipliers{Time: 1, Day: 1, Surge: 1},
		Currency:        uc.currency,
		Breakdown:       "approximate estimate, pricing degraded",
	}
}

func (uc *RideUC) parseRideDriver(rideID, driverID string) (uuid.UUID, uuid.UUID, error) {
	rid, err := uuid.Parse(rideID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid ride id", apperr.ErrInvalid)
	}
	did, err := uuid.Parse(driverID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid driver id", apperr.ErrInvalid)
	}
	return rid, did, nil
}

// verifyAssignedDriver rejects progress calls from anyone but the bound
// driver.
func (uc *RideUC) verifyAssignedDriver(ctx context.Context, rideID, driverID uuid.UUID) error {
	ride, err := uc.repo.GetRideByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.DriverID == nil || *ride.DriverID != driverID {
		return fmt.Errorf("%w: ride is not assigned to this driver", apperr.ErrInvalid)
	}
	return nil
}

// bindPresence updates the driver's dispatch sub-state, tolerating an expired
// record.
func (uc *RideUC) bindPresence(ctx context.Context, driverID string, status models.DriverStatus, rideID string) {
	if err := uc.presence.SetDispatchState(ctx, driverID, status, rideID); err != nil {
		logger.Warn("failed to update driver presence state", logrus.Fields{
			"driver_id": driverID,
			"status":    string(status),
			"error":     err.Error(),
		})
	}
}

// releaseDriver frees presence and stops broadcast tracking after a terminal
// transition.
func (uc *RideUC) releaseDriver(ctx context.Context, ride *models.Ride) {
	if ride.DriverID != nil {
		uc.bindPresence(ctx, ride.DriverID.String(), models.DriverStatusAvailable, "")
	}
	if err := uc.presence.UntrackRide(ctx, ride.ID.String()); err != nil {
		logger.Warn("failed to untrack ride", logrus.Fields{"ride_id": ride.ID.String(), "error": err.Error()})
	}
}

func (uc *RideUC) publishEvent(topic string, ride *models.Ride, actorID string) {
	ev := &models.RideEvent{
		RideID:    ride.ID.String(),
		Status:    ride.Status,
		ClientID:  ride.ClientID.String(),
		DriverID:  driverIDString(ride),
		ActorID:   actorID,
		Timestamp: time.Now(),
	}
	if err := uc.events.PublishRideEvent(topic, ev); err != nil {
		logger.Warn("failed to publish ride event", logrus.Fields{
			"topic":   topic,
			"ride_id": ev.RideID,
			"error":   err.Error(),
		})
	}
}

func driverIDString(ride *models.Ride) string {
	if ride.DriverID == nil {
		return ""
	}
	return ride.DriverID.String()
}
