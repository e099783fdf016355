package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/constants"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/metrics"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/pkg/websocket"
	"github.com/okapiride/dispatch/services/location"
)

// Broadcaster fans the latest driver position out to each active ride's
// subscribers on a fixed interval. Rides with no subscribers are skipped,
// so an unwatched ride costs one membership check per tick and nothing more.
type Broadcaster struct {
	repo      location.PresenceRepo
	publisher websocket.Publisher
	interval  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewBroadcaster creates a broadcaster ticking at interval.
func NewBroadcaster(repo location.PresenceRepo, publisher websocket.Publisher, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Broadcaster{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called.
func (b *Broadcaster) Start() {
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		logger.Info("location broadcaster started", logrus.Fields{"interval": b.interval.String()})
		for {
			select {
			case <-ticker.C:
				b.tick(context.Background())
			case <-b.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}

func (b *Broadcaster) tick(ctx context.Context) {
	rides, err := b.repo.ActiveRides(ctx)
	if err != nil {
		logger.Warn("broadcast tick skipped", logrus.Fields{"error": err.Error()})
		return
	}

	for rideID, driverID := range rides {
		if !b.publisher.HasSubscribers(rideID) {
			continue
		}
		if err := b.BroadcastNow(ctx, rideID, driverID); err != nil {
			logger.Warn("broadcast failed", logrus.Fields{
				"ride_id":   rideID,
				"driver_id": driverID,
				"error":     err.Error(),
			})
		}
	}
}

// BroadcastNow pushes the driver's current position to the ride's room once,
// outside the tick schedule. Used when a ride first goes active so riders see
// the driver without waiting for the next tick.
func (b *Broadcaster) BroadcastNow(ctx context.Context, rideID, driverID string) error {
	p, err := b.repo.Get(ctx, driverID)
	if err != nil {
		return err
	}

	update := models.PositionUpdate{
		RideID:    rideID,
		DriverID:  driverID,
		Latitude:  p.Location.Latitude,
		Longitude: p.Location.Longitude,
		Heading:   p.Heading,
		SpeedKmh:  p.SpeedKmh,
		Timestamp: p.UpdatedAt,
	}
	if err := b.publisher.Publish(rideID, constants.EventPositionUpdate, update); err != nil {
		return err
	}
	metrics.BroadcastsTotal.Inc()
	return nil
}
