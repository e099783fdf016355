package handler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/constants"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/pkg/nsqbus"
	"github.com/okapiride/dispatch/services/location"
)

// LocationConsumer ingests driver GPS pushes from the bus. Driver apps
// publish at a few-second cadence; the bus path absorbs that volume so the
// HTTP endpoint stays a low-rate alternative.
type LocationConsumer struct {
	locationUC location.LocationUC
	consumer   *nsqbus.Consumer
}

type locationMessage struct {
	DriverID  string     `json:"driver_id"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Heading   float64    `json:"heading"`
	SpeedKmh  float64    `json:"speed_kmh"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// NewLocationConsumer subscribes to driver location pushes
func NewLocationConsumer(uc location.LocationUC, nsqAddress string) (*LocationConsumer, error) {
	lc := &LocationConsumer{locationUC: uc}

	consumer, err := nsqbus.NewConsumer(constants.TopicDriverLocation, "dispatch", nsqAddress, lc.handleMessage)
	if err != nil {
		return nil, err
	}
	lc.consumer = consumer
	return lc, nil
}

func (lc *LocationConsumer) handleMessage(body []byte) error {
	var msg locationMessage
	if err := nsqbus.UnmarshalMessage(body, &msg); err != nil {
		logger.Warn("dropping malformed location message", logrus.Fields{"error": err.Error()})
		return nil
	}

	p := &models.DriverPresence{
		DriverID: msg.DriverID,
		Location: models.Location{Latitude: msg.Latitude, Longitude: msg.Longitude},
		Heading:  msg.Heading,
		SpeedKmh: msg.SpeedKmh,
	}
	if msg.Timestamp != nil {
		p.Location.Timestamp = *msg.Timestamp
	}

	err := lc.locationUC.UpdateDriverLocation(context.Background(), p)
	if errors.Is(err, apperr.ErrInvalid) {
		// Bad coordinates never get better on requeue.
		logger.Warn("dropping invalid location message", logrus.Fields{
			"driver_id": msg.DriverID,
			"error":     err.Error(),
		})
		return nil
	}
	return err
}

// Stop gracefully stops the consumer
func (lc *LocationConsumer) Stop() {
	lc.consumer.Stop()
}
