package gateway

import (
	"time"

	"github.com/okapiride/dispatch/internal/pkg/constants"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/pkg/nsqbus"
	"github.com/okapiride/dispatch/services/rides"
)

// eventGateway publishes lifecycle events over NSQ.
type eventGateway struct {
	producer *nsqbus.Producer
}

// NewEventGateway creates a new NSQ event gateway
func NewEventGateway(producer *nsqbus.Producer) rides.EventGW {
	return &eventGateway{producer: producer}
}

func (g *eventGateway) PublishRideEvent(topic string, ev *models.RideEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return g.producer.Publish(topic, ev)
}

func (g *eventGateway) PublishOpenOffer(offer *models.OpenOffer) error {
	return g.producer.Publish(constants.TopicDriverOffer, offer)
}
