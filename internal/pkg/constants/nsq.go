package constants

// NSQ topics
const (
	TopicRideCreated   = "ride.created"
	TopicRideAccepted  = "ride.accepted"
	TopicRideStatus    = "ride.status_changed"
	TopicRideCompleted = "ride.completed"
	TopicRideCancelled = "ride.cancelled"

	// TopicDriverOffer carries open offers to the notification layer, which
	// fans them out to the listed drivers. Fire-and-forget.
	TopicDriverOffer = "driver.offer"

	// TopicDriverLocation carries inbound GPS pushes from driver apps.
	TopicDriverLocation = "driver.location"
)
