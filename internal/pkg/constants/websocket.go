package constants

// WebSocket event names
const (
	EventPositionUpdate = "position_update"
	EventSubscribed     = "subscribed"
	EventError          = "error"
)
