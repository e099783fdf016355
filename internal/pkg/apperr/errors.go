// Package apperr defines the error taxonomy shared across the dispatch core.
// Conflict and out-of-range errors are legitimate business outcomes and are
// always surfaced; degraded-dependency errors trigger fallbacks and surface
// only when no fallback succeeds.
package apperr

import "errors"

var (
	// ErrRideNotFound indicates the ride id does not exist.
	ErrRideNotFound = errors.New("ride not found")
	// ErrDriverNotFound indicates the driver has no live presence record.
	ErrDriverNotFound = errors.New("driver not found")
	// ErrRideTaken indicates the ride left pending before this accept committed.
	ErrRideTaken = errors.New("ride already taken")
	// ErrDriverBusy indicates the driver is bound to another active ride.
	ErrDriverBusy = errors.New("driver already on an active ride")
	// ErrOutOfRange indicates the driver is beyond the geofence distance from pickup.
	ErrOutOfRange = errors.New("driver outside pickup geofence")
	// ErrNoMatch is the named outcome when no candidate clears the minimum score.
	ErrNoMatch = errors.New("no candidate driver meets the minimum match score")
	// ErrStoreDegraded indicates the ephemeral location store is unreachable.
	ErrStoreDegraded = errors.New("location store unavailable")
	// ErrRoutingDegraded indicates the routing collaborator is unreachable.
	ErrRoutingDegraded = errors.New("routing collaborator unavailable")
	// ErrInvalid indicates malformed coordinates, distance or payload.
	ErrInvalid = errors.New("invalid request")
	// ErrInvalidTransition indicates a status transition the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// IsConflict reports whether err is one of the accept-path conflicts that the
// caller should relay verbatim so the client can re-offer without delay.
func IsConflict(err error) bool {
	return errors.Is(err, ErrRideTaken) || errors.Is(err, ErrDriverBusy) || errors.Is(err, ErrInvalidTransition)
}
