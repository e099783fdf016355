package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/pkg/websocket"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/location"
)

// LocationHandler exposes driver presence over HTTP plus the per-ride
// tracking socket.
type LocationHandler struct {
	locationUC    location.LocationUC
	wsManager     *websocket.Manager
	maxRadiusKm   float64
	defaultRadius float64
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(uc location.LocationUC, wsManager *websocket.Manager, maxRadiusKm float64) *LocationHandler {
	return &LocationHandler{
		locationUC:    uc,
		wsManager:     wsManager,
		maxRadiusKm:   maxRadiusKm,
		defaultRadius: maxRadiusKm,
	}
}

// RegisterRoutes registers the location endpoints
func (h *LocationHandler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")
	v1.POST("/drivers/:id/location", h.UpdateLocation)
	v1.POST("/drivers/:id/availability", h.SetAvailability)
	v1.GET("/drivers/nearby", h.NearbyDrivers)
	v1.GET("/rides/:id/track", h.TrackRide)
}

type locationUpdateRequest struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Heading   float64    `json:"heading"`
	SpeedKmh  float64    `json:"speed_kmh"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// UpdateLocation handles POST /v1/drivers/:id/location
func (h *LocationHandler) UpdateLocation(c echo.Context) error {
	driverID := c.Param("id")
	var req locationUpdateRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	p := &models.DriverPresence{
		DriverID: driverID,
		Location: models.Location{Latitude: req.Latitude, Longitude: req.Longitude},
		Heading:  req.Heading,
		SpeedKmh: req.SpeedKmh,
	}
	if req.Timestamp != nil {
		p.Location.Timestamp = *req.Timestamp
	}

	if err := h.locationUC.UpdateDriverLocation(c.Request().Context(), p); err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "location updated", nil)
}

type availabilityRequest struct {
	Available bool             `json:"available"`
	Location  *models.Location `json:"location,omitempty"`
}

// SetAvailability handles POST /v1/drivers/:id/availability
func (h *LocationHandler) SetAvailability(c echo.Context) error {
	driverID := c.Param("id")
	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	if err := h.locationUC.SetAvailability(c.Request().Context(), driverID, req.Available, req.Location); err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "availability updated", map[string]bool{"available": req.Available})
}

// NearbyDrivers handles GET /v1/drivers/nearby?lat=&lng=&radius_km=
func (h *LocationHandler) NearbyDrivers(c echo.Context) error {
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return utils.BadRequestResponse(c, "lat is required")
	}
	lng, err := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err != nil {
		return utils.BadRequestResponse(c, "lng is required")
	}

	radius := h.defaultRadius
	if raw := c.QueryParam("radius_km"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			return utils.BadRequestResponse(c, "radius_km must be a positive number")
		}
	}
	if radius > h.maxRadiusKm {
		radius = h.maxRadiusKm
	}

	drivers, err := h.locationUC.GetNearbyDrivers(c.Request().Context(), models.Location{Latitude: lat, Longitude: lng}, radius)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "nearby drivers", drivers)
}

// TrackRide handles GET /v1/rides/:id/track, upgrading to a WebSocket that
// receives the ride's position updates until the client disconnects.
func (h *LocationHandler) TrackRide(c echo.Context) error {
	return h.wsManager.HandleSubscribe(c, c.Param("id"))
}
