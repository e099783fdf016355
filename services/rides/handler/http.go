package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/rides"
)

// RideHandler exposes the ride lifecycle over HTTP.
type RideHandler struct {
	rideUC rides.RideUC
}

// NewRideHandler creates a new ride handler
func NewRideHandler(uc rides.RideUC) *RideHandler {
	return &RideHandler{rideUC: uc}
}

// RegisterRoutes registers the ride endpoints
func (h *RideHandler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")
	v1.POST("/rides", h.CreateRide)
	v1.GET("/rides/:id", h.GetRide)
	v1.POST("/rides/:id/accept", h.AcceptRide)
	v1.POST("/rides/:id/arrive", h.MarkArriving)
	v1.POST("/rides/:id/start", h.StartRide)
	v1.POST("/rides/:id/complete", h.CompleteRide)
	v1.POST("/rides/:id/cancel", h.CancelRide)
	v1.PATCH("/rides/:id/rating", h.RateRide)
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c echo.Context) error {
	var req models.RideRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	ride, err := h.rideUC.CreateRide(c.Request().Context(), &req)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusCreated, "ride created", ride)
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c echo.Context) error {
	ride, err := h.rideUC.GetRide(c.Request().Context(), c.Param("id"))
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "ride", ride)
}

type driverActionRequest struct {
	DriverID string `json:"driver_id"`
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *RideHandler) AcceptRide(c echo.Context) error {
	var req driverActionRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	ride, err := h.rideUC.AcceptRide(c.Request().Context(), c.Param("id"), req.DriverID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "ride accepted", ride)
}

// MarkArriving handles POST /v1/rides/:id/arrive
func (h *RideHandler) MarkArriving(c echo.Context) error {
	var req driverActionRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	ride, err := h.rideUC.MarkArriving(c.Request().Context(), c.Param("id"), req.DriverID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "driver arriving", ride)
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c echo.Context) error {
	var req driverActionRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	ride, err := h.rideUC.StartRide(c.Request().Context(), c.Param("id"), req.DriverID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "ride started", ride)
}

type completeRequest struct {
	DriverID   string `json:"driver_id"`
	FinalPrice *int64 `json:"final_price,omitempty"`
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	ride, err := h.rideUC.CompleteRide(c.Request().Context(), &models.CompleteRequest{
		RideID:     c.Param("id"),
		DriverID:   req.DriverID,
		FinalPrice: req.FinalPrice,
	})
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "ride completed", ride)
}

type cancelRequest struct {
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason"`
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c echo.Context) error {
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	ride, err := h.rideUC.CancelRide(c.Request().Context(), &models.CancelRequest{
		RideID:      c.Param("id"),
		CancelledBy: req.CancelledBy,
		Reason:      req.Reason,
	})
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "ride cancelled", ride)
}

type ratingRequest struct {
	Rating float64 `json:"rating"`
}

// RateRide handles PATCH /v1/rides/:id/rating
func (h *RideHandler) RateRide(c echo.Context) error {
	var req ratingRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	if err := h.rideUC.RateRide(c.Request().Context(), c.Param("id"), req.Rating); err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "rating recorded", nil)
}
