package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/pricing"
)

// PricingHandler exposes quotes and the administrative pricing update.
type PricingHandler struct {
	pricingUC pricing.PricingUC
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(uc pricing.PricingUC) *PricingHandler {
	return &PricingHandler{pricingUC: uc}
}

// RegisterRoutes registers the pricing endpoints
func (h *PricingHandler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")
	v1.POST("/quotes", h.Quote)
	v1.PUT("/admin/pricing-config", h.UpdateConfig)
}

// Quote handles POST /v1/quotes
func (h *PricingHandler) Quote(c echo.Context) error {
	var req models.QuoteRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	quote, err := h.pricingUC.Quote(c.Request().Context(), &req)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "quote", quote)
}

type configUpdateRequest struct {
	BaseFare           float64 `json:"base_fare"`
	PerKmRate          float64 `json:"per_km_rate"`
	RushHourMultiplier float64 `json:"rush_hour_multiplier"`
	NightMultiplier    float64 `json:"night_multiplier"`
	WeekendMultiplier  float64 `json:"weekend_multiplier"`
	SurgeDiscount      float64 `json:"surge_discount"`
	SurgeNormal        float64 `json:"surge_normal"`
	SurgeModerate      float64 `json:"surge_moderate"`
	SurgeHigh          float64 `json:"surge_high"`
	SurgePeak          float64 `json:"surge_peak"`
	Currency           string  `json:"currency"`
}

// UpdateConfig handles PUT /v1/admin/pricing-config
func (h *PricingHandler) UpdateConfig(c echo.Context) error {
	var req configUpdateRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "invalid request body")
	}

	table := &models.PriceTable{
		BaseFare:           req.BaseFare,
		PerKmRate:          req.PerKmRate,
		RushHourMultiplier: req.RushHourMultiplier,
		NightMultiplier:    req.NightMultiplier,
		WeekendMultiplier:  req.WeekendMultiplier,
		SurgeDiscount:      req.SurgeDiscount,
		SurgeNormal:        req.SurgeNormal,
		SurgeModerate:      req.SurgeModerate,
		SurgeHigh:          req.SurgeHigh,
		SurgePeak:          req.SurgePeak,
		Currency:           req.Currency,
	}
	if err := h.pricingUC.UpdateConfig(c.Request().Context(), table); err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "pricing configuration updated", nil)
}
