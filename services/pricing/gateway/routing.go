package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/internal/utils"
	"github.com/okapiride/dispatch/services/pricing"
)

// windingFactor compensates the straight-line estimate for street geometry.
const windingFactor = 1.3

// routingGateway asks an OSRM backend for distance and duration, falling back
// to a great-circle approximation at city speed when OSRM is unreachable. The
// fallback result is flagged Approximate so callers can surface it.
type routingGateway struct {
	endpoint     string
	client       *http.Client
	citySpeedKmh float64
}

// NewRoutingGateway creates the routing collaborator client
func NewRoutingGateway(cfg models.RoutingConfig) pricing.RoutingGW {
	speed := cfg.CitySpeedKmh
	if speed <= 0 {
		speed = 30
	}
	return &routingGateway{
		endpoint:     cfg.OSRMEndpoint,
		client:       &http.Client{Timeout: cfg.Timeout},
		citySpeedKmh: speed,
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

func (g *routingGateway) Estimate(ctx context.Context, pickup, dropoff models.Location) (*models.RouteEstimate, error) {
	est, err := g.osrmEstimate(ctx, pickup, dropoff)
	if err == nil {
		return est, nil
	}
	logger.Warn("routing backend unavailable, using great-circle estimate", logrus.Fields{"error": err.Error()})
	return g.approximate(pickup, dropoff), nil
}

func (g *routingGateway) osrmEstimate(ctx context.Context, pickup, dropoff models.Location) (*models.RouteEstimate, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		g.endpoint, pickup.Longitude, pickup.Latitude, dropoff.Longitude, dropoff.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing backend returned %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, fmt.Errorf("routing backend found no route: %s", body.Code)
	}

	return &models.RouteEstimate{
		DistanceKm:      body.Routes[0].Distance / 1000,
		DurationMinutes: body.Routes[0].Duration / 60,
	}, nil
}

func (g *routingGateway) approximate(pickup, dropoff models.Location) *models.RouteEstimate {
	distKm := utils.DistanceKm(pickup, dropoff) * windingFactor
	return &models.RouteEstimate{
		DistanceKm:      distKm,
		DurationMinutes: distKm / g.citySpeedKmh * 60,
		Approximate:     true,
	}
}
