package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/models"
)

type fakeSource struct {
	name    string
	drivers []models.NearbyDriver
	err     error
	calls   int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Candidates(_ context.Context, _ models.Location, _ float64) ([]models.NearbyDriver, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.drivers, nil
}

type fakeStats struct {
	stats map[string]models.DriverStats
	err   error
}

func (f *fakeStats) StatsFor(_ context.Context, _ []string) (map[string]models.DriverStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func testConfig() models.DispatchConfig {
	return models.DispatchConfig{
		MaxRadiusKm:       5,
		PreferredRadiusKm: 1,
		MinMatchScore:     30,
	}
}

func available(driverID string, distKm float64) models.NearbyDriver {
	return models.NearbyDriver{
		Presence: models.DriverPresence{
			DriverID: driverID,
			Status:   models.DriverStatusAvailable,
			Location: models.Location{Latitude: -4.32, Longitude: 15.30},
		},
		DistanceKm: distKm,
	}
}

func TestFindMatchWeighsAllComponents(t *testing.T) {
	// A is three times as far away but far better rated; the composite
	// score must favor A, not either factor alone.
	primary := &fakeSource{name: "presence", drivers: []models.NearbyDriver{
		available("driver-a", 1.2),
		available("driver-b", 0.4),
	}}
	stats := &fakeStats{stats: map[string]models.DriverStats{
		"driver-a": {DriverID: "driver-a", Rating: 4.8},
		"driver-b": {DriverID: "driver-b", Rating: 3.0},
	}}

	uc := NewMatchUC(primary, &fakeSource{name: "durable"}, stats, testConfig())
	result, err := uc.FindMatch(context.Background(), models.Location{Latitude: -4.32, Longitude: 15.30})
	require.NoError(t, err)

	assert.Equal(t, "driver-a", result.Best.Driver.DriverID)
	// distance 38 + rating 24 + availability 15 + two neutral 5s
	assert.InDelta(t, 87.0, result.Best.Score, 0.01)
	assert.True(t, result.FromStore)

	require.Len(t, result.RunnersUp, 1)
	assert.Equal(t, "driver-b", result.RunnersUp[0].DriverID)
	assert.InDelta(t, 80.0, result.RunnersUp[0].Score, 0.01)
}

func TestFindMatchTieBreaksByDistance(t *testing.T) {
	// Identical stats inside the preferred radius produce identical scores.
	primary := &fakeSource{name: "presence", drivers: []models.NearbyDriver{
		available("driver-far", 0.9),
		available("driver-near", 0.2),
	}}
	uc := NewMatchUC(primary, &fakeSource{name: "durable"}, &fakeStats{}, testConfig())

	result, err := uc.FindMatch(context.Background(), models.Location{})
	require.NoError(t, err)
	assert.Equal(t, "driver-near", result.Best.Driver.DriverID)
}

func TestFindMatchBelowThreshold(t *testing.T) {
	primary := &fakeSource{name: "presence", drivers: []models.NearbyDriver{
		available("driver-poor", 4.9),
	}}
	stats := &fakeStats{stats: map[string]models.DriverStats{
		"driver-poor": {
			DriverID:       "driver-poor",
			Rating:         1.0,
			Completed30d:   0,
			Cancelled30d:   8,
			OffersReceived: 10,
			OffersAccepted: 0,
		},
	}}

	uc := NewMatchUC(primary, &fakeSource{name: "durable"}, stats, testConfig())
	_, err := uc.FindMatch(context.Background(), models.Location{})
	assert.ErrorIs(t, err, apperr.ErrNoMatch)
}

func TestFindMatchFallsBackWhenStoreDegraded(t *testing.T) {
	primary := &fakeSource{name: "presence", err: apperr.ErrStoreDegraded}
	fallback := &fakeSource{name: "durable", drivers: []models.NearbyDriver{
		available("driver-1", 0.5),
	}}

	uc := NewMatchUC(primary, fallback, &fakeStats{}, testConfig())
	result, err := uc.FindMatch(context.Background(), models.Location{})
	require.NoError(t, err)

	assert.Equal(t, "driver-1", result.Best.Driver.DriverID)
	assert.False(t, result.FromStore)
	assert.Equal(t, 1, fallback.calls)
}

func TestFindMatchFallsBackWhenStoreEmpty(t *testing.T) {
	primary := &fakeSource{name: "presence"}
	fallback := &fakeSource{name: "durable", drivers: []models.NearbyDriver{
		available("driver-1", 0.5),
	}}

	uc := NewMatchUC(primary, fallback, &fakeStats{}, testConfig())
	result, err := uc.FindMatch(context.Background(), models.Location{})
	require.NoError(t, err)
	assert.False(t, result.FromStore)
}

func TestFindMatchNoCandidatesAnywhere(t *testing.T) {
	uc := NewMatchUC(&fakeSource{name: "presence"}, &fakeSource{name: "durable"}, &fakeStats{}, testConfig())
	_, err := uc.FindMatch(context.Background(), models.Location{})
	assert.ErrorIs(t, err, apperr.ErrNoMatch)
}

func TestFindMatchBothSourcesDown(t *testing.T) {
	primary := &fakeSource{name: "presence", err: apperr.ErrStoreDegraded}
	fallback := &fakeSource{name: "durable", err: assert.AnError}

	uc := NewMatchUC(primary, fallback, &fakeStats{}, testConfig())
	_, err := uc.FindMatch(context.Background(), models.Location{})
	assert.ErrorIs(t, err, apperr.ErrStoreDegraded)
}

func TestFindMatchScoresNeutrallyWhenStatsUnavailable(t *testing.T) {
	primary := &fakeSource{name: "presence", drivers: []models.NearbyDriver{
		available("driver-1", 0.5),
	}}
	uc := NewMatchUC(primary, &fakeSource{name: "durable"}, &fakeStats{err: assert.AnError}, testConfig())

	result, err := uc.FindMatch(context.Background(), models.Location{})
	require.NoError(t, err)
	// distance 40 + availability 15 + three neutral components
	assert.InDelta(t, 77.5, result.Best.Score, 0.01)
}

func TestFindMatchCapsRunnersUp(t *testing.T) {
	primary := &fakeSource{name: "presence", drivers: []models.NearbyDriver{
		available("d1", 0.1),
		available("d2", 0.2),
		available("d3", 0.3),
		available("d4", 0.4),
		available("d5", 0.5),
	}}
	uc := NewMatchUC(primary, &fakeSource{name: "durable"}, &fakeStats{}, testConfig())

	result, err := uc.FindMatch(context.Background(), models.Location{})
	require.NoError(t, err)
	assert.Equal(t, "d1", result.Best.Driver.DriverID)
	assert.Len(t, result.RunnersUp, 3)
}

func TestEligibleDrivers(t *testing.T) {
	primary := &fakeSource{name: "presence", drivers: []models.NearbyDriver{
		available("d1", 0.1),
		available("d2", 3.9),
	}}
	uc := NewMatchUC(primary, &fakeSource{name: "durable"}, &fakeStats{}, testConfig())

	ids, err := uc.EligibleDrivers(context.Background(), models.Location{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)
}

func TestDistanceComponentRamp(t *testing.T) {
	uc := NewMatchUC(&fakeSource{}, &fakeSource{}, &fakeStats{}, testConfig())

	assert.InDelta(t, 100, uc.distanceComponent(0.3), 1e-9)
	assert.InDelta(t, 100, uc.distanceComponent(1.0), 1e-9)
	assert.InDelta(t, 50, uc.distanceComponent(3.0), 1e-9)
	assert.InDelta(t, 0, uc.distanceComponent(5.0), 1e-9)
	assert.InDelta(t, 0, uc.distanceComponent(7.2), 1e-9)
}
