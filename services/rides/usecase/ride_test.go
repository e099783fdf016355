package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/constants"
	"github.com/okapiride/dispatch/internal/pkg/models"
)

type fakeRideRepo struct {
	mu     sync.Mutex
	rides  map[uuid.UUID]*models.Ride
	offers map[uuid.UUID][]string
}

func newFakeRideRepo() *fakeRideRepo {
	return &fakeRideRepo{
		rides:  make(map[uuid.UUID]*models.Ride),
		offers: make(map[uuid.UUID][]string),
	}
}

func (f *fakeRideRepo) CreateRide(_ context.Context, ride *models.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ride.ID == uuid.Nil {
		ride.ID = uuid.New()
	}
	cp := *ride
	f.rides[ride.ID] = &cp
	return nil
}

func (f *fakeRideRepo) GetRideByID(_ context.Context, rideID uuid.UUID) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, apperr.ErrRideNotFound
	}
	cp := *ride
	return &cp, nil
}

func (f *fakeRideRepo) AcceptRide(_ context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, apperr.ErrRideNotFound
	}
	if ride.Status != models.RideStatusPending {
		return nil, apperr.ErrRideTaken
	}
	for _, other := range f.rides {
		if other.DriverID != nil && *other.DriverID == driverID && other.Status.IsActive() {
			return nil, apperr.ErrDriverBusy
		}
	}
	now := time.Now()
	did := driverID
	ride.DriverID = &did
	ride.Status = models.RideStatusAccepted
	ride.AcceptedAt = &now
	cp := *ride
	return &cp, nil
}

func (f *fakeRideRepo) UpdateProgress(_ context.Context, rideID uuid.UUID, from, to models.RideStatus) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, apperr.ErrRideNotFound
	}
	if ride.Status != from {
		return nil, fmt.Errorf("%w: ride is not %s", apperr.ErrInvalidTransition, from)
	}
	ride.Status = to
	if to == models.RideStatusInProgress {
		now := time.Now()
		ride.StartedAt = &now
	}
	cp := *ride
	return &cp, nil
}

func (f *fakeRideRepo) CompleteRide(_ context.Context, rideID uuid.UUID, finalPrice int64) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, apperr.ErrRideNotFound
	}
	if ride.Status != models.RideStatusInProgress {
		return nil, fmt.Errorf("%w: ride is not in progress", apperr.ErrInvalidTransition)
	}
	now := time.Now()
	ride.Status = models.RideStatusCompleted
	ride.FinalPrice = &finalPrice
	ride.CompletedAt = &now
	cp := *ride
	return &cp, nil
}

func (f *fakeRideRepo) CancelRide(_ context.Context, rideID uuid.UUID, status models.RideStatus, fee int64, reason string) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, apperr.ErrRideNotFound
	}
	if ride.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: ride already terminal", apperr.ErrInvalidTransition)
	}
	now := time.Now()
	ride.Status = status
	ride.CancellationFee = fee
	ride.CancellationReason = reason
	ride.CancelledAt = &now
	cp := *ride
	return &cp, nil
}

func (f *fakeRideRepo) UpdateRating(_ context.Context, rideID uuid.UUID, rating float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride, ok := f.rides[rideID]
	if !ok {
		return apperr.ErrRideNotFound
	}
	if ride.Status != models.RideStatusCompleted {
		return fmt.Errorf("%w: only completed rides can be rated", apperr.ErrInvalidTransition)
	}
	ride.Rating = &rating
	return nil
}

func (f *fakeRideRepo) RecordOffers(_ context.Context, rideID uuid.UUID, driverIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers[rideID] = append(f.offers[rideID], driverIDs...)
	return nil
}

type fakePresence struct {
	mu       sync.Mutex
	presence map[string]*models.DriverPresence
	tracked  map[string]string
}

func newFakePresence() *fakePresence {
	return &fakePresence{
		presence: make(map[string]*models.DriverPresence),
		tracked:  make(map[string]string),
	}
}

func (f *fakePresence) Upsert(_ context.Context, p *models.DriverPresence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.presence[p.DriverID] = &cp
	return nil
}

func (f *fakePresence) Get(_ context.Context, driverID string) (*models.DriverPresence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.presence[driverID]
	if !ok {
		return nil, apperr.ErrDriverNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePresence) NearbyAvailable(_ context.Context, _ models.Location, _ float64) ([]models.NearbyDriver, error) {
	return nil, nil
}

func (f *fakePresence) Remove(_ context.Context, driverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.presence, driverID)
	return nil
}

func (f *fakePresence) SetDispatchState(_ context.Context, driverID string, status models.DriverStatus, rideID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.presence[driverID]
	if !ok {
		return apperr.ErrDriverNotFound
	}
	p.Status = status
	p.RideID = rideID
	return nil
}

func (f *fakePresence) TrackRide(_ context.Context, rideID, driverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked[rideID] = driverID
	return nil
}

func (f *fakePresence) UntrackRide(_ context.Context, rideID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tracked, rideID)
	return nil
}

func (f *fakePresence) ActiveRides(_ context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.tracked))
	for k, v := range f.tracked {
		out[k] = v
	}
	return out, nil
}

type fakeMatcher struct {
	result   *models.MatchResult
	matchErr error
	eligible []string
	eligErr  error
}

func (f *fakeMatcher) FindMatch(_ context.Context, _ models.Location) (*models.MatchResult, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	if f.result == nil {
		return nil, apperr.ErrNoMatch
	}
	return f.result, nil
}

func (f *fakeMatcher) EligibleDrivers(_ context.Context, _ models.Location) ([]string, error) {
	if f.eligErr != nil {
		return nil, f.eligErr
	}
	return f.eligible, nil
}

type fakePricer struct {
	quote    *models.PriceQuote
	quoteErr error
	demand   int
}

func (f *fakePricer) Quote(_ context.Context, _ *models.QuoteRequest) (*models.PriceQuote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakePricer) RecordDemand(_ context.Context, _ models.Location) error {
	f.demand++
	return nil
}

func (f *fakePricer) UpdateConfig(_ context.Context, _ *models.PriceTable) error { return nil }

type fakeEvents struct {
	mu     sync.Mutex
	topics []string
	offers []*models.OpenOffer
}

func (f *fakeEvents) PublishRideEvent(topic string, _ *models.RideEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeEvents) PublishOpenOffer(offer *models.OpenOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers = append(f.offers, offer)
	return nil
}

type fakePayment struct {
	mu      sync.Mutex
	charges []*models.Ride
}

func (f *fakePayment) RecordCharge(_ context.Context, ride *models.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, ride)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	rides []string
}

func (f *fakeNotifier) BroadcastNow(_ context.Context, rideID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rides = append(f.rides, rideID)
	return nil
}

type fixture struct {
	repo     *fakeRideRepo
	presence *fakePresence
	matcher  *fakeMatcher
	pricer   *fakePricer
	events   *fakeEvents
	payment  *fakePayment
	notifier *fakeNotifier
	uc       *RideUC
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newFakeRideRepo(),
		presence: newFakePresence(),
		matcher:  &fakeMatcher{},
		pricer: &fakePricer{quote: &models.PriceQuote{
			Price:           2500,
			BasePrice:       2500,
			DistanceKm:      3.0,
			DurationMinutes: 12,
			Multipliers:     models.PriceMultipliers{Time: 1, Day: 1, Surge: 1},
			Currency:        "CDF",
		}},
		events:   &fakeEvents{},
		payment:  &fakePayment{},
		notifier: &fakeNotifier{},
	}
	cfg := models.DispatchConfig{
		MaxRadiusKm:          5,
		PreferredRadiusKm:    1,
		GeofenceKm:           5,
		MinMatchScore:        30,
		CancelFeeAcceptedPct: 10,
		CancelFeeOngoingPct:  30,
	}
	f.uc = NewRideUC(f.repo, f.presence, f.matcher, f.pricer, f.events, f.payment, f.notifier, cfg, "CDF")
	return f
}

var (
	pickupLoc  = models.Location{Latitude: -4.3217, Longitude: 15.3125}
	dropoffLoc = models.Location{Latitude: -4.3501, Longitude: 15.2871}
)

func (f *fixture) seedDriver(driverID string, loc models.Location) {
	_ = f.presence.Upsert(context.Background(), &models.DriverPresence{
		DriverID:  driverID,
		Location:  loc,
		Status:    models.DriverStatusAvailable,
		UpdatedAt: time.Now(),
	})
}

func (f *fixture) seedPendingRide(t *testing.T) *models.Ride {
	t.Helper()
	ride := &models.Ride{
		ID:             uuid.New(),
		ClientID:       uuid.New(),
		Pickup:         pickupLoc,
		Dropoff:        dropoffLoc,
		Status:         models.RideStatusPending,
		EstimatedPrice: 2500,
		RequestedAt:    time.Now(),
	}
	require.NoError(t, f.repo.CreateRide(context.Background(), ride))
	return ride
}

func rideRequest() *models.RideRequest {
	return &models.RideRequest{
		ClientID:      uuid.New().String(),
		Pickup:        pickupLoc,
		Dropoff:       dropoffLoc,
		PaymentMethod: "cash",
	}
}

func TestCreateRideAutoAssignsConfidentMatch(t *testing.T) {
	f := newFixture()
	driverID := uuid.New().String()
	f.seedDriver(driverID, pickupLoc)
	f.matcher.result = &models.MatchResult{
		Best: models.MatchCandidate{
			Driver: models.DriverPresence{DriverID: driverID, Location: pickupLoc},
			Score:  85,
		},
		FromStore: true,
	}

	ride, err := f.uc.CreateRide(context.Background(), rideRequest())
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusAccepted, ride.Status)
	require.NotNil(t, ride.DriverID)
	assert.Equal(t, driverID, ride.DriverID.String())
	assert.Equal(t, int64(2500), ride.EstimatedPrice)

	p, err := f.presence.Get(context.Background(), driverID)
	require.NoError(t, err)
	assert.Equal(t, models.DriverStatusEnRoute, p.Status)
	assert.Equal(t, ride.ID.String(), p.RideID)

	assert.Equal(t, driverID, f.presence.tracked[ride.ID.String()])
	assert.Contains(t, f.events.topics, constants.TopicRideCreated)
	assert.Contains(t, f.events.topics, constants.TopicRideAccepted)
	assert.Equal(t, []string{ride.ID.String()}, f.notifier.rides)
	assert.Equal(t, 1, f.pricer.demand)
}

func TestCreateRideBroadcastsOfferWhenNoConfidentMatch(t *testing.T) {
	f := newFixture()
	f.matcher.matchErr = apperr.ErrNoMatch
	f.matcher.eligible = []string{uuid.New().String(), uuid.New().String()}

	ride, err := f.uc.CreateRide(context.Background(), rideRequest())
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusPending, ride.Status)
	assert.Nil(t, ride.DriverID)

	require.Len(t, f.events.offers, 1)
	assert.Equal(t, ride.ID.String(), f.events.offers[0].RideID)
	assert.Equal(t, f.matcher.eligible, f.events.offers[0].DriverIDs)
	assert.Equal(t, f.matcher.eligible, f.repo.offers[ride.ID])
}

func TestCreateRideStaysPendingWhenLookupDegraded(t *testing.T) {
	f := newFixture()
	f.matcher.matchErr = fmt.Errorf("%w: redis timeout", apperr.ErrStoreDegraded)
	f.matcher.eligErr = fmt.Errorf("%w: postgres down", apperr.ErrStoreDegraded)

	ride, err := f.uc.CreateRide(context.Background(), rideRequest())
	require.NoError(t, err)

	// An outage is not a verdict on supply: the ride must survive it.
	assert.Equal(t, models.RideStatusPending, ride.Status)
	assert.Nil(t, ride.DriverID)
	assert.Empty(t, f.events.offers)
	assert.NotContains(t, f.events.topics, constants.TopicRideStatus)
}

func TestCreateRideRejectsWhenNoCandidates(t *testing.T) {
	f := newFixture()
	f.matcher.matchErr = apperr.ErrNoMatch
	f.matcher.eligible = nil

	ride, err := f.uc.CreateRide(context.Background(), rideRequest())
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusRejected, ride.Status)
	assert.Empty(t, f.events.offers)
}

func TestCreateRideSurvivesPricingOutage(t *testing.T) {
	f := newFixture()
	f.pricer.quoteErr = apperr.ErrRoutingDegraded
	f.matcher.matchErr = apperr.ErrNoMatch
	f.matcher.eligible = []string{uuid.New().String()}

	ride, err := f.uc.CreateRide(context.Background(), rideRequest())
	require.NoError(t, err)

	assert.Greater(t, ride.EstimatedPrice, int64(0))
	assert.Greater(t, ride.DistanceKm, 0.0)
}

func TestCreateRideInvalidInput(t *testing.T) {
	f := newFixture()

	req := rideRequest()
	req.ClientID = "not-a-uuid"
	_, err := f.uc.CreateRide(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	req = rideRequest()
	req.Pickup.Latitude = 120
	_, err = f.uc.CreateRide(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestAcceptRideExactlyOneWinner(t *testing.T) {
	f := newFixture()
	ride := f.seedPendingRide(t)

	const drivers = 8
	ids := make([]string, drivers)
	for i := range ids {
		ids[i] = uuid.New().String()
		f.seedDriver(ids[i], pickupLoc)
	}

	var wg sync.WaitGroup
	errs := make([]error, drivers)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.AcceptRide(context.Background(), ride.ID.String(), ids[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, apperr.ErrRideTaken)
		}
	}
	assert.Equal(t, 1, wins)

	final, err := f.repo.GetRideByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusAccepted, final.Status)
	require.NotNil(t, final.DriverID)
}

func TestAcceptRideGeofence(t *testing.T) {
	f := newFixture()
	ride := f.seedPendingRide(t)
	driverID := uuid.New().String()
	// roughly 11 km north of the pickup
	f.seedDriver(driverID, models.Location{Latitude: pickupLoc.Latitude + 0.1, Longitude: pickupLoc.Longitude})

	_, err := f.uc.AcceptRide(context.Background(), ride.ID.String(), driverID)
	assert.ErrorIs(t, err, apperr.ErrOutOfRange)

	final, err := f.repo.GetRideByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusPending, final.Status)
	assert.Nil(t, final.DriverID)
}

func TestAcceptRideWithoutPresence(t *testing.T) {
	f := newFixture()
	ride := f.seedPendingRide(t)

	_, err := f.uc.AcceptRide(context.Background(), ride.ID.String(), uuid.New().String())
	assert.ErrorIs(t, err, apperr.ErrDriverNotFound)
}

func TestAcceptRideDriverBusy(t *testing.T) {
	f := newFixture()
	first := f.seedPendingRide(t)
	second := f.seedPendingRide(t)
	driverID := uuid.New().String()
	f.seedDriver(driverID, pickupLoc)

	_, err := f.uc.AcceptRide(context.Background(), first.ID.String(), driverID)
	require.NoError(t, err)

	_, err = f.uc.AcceptRide(context.Background(), second.ID.String(), driverID)
	assert.ErrorIs(t, err, apperr.ErrDriverBusy)
}

func acceptedFixture(t *testing.T) (*fixture, *models.Ride, string) {
	t.Helper()
	f := newFixture()
	ride := f.seedPendingRide(t)
	driverID := uuid.New().String()
	f.seedDriver(driverID, pickupLoc)
	accepted, err := f.uc.AcceptRide(context.Background(), ride.ID.String(), driverID)
	require.NoError(t, err)
	return f, accepted, driverID
}

func TestRideProgressionToCompletion(t *testing.T) {
	f, ride, driverID := acceptedFixture(t)
	ctx := context.Background()

	arriving, err := f.uc.MarkArriving(ctx, ride.ID.String(), driverID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusDriverArriving, arriving.Status)

	started, err := f.uc.StartRide(ctx, ride.ID.String(), driverID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusInProgress, started.Status)
	p, _ := f.presence.Get(ctx, driverID)
	assert.Equal(t, models.DriverStatusOnTrip, p.Status)

	completed, err := f.uc.CompleteRide(ctx, &models.CompleteRequest{RideID: ride.ID.String(), DriverID: driverID})
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCompleted, completed.Status)
	require.NotNil(t, completed.FinalPrice)
	assert.Equal(t, ride.EstimatedPrice, *completed.FinalPrice)
	assert.NotNil(t, completed.CompletedAt)

	p, _ = f.presence.Get(ctx, driverID)
	assert.Equal(t, models.DriverStatusAvailable, p.Status)
	assert.Empty(t, p.RideID)
	assert.Empty(t, f.presence.tracked)

	require.Len(t, f.payment.charges, 1)
	assert.Contains(t, f.events.topics, constants.TopicRideCompleted)
}

func TestCompleteRideExplicitFinalPrice(t *testing.T) {
	f, ride, driverID := acceptedFixture(t)
	ctx := context.Background()
	_, err := f.uc.MarkArriving(ctx, ride.ID.String(), driverID)
	require.NoError(t, err)
	_, err = f.uc.StartRide(ctx, ride.ID.String(), driverID)
	require.NoError(t, err)

	metered := int64(3100)
	completed, err := f.uc.CompleteRide(ctx, &models.CompleteRequest{RideID: ride.ID.String(), DriverID: driverID, FinalPrice: &metered})
	require.NoError(t, err)
	assert.Equal(t, metered, *completed.FinalPrice)
}

func TestCompleteRideFromWrongState(t *testing.T) {
	f, ride, driverID := acceptedFixture(t)

	_, err := f.uc.CompleteRide(context.Background(), &models.CompleteRequest{RideID: ride.ID.String(), DriverID: driverID})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestCompleteRideRequiresAssignedDriver(t *testing.T) {
	f, ride, driverID := acceptedFixture(t)
	ctx := context.Background()
	_, err := f.uc.MarkArriving(ctx, ride.ID.String(), driverID)
	require.NoError(t, err)
	_, err = f.uc.StartRide(ctx, ride.ID.String(), driverID)
	require.NoError(t, err)

	_, err = f.uc.CompleteRide(ctx, &models.CompleteRequest{RideID: ride.ID.String(), DriverID: uuid.New().String()})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	final, err := f.repo.GetRideByID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusInProgress, final.Status)
	assert.Empty(t, f.payment.charges)
}

func TestProgressRequiresAssignedDriver(t *testing.T) {
	f, ride, _ := acceptedFixture(t)

	_, err := f.uc.MarkArriving(context.Background(), ride.ID.String(), uuid.New().String())
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestCancelFeeScalesWithProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("pending is free", func(t *testing.T) {
		f := newFixture()
		ride := f.seedPendingRide(t)
		cancelled, err := f.uc.CancelRide(ctx, &models.CancelRequest{RideID: ride.ID.String(), CancelledBy: "client"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), cancelled.CancellationFee)
		assert.Empty(t, f.payment.charges)
	})

	t.Run("accepted charges 10 percent", func(t *testing.T) {
		f, ride, driverID := acceptedFixture(t)
		cancelled, err := f.uc.CancelRide(ctx, &models.CancelRequest{RideID: ride.ID.String(), CancelledBy: "client"})
		require.NoError(t, err)
		assert.Equal(t, int64(250), cancelled.CancellationFee)

		p, _ := f.presence.Get(ctx, driverID)
		assert.Equal(t, models.DriverStatusAvailable, p.Status)
		require.Len(t, f.payment.charges, 1)
		assert.Equal(t, int64(250), f.payment.charges[0].CancellationFee)
	})

	t.Run("in progress charges 30 percent", func(t *testing.T) {
		f, ride, driverID := acceptedFixture(t)
		_, err := f.uc.MarkArriving(ctx, ride.ID.String(), driverID)
		require.NoError(t, err)
		_, err = f.uc.StartRide(ctx, ride.ID.String(), driverID)
		require.NoError(t, err)

		cancelled, err := f.uc.CancelRide(ctx, &models.CancelRequest{RideID: ride.ID.String(), CancelledBy: "driver", Reason: "breakdown"})
		require.NoError(t, err)
		assert.Equal(t, int64(750), cancelled.CancellationFee)
		assert.Equal(t, "breakdown", cancelled.CancellationReason)
	})

	t.Run("terminal ride cannot be cancelled", func(t *testing.T) {
		f, ride, _ := acceptedFixture(t)
		_, err := f.uc.CancelRide(ctx, &models.CancelRequest{RideID: ride.ID.String(), CancelledBy: "client"})
		require.NoError(t, err)
		_, err = f.uc.CancelRide(ctx, &models.CancelRequest{RideID: ride.ID.String(), CancelledBy: "client"})
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})
}

func TestRateRide(t *testing.T) {
	f, ride, driverID := acceptedFixture(t)
	ctx := context.Background()

	err := f.uc.RateRide(ctx, ride.ID.String(), 4.5)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.uc.MarkArriving(ctx, ride.ID.String(), driverID)
	require.NoError(t, err)
	_, err = f.uc.StartRide(ctx, ride.ID.String(), driverID)
	require.NoError(t, err)
	_, err = f.uc.CompleteRide(ctx, &models.CompleteRequest{RideID: ride.ID.String(), DriverID: driverID})
	require.NoError(t, err)

	assert.ErrorIs(t, f.uc.RateRide(ctx, ride.ID.String(), 0.5), apperr.ErrInvalid)
	assert.ErrorIs(t, f.uc.RateRide(ctx, ride.ID.String(), 5.5), apperr.ErrInvalid)
	require.NoError(t, f.uc.RateRide(ctx, ride.ID.String(), 4.5))

	final, err := f.repo.GetRideByID(ctx, ride.ID)
	require.NoError(t, err)
	require.NotNil(t, final.Rating)
	assert.Equal(t, 4.5, *final.Rating)
}

func TestGetRideNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.uc.GetRide(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, apperr.ErrRideNotFound)
}
