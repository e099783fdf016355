package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
	"github.com/okapiride/dispatch/internal/pkg/models"
)

type fakePresenceRepo struct {
	mu       sync.Mutex
	presence map[string]*models.DriverPresence
	active   map[string]string
	getErr   error
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{
		presence: make(map[string]*models.DriverPresence),
		active:   make(map[string]string),
	}
}

func (f *fakePresenceRepo) Upsert(_ context.Context, p *models.DriverPresence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.presence[p.DriverID] = &cp
	return nil
}

func (f *fakePresenceRepo) Get(_ context.Context, driverID string) (*models.DriverPresence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.presence[driverID]
	if !ok {
		return nil, apperr.ErrDriverNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePresenceRepo) NearbyAvailable(_ context.Context, _ models.Location, _ float64) ([]models.NearbyDriver, error) {
	return nil, nil
}

func (f *fakePresenceRepo) Remove(_ context.Context, driverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.presence, driverID)
	return nil
}

func (f *fakePresenceRepo) SetDispatchState(_ context.Context, driverID string, status models.DriverStatus, rideID string) error {
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

func (f *fakePresenceRepo) TrackRide(_ context.Context, rideID, driverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[rideID] = driverID
	return nil
}

func (f *fakePresenceRepo) UntrackRide(_ context.Context, rideID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, rideID)
	return nil
}

func (f *fakePresenceRepo) ActiveRides(_ context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.active))
	for k, v := range f.active {
		out[k] = v
	}
	return out, nil
}

type published struct {
	rideID string
	event  string
	data   interface{}
}

type fakePublisher struct {
	mu         sync.Mutex
	subscribed map[string]bool
	publishes  []published
	publishErr error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{subscribed: make(map[string]bool)}
}

func (f *fakePublisher) Publish(rideID, event string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.publishes = append(f.publishes, published{rideID: rideID, event: event, data: data})
	return nil
}

func (f *fakePublisher) HasSubscribers(rideID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribed[rideID]
}

func (f *fakePublisher) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]published, len(f.publishes))
	copy(out, f.publishes)
	return out
}

func seedDriver(repo *fakePresenceRepo, driverID string, lat, lng float64) {
	_ = repo.Upsert(context.Background(), &models.DriverPresence{
		DriverID:  driverID,
		Location:  models.Location{Latitude: lat, Longitude: lng},
		Heading:   90,
		SpeedKmh:  32,
		Status:    models.DriverStatusOnTrip,
		UpdatedAt: time.Now(),
	})
}

func TestBroadcastNowPublishesPosition(t *testing.T) {
	repo := newFakePresenceRepo()
	pub := newFakePublisher()
	seedDriver(repo, "driver-1", -4.322, 15.307)

	b := NewBroadcaster(repo, pub, time.Second)
	err := b.BroadcastNow(context.Background(), "ride-1", "driver-1")
	require.NoError(t, err)

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ride-1", msgs[0].rideID)
	assert.Equal(t, "position_update", msgs[0].event)

	update, ok := msgs[0].data.(models.PositionUpdate)
	require.True(t, ok)
	assert.Equal(t, "driver-1", update.DriverID)
	assert.InDelta(t, -4.322, update.Latitude, 1e-9)
	assert.InDelta(t, 15.307, update.Longitude, 1e-9)
}

func TestBroadcastNowDriverGone(t *testing.T) {
	repo := newFakePresenceRepo()
	pub := newFakePublisher()

	b := NewBroadcaster(repo, pub, time.Second)
	err := b.BroadcastNow(context.Background(), "ride-1", "driver-1")
	require.ErrorIs(t, err, apperr.ErrDriverNotFound)
	assert.Empty(t, pub.all())
}

func TestTickSkipsRidesWithoutSubscribers(t *testing.T) {
	repo := newFakePresenceRepo()
	pub := newFakePublisher()
	seedDriver(repo, "driver-1", -4.32, 15.30)
	seedDriver(repo, "driver-2", -4.33, 15.31)
	_ = repo.TrackRide(context.Background(), "ride-watched", "driver-1")
	_ = repo.TrackRide(context.Background(), "ride-unwatched", "driver-2")
	pub.subscribed["ride-watched"] = true

	b := NewBroadcaster(repo, pub, time.Second)
	b.tick(context.Background())

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ride-watched", msgs[0].rideID)
}

func TestTickContinuesPastFailures(t *testing.T) {
	repo := newFakePresenceRepo()
	pub := newFakePublisher()
	// driver-1 has no presence record; driver-2 does
	seedDriver(repo, "driver-2", -4.33, 15.31)
	_ = repo.TrackRide(context.Background(), "ride-a", "driver-1")
	_ = repo.TrackRide(context.Background(), "ride-b", "driver-2")
	pub.subscribed["ride-a"] = true
	pub.subscribed["ride-b"] = true

	b := NewBroadcaster(repo, pub, time.Second)
	b.tick(context.Background())

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ride-b", msgs[0].rideID)
}

func TestBroadcasterStartStop(t *testing.T) {
	repo := newFakePresenceRepo()
	pub := newFakePublisher()
	seedDriver(repo, "driver-1", -4.32, 15.30)
	_ = repo.TrackRide(context.Background(), "ride-1", "driver-1")
	pub.subscribed["ride-1"] = true

	b := NewBroadcaster(repo, pub, 10*time.Millisecond)
	b.Start()

	assert.Eventually(t, func() bool {
		return len(pub.all()) >= 2
	}, time.Second, 5*time.Millisecond)

	b.Stop()
	n := len(pub.all())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(pub.all()))
}
