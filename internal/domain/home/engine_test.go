package home

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthos/shell/internal/infrastructure/logging"
	"github.com/hearthos/shell/internal/shared/types"
)

type fakeService struct {
	mu          sync.Mutex
	id          string
	serviceName string
	activeCalls []bool
}

func (s *fakeService) ID() string          { return s.id }
func (s *fakeService) ServiceName() string { return s.serviceName }

func (s *fakeService) SetActive(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCalls = append(s.activeCalls, active)
	return nil
}

func (s *fakeService) calls() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.activeCalls...)
}

type fakeResolver struct {
	mu       sync.Mutex
	services map[uint32]types.ActivityService
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{services: make(map[uint32]types.ActivityService)}
}

func (r *fakeResolver) bind(xid uint32, svc types.ActivityService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[xid] = svc
}

func (r *fakeResolver) Resolve(xid uint32) (types.ActivityService, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[xid]
	return svc, ok
}

type fakeBundles map[string]*types.Bundle

func (b fakeBundles) GetBundle(serviceName string) (*types.Bundle, bool) {
	bundle, ok := b[serviceName]
	return bundle, ok
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []types.Event
}

func (n *recordingNotifier) Notify(ev types.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.Event(nil), n.events...)
}

func (n *recordingNotifier) count(t types.EventType) int {
	var c int
	for _, ev := range n.all() {
		if ev.Type == t {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

const chatService = "org.hearth.Chat"

func normalWindow(xid uint32) types.Window {
	return types.Window{XID: xid, Kind: types.WindowNormal}
}

func newTestEngine(t *testing.T) (*Engine, *fakeResolver, *recordingNotifier) {
	t.Helper()

	resolver := newFakeResolver()
	bundles := fakeBundles{
		chatService: {ID: "chat", Name: "Chat", ServiceName: chatService, Version: "1"},
	}
	notifier := &recordingNotifier{}
	engine := NewEngine(resolver, bundles, logging.NewNop()).WithNotifier(notifier)
	t.Cleanup(engine.Close)
	return engine, resolver, notifier
}

func TestParseServiceXID(t *testing.T) {
	tests := []struct {
		name    string
		service string
		wantXID uint32
		wantOK  bool
	}{
		{"valid", "org.hearth.Activity42", 42, true},
		{"zero", "org.hearth.Activity0", 0, true},
		{"bare prefix", "org.hearth.Activity", 0, false},
		{"non-numeric suffix", "org.hearth.ActivityFoo", 0, false},
		{"mixed suffix", "org.hearth.Activity12x", 0, false},
		{"wrong prefix", "org.freedesktop.DBus", 0, false},
		{"negative", "org.hearth.Activity-1", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xid, ok := ParseServiceXID(DefaultServicePrefix, tt.service)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantXID, xid)
		})
	}
}

func TestWindowOpenedCreatesPlaceholder(t *testing.T) {
	engine, _, notifier := newTestEngine(t)

	require.NoError(t, engine.OnWindowOpened(normalWindow(101)))

	require.Equal(t, 1, engine.Len())
	rec, ok := engine.At(0)
	require.True(t, ok)
	assert.Equal(t, types.KindPlaceholder, rec.Kind)
	assert.True(t, rec.Launched)
	require.NotNil(t, rec.WindowXID)
	assert.Equal(t, uint32(101), *rec.WindowXID)
	assert.Equal(t, 1, notifier.count(types.EventActivityAdded))
}

func TestNonNormalWindowsIgnored(t *testing.T) {
	engine, _, notifier := newTestEngine(t)

	require.NoError(t, engine.OnWindowOpened(types.Window{XID: 5, Kind: types.WindowDialog}))
	engine.OnWindowClosed(types.Window{XID: 5, Kind: types.WindowDialog})
	engine.OnActiveWindowChanged(&types.Window{XID: 5, Kind: types.WindowSplash})

	assert.Equal(t, 0, engine.Len())
	assert.Empty(t, notifier.all())
}

func TestLaunchIntentThenWindow(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)

	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))

	rec, ok := engine.Get("act1")
	require.True(t, ok)
	assert.False(t, rec.Launched)
	assert.Equal(t, types.KindBound, rec.Kind)
	assert.Equal(t, 1, notifier.count(types.EventActivityLaunched))

	svc := &fakeService{id: "act1", serviceName: chatService}
	resolver.bind(201, svc)
	require.NoError(t, engine.OnWindowOpened(normalWindow(201)))

	require.Equal(t, 1, engine.Len())
	rec, ok = engine.Get("act1")
	require.True(t, ok)
	assert.True(t, rec.Launched)
	assert.Equal(t, types.KindBound, rec.Kind)
	require.NotNil(t, rec.WindowXID)
	assert.Equal(t, uint32(201), *rec.WindowXID)
	assert.NotNil(t, rec.Service)
	assert.Equal(t, 1, notifier.count(types.EventActivityAdded))
}

func TestLaunchUnknownServiceType(t *testing.T) {
	engine, _, notifier := newTestEngine(t)

	err := engine.NotifyActivityLaunch("act1", "org.hearth.Bogus")
	require.ErrorIs(t, err, ErrUnknownServiceType)
	assert.Equal(t, 0, engine.Len())
	assert.Empty(t, notifier.all())
}

func TestRecoveredActivityMissingBundle(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)

	resolver.bind(301, &fakeService{id: "act1", serviceName: "org.hearth.Unregistered"})
	err := engine.OnWindowOpened(normalWindow(301))

	require.ErrorIs(t, err, ErrMissingBundle)
	assert.Equal(t, 0, engine.Len())
	assert.Empty(t, notifier.all())
}

func TestRecoveredActivity(t *testing.T) {
	engine, resolver, _ := newTestEngine(t)

	// Started outside the launch flow: no intent, but the service is
	// already on the bus when the window opens.
	resolver.bind(302, &fakeService{id: "act9", serviceName: chatService})
	require.NoError(t, engine.OnWindowOpened(normalWindow(302)))

	rec, ok := engine.Get("act9")
	require.True(t, ok)
	assert.Equal(t, types.KindBound, rec.Kind)
	assert.True(t, rec.Launched)
	require.NotNil(t, rec.Bundle)
	assert.Equal(t, "chat", rec.Bundle.ID)
}

func TestServiceOwnerChangedPromotesPlaceholder(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)

	require.NoError(t, engine.OnWindowOpened(normalWindow(401)))
	placeholder, ok := engine.At(0)
	require.True(t, ok)
	require.Equal(t, types.KindPlaceholder, placeholder.Kind)

	svc := &fakeService{id: "act1", serviceName: chatService}
	resolver.bind(401, svc)
	engine.OnServiceOwnerChanged(DefaultServicePrefix+"401", "", ":1.42")

	require.Equal(t, 1, engine.Len())
	rec, ok := engine.Get("act1")
	require.True(t, ok)
	assert.Equal(t, types.KindBound, rec.Kind)
	require.NotNil(t, rec.WindowXID)
	assert.Equal(t, uint32(401), *rec.WindowXID)

	// The promoted record keeps the placeholder's launch ordering.
	assert.Equal(t, placeholder.LaunchSeq, rec.LaunchSeq)
	assert.Equal(t, placeholder.LaunchTime, rec.LaunchTime)

	// activity-added fires again with the bound record, and the bogus
	// placeholder removal is visible to observers.
	assert.Equal(t, 2, notifier.count(types.EventActivityAdded))
	assert.Equal(t, 1, notifier.count(types.EventActivityRemoved))
}

func TestServiceOwnerChangedFilters(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)

	require.NoError(t, engine.OnWindowOpened(normalWindow(402)))
	resolver.bind(402, &fakeService{id: "act1", serviceName: chatService})
	notifier.reset()

	// Service going down, not coming up.
	engine.OnServiceOwnerChanged(DefaultServicePrefix+"402", ":1.42", "")
	// Name ownership transfer.
	engine.OnServiceOwnerChanged(DefaultServicePrefix+"402", ":1.42", ":1.43")
	// Malformed suffix.
	engine.OnServiceOwnerChanged(DefaultServicePrefix+"nope", "", ":1.44")
	// Unrelated service.
	engine.OnServiceOwnerChanged("org.freedesktop.Notifications", "", ":1.45")
	// Window not tracked at all.
	engine.OnServiceOwnerChanged(DefaultServicePrefix+"999", "", ":1.46")

	assert.Empty(t, notifier.all())
	rec, ok := engine.At(0)
	require.True(t, ok)
	assert.Equal(t, types.KindPlaceholder, rec.Kind)
}

func TestRaceConvergence(t *testing.T) {
	finalState := func(windowFirst bool) types.Activity {
		engine, resolver, _ := newTestEngine(t)
		svc := &fakeService{id: "act1", serviceName: chatService}

		if windowFirst {
			require.NoError(t, engine.OnWindowOpened(normalWindow(500)))
			resolver.bind(500, svc)
			engine.OnServiceOwnerChanged(DefaultServicePrefix+"500", "", ":1.9")
		} else {
			resolver.bind(500, svc)
			engine.OnServiceOwnerChanged(DefaultServicePrefix+"500", "", ":1.9")
			require.NoError(t, engine.OnWindowOpened(normalWindow(500)))
		}

		require.Equal(t, 1, engine.Len())
		rec, ok := engine.Get("act1")
		require.True(t, ok)
		return rec
	}

	a := finalState(true)
	b := finalState(false)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.Kind, b.Kind)
	assert.Equal(t, a.ServiceName, b.ServiceName)
	assert.Equal(t, *a.WindowXID, *b.WindowXID)
	assert.True(t, a.Launched && b.Launched)
	assert.NotNil(t, a.Service)
	assert.NotNil(t, b.Service)
}

func TestOrderingInvariant(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	for xid := uint32(1); xid <= 5; xid++ {
		require.NoError(t, engine.OnWindowOpened(normalWindow(xid)))
	}

	activities := engine.List()
	require.Len(t, activities, 5)
	for i := 1; i < len(activities); i++ {
		assert.Less(t, activities[i-1].LaunchSeq, activities[i].LaunchSeq)
		assert.False(t, activities[i].LaunchTime.Before(activities[i-1].LaunchTime))
	}

	// Removing one preserves the relative order of the rest.
	engine.OnWindowClosed(normalWindow(3))
	remaining := engine.List()
	require.Len(t, remaining, 4)
	assert.Equal(t, uint32(1), *remaining[0].WindowXID)
	assert.Equal(t, uint32(2), *remaining[1].WindowXID)
	assert.Equal(t, uint32(4), *remaining[2].WindowXID)
	assert.Equal(t, uint32(5), *remaining[3].WindowXID)

	// Positional access agrees with traversal.
	for i, rec := range remaining {
		at, ok := engine.At(i)
		require.True(t, ok)
		assert.Equal(t, rec.ID, at.ID)
		assert.Equal(t, i, engine.Index(rec.ID))
	}
	assert.Equal(t, -1, engine.Index("missing"))
	_, ok := engine.At(4)
	assert.False(t, ok)
}

func TestWindowUniqueness(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	require.NoError(t, engine.OnWindowOpened(normalWindow(600)))
	require.NoError(t, engine.OnWindowOpened(normalWindow(600)))

	var withWindow int
	ids := make(map[string]bool)
	for _, rec := range engine.List() {
		require.False(t, ids[rec.ID])
		ids[rec.ID] = true
		if rec.HasWindow() {
			withWindow++
		}
	}
	assert.Equal(t, 1, withWindow)
}

func TestWindowClosedRemoves(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)

	svc := &fakeService{id: "act1", serviceName: chatService}
	resolver.bind(700, svc)
	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	require.NoError(t, engine.OnWindowOpened(normalWindow(700)))
	engine.OnActiveWindowChanged(&types.Window{XID: 700, Kind: types.WindowNormal})
	notifier.reset()

	engine.OnWindowClosed(normalWindow(700))

	assert.Equal(t, 0, engine.Len())
	assert.Equal(t, 1, notifier.count(types.EventActivityRemoved))

	// Registry drained: observers are told nothing is active.
	events := notifier.all()
	last := events[len(events)-1]
	assert.Equal(t, types.EventActiveActivityChanged, last.Type)
	assert.Nil(t, last.Activity)

	_, focused := engine.Current()
	assert.False(t, focused)
}

func TestWindowClosedUnknownWindow(t *testing.T) {
	engine, _, notifier := newTestEngine(t)

	require.NoError(t, engine.OnWindowOpened(normalWindow(800)))
	notifier.reset()

	engine.OnWindowClosed(normalWindow(999))

	assert.Equal(t, 1, engine.Len())
	assert.Equal(t, 0, notifier.count(types.EventActivityRemoved))
}

func TestActiveWindowChangedSequence(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)

	svc := &fakeService{id: "act1", serviceName: chatService}
	resolver.bind(900, svc)
	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	require.NoError(t, engine.OnWindowOpened(normalWindow(900)))
	notifier.reset()

	engine.OnActiveWindowChanged(&types.Window{XID: 900, Kind: types.WindowNormal})
	engine.OnActiveWindowChanged(nil)

	events := notifier.all()
	require.Len(t, events, 2)
	assert.Equal(t, types.EventActiveActivityChanged, events[0].Type)
	require.NotNil(t, events[0].Activity)
	assert.Equal(t, "act1", events[0].Activity.ID)
	assert.Equal(t, types.EventActiveActivityChanged, events[1].Type)
	assert.Nil(t, events[1].Activity)

	// Activation pair: (none -> act1) then (act1 -> none).
	assert.Equal(t, []bool{true, false}, svc.calls())
}

func TestActivationIdempotence(t *testing.T) {
	engine, resolver, _ := newTestEngine(t)

	svc := &fakeService{id: "act1", serviceName: chatService}
	resolver.bind(901, svc)
	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	require.NoError(t, engine.OnWindowOpened(normalWindow(901)))

	engine.OnActiveWindowChanged(&types.Window{XID: 901, Kind: types.WindowNormal})
	engine.OnActiveWindowChanged(&types.Window{XID: 901, Kind: types.WindowNormal})

	// Re-focusing the focused activity produces no activation calls.
	assert.Equal(t, []bool{true}, svc.calls())
}

func TestActiveWindowUnknown(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)

	svc := &fakeService{id: "act1", serviceName: chatService}
	resolver.bind(902, svc)
	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	require.NoError(t, engine.OnWindowOpened(normalWindow(902)))
	engine.OnActiveWindowChanged(&types.Window{XID: 902, Kind: types.WindowNormal})
	notifier.reset()

	engine.OnActiveWindowChanged(&types.Window{XID: 12345, Kind: types.WindowNormal})

	events := notifier.all()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventActiveActivityChanged, events[0].Type)
	assert.Nil(t, events[0].Activity)

	_, focused := engine.Current()
	assert.False(t, focused)
	// The previously focused service was deactivated.
	assert.Equal(t, []bool{true, false}, svc.calls())
}

func TestActiveWindowForPendingLaunch(t *testing.T) {
	engine, _, notifier := newTestEngine(t)

	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	notifier.reset()

	// The launch intent has no window yet; a focus event naming an
	// untracked window must clear focus, not crash.
	engine.OnActiveWindowChanged(&types.Window{XID: 903, Kind: types.WindowNormal})

	events := notifier.all()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Activity)
}

func TestExpiryLiveness(t *testing.T) {
	engine, _, notifier := newTestEngine(t)
	engine.WithLaunchTimeout(20 * time.Millisecond)

	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))

	require.Eventually(t, func() bool {
		return engine.Len() == 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, notifier.count(types.EventActivityRemoved))
}

func TestExpirySafety(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)
	engine.WithLaunchTimeout(30 * time.Millisecond)

	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	resolver.bind(1001, &fakeService{id: "act1", serviceName: chatService})
	require.NoError(t, engine.OnWindowOpened(normalWindow(1001)))

	// Well past the timeout: the promoted record must survive.
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, engine.Len())
	rec, ok := engine.Get("act1")
	require.True(t, ok)
	assert.True(t, rec.Launched)
	assert.Equal(t, 0, notifier.count(types.EventActivityRemoved))
}

func TestLaunchFailed(t *testing.T) {
	engine, _, notifier := newTestEngine(t)

	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	notifier.reset()

	engine.NotifyActivityLaunchFailed("act1")

	assert.Equal(t, 0, engine.Len())
	assert.Equal(t, 1, notifier.count(types.EventActivityRemoved))
}

func TestLaunchFailedUnknown(t *testing.T) {
	engine, _, notifier := newTestEngine(t)

	require.NoError(t, engine.OnWindowOpened(normalWindow(1100)))
	notifier.reset()

	engine.NotifyActivityLaunchFailed("nope")

	assert.Equal(t, 1, engine.Len())
	assert.Empty(t, notifier.all())
}

func TestStats(t *testing.T) {
	engine, resolver, _ := newTestEngine(t)

	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	require.NoError(t, engine.OnWindowOpened(normalWindow(1200)))

	svc := &fakeService{id: "act2", serviceName: chatService}
	resolver.bind(1201, svc)
	require.NoError(t, engine.OnWindowOpened(normalWindow(1201)))
	engine.OnActiveWindowChanged(&types.Window{XID: 1201, Kind: types.WindowNormal})

	stats := engine.Stats()
	assert.Equal(t, 3, stats.TotalActivities)
	assert.Equal(t, 1, stats.Placeholders)
	assert.Equal(t, 1, stats.PendingLaunches)
	require.NotNil(t, stats.FocusedID)
	assert.Equal(t, "act2", *stats.FocusedID)

	current, ok := engine.Current()
	require.True(t, ok)
	assert.Equal(t, "act2", current.ID)
}

func TestEmissionOrderOnLaunchPath(t *testing.T) {
	engine, resolver, notifier := newTestEngine(t)

	require.NoError(t, engine.NotifyActivityLaunch("act1", chatService))
	resolver.bind(1300, &fakeService{id: "act1", serviceName: chatService})
	require.NoError(t, engine.OnWindowOpened(normalWindow(1300)))

	events := notifier.all()
	require.Len(t, events, 2)
	assert.Equal(t, types.EventActivityLaunched, events[0].Type)
	assert.Equal(t, types.EventActivityAdded, events[1].Type)
	for _, ev := range events {
		require.NotNil(t, ev.Activity)
		assert.Equal(t, "act1", ev.Activity.ID)
	}
}

func TestManyPlaceholdersUniqueIDs(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	for xid := uint32(1); xid <= 50; xid++ {
		require.NoError(t, engine.OnWindowOpened(normalWindow(xid)))
	}
	require.Equal(t, 50, engine.Len())

	seen := make(map[string]bool)
	for _, rec := range engine.List() {
		require.False(t, seen[rec.ID], fmt.Sprintf("duplicate id %s", rec.ID))
		seen[rec.ID] = true
	}
}
