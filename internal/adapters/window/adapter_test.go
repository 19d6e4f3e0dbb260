package window

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthos/shell/internal/infrastructure/logging"
	"github.com/hearthos/shell/internal/shared/types"
)

type fakeScreen struct {
	ch chan Event
}

func newFakeScreen() *fakeScreen {
	return &fakeScreen{ch: make(chan Event, 16)}
}

func (s *fakeScreen) Events() <-chan Event { return s.ch }

type call struct {
	name string
	win  *types.Window
}

type recordingModel struct {
	mu    sync.Mutex
	calls []call
}

func (m *recordingModel) record(name string, win *types.Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{name: name, win: win})
}

func (m *recordingModel) OnWindowOpened(win types.Window) error {
	m.record("opened", &win)
	return nil
}

func (m *recordingModel) OnWindowClosed(win types.Window) {
	m.record("closed", &win)
}

func (m *recordingModel) OnActiveWindowChanged(win *types.Window) {
	m.record("active", win)
}

func (m *recordingModel) snapshot() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func TestForwardsNormalWindows(t *testing.T) {
	screen := newFakeScreen()
	model := &recordingModel{}
	adapter := New(screen, model, logging.NewNop())

	screen.ch <- Event{Type: EventOpened, Window: &types.Window{XID: 1, Kind: types.WindowNormal}}
	screen.ch <- Event{Type: EventActiveChanged, Window: &types.Window{XID: 1, Kind: types.WindowNormal}}
	screen.ch <- Event{Type: EventActiveChanged, Window: nil}
	screen.ch <- Event{Type: EventClosed, Window: &types.Window{XID: 1, Kind: types.WindowNormal}}
	close(screen.ch)

	adapter.Run(context.Background())

	calls := model.snapshot()
	require.Len(t, calls, 4)
	assert.Equal(t, "opened", calls[0].name)
	assert.Equal(t, uint32(1), calls[0].win.XID)
	assert.Equal(t, "active", calls[1].name)
	assert.Equal(t, "active", calls[2].name)
	assert.Nil(t, calls[2].win)
	assert.Equal(t, "closed", calls[3].name)
}

func TestFiltersNonNormalWindows(t *testing.T) {
	screen := newFakeScreen()
	model := &recordingModel{}
	adapter := New(screen, model, logging.NewNop())

	screen.ch <- Event{Type: EventOpened, Window: &types.Window{XID: 2, Kind: types.WindowDialog}}
	screen.ch <- Event{Type: EventClosed, Window: &types.Window{XID: 3, Kind: types.WindowDock}}
	// Active-changed passes through regardless of kind; the model
	// decides what a non-normal active window means.
	screen.ch <- Event{Type: EventActiveChanged, Window: &types.Window{XID: 4, Kind: types.WindowSplash}}
	close(screen.ch)

	adapter.Run(context.Background())

	calls := model.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "active", calls[0].name)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	screen := newFakeScreen()
	model := &recordingModel{}
	adapter := New(screen, model, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		adapter.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("adapter did not stop on context cancel")
	}
}
