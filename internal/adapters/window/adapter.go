// Package window bridges the windowing system observer to the home
// model. The transport (window enumeration, type classification, focus
// tracking) lives behind the Screen interface; the adapter filters to
// normal top-level windows and forwards events in delivery order.
package window

import (
	"context"

	"go.uber.org/zap"

	"github.com/hearthos/shell/internal/infrastructure/logging"
	"github.com/hearthos/shell/internal/infrastructure/monitoring"
	"github.com/hearthos/shell/internal/shared/types"
)

// EventType identifies a windowing system event
type EventType string

const (
	EventOpened        EventType = "opened"
	EventClosed        EventType = "closed"
	EventActiveChanged EventType = "active-changed"
)

// Event is a raw windowing system event. Window is nil for an
// active-changed event with no active window.
type Event struct {
	Type   EventType
	Window *types.Window
}

// Screen is the windowing system observer the adapter consumes.
type Screen interface {
	Events() <-chan Event
}

// Model receives translated window events.
type Model interface {
	OnWindowOpened(win types.Window) error
	OnWindowClosed(win types.Window)
	OnActiveWindowChanged(win *types.Window)
}

// Adapter pumps screen events into the home model.
type Adapter struct {
	screen  Screen
	model   Model
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates a window event adapter.
func New(screen Screen, model Model, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Adapter{
		screen: screen,
		model:  model,
		logger: logger,
	}
}

// WithMetrics adds metrics tracking to the adapter.
func (a *Adapter) WithMetrics(m *monitoring.Metrics) *Adapter {
	a.metrics = m
	return a
}

// Run forwards screen events until the context is cancelled or the
// event channel closes. Events are delivered one at a time, in order.
func (a *Adapter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.screen.Events():
			if !ok {
				a.logger.Info("screen event stream closed")
				return
			}
			a.dispatch(ev)
		}
	}
}

func (a *Adapter) dispatch(ev Event) {
	if a.metrics != nil {
		a.metrics.RecordWindowEvent(string(ev.Type))
	}

	switch ev.Type {
	case EventOpened:
		if ev.Window == nil {
			a.logger.Warn("window-opened event without a window")
			return
		}
		if ev.Window.Kind != types.WindowNormal {
			return
		}
		if err := a.model.OnWindowOpened(*ev.Window); err != nil {
			a.logger.Error("failed to add activity for window",
				zap.Uint32("xid", ev.Window.XID), zap.Error(err))
		}
	case EventClosed:
		if ev.Window == nil {
			a.logger.Warn("window-closed event without a window")
			return
		}
		if ev.Window.Kind != types.WindowNormal {
			return
		}
		a.model.OnWindowClosed(*ev.Window)
	case EventActiveChanged:
		a.model.OnActiveWindowChanged(ev.Window)
	default:
		a.logger.Warn("unknown window event", zap.String("type", string(ev.Type)))
	}
}
