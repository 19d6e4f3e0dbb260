package home

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hearthos/shell/internal/infrastructure/logging"
	"github.com/hearthos/shell/internal/infrastructure/monitoring"
	"github.com/hearthos/shell/internal/shared/id"
	"github.com/hearthos/shell/internal/shared/types"
)

const (
	// DefaultServicePrefix is the bus name prefix activity services
	// claim, followed by the decimal window id.
	DefaultServicePrefix = "org.hearth.Activity"

	// DefaultLaunchTimeout bounds how long a launch intent may stay
	// windowless before it is reclaimed.
	DefaultLaunchTimeout = 30 * time.Second
)

// ServiceResolver resolves a window id to a live activity service, if
// one has already claimed the window's service name.
type ServiceResolver interface {
	Resolve(xid uint32) (types.ActivityService, bool)
}

// BundleLookup maps an activity service name to installable metadata.
type BundleLookup interface {
	GetBundle(serviceName string) (*types.Bundle, bool)
}

// Notifier receives change events for fan-out to UI observers. It must
// not call back into the engine and must not block.
type Notifier interface {
	Notify(types.Event)
}

// Engine owns the registry of activity records and reconciles window
// and service events into it.
type Engine struct {
	mu      sync.RWMutex
	records map[string]*types.Activity // by activity id
	windows map[uint32]string          // window id -> activity id
	timers  map[string]*time.Timer     // pending launch expiry, by activity id

	focusedID string
	seq       uint64

	resolver      ServiceResolver
	bundles       BundleLookup
	notifier      Notifier
	logger        *logging.Logger
	metrics       *monitoring.Metrics
	servicePrefix string
	launchTimeout time.Duration
}

// NewEngine creates a home model engine.
func NewEngine(resolver ServiceResolver, bundles BundleLookup, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Engine{
		records:       make(map[string]*types.Activity),
		windows:       make(map[uint32]string),
		timers:        make(map[string]*time.Timer),
		resolver:      resolver,
		bundles:       bundles,
		logger:        logger,
		servicePrefix: DefaultServicePrefix,
		launchTimeout: DefaultLaunchTimeout,
	}
}

// WithNotifier sets the change notifier.
func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

// WithMetrics adds metrics tracking to the engine.
func (e *Engine) WithMetrics(m *monitoring.Metrics) *Engine {
	e.metrics = m
	return e
}

// WithServicePrefix overrides the activity service naming convention.
func (e *Engine) WithServicePrefix(prefix string) *Engine {
	e.servicePrefix = prefix
	return e
}

// WithLaunchTimeout overrides the launch intent expiry bound.
func (e *Engine) WithLaunchTimeout(d time.Duration) *Engine {
	e.launchTimeout = d
	return e
}

// ParseServiceXID extracts the window id embedded in an activity service
// name. Names without the prefix or with a non-numeric suffix are not
// activity services.
func ParseServiceXID(prefix, name string) (uint32, bool) {
	suffix, ok := strings.CutPrefix(name, prefix)
	if !ok || suffix == "" {
		return 0, false
	}
	xid, err := strconv.ParseUint(suffix, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(xid), true
}

// OnWindowOpened handles a new top-level window. Non-normal windows are
// ignored. If the window's service is already resolvable the record is
// bound immediately; otherwise a placeholder is created until the
// service shows up on the bus.
func (e *Engine) OnWindowOpened(win types.Window) error {
	if win.Kind != types.WindowNormal {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addActivityLocked(win, nil)
}

// OnWindowClosed removes the record attached to a closing window. When
// the registry drains, observers are told there is no active activity.
func (e *Engine) OnWindowClosed(win types.Window) {
	if win.Kind != types.WindowNormal {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if actID, ok := e.windows[win.XID]; ok {
		e.removeLocked(e.records[actID])
	} else {
		e.logger.Error("no activity for closed window", zap.Uint32("xid", win.XID))
		e.recordInconsistency()
	}

	if len(e.records) == 0 {
		old := e.focusedLocked()
		e.focusedID = ""
		e.emit(types.EventActiveActivityChanged, nil)
		e.notifyActivation(old, nil)
	}
}

// OnServiceOwnerChanged handles a session bus name ownership change.
//
// Normally an activity's service is resolvable by the time its window
// opens. If the window arrived first, a placeholder was created; once
// the service claims its name here, the placeholder is replaced by a
// proper bound record derived through the window-open path.
func (e *Engine) OnServiceOwnerChanged(name, oldOwner, newOwner string) {
	if newOwner == "" || oldOwner != "" {
		return
	}
	xid, ok := ParseServiceXID(e.servicePrefix, name)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	actID, ok := e.windows[xid]
	if !ok {
		return
	}
	rec := e.records[actID]
	if rec == nil || rec.Kind != types.KindPlaceholder {
		return
	}

	e.logger.Debug("activity service detected for placeholder window",
		zap.String("service", name),
		zap.String("placeholder_id", rec.ID),
		zap.Uint32("xid", xid))

	// The replacement keeps the placeholder's launch ordering so the
	// home view does not reshuffle on promotion.
	keep := ordering{launchTime: rec.LaunchTime, launchSeq: rec.LaunchSeq}
	win := types.Window{XID: xid, Kind: types.WindowNormal}
	e.removeLocked(rec)

	if err := e.addActivityLocked(win, &keep); err != nil {
		e.logger.Error("failed to rebind recovered activity",
			zap.Uint32("xid", xid), zap.Error(err))
		e.recordInconsistency()
	}
}

// OnActiveWindowChanged tracks focus. A nil window means nothing is
// active. Windows that resolve to no launched record clear focus and
// are reported as inconsistencies rather than crashing the shell.
func (e *Engine) OnActiveWindowChanged(win *types.Window) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.focusedLocked()

	if win == nil {
		e.focusedID = ""
		e.emit(types.EventActiveActivityChanged, nil)
		e.notifyActivation(old, nil)
		return
	}
	if win.Kind != types.WindowNormal {
		return
	}

	var next *types.Activity
	if actID, ok := e.windows[win.XID]; ok {
		next = e.records[actID]
	}

	if next != nil && next.Launched {
		e.notifyActivation(old, next)
		e.focusedID = next.ID
		e.emit(types.EventActiveActivityChanged, next)
		return
	}

	if next == nil {
		e.logger.Error("no activity for active window", zap.Uint32("xid", win.XID))
	} else {
		e.logger.Error("activity for active window not yet launched",
			zap.Uint32("xid", win.XID), zap.String("activity_id", next.ID))
	}
	e.recordInconsistency()
	e.notifyActivation(old, nil)
	e.focusedID = ""
	e.emit(types.EventActiveActivityChanged, nil)
}

// NotifyActivityLaunch announces that an activity is expected to start
// soon. The record exists windowless until the window-open path binds
// it, or the launch timeout reclaims it.
func (e *Engine) NotifyActivityLaunch(activityID, serviceName string) error {
	bundle, ok := e.bundles.GetBundle(serviceName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownServiceType, serviceName)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, exists := e.records[activityID]; exists {
		e.logger.Warn("launch announced for already tracked activity, replacing",
			zap.String("activity_id", activityID))
		e.recordInconsistency()
		e.removeLocked(prev)
	}

	rec := &types.Activity{
		ID:          activityID,
		Kind:        types.KindBound,
		ServiceName: serviceName,
		Bundle:      bundle,
	}
	e.applyOrdering(rec, nil)
	e.records[activityID] = rec
	e.trackCountLocked()
	e.armTimerLocked(activityID)

	e.logger.Debug("activity launch announced",
		zap.String("activity_id", activityID), zap.String("service_name", serviceName))
	e.emit(types.EventActivityLaunched, rec)
	return nil
}

// NotifyActivityLaunchFailed removes the record for a launch that the
// launcher reports as failed.
func (e *Engine) NotifyActivityLaunchFailed(activityID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[activityID]
	if !ok {
		e.logger.Error("launch failure for unknown activity", zap.String("activity_id", activityID))
		e.recordInconsistency()
		return
	}

	e.logger.Debug("activity launch failed",
		zap.String("activity_id", activityID), zap.String("service_name", rec.ServiceName))
	e.removeLocked(rec)
}

// Close disarms all pending expiry timers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for actID, t := range e.timers {
		t.Stop()
		delete(e.timers, actID)
	}
}

// ordering carries launch ordering across a placeholder promotion.
type ordering struct {
	launchTime time.Time
	launchSeq  uint64
}

func (e *Engine) applyOrdering(rec *types.Activity, keep *ordering) {
	if keep != nil {
		rec.LaunchTime = keep.launchTime
		rec.LaunchSeq = keep.launchSeq
		return
	}
	e.seq++
	rec.LaunchTime = time.Now()
	rec.LaunchSeq = e.seq
}

// addActivityLocked runs the window-open resolution path: bind to an
// announced launch, recover an untracked activity from its bundle, or
// fall back to a placeholder when the service is not yet resolvable.
func (e *Engine) addActivityLocked(win types.Window, keep *ordering) error {
	var svc types.ActivityService
	if e.resolver != nil {
		svc, _ = e.resolver.Resolve(win.XID)
	}

	if svc == nil {
		rec := &types.Activity{
			ID:   id.NewPlaceholderID().String(),
			Kind: types.KindPlaceholder,
		}
		e.applyOrdering(rec, keep)
		e.records[rec.ID] = rec
		e.attachWindowLocked(rec, win, nil)
		e.trackCountLocked()

		e.logger.Debug("tracking window with no resolvable service",
			zap.String("placeholder_id", rec.ID), zap.Uint32("xid", win.XID))
		e.emit(types.EventActivityAdded, rec)
		return nil
	}

	actID := svc.ID()
	if rec, exists := e.records[actID]; exists {
		// The launch intent path announced this activity; its window
		// just arrived.
		e.attachWindowLocked(rec, win, svc)
		e.emit(types.EventActivityAdded, rec)
		return nil
	}

	// The activity was started outside the launch flow, or outlived its
	// intent; recover it from bundle metadata.
	serviceName := svc.ServiceName()
	bundle, ok := e.bundles.GetBundle(serviceName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingBundle, serviceName)
	}

	rec := &types.Activity{
		ID:          actID,
		Kind:        types.KindBound,
		ServiceName: serviceName,
		Bundle:      bundle,
	}
	e.applyOrdering(rec, keep)
	e.records[actID] = rec
	e.attachWindowLocked(rec, win, svc)
	e.trackCountLocked()

	e.logger.Debug("recovered untracked activity",
		zap.String("activity_id", actID), zap.Uint32("xid", win.XID))
	e.emit(types.EventActivityAdded, rec)
	return nil
}

// attachWindowLocked binds a window to a record and marks it launched.
// The window index holds at most one record per window.
func (e *Engine) attachWindowLocked(rec *types.Activity, win types.Window, svc types.ActivityService) {
	if prevID, taken := e.windows[win.XID]; taken && prevID != rec.ID {
		e.logger.Warn("window already bound to another activity",
			zap.Uint32("xid", win.XID), zap.String("activity_id", prevID))
		e.recordInconsistency()
		delete(e.windows, win.XID)
		if prev := e.records[prevID]; prev != nil {
			prev.WindowXID = nil
		}
	}

	xid := win.XID
	rec.WindowXID = &xid
	rec.Launched = true
	if rec.Service == nil && svc != nil {
		rec.Service = svc
	}
	e.windows[xid] = rec.ID
	e.disarmTimerLocked(rec.ID)
}

// removeLocked drops a record from both indices and emits the removal.
func (e *Engine) removeLocked(rec *types.Activity) {
	if rec == nil {
		return
	}
	e.disarmTimerLocked(rec.ID)
	if rec.WindowXID != nil {
		delete(e.windows, *rec.WindowXID)
	}
	if e.focusedID == rec.ID {
		e.focusedID = ""
	}
	delete(e.records, rec.ID)
	e.trackCountLocked()
	e.emit(types.EventActivityRemoved, rec)
}

// notifyActivation tells the outgoing and incoming services about the
// focus transition. No calls are made when focus does not move.
func (e *Engine) notifyActivation(old, next *types.Activity) {
	if old == next {
		return
	}
	if old != nil && next != nil && old.ID == next.ID {
		return
	}

	if old != nil && old.Service != nil {
		if err := old.Service.SetActive(false); err != nil {
			e.logger.Warn("failed to deactivate activity",
				zap.String("activity_id", old.ID), zap.Error(err))
		}
	}
	if next != nil && next.Service != nil {
		if err := next.Service.SetActive(true); err != nil {
			e.logger.Warn("failed to activate activity",
				zap.String("activity_id", next.ID), zap.Error(err))
		}
	}
}

func (e *Engine) armTimerLocked(activityID string) {
	e.disarmTimerLocked(activityID)
	e.timers[activityID] = time.AfterFunc(e.launchTimeout, func() {
		e.expireLaunch(activityID)
	})
}

func (e *Engine) disarmTimerLocked(activityID string) {
	if t, ok := e.timers[activityID]; ok {
		t.Stop()
		delete(e.timers, activityID)
	}
}

// expireLaunch reclaims a launch intent that never produced a window.
// A timer that fires late, after its record was promoted or removed, is
// a no-op.
func (e *Engine) expireLaunch(activityID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[activityID]
	if !ok || rec.Launched {
		return
	}

	e.logger.Info("launch intent expired",
		zap.String("activity_id", activityID), zap.String("service_name", rec.ServiceName))
	e.removeLocked(rec)
}

func (e *Engine) focusedLocked() *types.Activity {
	if e.focusedID == "" {
		return nil
	}
	return e.records[e.focusedID]
}

func (e *Engine) emit(t types.EventType, act *types.Activity) {
	if e.metrics != nil {
		e.metrics.RecordHomeEvent(string(t))
	}
	if e.notifier == nil {
		return
	}
	var snap *types.Activity
	if act != nil {
		c := *act
		snap = &c
	}
	e.notifier.Notify(types.Event{Type: t, Activity: snap, Timestamp: time.Now()})
}

func (e *Engine) trackCountLocked() {
	if e.metrics != nil {
		e.metrics.SetActivitiesTracked(len(e.records))
	}
}

func (e *Engine) recordInconsistency() {
	if e.metrics != nil {
		e.metrics.IncInconsistencies()
	}
}
