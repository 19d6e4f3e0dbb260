// Package servicebus bridges the session bus to the home model. The
// bus transport (name discovery, ownership change delivery) lives
// behind the Bus and Conn interfaces; the adapter filters ownership
// changes to the activity service naming convention and forwards them,
// and the Resolver answers the engine's synchronous window-to-service
// lookups.
package servicebus

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hearthos/shell/internal/infrastructure/logging"
	"github.com/hearthos/shell/internal/infrastructure/monitoring"
	"github.com/hearthos/shell/internal/shared/types"
)

// NameOwnerChange reports a bus name changing hands. A new service
// coming up has an empty OldOwner; a service going down has an empty
// NewOwner.
type NameOwnerChange struct {
	Name     string
	OldOwner string
	NewOwner string
}

// Bus is the ownership change feed the adapter consumes.
type Bus interface {
	NameOwnerChanges() <-chan NameOwnerChange
}

// Conn resolves a bus name and object path to a live service proxy.
type Conn interface {
	Object(serviceName, objectPath string) (types.ActivityService, error)
}

// Model receives filtered ownership changes.
type Model interface {
	OnServiceOwnerChanged(name, oldOwner, newOwner string)
}

// Adapter pumps activity service ownership changes into the home model.
type Adapter struct {
	bus     Bus
	model   Model
	prefix  string
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates a service bus adapter filtering on the given name prefix.
func New(bus Bus, model Model, prefix string, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Adapter{
		bus:    bus,
		model:  model,
		prefix: prefix,
		logger: logger,
	}
}

// WithMetrics adds metrics tracking to the adapter.
func (a *Adapter) WithMetrics(m *monitoring.Metrics) *Adapter {
	a.metrics = m
	return a
}

// Run forwards matching ownership changes until the context is
// cancelled or the feed closes.
func (a *Adapter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-a.bus.NameOwnerChanges():
			if !ok {
				a.logger.Info("bus ownership feed closed")
				return
			}
			if !strings.HasPrefix(change.Name, a.prefix) {
				continue
			}
			if a.metrics != nil {
				a.metrics.RecordServiceEvent()
			}
			a.logger.Debug("activity service ownership change",
				zap.String("name", change.Name),
				zap.String("old", change.OldOwner),
				zap.String("new", change.NewOwner))
			a.model.OnServiceOwnerChanged(change.Name, change.OldOwner, change.NewOwner)
		}
	}
}

// Resolver resolves window ids to live activity services over a bus
// connection.
type Resolver struct {
	conn   Conn
	prefix string
}

// NewResolver creates a resolver using the activity naming convention.
func NewResolver(conn Conn, prefix string) *Resolver {
	return &Resolver{conn: conn, prefix: prefix}
}

// Resolve returns the service that claimed the window's service name,
// if any. A failed lookup means no service is registered yet.
func (r *Resolver) Resolve(xid uint32) (types.ActivityService, bool) {
	if r.conn == nil {
		return nil, false
	}
	svc, err := r.conn.Object(ServiceName(r.prefix, xid), ObjectPath(xid))
	if err != nil || svc == nil {
		return nil, false
	}
	return svc, true
}
