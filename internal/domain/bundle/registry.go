package bundle

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hearthos/shell/internal/infrastructure/logging"
	"github.com/hearthos/shell/internal/infrastructure/monitoring"
	"github.com/hearthos/shell/internal/shared/types"
)

// Registry holds installed activity bundles
type Registry struct {
	mu        sync.RWMutex
	byService map[string]*types.Bundle
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// NewRegistry creates an empty bundle registry
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Registry{
		byService: make(map[string]*types.Bundle),
		logger:    logger,
	}
}

// WithMetrics adds metrics tracking to the registry
func (r *Registry) WithMetrics(m *monitoring.Metrics) *Registry {
	r.metrics = m
	return r
}

// Register adds a bundle, replacing any previous bundle claiming the
// same service name
func (r *Registry) Register(b *types.Bundle) error {
	if b.ID == "" {
		return fmt.Errorf("bundle id is required")
	}
	if b.ServiceName == "" {
		return fmt.Errorf("bundle %s: service name is required", b.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.byService[b.ServiceName]; exists && prev.ID != b.ID {
		r.logger.Warn("service name re-registered by different bundle",
			zap.String("service_name", b.ServiceName),
			zap.String("old_bundle", prev.ID),
			zap.String("new_bundle", b.ID))
	}
	r.byService[b.ServiceName] = b

	if r.metrics != nil {
		r.metrics.SetBundlesRegistered(len(r.byService))
	}
	return nil
}

// GetBundle returns the bundle registered for a service name
func (r *Registry) GetBundle(serviceName string) (*types.Bundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byService[serviceName]
	if !ok {
		return nil, false
	}
	// Copy to prevent external modification
	c := *b
	return &c, true
}

// List returns all registered bundles sorted by name
func (r *Registry) List() []*types.Bundle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Bundle, 0, len(r.byService))
	for _, b := range r.byService {
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered bundles
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byService)
}
