// Package integration tracks the external services CineBot depends on (the
// movie store, the metadata API, the generative backend) so their health
// can be reported in one place.
package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sipeed/cinebot/pkg/logger"
)

// Integration is an external service connection.
type Integration interface {
	// Name returns a unique identifier for this integration.
	Name() string

	// Health returns nil if healthy, or an error describing the problem.
	Health(ctx context.Context) error
}

// Closer is implemented by integrations holding resources to release.
type Closer interface {
	Close() error
}

// Func adapts a name and a health function to Integration.
type Func struct {
	ID    string
	Check func(ctx context.Context) error
}

func (f Func) Name() string { return f.ID }

func (f Func) Health(ctx context.Context) error {
	if f.Check == nil {
		return nil
	}
	return f.Check(ctx)
}

// Registry holds the registered integrations.
type Registry struct {
	integrations map[string]Integration
	mu           sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		integrations: make(map[string]Integration),
	}
}

// Register adds i, replacing any integration of the same name.
func (r *Registry) Register(i Integration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations[i.Name()] = i
	logger.DebugCF("integration", "Registered integration", map[string]interface{}{
		"name": i.Name(),
	})
}

// Get retrieves an integration by name.
func (r *Registry) Get(name string) (Integration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.integrations[name]
	return i, ok
}

// List returns all registered integration names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.integrations))
	for name := range r.integrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthAll returns a map of integration name to "ok" or the failure. Each
// check gets at most timeout.
func (r *Registry) HealthAll(ctx context.Context, timeout time.Duration) map[string]string {
	r.mu.RLock()
	list := make([]Integration, 0, len(r.integrations))
	for _, i := range r.integrations {
		list = append(list, i)
	}
	r.mu.RUnlock()

	status := make(map[string]string, len(list))
	for _, i := range list {
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := i.Health(checkCtx)
		cancel()
		if err != nil {
			status[i.Name()] = err.Error()
		} else {
			status[i.Name()] = "ok"
		}
	}
	return status
}

// Healthy reports whether every integration passed in status.
func Healthy(status map[string]string) bool {
	for _, s := range status {
		if s != "ok" {
			return false
		}
	}
	return true
}

// CloseAll closes every integration that holds resources.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, i := range r.integrations {
		c, ok := i.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			logger.ErrorCF("integration", "Failed to close integration", map[string]interface{}{
				"name":  name,
				"error": err.Error(),
			})
		}
	}
}
