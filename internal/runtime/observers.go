package runtime

import "sync"

// ObserverRegistry is the default ObserverTracker: per-entity watcher counts
// maintained by the host (viewer sessions, spectating avatars).
type ObserverRegistry struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewObserverRegistry creates an empty registry.
func NewObserverRegistry() *ObserverRegistry {
	return &ObserverRegistry{counts: make(map[string]int)}
}

// Watch increments the watcher count for an entity.
func (o *ObserverRegistry) Watch(entityID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[entityID]++
}

// Unwatch decrements the watcher count, never below zero.
func (o *ObserverRegistry) Unwatch(entityID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts[entityID] > 0 {
		o.counts[entityID]--
	}
}

// GetObserverCount implements ObserverTracker.
func (o *ObserverRegistry) GetObserverCount(entityID string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.counts[entityID]
}
