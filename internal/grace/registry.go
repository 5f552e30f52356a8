package grace

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the registry needs.
type Timer interface {
	Stop() bool
}

type pending struct {
	timer   Timer
	gen     uint64
	expires time.Time
}

// Registry holds at most one pending eviction timer per user. Each arm gets a
// new generation so a timer that fires after being replaced finds nothing to take.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*pending
	gen     uint64
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]*pending)}
}

// arm replaces any pending timer for userID. start runs under the registry lock,
// so the timer it creates cannot be taken before it is recorded.
func (r *Registry) arm(userID string, expires time.Time, start func(gen uint64) Timer) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old := r.pending[userID]; old != nil {
		old.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.pending[userID] = &pending{timer: start(gen), gen: gen, expires: expires}
	return gen
}

// take removes the entry for userID if it is still generation gen.
func (r *Registry) take(userID string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.pending[userID]
	if p == nil || p.gen != gen {
		return false
	}
	delete(r.pending, userID)
	return true
}

// cancel stops and removes the pending timer for userID, reporting whether
// there was one.
func (r *Registry) cancel(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.pending[userID]
	if p == nil {
		return false
	}
	p.timer.Stop()
	delete(r.pending, userID)
	return true
}

// Pending snapshots who is inside a grace period and when it ends.
func (r *Registry) Pending() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]time.Time, len(r.pending))
	for id, p := range r.pending {
		out[id] = p.expires
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
