package discovery

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/sensemesh/iot-control-loop/pkg/types"
)

// Registry is a concurrent set of discovered services keyed by device id.
// Records are added or replaced, never expired; a stale address surfaces as
// a transport error on the next use and the following advertisement heals it.
type Registry struct {
	mu       sync.RWMutex
	services map[types.ID]Service
}

func NewRegistry() *Registry {
	return &Registry{services: map[types.ID]Service{}}
}

func (r *Registry) Save(svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.ID] = svc
}

func (r *Registry) Get(id types.ID) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[id]
	return svc, ok
}

// Snapshot returns a copy of the registry contents, safe to iterate without
// holding any lock.
func (r *Registry) Snapshot() map[types.ID]Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[types.ID]Service, len(r.services))
	for id, svc := range r.services {
		out[id] = svc
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

// IDs returns the known device ids in stable order.
func (r *Registry) IDs() []types.ID {
	r.mu.RLock()
	ids := lo.Keys(r.services)
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Slot tracks a single peer for roles that only ever need one, like a
// sensor's environment.
type Slot struct {
	mu  sync.RWMutex
	svc *Service
}

func (s *Slot) Save(svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.svc = &svc
}

func (s *Slot) Get() (Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.svc == nil {
		return Service{}, false
	}
	return *s.svc, true
}
