package engine

import (
	"sort"
	"sync"

	"github.com/tbrandt/iiobridge/internal/sensor"
)

// Registry owns the live sensors, keyed by unique sensor name. All
// mutation happens from the engine's reconciliation goroutine; reads from
// other goroutines get copies. At most one live sensor exists per name:
// installing over an occupied slot closes the previous owner first, so
// two instances never hold the same hardware channel concurrently.
type Registry struct {
	mu      sync.RWMutex
	sensors map[string]*sensor.Sensor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sensors: make(map[string]*sensor.Sensor)}
}

// Get returns the live sensor for name, if any.
func (r *Registry) Get(name string) (*sensor.Sensor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sensors[name]
	return s, ok
}

// Install stores s under name. Any previous owner of the slot is
// closed once the new sensor is published; readers never observe an
// empty slot during the swap.
func (r *Registry) Install(name string, s *sensor.Sensor) {
	r.mu.Lock()
	old := r.sensors[name]
	r.sensors[name] = s
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Take removes and returns the sensor registered under name. The caller
// owns (and is responsible for closing) the returned instance.
func (r *Registry) Take(name string) (*sensor.Sensor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sensors[name]
	if ok {
		delete(r.sensors, name)
	}
	return s, ok
}

// Names returns the sorted names of all live sensors.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sensors))
	for name := range r.sensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of live sensors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sensors)
}

// CloseAll closes every live sensor and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sensors := r.sensors
	r.sensors = make(map[string]*sensor.Sensor)
	r.mu.Unlock()

	for _, s := range sensors {
		s.Close()
	}
}
