package audio

import (
	"fmt"
	"sort"
)

// Registry owns the live engine instances by id. It replaces any notion of
// a global instance map: whoever manages engine lifecycle holds the
// registry and passes it where it is needed.
type Registry struct {
	devices map[string]Device
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]Device)}
}

func (r *Registry) Add(id string, d Device) error {
	if _, ok := r.devices[id]; ok {
		return fmt.Errorf("device already registered: %s", id)
	}
	r.devices[id] = d
	return nil
}

func (r *Registry) Get(id string) (Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("unknown device: %s", id)
	}
	return d, nil
}

func (r *Registry) Remove(id string) {
	delete(r.devices, id)
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
