package capture

import (
	"fmt"
	"sort"
)

// Registry indexes drivers by name for config and CLI selection.
type Registry struct {
	drivers map[string]Driver
}

func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[string]Driver, len(drivers))}
	for _, d := range drivers {
		if d != nil {
			r.drivers[d.Name()] = d
		}
	}
	return r
}

// Get returns the named driver or an error wrapping ErrDeviceUnavailable.
func (r *Registry) Get(name string) (Driver, error) {
	if d, ok := r.drivers[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("capture: unknown driver %q: %w", name, ErrDeviceUnavailable)
}

// Names lists registered drivers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for n := range r.drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
