// Package modes describes the transport modes the demo can offer and keeps
// them in line with what the routing backend actually supports.
package modes

import (
	"sync/atomic"

	"github.com/cartoway/router-demo/internal/routing"
)

const (
	// DefaultColor is used for modes without a registry entry.
	DefaultColor = "#6B7280"
	// DefaultIcon is used for modes without a registry entry.
	DefaultIcon = "route"
)

// Labels holds the display name of a mode per locale.
type Labels struct {
	EN string `json:"en"`
	FR string `json:"fr"`
}

// For returns the label for locale, falling back to English.
func (l Labels) For(locale string) string {
	if locale == "fr" && l.FR != "" {
		return l.FR
	}
	return l.EN
}

// Mode is the presentation metadata of a transport mode.
type Mode struct {
	ID     routing.TransportMode `json:"id"`
	Labels Labels                `json:"labels"`
	Icon   string                `json:"icon"`
	Color  string                `json:"color"`
}

var known = []Mode{
	{ID: "car", Labels: Labels{EN: "Car", FR: "Voiture"}, Icon: "car", Color: "#2563EB"},
	{ID: "cargo_bike", Labels: Labels{EN: "Cargo bike", FR: "Vélo cargo"}, Icon: "bicycle", Color: "#0D9488"},
	{ID: "scooter", Labels: Labels{EN: "Scooter", FR: "Scooter"}, Icon: "person-walking", Color: "#DC2626"},
	{ID: "van", Labels: Labels{EN: "Van", FR: "Utilitaire"}, Icon: "van-shuttle", Color: "#F59E0B"},
	{ID: "truck_19", Labels: Labels{EN: "Truck <19t", FR: "Camion <19t"}, Icon: "truck", Color: "#8B5CF6"},
	{ID: "truck_75", Labels: Labels{EN: "Truck 7.5t", FR: "Camion 7,5t"}, Icon: "truck", Color: "#A855F7"},
	{ID: "truck_12", Labels: Labels{EN: "Truck 12t", FR: "Camion 12t"}, Icon: "truck", Color: "#7C3AED"},
	{ID: "truck_26", Labels: Labels{EN: "Truck 26t", FR: "Camion 26t"}, Icon: "truck", Color: "#6D28D9"},
	{ID: "truck_32", Labels: Labels{EN: "Truck 32t", FR: "Camion 32t"}, Icon: "truck", Color: "#5B21B6"},
	{ID: "truck_44", Labels: Labels{EN: "Truck 44t", FR: "Camion 44t"}, Icon: "truck", Color: "#4C1D95"},
	{ID: "bicycle", Labels: Labels{EN: "Bicycle", FR: "Vélo"}, Icon: "bicycle", Color: "#059669"},
	{ID: "foot", Labels: Labels{EN: "Walking", FR: "À pied"}, Icon: "person-walking", Color: "#EA580C"},
}

// Known returns every mode the demo has metadata for, in display order.
func Known() []Mode {
	out := make([]Mode, len(known))
	copy(out, known)
	return out
}

// KnownIDs returns the ids of Known.
func KnownIDs() []routing.TransportMode {
	ids := make([]routing.TransportMode, len(known))
	for i, m := range known {
		ids[i] = m.ID
	}
	return ids
}

// Generic returns the entry used for a mode without metadata.
func Generic(id routing.TransportMode) Mode {
	return Mode{
		ID:     id,
		Labels: Labels{EN: string(id), FR: string(id)},
		Icon:   DefaultIcon,
		Color:  DefaultColor,
	}
}

// Registry is an immutable snapshot of the enabled modes.
type Registry struct {
	modes []Mode
	byID  map[routing.TransportMode]Mode
}

// NewRegistry builds a registry of the enabled modes in the given order. An
// empty list enables every known mode. Enabled ids without metadata get a
// Generic entry.
func NewRegistry(enabled []routing.TransportMode) *Registry {
	if len(enabled) == 0 {
		enabled = KnownIDs()
	}
	meta := make(map[routing.TransportMode]Mode, len(known))
	for _, m := range known {
		meta[m.ID] = m
	}

	r := &Registry{byID: make(map[routing.TransportMode]Mode, len(enabled))}
	for _, id := range enabled {
		if id == "" {
			continue
		}
		if _, dup := r.byID[id]; dup {
			continue
		}
		m, ok := meta[id]
		if !ok {
			m = Generic(id)
		}
		r.byID[id] = m
		r.modes = append(r.modes, m)
	}
	return r
}

// Enabled returns the enabled modes in order.
func (r *Registry) Enabled() []Mode {
	out := make([]Mode, len(r.modes))
	copy(out, r.modes)
	return out
}

// IDs returns the enabled mode ids in order.
func (r *Registry) IDs() []routing.TransportMode {
	ids := make([]routing.TransportMode, len(r.modes))
	for i, m := range r.modes {
		ids[i] = m.ID
	}
	return ids
}

// Contains reports whether id is enabled.
func (r *Registry) Contains(id routing.TransportMode) bool {
	_, ok := r.byID[id]
	return ok
}

// Lookup returns the metadata for id, or a Generic entry.
func (r *Registry) Lookup(id routing.TransportMode) Mode {
	if m, ok := r.byID[id]; ok {
		return m
	}
	for _, m := range known {
		if m.ID == id {
			return m
		}
	}
	return Generic(id)
}

// Label returns the display name of id for locale.
func (r *Registry) Label(id routing.TransportMode, locale string) string {
	return r.Lookup(id).Labels.For(locale)
}

// Color returns the route color of id.
func (r *Registry) Color(id routing.TransportMode) string { return r.Lookup(id).Color }

// Icon returns the icon name of id.
func (r *Registry) Icon(id routing.TransportMode) string { return r.Lookup(id).Icon }

// Restrict returns a registry keeping only the enabled modes present in
// available, in the current order.
func (r *Registry) Restrict(available []routing.TransportMode) *Registry {
	set := make(map[routing.TransportMode]struct{}, len(available))
	for _, id := range available {
		set[id] = struct{}{}
	}
	out := &Registry{byID: make(map[routing.TransportMode]Mode)}
	for _, m := range r.modes {
		if _, ok := set[m.ID]; ok {
			out.byID[m.ID] = m
			out.modes = append(out.modes, m)
		}
	}
	return out
}

// Filter returns ids that are enabled, preserving order.
func (r *Registry) Filter(ids []routing.TransportMode) []routing.TransportMode {
	out := make([]routing.TransportMode, 0, len(ids))
	for _, id := range ids {
		if r.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Holder publishes the current Registry. Readers always see a complete
// snapshot.
type Holder struct {
	p atomic.Pointer[Registry]
}

// NewHolder creates a Holder publishing r.
func NewHolder(r *Registry) *Holder {
	h := &Holder{}
	h.p.Store(r)
	return h
}

// Load returns the current registry.
func (h *Holder) Load() *Registry { return h.p.Load() }

// Store replaces the current registry.
func (h *Holder) Store(r *Registry) { h.p.Store(r) }
