package service

import (
	"github.com/paulmach/orb"

	"github.com/cartoway/router-demo/internal/routing"
)

// RouteCollection maps each transport mode to its current route. It is not
// safe for concurrent use; session.Reconciler serializes access to it.
type RouteCollection struct {
	routes map[routing.TransportMode]DecodedRoute
}

// NewRouteCollection returns an empty collection.
func NewRouteCollection() *RouteCollection {
	return &RouteCollection{routes: make(map[routing.TransportMode]DecodedRoute)}
}

// Merge applies calc: every mode it requested is replaced by its new route,
// or removed if it failed. Modes calc did not request are left untouched.
func (c *RouteCollection) Merge(calc *Calculation) {
	if calc == nil {
		return
	}
	for _, mode := range calc.Modes {
		if r, ok := calc.Routes[mode]; ok {
			c.routes[mode] = r
			continue
		}
		delete(c.routes, mode)
	}
}

// Get returns the route for mode.
func (c *RouteCollection) Get(mode routing.TransportMode) (DecodedRoute, bool) {
	r, ok := c.routes[mode]
	return r, ok
}

// Has reports whether mode has a route.
func (c *RouteCollection) Has(mode routing.TransportMode) bool {
	_, ok := c.routes[mode]
	return ok
}

// Remove drops the route for mode, if any.
func (c *RouteCollection) Remove(mode routing.TransportMode) {
	delete(c.routes, mode)
}

// Clear drops every route.
func (c *RouteCollection) Clear() {
	clear(c.routes)
}

// Len returns the number of routes.
func (c *RouteCollection) Len() int { return len(c.routes) }

// Ordered returns the routes for order, skipping modes without a route.
func (c *RouteCollection) Ordered(order []routing.TransportMode) []DecodedRoute {
	out := make([]DecodedRoute, 0, len(order))
	for _, mode := range order {
		if r, ok := c.routes[mode]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Comparison names the fastest and shortest routes of a set.
type Comparison struct {
	Fastest  routing.TransportMode `json:"fastest,omitempty"`
	Shortest routing.TransportMode `json:"shortest,omitempty"`
}

// Compare labels routes. On ties the earliest route wins, so callers pass
// routes in requested order.
func Compare(routes []DecodedRoute) Comparison {
	var cmp Comparison
	if len(routes) == 0 {
		return cmp
	}
	fastest, shortest := routes[0], routes[0]
	for _, r := range routes[1:] {
		if r.DurationSeconds < fastest.DurationSeconds {
			fastest = r
		}
		if r.DistanceMeters < shortest.DistanceMeters {
			shortest = r
		}
	}
	cmp.Fastest = fastest.Mode
	cmp.Shortest = shortest.Mode
	return cmp
}

// Bounds returns the bounding box of every route coordinate plus extra
// points. ok is false when there is nothing to bound.
func Bounds(routes []DecodedRoute, extra ...orb.Point) (b orb.Bound, ok bool) {
	for _, r := range routes {
		if len(r.Coordinates) == 0 {
			continue
		}
		rb := r.Coordinates.Bound()
		if !ok {
			b, ok = rb, true
			continue
		}
		b = b.Union(rb)
	}
	for _, p := range extra {
		if !ok {
			b, ok = p.Bound(), true
			continue
		}
		b = b.Extend(p)
	}
	return b, ok
}
