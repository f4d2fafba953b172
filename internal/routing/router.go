package routing

import (
	"context"
	"fmt"
)

// Precision is the number of decimal digits used both for the coordinates
// sent to the routing API and for the polylines it returns.
const Precision = 6

// GeoPoint is a WGS-84 position. It is compared by value.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether p lies within the WGS-84 bounds.
func (p GeoPoint) Validate() error {
	if !(p.Lat >= -90 && p.Lat <= 90) {
		return fmt.Errorf("latitude %v out of range [-90,90]", p.Lat)
	}
	if !(p.Lng >= -180 && p.Lng <= 180) {
		return fmt.Errorf("longitude %v out of range [-180,180]", p.Lng)
	}
	return nil
}

// TransportMode identifies a routing profile of the backend ("car",
// "cargo_bike", ...). It carries no behavior.
type TransportMode string

// RouteRequestSpec holds everything needed to request one route.
type RouteRequestSpec struct {
	Origin       GeoPoint
	Destination  GeoPoint
	Mode         TransportMode
	WantGeometry bool
}

// Router requests a single route from the routing backend.
type Router interface {
	Route(ctx context.Context, spec RouteRequestSpec) (*RawRouteResponse, error)
}
