package routing

import (
	"errors"
	"fmt"
	"math"
)

// RawRouteResponse is the FeatureCollection returned by GET /0.1/routes.
type RawRouteResponse struct {
	Type     string         `json:"type"`
	Features []RouteFeature `json:"features"`
}

// RouteFeature is one computed route.
type RouteFeature struct {
	Type       string            `json:"type"`
	Properties FeatureProperties `json:"properties"`
	Geometry   FeatureGeometry   `json:"geometry"`
}

// FeatureProperties wraps the router summary.
type FeatureProperties struct {
	Router *RouterSummary `json:"router"`
}

// RouterSummary carries totals for the whole route. Pointers distinguish a
// missing field from a zero value.
type RouterSummary struct {
	TotalTime     *float64    `json:"total_time"`
	TotalDistance *float64    `json:"total_distance"`
	StartPoint    *[2]float64 `json:"start_point,omitempty"`
	EndPoint      *[2]float64 `json:"end_point,omitempty"`
}

// FeatureGeometry holds the encoded path. Polylines may be empty when
// geometry was not requested.
type FeatureGeometry struct {
	Type      string `json:"type"`
	Polylines string `json:"polylines"`
}

var (
	// ErrNoFeatures is returned when the response carries no route.
	ErrNoFeatures = errors.New("response contains no features")

	// ErrMissingSummary is returned when properties.router or one of its
	// totals is absent.
	ErrMissingSummary = errors.New("response feature has no router summary")
)

// Validate checks the fields the rest of the system relies on.
func (r *RawRouteResponse) Validate() error {
	if r == nil || len(r.Features) == 0 {
		return ErrNoFeatures
	}
	s := r.Features[0].Properties.Router
	if s == nil || s.TotalTime == nil || s.TotalDistance == nil {
		return ErrMissingSummary
	}
	if err := checkTotal("total_time", *s.TotalTime); err != nil {
		return err
	}
	return checkTotal("total_distance", *s.TotalDistance)
}

// Primary returns the first feature. Callers must Validate first.
func (r *RawRouteResponse) Primary() RouteFeature {
	return r.Features[0]
}

// Duration returns the total time in seconds of a validated feature.
func (f RouteFeature) Duration() float64 { return *f.Properties.Router.TotalTime }

// Distance returns the total distance in meters of a validated feature.
func (f RouteFeature) Distance() float64 { return *f.Properties.Router.TotalDistance }

func checkTotal(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s: invalid value %v", field, v)
	}
	return nil
}
