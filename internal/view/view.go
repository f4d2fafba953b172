// Package view turns decoded routes into the payload rendered by map and
// result-list clients.
package view

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cartoway/router-demo/internal/modes"
	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/service"
)

// Route is one row of the comparison.
type Route struct {
	Mode            routing.TransportMode `json:"mode"`
	Label           string                `json:"label"`
	Color           string                `json:"color"`
	Icon            string                `json:"icon"`
	DurationSeconds float64               `json:"durationSeconds"`
	DistanceMeters  float64               `json:"distanceMeters"`
	Duration        string                `json:"duration"`
	Distance        string                `json:"distance"`
	Fastest         bool                  `json:"fastest"`
	Shortest        bool                  `json:"shortest"`
	Visible         bool                  `json:"visible"`
	HasGeometry     bool                  `json:"hasGeometry"`
}

// Bounds is a latitude/longitude box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Input describes what to render.
type Input struct {
	// Routes must be in requested order.
	Routes   []service.DecodedRoute
	Registry *modes.Registry
	Locale   string
	// Visible reports whether a mode is drawn. Nil means every route is.
	Visible func(routing.TransportMode) bool
	// Origin and Destination are added as point features when set.
	Origin      *routing.GeoPoint
	Destination *routing.GeoPoint
}

// Result is the rendered comparison.
type Result struct {
	Routes     []Route                    `json:"routes"`
	Comparison service.Comparison         `json:"comparison"`
	GeoJSON    *geojson.FeatureCollection `json:"geojson"`
	Bounds     *Bounds                    `json:"bounds,omitempty"`
}

// Build renders in. Fastest and shortest are computed over every route,
// visible or not.
func Build(in Input) Result {
	reg := in.Registry
	if reg == nil {
		reg = modes.NewRegistry(nil)
	}
	visible := in.Visible
	if visible == nil {
		visible = func(routing.TransportMode) bool { return true }
	}

	cmp := service.Compare(in.Routes)
	res := Result{
		Routes:     make([]Route, 0, len(in.Routes)),
		Comparison: cmp,
		GeoJSON:    geojson.NewFeatureCollection(),
	}

	var drawn []service.DecodedRoute
	for _, r := range in.Routes {
		v := visible(r.Mode)
		res.Routes = append(res.Routes, Route{
			Mode:            r.Mode,
			Label:           reg.Label(r.Mode, in.Locale),
			Color:           reg.Color(r.Mode),
			Icon:            reg.Icon(r.Mode),
			DurationSeconds: r.DurationSeconds,
			DistanceMeters:  r.DistanceMeters,
			Duration:        FormatDuration(r.DurationSeconds),
			Distance:        FormatDistance(r.DistanceMeters),
			Fastest:         r.Mode == cmp.Fastest,
			Shortest:        r.Mode == cmp.Shortest,
			Visible:         v,
			HasGeometry:     len(r.Coordinates) > 0,
		})
		if !v || len(r.Coordinates) == 0 {
			continue
		}
		drawn = append(drawn, r)

		f := geojson.NewFeature(r.Coordinates)
		f.Properties["mode"] = string(r.Mode)
		f.Properties["color"] = reg.Color(r.Mode)
		f.Properties["label"] = reg.Label(r.Mode, in.Locale)
		f.Properties["duration"] = r.DurationSeconds
		f.Properties["distance"] = r.DistanceMeters
		res.GeoJSON.Append(f)
	}

	var markers []orb.Point
	for _, m := range []struct {
		role string
		p    *routing.GeoPoint
	}{{"origin", in.Origin}, {"destination", in.Destination}} {
		if m.p == nil {
			continue
		}
		pt := orb.Point{m.p.Lng, m.p.Lat}
		markers = append(markers, pt)
		f := geojson.NewFeature(pt)
		f.Properties["role"] = m.role
		res.GeoJSON.Append(f)
	}

	if b, ok := service.Bounds(drawn, markers...); ok {
		res.Bounds = &Bounds{South: b.Min.Lat(), West: b.Min.Lon(), North: b.Max.Lat(), East: b.Max.Lon()}
	}
	return res
}

// FormatDuration renders seconds as "1h 5min" or "12min". Partial minutes
// are truncated.
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	if hours > 0 {
		return strconv.FormatInt(hours, 10) + "h " + strconv.FormatInt(minutes, 10) + "min"
	}
	return strconv.FormatInt(minutes, 10) + "min"
}

// FormatDistance renders meters as "1.5 km" from one kilometer up, "850 m"
// below.
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return strconv.FormatFloat(meters/1000, 'f', 1, 64) + " km"
	}
	return strconv.FormatFloat(math.Floor(meters+0.5), 'f', 0, 64) + " m"
}
