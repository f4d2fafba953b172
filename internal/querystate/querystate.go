// Package querystate converts between URL query parameters and the inputs of
// a route comparison: origin=lat,lng destination=lat,lng modes=a,b debug=1.
package querystate

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cartoway/router-demo/internal/modes"
	"github.com/cartoway/router-demo/internal/routing"
)

// ErrInvalidPoint is returned for a point that is not "lat,lng" within
// WGS-84 bounds.
var ErrInvalidPoint = errors.New("invalid point")

// State is the decoded query.
type State struct {
	Origin      *routing.GeoPoint
	Destination *routing.GeoPoint
	// Modes is nil when the query has no modes parameter.
	Modes []routing.TransportMode
	Debug bool
}

// FieldError reports which parameter failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// Parse decodes v. Every invalid parameter is reported, joined.
func Parse(v url.Values) (State, error) {
	var (
		st   State
		errs []error
	)

	for _, p := range []struct {
		name string
		dst  **routing.GeoPoint
	}{{"origin", &st.Origin}, {"destination", &st.Destination}} {
		raw := strings.TrimSpace(v.Get(p.name))
		if raw == "" {
			continue
		}
		pt, err := ParsePoint(raw)
		if err != nil {
			errs = append(errs, &FieldError{Field: p.name, Err: err})
			continue
		}
		*p.dst = &pt
	}

	if v.Has("modes") {
		st.Modes = modes.Split(v.Get("modes"))
		if st.Modes == nil {
			st.Modes = []routing.TransportMode{}
		}
	}

	switch strings.ToLower(v.Get("debug")) {
	case "1", "true":
		st.Debug = true
	}

	return st, errors.Join(errs...)
}

// ParsePoint parses "lat,lng".
func ParsePoint(s string) (routing.GeoPoint, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return routing.GeoPoint{}, fmt.Errorf("%w: %q is not lat,lng", ErrInvalidPoint, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return routing.GeoPoint{}, fmt.Errorf("%w: latitude %q", ErrInvalidPoint, latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return routing.GeoPoint{}, fmt.Errorf("%w: longitude %q", ErrInvalidPoint, lngStr)
	}
	p := routing.GeoPoint{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return routing.GeoPoint{}, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	return p, nil
}

// FormatPoint renders p as "lat,lng" with the shortest exact decimals.
func FormatPoint(p routing.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// Encode renders st as query values. Parse(st.Encode()) yields st.
func (st State) Encode() url.Values {
	v := url.Values{}
	if st.Origin != nil {
		v.Set("origin", FormatPoint(*st.Origin))
	}
	if st.Destination != nil {
		v.Set("destination", FormatPoint(*st.Destination))
	}
	if st.Modes != nil {
		v.Set("modes", modes.Join(st.Modes))
	}
	if st.Debug {
		v.Set("debug", "true")
	}
	return v
}
