// Package polyline decodes the encoded polyline format returned by the
// routing API.
//
// Each coordinate component is a zig-zag encoded delta from the previous
// point, written as 5-bit groups offset into the printable ASCII range. The
// first point is relative to (0, 0). Raw integers are coordinate*10^precision.
package polyline

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	gopolyline "github.com/twpayne/go-polyline"
)

// ErrTruncated is returned when the stream ends between the latitude and
// longitude of a point.
var ErrTruncated = errors.New("truncated coordinate pair")

// DecodeError reports a malformed encoded polyline.
type DecodeError struct {
	// Offset is the byte offset at which decoding stopped.
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("polyline: decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode decodes encoded into an ordered sequence of points. Points are
// returned as orb.Point values, i.e. (longitude, latitude), which is the
// order GeoJSON consumers expect.
//
// An empty string yields an empty, non-nil sequence.
func Decode(encoded string, precision int) ([]orb.Point, error) {
	if precision < 0 || precision > 10 {
		return nil, fmt.Errorf("polyline: unsupported precision %d", precision)
	}

	factor := math.Pow10(precision)
	buf := []byte(encoded)
	points := make([]orb.Point, 0, len(buf)/4)

	// Deltas are summed as integers so that the only rounding happens in the
	// final division.
	var lat, lng int
	for len(buf) > 0 {
		offset := len(encoded) - len(buf)

		dLat, rest, err := gopolyline.DecodeInt(buf)
		if err != nil {
			return nil, &DecodeError{Offset: offset, Err: err}
		}
		if len(rest) == 0 {
			return nil, &DecodeError{Offset: len(encoded), Err: ErrTruncated}
		}

		lngOffset := len(encoded) - len(rest)
		dLng, rest, err := gopolyline.DecodeInt(rest)
		if err != nil {
			return nil, &DecodeError{Offset: lngOffset, Err: err}
		}

		lat += dLat
		lng += dLng
		points = append(points, orb.Point{float64(lng) / factor, float64(lat) / factor})
		buf = rest
	}

	return points, nil
}

// LineString decodes encoded like Decode but degrades malformed input to an
// empty line. The returned error is informational only.
func LineString(encoded string, precision int) (orb.LineString, error) {
	points, err := Decode(encoded, precision)
	if err != nil {
		return orb.LineString{}, err
	}
	return orb.LineString(points), nil
}
