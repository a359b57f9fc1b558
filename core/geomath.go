package core

import (
	"fmt"
	"math"

	"github.com/Woomou/anysiteonearth-backend/model"
)

// Supported slippy-map zoom range.
const (
	MinZoom = 0
	MaxZoom = 22
)

// MetersPerDegreeLat is the local approximation used for metric/degree
// conversion: one degree of latitude spans roughly 111 km everywhere, and one
// degree of longitude spans that divided by cos(latitude).
const MetersPerDegreeLat = 111_000.0

// BoundingBoxFromBuffer converts a metric radius around a center point into a
// WGS84 degree-space box. All math is double precision; nothing is rounded.
func BoundingBoxFromBuffer(center model.Coordinate, bufferM float64) (model.BoundingBox, error) {
	if !center.Valid() {
		return model.BoundingBox{}, fmt.Errorf("%w: coordinate (%g, %g) outside WGS84 bounds",
			ErrInvalidGeometry, center.Latitude, center.Longitude)
	}
	if bufferM <= 0 {
		return model.BoundingBox{}, fmt.Errorf("%w: buffer %gm must be positive", ErrInvalidGeometry, bufferM)
	}
	if center.Latitude == 90 || center.Latitude == -90 {
		return model.BoundingBox{}, fmt.Errorf("%w: longitude scaling is undefined at the poles", ErrInvalidGeometry)
	}

	latBuffer := bufferM / MetersPerDegreeLat
	lonBuffer := bufferM / (MetersPerDegreeLat * math.Cos(center.Latitude*math.Pi/180))

	box := model.BoundingBox{
		MinLat: center.Latitude - latBuffer,
		MaxLat: center.Latitude + latBuffer,
		MinLon: center.Longitude - lonBuffer,
		MaxLon: center.Longitude + lonBuffer,
	}
	if box.Degenerate() {
		return model.BoundingBox{}, fmt.Errorf("%w: buffer %gm produced a degenerate box", ErrInvalidGeometry, bufferM)
	}
	return box, nil
}

// TileIndexForPoint computes the slippy-map tile containing a coordinate at
// the given zoom, using the standard Web Mercator formula. Indices at the
// east and south edges of the projection are clamped into [0, 2^zoom).
func TileIndexForPoint(coord model.Coordinate, zoom int) (model.TileCoordinate, error) {
	if zoom < MinZoom || zoom > MaxZoom {
		return model.TileCoordinate{}, fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidZoom, zoom, MinZoom, MaxZoom)
	}
	if !coord.Valid() {
		return model.TileCoordinate{}, fmt.Errorf("%w: coordinate (%g, %g) outside WGS84 bounds",
			ErrInvalidGeometry, coord.Latitude, coord.Longitude)
	}

	n := float64(int(1) << zoom)
	latRad := coord.Latitude * math.Pi / 180
	x := int((coord.Longitude + 180.0) / 360.0 * n)
	y := int((1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n)

	max := int(n) - 1
	x = clamp(x, 0, max)
	y = clamp(y, 0, max)

	return model.TileCoordinate{Zoom: zoom, X: x, Y: y}, nil
}

// BoxDiagonalMeters approximates the box's corner-to-corner distance using
// the same local scaling the box was built with. Useful for sanity checks on
// small buffered areas, not for long geodesics.
func BoxDiagonalMeters(box model.BoundingBox) float64 {
	midLat := (box.MinLat + box.MaxLat) / 2
	dy := (box.MaxLat - box.MinLat) * MetersPerDegreeLat
	dx := (box.MaxLon - box.MinLon) * MetersPerDegreeLat * math.Cos(midLat*math.Pi/180)
	return math.Sqrt(dx*dx + dy*dy)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
