package model

import "time"

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// BoundingBox is a geographic rectangle in WGS84 degrees.
// Invariant: MinLat <= MaxLat and MinLon <= MaxLon.
type BoundingBox struct {
	MinLat float64 `json:"south"`
	MinLon float64 `json:"west"`
	MaxLat float64 `json:"north"`
	MaxLon float64 `json:"east"`
}

// Degenerate reports whether the box encloses no area.
func (b BoundingBox) Degenerate() bool {
	return b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon
}

// Contains reports whether the coordinate lies inside the box (inclusive).
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

// DateRange is a half-open-in-spirit acquisition window; both ends are
// inclusive, matching how imagery catalogs filter by date.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the range is non-empty and ordered.
func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}
