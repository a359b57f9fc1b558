package model

import (
	"strconv"
	"strings"
)

// TileCoordinate identifies a slippy-map tile at a given zoom level.
// Invariant: 0 <= X,Y < 2^Zoom.
type TileCoordinate struct {
	Zoom int `json:"z"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// URL renders an XYZ tile URL from a template containing {x}, {y} and {z}
// placeholders.
func (t TileCoordinate) URL(template string) string {
	r := strings.NewReplacer(
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
		"{z}", strconv.Itoa(t.Zoom),
	)
	return r.Replace(template)
}
