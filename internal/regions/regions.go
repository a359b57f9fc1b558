// Package regions resolves named coverage regions to geographic containment
// checks. The static index answers from built-in bounding boxes; the Overpass
// lookup asks OpenStreetMap for authoritative country boundaries.
package regions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Woomou/anysiteonearth-backend/model"
)

// Region is a named area approximated by one or more bounding boxes. A point
// is inside the region when any box contains it.
type Region struct {
	ID    string
	Boxes []model.BoundingBox
}

// StaticIndex answers containment from an in-memory set of regions. It needs
// no network and is the default lookup for the CLI.
type StaticIndex struct {
	byID map[string]Region
}

// NewStaticIndex builds an index from the given regions. Later duplicates of
// an ID replace earlier ones.
func NewStaticIndex(regions ...Region) *StaticIndex {
	byID := make(map[string]Region, len(regions))
	for _, r := range regions {
		byID[r.ID] = r
	}
	return &StaticIndex{byID: byID}
}

// DefaultIndex covers the regions referenced by the built-in dataset catalog.
// The "us" region approximates the United States as three boxes: the
// conterminous states, Alaska, and Hawaii.
func DefaultIndex() *StaticIndex {
	return NewStaticIndex(Region{
		ID: "us",
		Boxes: []model.BoundingBox{
			{MinLat: 24.5, MinLon: -125.0, MaxLat: 49.5, MaxLon: -66.9},
			{MinLat: 51.0, MinLon: -179.9, MaxLat: 71.5, MaxLon: -129.0},
			{MinLat: 18.5, MinLon: -160.5, MaxLat: 22.5, MaxLon: -154.5},
		},
	})
}

// Contains reports whether coord lies in the named region. Unknown region IDs
// are an error so that catalog typos surface instead of silently excluding
// datasets.
func (s *StaticIndex) Contains(_ context.Context, regionID string, coord model.Coordinate) (bool, error) {
	region, ok := s.byID[regionID]
	if !ok {
		return false, fmt.Errorf("unknown region %q", regionID)
	}
	for _, box := range region.Boxes {
		if box.Contains(coord) {
			return true, nil
		}
	}
	return false, nil
}

type regionsJSON struct {
	Regions []regionJSON `json:"regions"`
}

type regionJSON struct {
	ID    string    `json:"id"`
	Boxes []boxJSON `json:"boxes"`
}

type boxJSON struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Load reads a static region index from JSON.
func Load(r io.Reader) (*StaticIndex, error) {
	var doc regionsJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}

	regions := make([]Region, 0, len(doc.Regions))
	for _, rj := range doc.Regions {
		if rj.ID == "" {
			return nil, fmt.Errorf("region with empty id")
		}
		if len(rj.Boxes) == 0 {
			return nil, fmt.Errorf("region %q has no boxes", rj.ID)
		}
		region := Region{ID: rj.ID, Boxes: make([]model.BoundingBox, 0, len(rj.Boxes))}
		for _, b := range rj.Boxes {
			box := model.BoundingBox{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: b.MaxLon}
			if box.Degenerate() {
				return nil, fmt.Errorf("region %q has a degenerate box", rj.ID)
			}
			region.Boxes = append(region.Boxes, box)
		}
		regions = append(regions, region)
	}
	return NewStaticIndex(regions...), nil
}
