package model

import "time"

// AcquisitionRequest describes one imagery acquisition at a location.
// It is a plain value; the orchestrator validates and normalizes a copy,
// never the caller's instance.
type AcquisitionRequest struct {
	Center  Coordinate     `json:"center"`
	Tier    ResolutionTier `json:"tier"`
	BufferM float64        `json:"buffer_m"`
	Zoom    int            `json:"zoom"`
	Dates   DateRange      `json:"dates"`
}

// Normalize applies the tier profile: the buffer is capped and the zoom is
// raised to keep the tile grid at the scale the tier promises. Standard tier
// leaves the request untouched.
func (r AcquisitionRequest) Normalize() AcquisitionRequest {
	p := r.Tier.Profile()
	if p.MaxBufferM > 0 && r.BufferM > p.MaxBufferM {
		r.BufferM = p.MaxBufferM
	}
	if p.MinZoom > 0 && r.Zoom < p.MinZoom {
		r.Zoom = p.MinZoom
	}
	return r
}

// DatasetImage is the per-dataset slice of an acquisition result: one
// qualifying image reference plus its metadata.
type DatasetImage struct {
	Dataset         string     `json:"dataset"`
	ImageRef        string     `json:"image_ref"`
	ResolutionLabel string     `json:"resolution"`
	AcquiredAt      time.Time  `json:"acquired_at"`
	CloudCoverPct   float64    `json:"cloud_cover_pct"`
	CollectionSize  int        `json:"collection_size,omitempty"`
	NextPass        *time.Time `json:"next_pass,omitempty"`
}

// TileInfo carries the tile grid computed for the acquisition. Tiles are in
// row-major order (y ascending, then x ascending); consumers may rely on it.
type TileInfo struct {
	Zoom  int              `json:"zoom"`
	BBox  BoundingBox      `json:"bounding_box"`
	Count int              `json:"count"`
	Tiles []TileCoordinate `json:"tiles"`
	URLs  []string         `json:"urls,omitempty"`
}

// AcquisitionResult is the assembled output of one acquisition. Datasets are
// ordered by priority rank (most preferred first); Image provides keyed
// access by dataset name. The record is immutable once returned.
type AcquisitionResult struct {
	Timestamp time.Time      `json:"timestamp"`
	Location  Coordinate     `json:"location"`
	Tier      ResolutionTier `json:"tier"`

	// Effective request values after tier normalization.
	BufferM float64   `json:"buffer_m"`
	Zoom    int       `json:"zoom"`
	Dates   DateRange `json:"dates"`

	TileInfo TileInfo       `json:"tiles_info"`
	Datasets []DatasetImage `json:"datasets"`
}

// Image returns the entry for the named dataset, if present.
func (r *AcquisitionResult) Image(dataset string) (DatasetImage, bool) {
	for _, d := range r.Datasets {
		if d.Dataset == dataset {
			return d, true
		}
	}
	return DatasetImage{}, false
}
