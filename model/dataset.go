package model

import "fmt"

// ResolutionTier is a named precision class constraining buffer size, zoom,
// and dataset eligibility.
type ResolutionTier string

const (
	TierStandard     ResolutionTier = "standard"
	TierHighRes      ResolutionTier = "high_res"
	TierUltraHighRes ResolutionTier = "ultra_high_res"
)

// Valid reports whether the tier is one of the known precision classes.
func (t ResolutionTier) Valid() bool {
	switch t {
	case TierStandard, TierHighRes, TierUltraHighRes:
		return true
	}
	return false
}

// TierProfile bounds the request shape for a tier. A zero MaxBufferM or
// MinZoom means "no constraint".
type TierProfile struct {
	MaxBufferM float64
	MinZoom    int
}

// Profile returns the request constraints for the tier: finer tiers force
// smaller buffers and higher zooms so the tile grid stays at building or
// block scale.
func (t ResolutionTier) Profile() TierProfile {
	switch t {
	case TierHighRes:
		return TierProfile{MaxBufferM: 200, MinZoom: 18}
	case TierUltraHighRes:
		return TierProfile{MaxBufferM: 50, MinZoom: 20}
	default:
		return TierProfile{}
	}
}

// Coverage describes where a dataset is valid. An empty RegionID means the
// dataset is global.
type Coverage struct {
	RegionID string `json:"region_id,omitempty"`
}

// Global reports whether the dataset has no regional restriction.
func (c Coverage) Global() bool { return c.RegionID == "" }

// DatasetDescriptor is a static description of one imagery source. The
// catalog owns these; they are never mutated after process start.
type DatasetDescriptor struct {
	// Name is the short identifier datasets are keyed by in results
	// (e.g. "naip", "sentinel").
	Name string `json:"name"`

	// CollectionID is the identifier the imagery-platform collaborator
	// understands (e.g. "USDA/NAIP/DOQQ").
	CollectionID string `json:"collection_id"`

	// MinResolutionM/MaxResolutionM bound the ground sample distance in
	// metres; equal values denote a fixed resolution.
	MinResolutionM float64 `json:"min_resolution_m"`
	MaxResolutionM float64 `json:"max_resolution_m"`

	Coverage Coverage `json:"coverage"`

	// PriorityRank orders datasets within a tier; lower is preferred.
	PriorityRank int `json:"priority_rank"`

	// MaxCloudCoverPct is the qualifying threshold passed to the imagery
	// query service. Threshold semantics follow the source collection
	// (PlanetScope reports a 0-1 fraction, everything else a percentage).
	MaxCloudCoverPct float64 `json:"max_cloud_cover_pct"`

	// AcquisitionWindow, when set, pins the dataset to its own date window
	// regardless of the request range (NAIP only publishes flight years).
	AcquisitionWindow *DateRange `json:"acquisition_window,omitempty"`

	// TLELine1/TLELine2 optionally carry the two-line element set of the
	// platform behind this dataset, enabling pass prediction.
	TLELine1 string `json:"tle_line1,omitempty"`
	TLELine2 string `json:"tle_line2,omitempty"`
}

// ResolutionLabel renders the descriptor's resolution range the way result
// consumers expect it ("0.3-0.5m", "10m").
func (d DatasetDescriptor) ResolutionLabel() string {
	if d.MinResolutionM == d.MaxResolutionM {
		return trimFloat(d.MaxResolutionM) + "m"
	}
	return fmt.Sprintf("%s-%sm", trimFloat(d.MinResolutionM), trimFloat(d.MaxResolutionM))
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
