package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Woomou/anysiteonearth-backend/model"
)

var (
	// ErrInvalidTier marks lookups with an unrecognized resolution tier.
	// This is a programming error on the caller's side, not a data condition.
	ErrInvalidTier = errors.New("invalid resolution tier")

	// ErrInvalidDescriptor marks catalogs that fail structural validation.
	ErrInvalidDescriptor = errors.New("invalid dataset descriptor")
)

// Catalog is the process-wide, read-only registry of imagery sources grouped
// by resolution tier. It is immutable after construction and therefore safe
// for concurrent use without locking.
type Catalog struct {
	byTier map[model.ResolutionTier][]model.DatasetDescriptor
}

// FromDescriptors validates the per-tier descriptor lists and builds a
// catalog with each tier sorted by ascending priority rank.
func FromDescriptors(byTier map[model.ResolutionTier][]model.DatasetDescriptor) (*Catalog, error) {
	out := make(map[model.ResolutionTier][]model.DatasetDescriptor, len(byTier))
	for tier, descriptors := range byTier {
		if !tier.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
		}
		seen := make(map[string]bool, len(descriptors))
		list := make([]model.DatasetDescriptor, len(descriptors))
		copy(list, descriptors)
		for _, d := range list {
			if err := validateDescriptor(d); err != nil {
				return nil, fmt.Errorf("tier %s: %w", tier, err)
			}
			if seen[d.Name] {
				return nil, fmt.Errorf("%w: duplicate dataset %q in tier %s", ErrInvalidDescriptor, d.Name, tier)
			}
			seen[d.Name] = true
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].PriorityRank < list[j].PriorityRank
		})
		out[tier] = list
	}
	return &Catalog{byTier: out}, nil
}

// DatasetsForTier returns the tier's descriptors ordered by ascending
// priority rank (most preferred first). The returned slice is a copy; the
// catalog itself is never exposed for mutation.
func (c *Catalog) DatasetsForTier(tier model.ResolutionTier) ([]model.DatasetDescriptor, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	list := c.byTier[tier]
	res := make([]model.DatasetDescriptor, len(list))
	copy(res, list)
	return res, nil
}

// Tiers returns the tiers the catalog has entries for, in no particular order.
func (c *Catalog) Tiers() []model.ResolutionTier {
	res := make([]model.ResolutionTier, 0, len(c.byTier))
	for tier := range c.byTier {
		res = append(res, tier)
	}
	return res
}

func validateDescriptor(d model.DatasetDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	if d.CollectionID == "" {
		return fmt.Errorf("%w: dataset %q has no collection ID", ErrInvalidDescriptor, d.Name)
	}
	if d.MinResolutionM <= 0 || d.MaxResolutionM < d.MinResolutionM {
		return fmt.Errorf("%w: dataset %q resolution range [%g, %g]",
			ErrInvalidDescriptor, d.Name, d.MinResolutionM, d.MaxResolutionM)
	}
	if d.MaxCloudCoverPct < 0 || d.MaxCloudCoverPct > 100 {
		return fmt.Errorf("%w: dataset %q cloud threshold %g", ErrInvalidDescriptor, d.Name, d.MaxCloudCoverPct)
	}
	if d.AcquisitionWindow != nil && !d.AcquisitionWindow.Valid() {
		return fmt.Errorf("%w: dataset %q acquisition window", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// Default returns the built-in catalog. Tier membership, priorities, and
// cloud thresholds mirror the production source lineup: commercial sub-meter
// sources plus NAIP and a Sentinel-2 fallback for ultra_high_res, NAIP /
// PlanetScope / Sentinel-2 / Landsat-8 for high_res, and the two global
// coarse sources for standard. Thresholds tighten as tiers get finer.
func Default() *Catalog {
	naipWindow := &model.DateRange{
		Start: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	byTier := map[model.ResolutionTier][]model.DatasetDescriptor{
		model.TierUltraHighRes: {
			{
				Name:             "worldview",
				CollectionID:     "WORLDVIEW/WV04/PANSHARPENED",
				MinResolutionM:   0.3,
				MaxResolutionM:   0.5,
				PriorityRank:     1,
				MaxCloudCoverPct: 5,
			},
			{
				Name:             "geoeye",
				CollectionID:     "GEOEYE/GE01/PANSHARPENED",
				MinResolutionM:   0.5,
				MaxResolutionM:   0.5,
				PriorityRank:     2,
				MaxCloudCoverPct: 5,
			},
			{
				Name:             "skysat",
				CollectionID:     "SKYSAT/GEN-A/PUBLIC/ORTHO/RGB",
				MinResolutionM:   0.5,
				MaxResolutionM:   1,
				PriorityRank:     3,
				MaxCloudCoverPct: 5,
				TLELine1:         "1 39418U 13066C   21275.52502228  .00000945  00000-0  84928-4 0  9999",
				TLELine2:         "2 39418  97.6213 325.1550 0024756 114.9687 245.4113 14.98144855430094",
			},
			{
				Name:              "naip",
				CollectionID:      "USDA/NAIP/DOQQ",
				MinResolutionM:    1,
				MaxResolutionM:    1,
				Coverage:          model.Coverage{RegionID: "us"},
				PriorityRank:      4,
				MaxCloudCoverPct:  100, // aerial program, no cloud filter
				AcquisitionWindow: naipWindow,
			},
			{
				Name:             "sentinel",
				CollectionID:     "COPERNICUS/S2_SR_HARMONIZED",
				MinResolutionM:   10,
				MaxResolutionM:   10,
				PriorityRank:     5,
				MaxCloudCoverPct: 5,
			},
		},
		model.TierHighRes: {
			{
				Name:              "naip",
				CollectionID:      "USDA/NAIP/DOQQ",
				MinResolutionM:    1,
				MaxResolutionM:    1,
				Coverage:          model.Coverage{RegionID: "us"},
				PriorityRank:      1,
				MaxCloudCoverPct:  100,
				AcquisitionWindow: naipWindow,
			},
			{
				Name:             "planet",
				CollectionID:     "PLANET/PSScene/Visual",
				MinResolutionM:   3,
				MaxResolutionM:   5,
				PriorityRank:     2,
				MaxCloudCoverPct: 0.1, // PlanetScope reports a 0-1 fraction
			},
			{
				Name:             "sentinel",
				CollectionID:     "COPERNICUS/S2_SR_HARMONIZED",
				MinResolutionM:   10,
				MaxResolutionM:   10,
				PriorityRank:     3,
				MaxCloudCoverPct: 10,
			},
			{
				Name:             "landsat",
				CollectionID:     "LANDSAT/LC08/C02/T1_L2",
				MinResolutionM:   30,
				MaxResolutionM:   30,
				PriorityRank:     4,
				MaxCloudCoverPct: 10,
			},
		},
		model.TierStandard: {
			{
				Name:             "landsat",
				CollectionID:     "LANDSAT/LC08/C02/T1_L2",
				MinResolutionM:   30,
				MaxResolutionM:   30,
				PriorityRank:     1,
				MaxCloudCoverPct: 20,
			},
			{
				Name:             "sentinel",
				CollectionID:     "COPERNICUS/S2_SR_HARMONIZED",
				MinResolutionM:   10,
				MaxResolutionM:   10,
				PriorityRank:     2,
				MaxCloudCoverPct: 20,
			},
		},
	}

	cat, err := FromDescriptors(byTier)
	if err != nil {
		// The built-in catalog is compile-time data; failing to validate it
		// is a bug, not a runtime condition.
		panic(fmt.Sprintf("built-in catalog invalid: %v", err))
	}
	return cat
}
