package core

import (
	"context"

	"github.com/Woomou/anysiteonearth-backend/catalog"
	"github.com/Woomou/anysiteonearth-backend/internal/logging"
	"github.com/Woomou/anysiteonearth-backend/model"
)

// RegionLookup answers whether a coordinate lies inside a named region. It is
// an external collaborator; the selector treats it as a pure predicate.
type RegionLookup interface {
	Contains(ctx context.Context, regionID string, coord model.Coordinate) (bool, error)
}

// SourceSelector filters a tier's catalog entries down to the datasets whose
// coverage includes a location, preserving priority order.
type SourceSelector struct {
	catalog *catalog.Catalog
	regions RegionLookup
	log     logging.Logger
}

// NewSourceSelector builds a selector. A nil logger is replaced with a noop.
func NewSourceSelector(cat *catalog.Catalog, regions RegionLookup, log logging.Logger) *SourceSelector {
	if log == nil {
		log = logging.Noop()
	}
	return &SourceSelector{catalog: cat, regions: regions, log: log}
}

// SelectCandidates returns the tier's datasets eligible at coord, in the
// catalog's priority order. An empty slice is not an error: it signals that
// every source for the tier is region restricted and none matches, which the
// orchestrator reports explicitly.
//
// A failing region lookup excludes the dataset rather than failing the whole
// selection; eligibility stays best-effort even when the boundary service is
// down, and the exclusion is logged.
func (s *SourceSelector) SelectCandidates(ctx context.Context, tier model.ResolutionTier, coord model.Coordinate) ([]model.DatasetDescriptor, error) {
	datasets, err := s.catalog.DatasetsForTier(tier)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.DatasetDescriptor, 0, len(datasets))
	for _, d := range datasets {
		if d.Coverage.Global() {
			candidates = append(candidates, d)
			continue
		}
		if s.regions == nil {
			s.log.Warn(ctx, "no region lookup configured; skipping region-restricted dataset",
				logging.String("dataset", d.Name),
				logging.String("region", d.Coverage.RegionID),
			)
			continue
		}
		contained, err := s.regions.Contains(ctx, d.Coverage.RegionID, coord)
		if err != nil {
			s.log.Warn(ctx, "region lookup failed; excluding dataset",
				logging.String("dataset", d.Name),
				logging.String("region", d.Coverage.RegionID),
				logging.String("error", err.Error()),
			)
			continue
		}
		if contained {
			candidates = append(candidates, d)
		}
	}
	return candidates, nil
}
