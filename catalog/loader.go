package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Woomou/anysiteonearth-backend/model"
)

// internal JSON shapes - kept unexported so the file format can evolve
// independently of the model types.
type catalogJSON struct {
	Tiers map[string][]datasetJSON `json:"tiers"`
}

type datasetJSON struct {
	Name             string      `json:"name"`
	CollectionID     string      `json:"collection_id"`
	MinResolutionM   float64     `json:"min_resolution_m"`
	MaxResolutionM   float64     `json:"max_resolution_m"`
	Region           string      `json:"region,omitempty"`
	PriorityRank     int         `json:"priority_rank"`
	MaxCloudCoverPct float64     `json:"max_cloud_cover_pct"`
	Window           *windowJSON `json:"acquisition_window,omitempty"`
	TLELine1         string      `json:"tle_line1,omitempty"`
	TLELine2         string      `json:"tle_line2,omitempty"`
}

type windowJSON struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`
}

// Load reads a catalog definition from JSON. It fails on structural and
// validation errors; an empty tier list is allowed (the tier simply has no
// eligible sources).
func Load(r io.Reader) (*Catalog, error) {
	var payload catalogJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("catalog: decode failed: %w", err)
	}

	byTier := make(map[model.ResolutionTier][]model.DatasetDescriptor, len(payload.Tiers))
	for rawTier, datasets := range payload.Tiers {
		tier := model.ResolutionTier(rawTier)
		if !tier.Valid() {
			return nil, fmt.Errorf("catalog: %w: %q", ErrInvalidTier, rawTier)
		}
		list := make([]model.DatasetDescriptor, 0, len(datasets))
		for _, ds := range datasets {
			desc := model.DatasetDescriptor{
				Name:             ds.Name,
				CollectionID:     ds.CollectionID,
				MinResolutionM:   ds.MinResolutionM,
				MaxResolutionM:   ds.MaxResolutionM,
				Coverage:         model.Coverage{RegionID: ds.Region},
				PriorityRank:     ds.PriorityRank,
				MaxCloudCoverPct: ds.MaxCloudCoverPct,
				TLELine1:         ds.TLELine1,
				TLELine2:         ds.TLELine2,
			}
			if ds.Window != nil {
				window, err := parseWindow(*ds.Window)
				if err != nil {
					return nil, fmt.Errorf("catalog: dataset %q: %w", ds.Name, err)
				}
				desc.AcquisitionWindow = window
			}
			list = append(list, desc)
		}
		byTier[tier] = list
	}

	return FromDescriptors(byTier)
}

const dateLayout = "2006-01-02"

func parseWindow(w windowJSON) (*model.DateRange, error) {
	start, err := time.Parse(dateLayout, w.Start)
	if err != nil {
		return nil, fmt.Errorf("acquisition window start %q: %w", w.Start, err)
	}
	end, err := time.Parse(dateLayout, w.End)
	if err != nil {
		return nil, fmt.Errorf("acquisition window end %q: %w", w.End, err)
	}
	return &model.DateRange{Start: start, End: end}, nil
}
