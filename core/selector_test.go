package core

import (
	"context"
	"errors"
	"testing"

	"github.com/Woomou/anysiteonearth-backend/catalog"
	"github.com/Woomou/anysiteonearth-backend/model"
)

type fakeRegionLookup struct {
	inside map[string]bool
	err    error
	calls  int
}

func (f *fakeRegionLookup) Contains(_ context.Context, regionID string, _ model.Coordinate) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.inside[regionID], nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.FromDescriptors(map[model.ResolutionTier][]model.DatasetDescriptor{
		model.TierHighRes: {
			{Name: "regional", CollectionID: "R/1", MinResolutionM: 1, MaxResolutionM: 1,
				Coverage: model.Coverage{RegionID: "us"}, PriorityRank: 1, MaxCloudCoverPct: 100},
			{Name: "global-a", CollectionID: "G/A", MinResolutionM: 3, MaxResolutionM: 5,
				PriorityRank: 2, MaxCloudCoverPct: 10},
			{Name: "global-b", CollectionID: "G/B", MinResolutionM: 10, MaxResolutionM: 10,
				PriorityRank: 3, MaxCloudCoverPct: 20},
		},
		model.TierStandard: {
			{Name: "regional-only", CollectionID: "R/2", MinResolutionM: 30, MaxResolutionM: 30,
				Coverage: model.Coverage{RegionID: "us"}, PriorityRank: 1, MaxCloudCoverPct: 20},
		},
	})
	if err != nil {
		t.Fatalf("FromDescriptors: %v", err)
	}
	return cat
}

func TestSelectCandidates_PreservesPriorityOrder(t *testing.T) {
	lookup := &fakeRegionLookup{inside: map[string]bool{"us": true}}
	sel := NewSourceSelector(testCatalog(t), lookup, nil)

	got, err := sel.SelectCandidates(context.Background(), model.TierHighRes, model.Coordinate{Latitude: 37, Longitude: -122})
	if err != nil {
		t.Fatalf("SelectCandidates: %v", err)
	}

	want := []string{"regional", "global-a", "global-b"}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("candidate %d = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestSelectCandidates_ExcludesOutsideRegion(t *testing.T) {
	lookup := &fakeRegionLookup{inside: map[string]bool{}}
	sel := NewSourceSelector(testCatalog(t), lookup, nil)

	got, err := sel.SelectCandidates(context.Background(), model.TierHighRes, model.Coordinate{Latitude: 48.8566, Longitude: 2.3522})
	if err != nil {
		t.Fatalf("SelectCandidates: %v", err)
	}

	for _, d := range got {
		if d.Name == "regional" {
			t.Errorf("regional dataset selected outside its region")
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d candidates, want the 2 global sources", len(got))
	}
}

func TestSelectCandidates_EmptyWhenNothingQualifies(t *testing.T) {
	lookup := &fakeRegionLookup{inside: map[string]bool{}}
	sel := NewSourceSelector(testCatalog(t), lookup, nil)

	got, err := sel.SelectCandidates(context.Background(), model.TierStandard, model.Coordinate{Latitude: 48.8566, Longitude: 2.3522})
	if err != nil {
		t.Fatalf("empty selection must not be an error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestSelectCandidates_LookupFailureExcludesDataset(t *testing.T) {
	lookup := &fakeRegionLookup{err: errors.New("boundary service down")}
	sel := NewSourceSelector(testCatalog(t), lookup, nil)

	got, err := sel.SelectCandidates(context.Background(), model.TierHighRes, model.Coordinate{Latitude: 37, Longitude: -122})
	if err != nil {
		t.Fatalf("lookup failure must not fail the selection, got %v", err)
	}
	for _, d := range got {
		if !d.Coverage.Global() {
			t.Errorf("region-restricted dataset %q kept despite failing lookup", d.Name)
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d candidates, want the 2 global sources", len(got))
	}
}

func TestSelectCandidates_NilLookupSkipsRegionalDatasets(t *testing.T) {
	sel := NewSourceSelector(testCatalog(t), nil, nil)

	got, err := sel.SelectCandidates(context.Background(), model.TierHighRes, model.Coordinate{Latitude: 37, Longitude: -122})
	if err != nil {
		t.Fatalf("SelectCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d candidates, want the 2 global sources", len(got))
	}
}

func TestSelectCandidates_InvalidTier(t *testing.T) {
	sel := NewSourceSelector(testCatalog(t), nil, nil)

	_, err := sel.SelectCandidates(context.Background(), model.ResolutionTier("4k"), model.Coordinate{})
	if !errors.Is(err, catalog.ErrInvalidTier) {
		t.Fatalf("got %v, want ErrInvalidTier", err)
	}
}

func TestSelectCandidates_GlobalDatasetsSkipLookup(t *testing.T) {
	lookup := &fakeRegionLookup{inside: map[string]bool{"us": true}}
	sel := NewSourceSelector(testCatalog(t), lookup, nil)

	if _, err := sel.SelectCandidates(context.Background(), model.TierHighRes, model.Coordinate{Latitude: 37, Longitude: -122}); err != nil {
		t.Fatalf("SelectCandidates: %v", err)
	}
	if lookup.calls != 1 {
		t.Errorf("lookup called %d times, want 1 (only for the regional dataset)", lookup.calls)
	}
}
