package imagery

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/Woomou/anysiteonearth-backend/core"
)

// Stub is an offline imagery collaborator producing deterministic answers
// derived from the query itself. It lets the CLI and tests exercise the full
// acquisition pipeline without a platform connection.
type Stub struct {
	// Missing lists collection IDs the stub treats as having no qualifying
	// image.
	Missing map[string]bool
}

// NewStub returns a stub that answers every collection.
func NewStub() *Stub {
	return &Stub{}
}

// BestImage fabricates a qualifying image for the collection unless the
// collection is marked missing. The cloud cover and image ref are hashed from
// the query so repeated runs produce identical results.
func (s *Stub) BestImage(_ context.Context, q core.ImageQuery) (*core.ImageResult, error) {
	if s.Missing[q.CollectionID] {
		return nil, nil
	}

	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%.4f|%.4f", q.CollectionID, q.BBox.MinLat, q.BBox.MinLon)
	seed := h.Sum32()

	cloud := 0.0
	if q.MaxCloudCoverPct > 0 {
		cloud = float64(seed%1000) / 1000 * q.MaxCloudCoverPct
	}

	// Acquired midway through the requested window.
	mid := q.Dates.Start.Add(q.Dates.End.Sub(q.Dates.Start) / 2)

	return &core.ImageResult{
		Ref:            fmt.Sprintf("%s/%08x", q.CollectionID, seed),
		AcquiredAt:     mid,
		CloudCoverPct:  cloud,
		CollectionSize: int(seed%50) + 1,
	}, nil
}
