package regions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	overpass "github.com/serjvanilla/go-overpass"

	"github.com/Woomou/anysiteonearth-backend/model"
)

// DefaultOverpassEndpoint is the public Overpass API instance.
const DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

// countryCodes maps region IDs used by the dataset catalog to ISO 3166-1
// alpha-2 country codes understood by OpenStreetMap boundaries.
var countryCodes = map[string]string{
	"us": "US",
}

// OverpassLookup resolves containment against OpenStreetMap administrative
// boundaries via the Overpass API. It trades a network round trip for exact
// country outlines instead of bounding-box approximations.
type OverpassLookup struct {
	client overpass.Client
}

// NewOverpassLookup builds a lookup against the given Overpass endpoint,
// falling back to the public instance when empty.
func NewOverpassLookup(endpoint string, timeout time.Duration) *OverpassLookup {
	if endpoint == "" {
		endpoint = DefaultOverpassEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	return &OverpassLookup{client: overpass.NewWithSettings(endpoint, 2, httpClient)}
}

// Contains asks Overpass whether coord lies inside the country boundary
// mapped to regionID.
func (l *OverpassLookup) Contains(_ context.Context, regionID string, coord model.Coordinate) (bool, error) {
	code, ok := countryCodes[strings.ToLower(regionID)]
	if !ok {
		return false, fmt.Errorf("unknown region %q", regionID)
	}

	query := fmt.Sprintf(`[out:json];
is_in(%f,%f)->.a;
rel(pivot.a)["ISO3166-1:alpha2"="%s"];
out ids;`, coord.Latitude, coord.Longitude, code)

	result, err := l.client.Query(query)
	if err != nil {
		return false, fmt.Errorf("overpass query failed: %w", err)
	}
	return len(result.Relations) > 0, nil
}
