// Package imagery provides implementations of the orchestrator's imagery
// collaborator: an HTTP client for a remote imagery platform and a
// deterministic offline stub.
package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Woomou/anysiteonearth-backend/core"
)

const dateLayout = "2006-01-02"

// Client queries a remote imagery platform over HTTP JSON. It implements the
// orchestrator's ImageryQuery interface.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client against baseURL. A zero timeout defaults to 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type bestImageRequest struct {
	Collection   string  `json:"collection"`
	MinLat       float64 `json:"min_lat"`
	MinLon       float64 `json:"min_lon"`
	MaxLat       float64 `json:"max_lat"`
	MaxLon       float64 `json:"max_lon"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	MaxCloudsPct float64 `json:"max_cloud_cover_pct"`
}

type bestImageResponse struct {
	Found          bool      `json:"found"`
	Ref            string    `json:"ref"`
	AcquiredAt     time.Time `json:"acquired_at"`
	CloudCoverPct  float64   `json:"cloud_cover_pct"`
	CollectionSize int       `json:"collection_size"`
}

// BestImage asks the platform for the least-cloudy qualifying image in the
// collection. A 404 or a found=false body means no qualifying image and is
// not an error.
func (c *Client) BestImage(ctx context.Context, q core.ImageQuery) (*core.ImageResult, error) {
	body, err := json.Marshal(bestImageRequest{
		Collection:   q.CollectionID,
		MinLat:       q.BBox.MinLat,
		MinLon:       q.BBox.MinLon,
		MaxLat:       q.BBox.MaxLat,
		MaxLon:       q.BBox.MaxLon,
		StartDate:    q.Dates.Start.Format(dateLayout),
		EndDate:      q.Dates.End.Format(dateLayout),
		MaxCloudsPct: q.MaxCloudCoverPct,
	})
	if err != nil {
		return nil, fmt.Errorf("encode best-image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/best-image", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build best-image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query imagery platform: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("imagery platform returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out bestImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode best-image response: %w", err)
	}
	if !out.Found {
		return nil, nil
	}
	return &core.ImageResult{
		Ref:            out.Ref,
		AcquiredAt:     out.AcquiredAt,
		CloudCoverPct:  out.CloudCoverPct,
		CollectionSize: out.CollectionSize,
	}, nil
}
