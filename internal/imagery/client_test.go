package imagery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Woomou/anysiteonearth-backend/core"
	"github.com/Woomou/anysiteonearth-backend/model"
)

func testQuery() core.ImageQuery {
	return core.ImageQuery{
		CollectionID:     "COPERNICUS/S2_SR_HARMONIZED",
		BBox:             model.BoundingBox{MinLat: 37.77, MinLon: -122.43, MaxLat: 37.78, MaxLon: -122.41},
		Dates:            model.DateRange{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)},
		MaxCloudCoverPct: 10,
	}
}

func TestClient_BestImageFound(t *testing.T) {
	acquired := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/best-image" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if in["collection"] != "COPERNICUS/S2_SR_HARMONIZED" {
			t.Errorf("collection = %v", in["collection"])
		}
		if in["start_date"] != "2025-01-01" || in["end_date"] != "2025-06-30" {
			t.Errorf("dates = %v .. %v", in["start_date"], in["end_date"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"found":           true,
			"ref":             "s2-img-42",
			"acquired_at":     acquired,
			"cloud_cover_pct": 4.2,
			"collection_size": 17,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	res, err := client.BestImage(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("BestImage: %v", err)
	}
	if res == nil {
		t.Fatalf("expected a result")
	}
	if res.Ref != "s2-img-42" || res.CloudCoverPct != 4.2 || res.CollectionSize != 17 {
		t.Errorf("result = %+v", res)
	}
	if !res.AcquiredAt.Equal(acquired) {
		t.Errorf("acquired_at = %v, want %v", res.AcquiredAt, acquired)
	}
}

func TestClient_NoQualifyingImage(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"404", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"found=false", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"found": false})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			client := NewClient(srv.URL, 5*time.Second)
			res, err := client.BestImage(context.Background(), testQuery())
			if err != nil {
				t.Fatalf("no qualifying image must not be an error, got %v", err)
			}
			if res != nil {
				t.Errorf("expected nil result, got %+v", res)
			}
		})
	}
}

func TestClient_ServerErrorIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	if _, err := client.BestImage(context.Background(), testQuery()); err == nil {
		t.Fatalf("expected an error for a 429 response")
	}
}

func TestStub_DeterministicAnswers(t *testing.T) {
	stub := NewStub()
	q := testQuery()

	first, err := stub.BestImage(context.Background(), q)
	if err != nil {
		t.Fatalf("BestImage: %v", err)
	}
	second, err := stub.BestImage(context.Background(), q)
	if err != nil {
		t.Fatalf("BestImage: %v", err)
	}
	if first == nil || second == nil {
		t.Fatalf("stub returned nil for a non-missing collection")
	}
	if *first != *second {
		t.Errorf("stub not deterministic: %+v vs %+v", first, second)
	}
	if first.CloudCoverPct < 0 || first.CloudCoverPct >= q.MaxCloudCoverPct {
		t.Errorf("cloud cover %v outside [0, %v)", first.CloudCoverPct, q.MaxCloudCoverPct)
	}
	if first.AcquiredAt.Before(q.Dates.Start) || first.AcquiredAt.After(q.Dates.End) {
		t.Errorf("acquired_at %v outside the requested window", first.AcquiredAt)
	}
}

func TestStub_MissingCollections(t *testing.T) {
	stub := &Stub{Missing: map[string]bool{"COPERNICUS/S2_SR_HARMONIZED": true}}

	res, err := stub.BestImage(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("BestImage: %v", err)
	}
	if res != nil {
		t.Errorf("missing collection returned %+v", res)
	}
}
