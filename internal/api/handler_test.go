package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Woomou/anysiteonearth-backend/catalog"
	"github.com/Woomou/anysiteonearth-backend/core"
	"github.com/Woomou/anysiteonearth-backend/model"
)

type fakeAcquirer struct {
	res   *model.AcquisitionResult
	err   error
	calls int
	last  model.AcquisitionRequest
}

func (f *fakeAcquirer) Acquire(_ context.Context, req model.AcquisitionRequest) (*model.AcquisitionResult, error) {
	f.calls++
	f.last = req
	return f.res, f.err
}

type fakeSaver struct {
	saved int
	err   error
}

func (f *fakeSaver) SaveResult(context.Context, *model.AcquisitionResult) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved++
	return int64(f.saved), nil
}

func validBody() string {
	return `{
		"latitude": 37.7749,
		"longitude": -122.4194,
		"tier": "ultra_high_res",
		"buffer_m": 25,
		"zoom": 20,
		"start_date": "2025-01-01",
		"end_date": "2025-06-30"
	}`
}

func postAcquire(t *testing.T, h *AcquisitionHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodPost, "/v1/acquire", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHandleAcquire_Success(t *testing.T) {
	result := &model.AcquisitionResult{
		Timestamp: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		Location:  model.Coordinate{Latitude: 37.7749, Longitude: -122.4194},
		Tier:      model.TierUltraHighRes,
		Datasets:  []model.DatasetImage{{Dataset: "naip", ImageRef: "naip-1"}},
	}
	acquirer := &fakeAcquirer{res: result}
	saver := &fakeSaver{}
	h := NewAcquisitionHandler(acquirer, saver, nil)

	rr := postAcquire(t, h, validBody())
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var out model.AcquisitionResult
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Datasets) != 1 || out.Datasets[0].Dataset != "naip" {
		t.Errorf("response datasets = %+v", out.Datasets)
	}

	if acquirer.last.Tier != model.TierUltraHighRes || acquirer.last.BufferM != 25 {
		t.Errorf("request not forwarded: %+v", acquirer.last)
	}
	wantStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !acquirer.last.Dates.Start.Equal(wantStart) {
		t.Errorf("start date %v, want %v", acquirer.last.Dates.Start, wantStart)
	}
	if saver.saved != 1 {
		t.Errorf("result saved %d times, want 1", saver.saved)
	}
}

func TestHandleAcquire_SaveFailureIsNotFatal(t *testing.T) {
	acquirer := &fakeAcquirer{res: &model.AcquisitionResult{}}
	h := NewAcquisitionHandler(acquirer, &fakeSaver{err: errors.New("db down")}, nil)

	rr := postAcquire(t, h, validBody())
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200 despite save failure", rr.Code)
	}
}

func TestHandleAcquire_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid geometry", fmt.Errorf("%w: buffer", core.ErrInvalidGeometry), http.StatusBadRequest},
		{"invalid zoom", fmt.Errorf("%w: 42", core.ErrInvalidZoom), http.StatusBadRequest},
		{"invalid dates", fmt.Errorf("%w: inverted", core.ErrInvalidDateRange), http.StatusBadRequest},
		{"tile count exceeded", fmt.Errorf("%w: 9000 tiles", core.ErrTileCountExceeded), http.StatusBadRequest},
		{"invalid tier", fmt.Errorf("%w: 4k", catalog.ErrInvalidTier), http.StatusBadRequest},
		{"no eligible dataset", fmt.Errorf("%w: standard", core.ErrNoEligibleDataset), http.StatusNotFound},
		{"no imagery", fmt.Errorf("%w: 5 candidates", core.ErrNoImageryAvailable), http.StatusNotFound},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAcquisitionHandler(&fakeAcquirer{err: tc.err}, nil, nil)
			rr := postAcquire(t, h, validBody())
			if rr.Code != tc.want {
				t.Fatalf("status %d, want %d", rr.Code, tc.want)
			}

			var out errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if out.Error == "" {
				t.Errorf("empty error message")
			}
		})
	}
}

func TestHandleAcquire_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"latitude": `},
		{"bad start date", `{"latitude": 1, "longitude": 2, "tier": "standard", "buffer_m": 100, "zoom": 14, "start_date": "01/01/2025", "end_date": "2025-06-30"}`},
		{"bad end date", `{"latitude": 1, "longitude": 2, "tier": "standard", "buffer_m": 100, "zoom": 14, "start_date": "2025-01-01", "end_date": "June"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acquirer := &fakeAcquirer{res: &model.AcquisitionResult{}}
			h := NewAcquisitionHandler(acquirer, nil, nil)
			rr := postAcquire(t, h, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", rr.Code)
			}
			if acquirer.calls != 0 {
				t.Errorf("acquirer called for a malformed request")
			}
		})
	}
}

func TestHandleAcquire_MethodNotAllowed(t *testing.T) {
	h := NewAcquisitionHandler(&fakeAcquirer{}, nil, nil)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/acquire", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := NewAcquisitionHandler(&fakeAcquirer{}, nil, nil)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ok") {
		t.Errorf("body %q missing status", rr.Body.String())
	}
}
