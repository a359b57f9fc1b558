// Package api exposes the acquisition pipeline over HTTP JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Woomou/anysiteonearth-backend/catalog"
	"github.com/Woomou/anysiteonearth-backend/core"
	"github.com/Woomou/anysiteonearth-backend/internal/logging"
	"github.com/Woomou/anysiteonearth-backend/model"
)

const dateLayout = "2006-01-02"

// Acquirer runs one acquisition. The orchestrator implements it; tests use
// fakes.
type Acquirer interface {
	Acquire(ctx context.Context, req model.AcquisitionRequest) (*model.AcquisitionResult, error)
}

// ResultSaver optionally persists results after a successful acquisition.
type ResultSaver interface {
	SaveResult(ctx context.Context, res *model.AcquisitionResult) (int64, error)
}

// AcquisitionHandler serves the acquisition API.
type AcquisitionHandler struct {
	service Acquirer
	store   ResultSaver
	log     logging.Logger
}

// NewAcquisitionHandler builds a handler. The store may be nil, in which case
// results are returned but not persisted.
func NewAcquisitionHandler(service Acquirer, store ResultSaver, log logging.Logger) *AcquisitionHandler {
	if log == nil {
		log = logging.Noop()
	}
	return &AcquisitionHandler{service: service, store: store, log: log}
}

// Routes registers the handler's endpoints on mux.
func (h *AcquisitionHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/acquire", h.handleAcquire)
	mux.HandleFunc("/healthz", h.handleHealth)
}

type acquireRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Tier      string  `json:"tier"`
	BufferM   float64 `json:"buffer_m"`
	Zoom      int     `json:"zoom"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *AcquisitionHandler) handleAcquire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, log := logging.WithRequestLogger(r.Context(), h.log)

	var in acquireRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	req, err := in.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.Acquire(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Error(ctx, "acquisition failed", logging.Err(err))
		}
		writeError(w, status, err.Error())
		return
	}

	if h.store != nil {
		if id, err := h.store.SaveResult(ctx, res); err != nil {
			// Persistence is ancillary; the caller still gets the result.
			log.Warn(ctx, "result persistence failed", logging.Err(err))
		} else {
			log.Info(ctx, "result persisted", logging.Any("acquisition_id", id))
		}
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *AcquisitionHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (in acquireRequest) toModel() (model.AcquisitionRequest, error) {
	var req model.AcquisitionRequest

	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		return req, errors.New("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, in.EndDate)
	if err != nil {
		return req, errors.New("end_date must be YYYY-MM-DD")
	}

	return model.AcquisitionRequest{
		Center:  model.Coordinate{Latitude: in.Latitude, Longitude: in.Longitude},
		Tier:    model.ResolutionTier(in.Tier),
		BufferM: in.BufferM,
		Zoom:    in.Zoom,
		Dates:   model.DateRange{Start: start, End: end},
	}, nil
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidGeometry),
		errors.Is(err, core.ErrInvalidZoom),
		errors.Is(err, core.ErrInvalidDateRange),
		errors.Is(err, core.ErrTileCountExceeded),
		errors.Is(err, catalog.ErrInvalidTier):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrNoEligibleDataset),
		errors.Is(err, core.ErrNoImageryAvailable):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
