package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/Woomou/anysiteonearth-backend/catalog"
	"github.com/Woomou/anysiteonearth-backend/internal/logging"
	"github.com/Woomou/anysiteonearth-backend/model"
)

const tracerName = "github.com/Woomou/anysiteonearth-backend/core"

// DefaultTileURLTemplate is the XYZ template rendered into tile URLs when no
// other template is configured.
const DefaultTileURLTemplate = "https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}"

// DefaultMaxParallelQueries bounds concurrent per-dataset imagery queries.
const DefaultMaxParallelQueries = 4

// ImageQuery is one request to the external imagery-platform collaborator:
// the best available image for a collection within a bbox and date range,
// under a cloud-cover threshold.
type ImageQuery struct {
	CollectionID     string
	BBox             model.BoundingBox
	Dates            model.DateRange
	MaxCloudCoverPct float64
}

// ImageResult is the zero-or-one qualifying image a collaborator returns.
type ImageResult struct {
	Ref            string
	AcquiredAt     time.Time
	CloudCoverPct  float64
	CollectionSize int
}

// ImageryQuery is the external imagery-platform collaborator. BestImage
// returns (nil, nil) when the collection has no qualifying image; errors are
// reserved for transport and service failures.
type ImageryQuery interface {
	BestImage(ctx context.Context, q ImageQuery) (*ImageResult, error)
}

// MetricsRecorder receives acquisition pipeline measurements. The
// observability collector implements it; tests use capturing fakes.
type MetricsRecorder interface {
	ObserveAcquisition(tier, outcome string, seconds float64)
	ObserveTileCount(n int)
	ObserveDatasetQuery(dataset, outcome string)
}

// Acquisition outcome labels reported to the metrics recorder.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid_request"
	outcomeNoData  = "no_data"
	outcomeError   = "error"
)

// AcquisitionService composes the geometry helpers, the source selector and
// the tile grid builder, queries the imagery collaborator per candidate
// dataset, and assembles the unified result record. It is safe for
// concurrent use and remains usable after any per-request failure.
type AcquisitionService struct {
	selector *SourceSelector
	grid     *TileGridBuilder
	imagery  ImageryQuery

	log     logging.Logger
	metrics MetricsRecorder
	passes  *PassPredictor

	tileURLTemplate string
	maxParallel     int64
	now             func() time.Time
}

// AcquisitionOption customises an AcquisitionService.
type AcquisitionOption func(*AcquisitionService)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) AcquisitionOption {
	return func(s *AcquisitionService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) AcquisitionOption {
	return func(s *AcquisitionService) { s.metrics = m }
}

// WithTileGrid replaces the default tile grid builder (e.g. to change the
// tile ceiling).
func WithTileGrid(g *TileGridBuilder) AcquisitionOption {
	return func(s *AcquisitionService) {
		if g != nil {
			s.grid = g
		}
	}
}

// WithTileURLTemplate sets the XYZ template rendered into per-tile URLs.
// An empty template disables URL rendering.
func WithTileURLTemplate(template string) AcquisitionOption {
	return func(s *AcquisitionService) { s.tileURLTemplate = template }
}

// WithMaxParallelQueries bounds concurrent per-dataset imagery queries.
func WithMaxParallelQueries(n int) AcquisitionOption {
	return func(s *AcquisitionService) {
		if n > 0 {
			s.maxParallel = int64(n)
		}
	}
}

// WithPassPredictor enables next-pass estimation for datasets that carry a
// TLE.
func WithPassPredictor(p *PassPredictor) AcquisitionOption {
	return func(s *AcquisitionService) { s.passes = p }
}

// WithClock overrides the wall clock; tests use it for deterministic
// timestamps.
func WithClock(now func() time.Time) AcquisitionOption {
	return func(s *AcquisitionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAcquisitionService wires an orchestrator over a selector and an imagery
// collaborator.
func NewAcquisitionService(selector *SourceSelector, imagery ImageryQuery, opts ...AcquisitionOption) *AcquisitionService {
	s := &AcquisitionService{
		selector:        selector,
		grid:            NewTileGridBuilder(),
		imagery:         imagery,
		log:             logging.Noop(),
		tileURLTemplate: DefaultTileURLTemplate,
		maxParallel:     DefaultMaxParallelQueries,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire runs one acquisition: validate, buffer to bbox, select candidate
// datasets, enumerate the tile grid, query each candidate best-effort, and
// assemble the result. All failures are request-scoped.
func (s *AcquisitionService) Acquire(ctx context.Context, req model.AcquisitionRequest) (result *model.AcquisitionResult, err error) {
	start := s.now()
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Acquire",
		trace.WithAttributes(
			attribute.String("tier", string(req.Tier)),
			attribute.Float64("lat", req.Center.Latitude),
			attribute.Float64("lon", req.Center.Longitude),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveAcquisition(string(req.Tier), outcomeFor(err), time.Since(start).Seconds())
		}
	}()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	req = req.Normalize()

	bbox, err := BoundingBoxFromBuffer(req.Center, req.BufferM)
	if err != nil {
		return nil, err
	}

	candidates, err := s.selector.SelectCandidates(ctx, req.Tier, req.Center)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: tier %s at (%g, %g)",
			ErrNoEligibleDataset, req.Tier, req.Center.Latitude, req.Center.Longitude)
	}

	tiles, err := s.grid.TilesCovering(bbox, req.Zoom)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveTileCount(len(tiles))
	}

	images := s.queryCandidates(ctx, candidates, bbox, req)
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: %d candidates queried", ErrNoImageryAvailable, len(candidates))
	}

	info := model.TileInfo{
		Zoom:  req.Zoom,
		BBox:  bbox,
		Count: len(tiles),
		Tiles: tiles,
	}
	if s.tileURLTemplate != "" {
		info.URLs = make([]string, len(tiles))
		for i, t := range tiles {
			info.URLs[i] = t.URL(s.tileURLTemplate)
		}
	}

	s.log.Info(ctx, "acquisition complete",
		logging.String("tier", string(req.Tier)),
		logging.Float64("lat", req.Center.Latitude),
		logging.Float64("lon", req.Center.Longitude),
		logging.Int("tiles", len(tiles)),
		logging.Int("datasets", len(images)),
	)

	return &model.AcquisitionResult{
		Timestamp: start.UTC(),
		Location:  req.Center,
		Tier:      req.Tier,
		BufferM:   req.BufferM,
		Zoom:      req.Zoom,
		Dates:     req.Dates,
		TileInfo:  info,
		Datasets:  images,
	}, nil
}

// queryCandidates issues per-dataset imagery queries with bounded
// parallelism. Queries are independent: one dataset failing or returning
// nothing never cancels its siblings, it is simply omitted from the result.
// The returned slice keeps the candidates' priority order.
func (s *AcquisitionService) queryCandidates(ctx context.Context, candidates []model.DatasetDescriptor, bbox model.BoundingBox, req model.AcquisitionRequest) []model.DatasetImage {
	tracer := otel.Tracer(tracerName)
	sem := semaphore.NewWeighted(s.maxParallel)
	results := make([]*model.DatasetImage, len(candidates))

	var wg sync.WaitGroup
	for i, d := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; whatever finished so far still counts.
			break
		}
		wg.Add(1)
		go func(i int, d model.DatasetDescriptor) {
			defer wg.Done()
			defer sem.Release(1)

			qctx, span := tracer.Start(ctx, "QueryDataset",
				trace.WithAttributes(attribute.String("dataset", d.Name)))
			defer span.End()

			results[i] = s.queryDataset(qctx, d, bbox, req)
		}(i, d)
	}
	wg.Wait()

	images := make([]model.DatasetImage, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			images = append(images, *r)
		}
	}
	return images
}

func (s *AcquisitionService) queryDataset(ctx context.Context, d model.DatasetDescriptor, bbox model.BoundingBox, req model.AcquisitionRequest) *model.DatasetImage {
	dates := req.Dates
	if d.AcquisitionWindow != nil {
		// Sources with pinned flight windows (NAIP) ignore the request range.
		dates = *d.AcquisitionWindow
	}

	res, err := s.imagery.BestImage(ctx, ImageQuery{
		CollectionID:     d.CollectionID,
		BBox:             bbox,
		Dates:            dates,
		MaxCloudCoverPct: d.MaxCloudCoverPct,
	})
	if err != nil {
		s.observeQuery(d.Name, outcomeQueryError)
		s.log.Warn(ctx, "dataset query failed; omitting from result",
			logging.String("dataset", d.Name),
			logging.Err(err),
		)
		return nil
	}
	if res == nil {
		s.observeQuery(d.Name, outcomeQueryMiss)
		return nil
	}
	s.observeQuery(d.Name, outcomeQueryHit)

	img := &model.DatasetImage{
		Dataset:         d.Name,
		ImageRef:        res.Ref,
		ResolutionLabel: d.ResolutionLabel(),
		AcquiredAt:      res.AcquiredAt,
		CloudCoverPct:   res.CloudCoverPct,
		CollectionSize:  res.CollectionSize,
	}

	if s.passes != nil && d.TLELine1 != "" && d.TLELine2 != "" {
		if at, ok := s.passes.NextPass(d.TLELine1, d.TLELine2, req.Center, s.now().UTC()); ok {
			img.NextPass = &at
		}
	}
	return img
}

const (
	outcomeQueryHit   = "hit"
	outcomeQueryMiss  = "miss"
	outcomeQueryError = "error"
)

func (s *AcquisitionService) observeQuery(dataset, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveDatasetQuery(dataset, outcome)
	}
}

// validateRequest rejects malformed requests before any collaborator is
// touched; a rejected request performs no network interaction at all.
func validateRequest(req model.AcquisitionRequest) error {
	if !req.Tier.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidTier, req.Tier)
	}
	if !req.Center.Valid() {
		return fmt.Errorf("%w: coordinate (%g, %g) outside WGS84 bounds",
			ErrInvalidGeometry, req.Center.Latitude, req.Center.Longitude)
	}
	if req.BufferM <= 0 {
		return fmt.Errorf("%w: buffer %gm must be positive", ErrInvalidGeometry, req.BufferM)
	}
	if req.Zoom < MinZoom || req.Zoom > MaxZoom {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidZoom, req.Zoom, MinZoom, MaxZoom)
	}
	if !req.Dates.Valid() {
		return fmt.Errorf("%w: start %v, end %v", ErrInvalidDateRange, req.Dates.Start, req.Dates.End)
	}
	return nil
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case isInvalidRequest(err):
		return outcomeInvalid
	case isNoData(err):
		return outcomeNoData
	default:
		return outcomeError
	}
}

func isInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidGeometry) ||
		errors.Is(err, ErrInvalidZoom) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrTileCountExceeded) ||
		errors.Is(err, catalog.ErrInvalidTier)
}

func isNoData(err error) bool {
	return errors.Is(err, ErrNoEligibleDataset) || errors.Is(err, ErrNoImageryAvailable)
}
