package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dataset query outcomes recorded by the acquisition pipeline.
const (
	QueryOutcomeHit   = "hit"
	QueryOutcomeMiss  = "miss"
	QueryOutcomeError = "error"
)

// AcquisitionCollector bundles the Prometheus metrics for the acquisition
// pipeline and exposes a /metrics handler. It satisfies the orchestrator's
// metrics recorder interface.
type AcquisitionCollector struct {
	gatherer prometheus.Gatherer

	Acquisitions   *prometheus.CounterVec
	Durations      *prometheus.HistogramVec
	TilesPerGrid   prometheus.Histogram
	DatasetQueries *prometheus.CounterVec
}

// NewAcquisitionCollector registers the acquisition metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewAcquisitionCollector(reg prometheus.Registerer) (*AcquisitionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	acquisitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acquisitions_total",
		Help: "Completed acquisition requests, labeled by resolution tier and outcome.",
	}, []string{"tier", "outcome"})
	acquisitions, err := registerCounterVec(reg, acquisitions, "acquisitions_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "acquisition_duration_seconds",
		Help:    "End-to-end acquisition latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tier"})
	durations, err = registerHistogramVec(reg, durations, "acquisition_duration_seconds")
	if err != nil {
		return nil, err
	}

	tiles := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "acquisition_tiles",
		Help:    "Number of tiles enumerated per acquisition.",
		Buckets: []float64{1, 4, 16, 64, 256, 1024, 4096},
	})
	tiles, err = registerHistogram(reg, tiles, "acquisition_tiles")
	if err != nil {
		return nil, err
	}

	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_queries_total",
		Help: "Per-dataset imagery queries, labeled by dataset name and outcome (hit, miss, error).",
	}, []string{"dataset", "outcome"})
	queries, err = registerCounterVec(reg, queries, "dataset_queries_total")
	if err != nil {
		return nil, err
	}

	return &AcquisitionCollector{
		gatherer:       gatherer,
		Acquisitions:   acquisitions,
		Durations:      durations,
		TilesPerGrid:   tiles,
		DatasetQueries: queries,
	}, nil
}

// ObserveAcquisition records one finished acquisition attempt.
func (c *AcquisitionCollector) ObserveAcquisition(tier, outcome string, seconds float64) {
	if c == nil {
		return
	}
	if c.Acquisitions != nil {
		c.Acquisitions.WithLabelValues(tier, outcome).Inc()
	}
	if c.Durations != nil {
		c.Durations.WithLabelValues(tier).Observe(seconds)
	}
}

// ObserveTileCount records the size of one enumerated tile grid.
func (c *AcquisitionCollector) ObserveTileCount(n int) {
	if c == nil || c.TilesPerGrid == nil {
		return
	}
	c.TilesPerGrid.Observe(float64(n))
}

// ObserveDatasetQuery records the outcome of one per-dataset imagery query.
func (c *AcquisitionCollector) ObserveDatasetQuery(dataset, outcome string) {
	if c == nil || c.DatasetQueries == nil {
		return
	}
	c.DatasetQueries.WithLabelValues(dataset, outcome).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *AcquisitionCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
