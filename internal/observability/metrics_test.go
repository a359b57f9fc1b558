package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveAcquisitionRecordsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}

	collector.ObserveAcquisition("ultra_high_res", "ok", 0.42)
	collector.ObserveAcquisition("ultra_high_res", "ok", 0.08)
	collector.ObserveAcquisition("standard", "no_data", 0.01)

	if got := testutil.ToFloat64(collector.Acquisitions.WithLabelValues("ultra_high_res", "ok")); got != 2 {
		t.Fatalf("acquisitions_total{ultra_high_res,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Acquisitions.WithLabelValues("standard", "no_data")); got != 1 {
		t.Fatalf("acquisitions_total{standard,no_data} = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "acquisition_duration_seconds", map[string]string{"tier": "ultra_high_res"}); count != 2 {
		t.Fatalf("acquisition_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestObserveTileCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}

	collector.ObserveTileCount(16)
	collector.ObserveTileCount(64)

	if count := histogramSampleCount(t, reg, "acquisition_tiles", nil); count != 2 {
		t.Fatalf("acquisition_tiles sample_count = %d, want 2", count)
	}
}

func TestObserveDatasetQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}

	collector.ObserveDatasetQuery("naip", QueryOutcomeHit)
	collector.ObserveDatasetQuery("naip", QueryOutcomeHit)
	collector.ObserveDatasetQuery("sentinel", QueryOutcomeMiss)
	collector.ObserveDatasetQuery("landsat", QueryOutcomeError)

	if got := testutil.ToFloat64(collector.DatasetQueries.WithLabelValues("naip", "hit")); got != 2 {
		t.Fatalf("dataset_queries_total{naip,hit} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.DatasetQueries.WithLabelValues("landsat", "error")); got != 1 {
		t.Fatalf("dataset_queries_total{landsat,error} = %v, want 1", got)
	}
}

func TestDuplicateRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("first NewAcquisitionCollector: %v", err)
	}
	second, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("second NewAcquisitionCollector: %v", err)
	}

	first.ObserveDatasetQuery("naip", QueryOutcomeHit)
	second.ObserveDatasetQuery("naip", QueryOutcomeHit)

	if got := testutil.ToFloat64(first.DatasetQueries.WithLabelValues("naip", "hit")); got != 2 {
		t.Fatalf("collectors not shared across registrations: %v, want 2", got)
	}
}

func TestMetricsHandlerExposesAcquisitionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewAcquisitionCollector(reg)
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}
	collector.ObserveAcquisition("standard", "ok", 0.2)
	collector.ObserveTileCount(9)
	collector.ObserveDatasetQuery("sentinel", QueryOutcomeHit)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"acquisitions_total",
		"acquisition_duration_seconds",
		"acquisition_tiles",
		"dataset_queries_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
