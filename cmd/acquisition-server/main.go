package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Woomou/anysiteonearth-backend/catalog"
	"github.com/Woomou/anysiteonearth-backend/core"
	"github.com/Woomou/anysiteonearth-backend/internal/api"
	"github.com/Woomou/anysiteonearth-backend/internal/imagery"
	"github.com/Woomou/anysiteonearth-backend/internal/logging"
	"github.com/Woomou/anysiteonearth-backend/internal/observability"
	"github.com/Woomou/anysiteonearth-backend/internal/regions"
	"github.com/Woomou/anysiteonearth-backend/internal/store"
)

func main() {
	httpAddr := flag.String("http-addr", ":8080", "TCP address the acquisition HTTP API listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	catalogPath := flag.String("catalog", "", "Path to a JSON dataset catalog (built-in catalog when empty)")
	imageryEndpoint := flag.String("imagery-endpoint", "", "Base URL of the imagery platform (offline stub when empty)")
	overpassEndpoint := flag.String("overpass-endpoint", "", "Overpass API endpoint for region lookups (static index when empty)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN for result persistence (disabled when empty)")
	tileURL := flag.String("tile-url", core.DefaultTileURLTemplate, "XYZ tile URL template")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewAcquisitionCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	cat, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Error(ctx, "failed to load catalog", logging.String("path", *catalogPath), logging.Err(err))
		os.Exit(1)
	}

	var lookup core.RegionLookup = regions.DefaultIndex()
	if *overpassEndpoint != "" {
		lookup = regions.NewOverpassLookup(*overpassEndpoint, 15*time.Second)
		log.Info(ctx, "using Overpass region lookup", logging.String("endpoint", *overpassEndpoint))
	}

	var client core.ImageryQuery = imagery.NewStub()
	if *imageryEndpoint != "" {
		client = imagery.NewClient(*imageryEndpoint, 30*time.Second)
		log.Info(ctx, "using remote imagery platform", logging.String("endpoint", *imageryEndpoint))
	} else {
		log.Warn(ctx, "no imagery endpoint configured; serving deterministic stub imagery")
	}

	selector := core.NewSourceSelector(cat, lookup, log)
	service := core.NewAcquisitionService(selector, client,
		core.WithLogger(log),
		core.WithMetrics(collector),
		core.WithTileURLTemplate(*tileURL),
		core.WithPassPredictor(core.NewPassPredictor()),
	)

	var saver api.ResultSaver
	if *postgresDSN != "" {
		pg, err := store.NewPostgresStore(*postgresDSN)
		if err != nil {
			log.Error(ctx, "failed to connect to postgres", logging.Err(err))
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error(ctx, "failed to ensure schema", logging.Err(err))
			os.Exit(1)
		}
		saver = pg
		log.Info(ctx, "result persistence enabled")
	}

	mux := http.NewServeMux()
	api.NewAcquisitionHandler(service, saver, log).Routes(mux)

	srv := &http.Server{
		Addr:              *httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info(ctx, "starting acquisition server", logging.String("addr", *httpAddr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server exited", logging.Err(err))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down acquisition server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.Load(f)
}

func serveMetrics(addr string, collector *observability.AcquisitionCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
