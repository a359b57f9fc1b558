package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Woomou/anysiteonearth-backend/catalog"
	"github.com/Woomou/anysiteonearth-backend/core"
	"github.com/Woomou/anysiteonearth-backend/internal/imagery"
	"github.com/Woomou/anysiteonearth-backend/internal/logging"
	"github.com/Woomou/anysiteonearth-backend/internal/regions"
	"github.com/Woomou/anysiteonearth-backend/model"
)

const dateLayout = "2006-01-02"

func main() {
	lat := flag.Float64("lat", 37.7749, "target latitude in decimal degrees")
	lon := flag.Float64("lon", -122.4194, "target longitude in decimal degrees")
	tier := flag.String("tier", string(model.TierUltraHighRes), "resolution tier: standard, high_res or ultra_high_res")
	buffer := flag.Float64("buffer", 25, "half-width of the area of interest in metres")
	zoom := flag.Int("zoom", 20, "slippy-map zoom level")
	start := flag.String("start", "", "start of the date range (YYYY-MM-DD, default one year ago)")
	end := flag.String("end", "", "end of the date range (YYYY-MM-DD, default today)")
	catalogPath := flag.String("catalog", "", "path to a JSON dataset catalog (built-in catalog when empty)")
	imageryEndpoint := flag.String("imagery-endpoint", "", "base URL of the imagery platform")
	offline := flag.Bool("offline", false, "answer imagery queries from the deterministic stub")
	maxTiles := flag.Int("max-tiles", core.DefaultMaxTiles, "tile grid ceiling")
	tileURL := flag.String("tile-url", core.DefaultTileURLTemplate, "XYZ tile URL template")
	output := flag.String("output", ".", "directory to write the result JSON under")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	dates, err := parseDates(*start, *end)
	if err != nil {
		fatal(ctx, log, "invalid date range", err)
	}

	cat := catalog.Default()
	if *catalogPath != "" {
		f, err := os.Open(*catalogPath)
		if err != nil {
			fatal(ctx, log, "failed to open catalog", err)
		}
		cat, err = catalog.Load(f)
		f.Close()
		if err != nil {
			fatal(ctx, log, "failed to parse catalog", err)
		}
	}

	var client core.ImageryQuery
	switch {
	case *offline || *imageryEndpoint == "":
		client = imagery.NewStub()
		log.Info(ctx, "using deterministic stub imagery")
	default:
		client = imagery.NewClient(*imageryEndpoint, 30*time.Second)
	}

	selector := core.NewSourceSelector(cat, regions.DefaultIndex(), log)
	service := core.NewAcquisitionService(selector, client,
		core.WithLogger(log),
		core.WithTileGrid(&core.TileGridBuilder{MaxTiles: *maxTiles}),
		core.WithTileURLTemplate(*tileURL),
		core.WithPassPredictor(core.NewPassPredictor()),
	)

	res, err := service.Acquire(ctx, model.AcquisitionRequest{
		Center:  model.Coordinate{Latitude: *lat, Longitude: *lon},
		Tier:    model.ResolutionTier(*tier),
		BufferM: *buffer,
		Zoom:    *zoom,
		Dates:   dates,
	})
	if err != nil {
		fatal(ctx, log, "acquisition failed", err)
	}

	path, err := writeResult(*output, res)
	if err != nil {
		fatal(ctx, log, "failed to write result", err)
	}

	fmt.Printf("Acquired %d dataset(s) over (%.4f, %.4f) at tier %s: %d tiles at zoom %d\n",
		len(res.Datasets), res.Location.Latitude, res.Location.Longitude, res.Tier, res.TileInfo.Count, res.Zoom)
	for _, d := range res.Datasets {
		line := fmt.Sprintf("  %-22s %-10s cloud=%5.1f%%  %s", d.Dataset, d.ResolutionLabel, d.CloudCoverPct, d.ImageRef)
		if d.NextPass != nil {
			line += fmt.Sprintf("  next pass %s", d.NextPass.Format(time.RFC3339))
		}
		fmt.Println(line)
	}
	fmt.Printf("Result written to %s\n", path)
}

func parseDates(start, end string) (model.DateRange, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	dates := model.DateRange{Start: now.AddDate(-1, 0, 0), End: now}

	var err error
	if start != "" {
		if dates.Start, err = time.Parse(dateLayout, start); err != nil {
			return model.DateRange{}, fmt.Errorf("start date: %w", err)
		}
	}
	if end != "" {
		if dates.End, err = time.Parse(dateLayout, end); err != nil {
			return model.DateRange{}, fmt.Errorf("end date: %w", err)
		}
	}
	return dates, nil
}

func writeResult(dir string, res *model.AcquisitionResult) (string, error) {
	outDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("acquisition_%s_%s.json", res.Tier, res.Timestamp.Format("20060102T150405Z"))
	path := filepath.Join(outDir, name)

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func fatal(ctx context.Context, log logging.Logger, msg string, err error) {
	log.Error(ctx, msg, logging.Err(err))
	os.Exit(1)
}
