package core

import "errors"

// Request-scoped failure taxonomy. Everything here is reported to the caller
// and never crashes the process; Invalid* means the request shape is wrong,
// the No* pair means the request was fine but no data exists for it.
var (
	// ErrInvalidGeometry marks malformed coordinates, non-positive buffers,
	// and polar centers where the longitude scaling degenerates.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidZoom marks zoom levels outside the supported range.
	ErrInvalidZoom = errors.New("invalid zoom level")

	// ErrInvalidDateRange marks empty or inverted acquisition windows.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrTileCountExceeded marks bbox/zoom combinations that would enumerate
	// more tiles than the configured maximum. The grid is never silently
	// truncated; the caller should reduce the buffer or the zoom.
	ErrTileCountExceeded = errors.New("tile count exceeds configured maximum")

	// ErrNoEligibleDataset means every source for the tier is region
	// restricted and none covers the requested location.
	ErrNoEligibleDataset = errors.New("no eligible dataset for location")

	// ErrNoImageryAvailable means all candidate datasets were queried and
	// none returned a qualifying image.
	ErrNoImageryAvailable = errors.New("no qualifying imagery available")
)
