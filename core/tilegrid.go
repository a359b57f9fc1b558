package core

import (
	"fmt"

	"github.com/Woomou/anysiteonearth-backend/model"
)

// DefaultMaxTiles bounds the grid a single acquisition may enumerate. A
// 64x64 grid is far beyond any tier profile; hitting it means the caller
// asked for a pathological bbox/zoom combination.
const DefaultMaxTiles = 4096

// TileGridBuilder partitions bounding boxes into slippy-map tile grids.
type TileGridBuilder struct {
	// MaxTiles rejects grids larger than this; zero falls back to
	// DefaultMaxTiles.
	MaxTiles int
}

// NewTileGridBuilder returns a builder with the default tile ceiling.
func NewTileGridBuilder() *TileGridBuilder {
	return &TileGridBuilder{MaxTiles: DefaultMaxTiles}
}

// TilesCovering enumerates every tile at the given zoom that intersects the
// bounding box. Tile indices for all four corners are computed and the
// inclusive rectangle between the min and max corner indices is walked in
// row-major order: y ascending, then x ascending. That ordering is part of
// the contract; consumers compare and diff grids relying on it.
func (g *TileGridBuilder) TilesCovering(bbox model.BoundingBox, zoom int) ([]model.TileCoordinate, error) {
	if bbox.Degenerate() {
		return nil, fmt.Errorf("%w: degenerate bounding box", ErrInvalidGeometry)
	}

	corners := []model.Coordinate{
		{Latitude: bbox.MinLat, Longitude: bbox.MinLon},
		{Latitude: bbox.MinLat, Longitude: bbox.MaxLon},
		{Latitude: bbox.MaxLat, Longitude: bbox.MinLon},
		{Latitude: bbox.MaxLat, Longitude: bbox.MaxLon},
	}

	var minX, maxX, minY, maxY int
	for i, corner := range corners {
		tile, err := TileIndexForPoint(corner, zoom)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			minX, maxX = tile.X, tile.X
			minY, maxY = tile.Y, tile.Y
			continue
		}
		if tile.X < minX {
			minX = tile.X
		}
		if tile.X > maxX {
			maxX = tile.X
		}
		if tile.Y < minY {
			minY = tile.Y
		}
		if tile.Y > maxY {
			maxY = tile.Y
		}
	}

	maxTiles := g.MaxTiles
	if maxTiles <= 0 {
		maxTiles = DefaultMaxTiles
	}
	count := (maxX - minX + 1) * (maxY - minY + 1)
	if count > maxTiles {
		return nil, fmt.Errorf("%w: %d tiles at zoom %d (max %d)", ErrTileCountExceeded, count, zoom, maxTiles)
	}

	tiles := make([]model.TileCoordinate, 0, count)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			tiles = append(tiles, model.TileCoordinate{Zoom: zoom, X: x, Y: y})
		}
	}
	return tiles, nil
}
