// Package canvas implements the tiled raster store behind the shared canvas.
//
// The canvas is a square grid of RowLength × RowLength tiles. Each tile is a
// TileSize × TileSize non-premultiplied RGBA raster, addressed row-major:
//
//	index = row*RowLength + col
//
// Alongside the tiles the store keeps an overview mosaic: one
// OverviewTileSize × OverviewTileSize region per tile, placed at
// (col*OverviewTileSize, row*OverviewTileSize), each holding a downsampled
// copy of its tile.
//
// # Cached Encodings
//
// Every tile and the mosaic are kept pre-encoded as PNG. A successful
// UpdatePixel rewrites the pixel, re-derives the tile's mosaic region and
// re-encodes both the tile and the whole mosaic before returning, so a reader
// never sees bytes that disagree with the raster.
//
// # Resampling
//
// The mosaic region is a Gaussian-weighted average of the tile (sigma 0.5,
// support 3, widened by the scale factor) written with the Src operator. The mosaic bytes are part of the observable output, so the
// resampler is fixed; changing it changes every encoded overview.
//
// # Concurrency
//
// Store is not safe for concurrent mutation. Callers serialize UpdatePixel;
// FetchTile and FetchOverview return immutable snapshots and may run
// alongside each other.
package canvas
