// Package sheet derives sprite-sheet grid geometry and the animation frame
// sequence that walks it.
//
// # Grid
//
// [DeriveGrid] divides a reference image's pixel size by the cell size.
// [Geometry] holds that result lazily: it is unset until the first
// composite completes and, once set, later calls to [Geometry.Observe] are
// ignored so the animation stays stable while new layers are added.
//
// # Sequence
//
// [BuildSequence] is not a raster scan. Every row is swept forward and then
// back again, dropping the repeated last cell, before moving to the next row:
//
//	row r: (0,-r) (-1,-r) … (-(c-1),-r) … (-1,-r) (0,-r)
//
// The sequence for c columns and r rows therefore has r·(2c−1) frames.
// Consecutive rows are not chained: playback jumps from the end of row r to
// the start of row r+1.
package sheet
