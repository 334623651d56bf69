package sheet

import (
	"image"
	"sync"
)

// Grid is the number of columns and rows of a sprite sheet.
type Grid struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// Empty reports whether the grid has no cells.
func (g Grid) Empty() bool {
	return g.Columns <= 0 || g.Rows <= 0
}

// Len returns the length of the frame sequence for the grid.
func (g Grid) Len() int {
	if g.Empty() {
		return 0
	}
	return g.Rows * (2*g.Columns - 1)
}

// DeriveGrid divides the sheet dimensions by cellSize, truncating partial
// cells. A non-positive cellSize yields the empty grid.
func DeriveGrid(sheetWidth, sheetHeight, cellSize int) Grid {
	if cellSize <= 0 {
		return Grid{}
	}
	return Grid{
		Columns: sheetWidth / cellSize,
		Rows:    sheetHeight / cellSize,
	}
}

// Geometry is the lazily derived grid of the loaded sprite set.
// The zero value is unset and ready to use.
type Geometry struct {
	mu       sync.RWMutex
	grid     Grid
	derived  bool
	cellSize int
}

// NewGeometry returns unset geometry for the given cell size.
func NewGeometry(cellSize int) *Geometry {
	return &Geometry{cellSize: cellSize}
}

// Observe derives the grid from a reference image size if it has not been
// derived yet. It reports whether this call set the grid.
func (g *Geometry) Observe(size image.Point) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.derived {
		return false
	}
	g.grid = DeriveGrid(size.X, size.Y, g.cellSize)
	g.derived = true
	return true
}

// Grid returns the derived grid and whether it has been derived.
func (g *Geometry) Grid() (Grid, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.grid, g.derived
}

// CellSize returns the configured cell size.
func (g *Geometry) CellSize() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cellSize
}

// Reset sets a new cell size and clears the derived grid, so the next
// Observe derives it again.
func (g *Geometry) Reset(cellSize int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cellSize = cellSize
	g.grid = Grid{}
	g.derived = false
}
