package sprite

// Frame is a cell offset into a sprite sheet. Both components are ≤ 0.
type Frame struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pixels returns the frame as a pixel offset for cells of the given size.
func (f Frame) Pixels(cellSize int) (x, y int) {
	return f.X * cellSize, f.Y * cellSize
}

// Cell returns the zero-based column and row the frame reveals.
func (f Frame) Cell() (col, row int) {
	return -f.X, -f.Y
}
