package compose

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/matzehuels/spritestack/pkg/sprite"
)

// Cell crops the cell revealed by f from a sprite sheet surface. Pixels
// outside src are transparent.
func Cell(src image.Image, f sprite.Frame, cellSize int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, cellSize, cellSize))
	if cellSize <= 0 {
		return dst
	}
	x, y := f.Pixels(cellSize)
	sp := src.Bounds().Min.Sub(image.Pt(x, y))
	draw.Draw(dst, dst.Bounds(), src, sp, draw.Src)
	return dst
}

// Scale enlarges src by an integer factor with nearest-neighbour sampling,
// keeping pixel-art edges sharp. factor ≤ 1 returns a copy.
func Scale(src image.Image, factor int) *image.NRGBA {
	factor = max(factor, 1)
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
