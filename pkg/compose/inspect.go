package compose

import (
	"context"
	"image"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/spritestack/pkg/sprite"
)

// LayerInfo summarizes a layer for listings.
type LayerInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Show     bool   `json:"show"`
	Hash     string `json:"hash"`
	Format   string `json:"format,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`

	// Swatch is the dominant color as "#rrggbb".
	Swatch string `json:"swatch,omitempty"`

	// Error is set when the layer cannot be decoded.
	Error string `json:"error,omitempty"`
}

// Inspect describes each layer in order. Undecodable layers are reported
// with Error set rather than failing the listing.
func (c *Compositor) Inspect(ctx context.Context, layers []sprite.Layer) []LayerInfo {
	out := make([]LayerInfo, len(layers))
	for i, l := range layers {
		info := LayerInfo{
			Name:     l.Name,
			Category: l.Category,
			Show:     l.Show,
			Hash:     l.Hash,
		}
		if cfg, format, err := DecodeConfig(l); err == nil {
			info.Format = format
			info.Width = cfg.Width
			info.Height = cfg.Height
		}
		img, err := c.decode(ctx, l)
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Swatch = swatch(img)
		}
		out[i] = info
	}
	return out
}

// swatch returns the heaviest dominant color as hex, or "" for images with
// no opaque pixels.
func swatch(img image.Image) string {
	candidates := dominantcolor.FindWeight(img, 1)
	if len(candidates) == 0 {
		return ""
	}
	col, ok := colorful.MakeColor(candidates[0].RGBA)
	if !ok {
		return ""
	}
	return col.Clamped().Hex()
}
