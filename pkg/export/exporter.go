package export

import (
	"bytes"
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spritestack/pkg/compose"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// Artifact is an encoded export.
type Artifact struct {
	Name   string `json:"name"`
	Format Format `json:"format"`
	Data   []byte `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Skipped lists layers that failed to decode and were left out.
	Skipped []string `json:"skipped,omitempty"`
}

// Exporter composites and encodes sprites.
type Exporter struct {
	compositor *compose.Compositor
	logger     *log.Logger
}

// NewExporter creates an exporter painting with c. A nil logger discards.
func NewExporter(c *compose.Compositor, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Exporter{compositor: c, logger: logger}
}

// Export composites the visible layers of layers, in order, and encodes the
// surface. Layers with Show unset are ignored.
func (e *Exporter) Export(ctx context.Context, layers []sprite.Layer, name string, f Format) (*Artifact, error) {
	res, err := e.compositor.Render(ctx, Active(layers))
	if err != nil {
		return nil, err
	}
	return e.Encode(res, name, f)
}

// Encode serializes a finished composite.
func (e *Exporter) Encode(res *compose.Result, name string, f Format) (*Artifact, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, res.Image, f); err != nil {
		return nil, err
	}
	size := res.Size()
	art := &Artifact{
		Name:   FileName(name, f),
		Format: f,
		Data:   buf.Bytes(),
		Width:  size.X,
		Height: size.Y,
	}
	for _, fail := range res.Failed {
		art.Skipped = append(art.Skipped, fail.Layer)
	}
	e.logger.Debug("encoded export", "name", art.Name, "bytes", len(art.Data), "layers", res.Drawn)
	return art, nil
}

// Active filters layers down to the visible ones, preserving order.
func Active(layers []sprite.Layer) []sprite.Layer {
	out := make([]sprite.Layer, 0, len(layers))
	for _, l := range layers {
		if l.Show {
			out = append(out, l)
		}
	}
	return out
}
