package compose

import (
	"context"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/spritestack/pkg/cache"
	"github.com/matzehuels/spritestack/pkg/observability"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// DefaultSize is the surface size used for an empty composite before any
// layer has been drawn.
var DefaultSize = image.Pt(300, 150)

// Options configures a Compositor.
type Options struct {
	// Decode replaces the default decoder. Decoded images are memoized by
	// layer hash unless NoMemo is set.
	Decode DecodeFunc
	NoMemo bool

	// Concurrency bounds parallel decodes. Zero means unbounded.
	Concurrency int

	Logger *log.Logger
}

// Compositor decodes and paints layers. It is safe for concurrent use.
type Compositor struct {
	decode      DecodeFunc
	memo        *memo
	concurrency int
	logger      *log.Logger

	latest atomic.Uint64

	mu       sync.Mutex
	lastSize image.Point
}

// New creates a Compositor.
func New(opts Options) *Compositor {
	c := &Compositor{
		decode:      opts.Decode,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		lastSize:    DefaultSize,
	}
	if c.decode == nil {
		c.decode = Decode
	}
	if !opts.NoMemo {
		c.memo = newMemo(cache.TTLDecode)
		c.decode = c.memo.wrap(c.decode)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// DecodeError records a layer skipped because its data could not be decoded.
type DecodeError struct {
	Layer string
	Err   error
}

func (e DecodeError) Error() string { return e.Err.Error() }

// Result is a finished composite.
type Result struct {
	ID    uint64
	Image *image.NRGBA

	// Drawn is the number of layers painted. Failed lists skipped layers.
	Drawn  int
	Failed []DecodeError

	// Reference is the size of the first successfully decoded layer in paint
	// order; HasReference is false when nothing was decoded.
	Reference    image.Point
	HasReference bool

	// Stale is set when a newer composite started before this one finished.
	Stale bool
}

// Size returns the surface dimensions.
func (r *Result) Size() image.Point {
	return r.Image.Bounds().Size()
}

// Composite decodes every layer, then paints them in order onto a cleared
// surface. Decode failures are skipped. The only error returned is ctx's.
//
// Each call takes a new request id; the result is marked Stale when another
// Composite started before it finished.
func (c *Compositor) Composite(ctx context.Context, layers []sprite.Layer) (*Result, error) {
	return c.composite(ctx, layers, c.latest.Add(1))
}

// Render composites like Composite but takes no request id, so it never
// marks a running Composite stale and is never stale itself. Exports use it.
func (c *Compositor) Render(ctx context.Context, layers []sprite.Layer) (*Result, error) {
	return c.composite(ctx, layers, 0)
}

// composite paints layers for request id; id 0 is untracked.
func (c *Compositor) composite(ctx context.Context, layers []sprite.Layer, id uint64) (*Result, error) {
	start := time.Now()
	observability.Compose().OnCompositeStart(ctx, id, len(layers))

	images := make([]image.Image, len(layers))
	errs := make([]error, len(layers))

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, l := range layers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := c.decode(gctx, l)
			if err != nil {
				errs[i] = err
				return nil
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{ID: id}
	for i, err := range errs {
		if err == nil {
			continue
		}
		res.Failed = append(res.Failed, DecodeError{Layer: layers[i].Name, Err: err})
		c.logger.Warn("skipping layer", "layer", layers[i].Name, "err", err)
		observability.Compose().OnDecodeFailure(ctx, id, layers[i].Name, err)
	}

	size := surfaceSize(images)
	c.mu.Lock()
	if size == (image.Point{}) {
		size = c.lastSize
	} else {
		c.lastSize = size
	}
	c.mu.Unlock()

	res.Image = image.NewNRGBA(image.Rectangle{Max: size})
	for _, img := range images {
		if img == nil {
			continue
		}
		if !res.HasReference {
			res.Reference = img.Bounds().Size()
			res.HasReference = true
		}
		b := img.Bounds()
		draw.Draw(res.Image, image.Rectangle{Max: b.Size()}, img, b.Min, draw.Over)
		res.Drawn++
	}

	res.Stale = id != 0 && c.latest.Load() != id
	if res.Stale {
		c.logger.Debug("discarding stale composite", "id", id, "latest", c.latest.Load())
	}
	observability.Compose().OnCompositeComplete(ctx, id, res.Drawn, time.Since(start), res.Stale)
	return res, nil
}

// IsLatest reports whether id belongs to the most recently started composite.
func (c *Compositor) IsLatest(id uint64) bool {
	return c.latest.Load() == id
}

// LastSize returns the size of the most recent non-empty surface, or
// DefaultSize.
func (c *Compositor) LastSize() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSize
}

// SetLastSize overrides the fallback size for empty composites.
func (c *Compositor) SetLastSize(size image.Point) {
	if size.X <= 0 || size.Y <= 0 {
		return
	}
	c.mu.Lock()
	c.lastSize = size
	c.mu.Unlock()
}

// surfaceSize is the union of image sizes with each image anchored at the
// origin.
func surfaceSize(images []image.Image) image.Point {
	var size image.Point
	for _, img := range images {
		if img == nil {
			continue
		}
		s := img.Bounds().Size()
		size.X = max(size.X, s.X)
		size.Y = max(size.Y, s.Y)
	}
	return size
}
