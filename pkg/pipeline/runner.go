package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spritestack/pkg/cache"
	"github.com/matzehuels/spritestack/pkg/compose"
	"github.com/matzehuels/spritestack/pkg/export"
	"github.com/matzehuels/spritestack/pkg/layers"
	"github.com/matzehuels/spritestack/pkg/observability"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// Runner encapsulates export execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, compositor and logger - it
// doesn't store export results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Compositor *compose.Compositor
	Logger     *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If compositor is nil, a default one is created.
func NewRunner(c cache.Cache, keyer cache.Keyer, compositor *compose.Compositor, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	if compositor == nil {
		compositor = compose.New(compose.Options{Logger: logger})
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Compositor: compositor,
		Logger:     logger,
	}
}

// Export composites the visible layers in order and encodes them, serving
// from the cache when the same stack was exported before.
func (r *Runner) Export(ctx context.Context, layers []sprite.Layer, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	if opts.Randomize {
		layers = randomized(layers, opts)
		opts.Logger.Debug("randomized layers", "seed", opts.Seed)
	}

	start := time.Now()
	res, err := r.export(ctx, export.Active(layers), opts)
	size := 0
	cached := false
	if res != nil {
		res.Duration = time.Since(start)
		size = len(res.Artifact.Data)
		cached = res.Cached
	}
	observability.Export().OnExport(ctx, opts.Format, size, cached, time.Since(start), err)
	return res, err
}

// randomized returns a copy of ls with visibility resampled from opts.Seed.
// The caller's slice is left untouched.
func randomized(ls []sprite.Layer, opts Options) []sprite.Layer {
	st := layers.NewStore(ls...)
	st.Randomize(opts.Categories, opts.Source())
	return st.All()
}

func (r *Runner) export(ctx context.Context, active []sprite.Layer, opts Options) (*Result, error) {
	format := opts.ExportFormat()
	var fallback image.Point
	if len(active) == 0 {
		fallback = r.Compositor.LastSize()
	}
	key := r.Keyer.ExportKey(sprite.Hashes(active), opts.ExportKeyOpts(fallback.X, fallback.Y))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				opts.Logger.Debug("export cache hit", "key", key)
				return &Result{
					Artifact: &export.Artifact{
						Name:   export.FileName(opts.Name, format),
						Format: format,
						Data:   data,
						Width:  cfg.Width,
						Height: cfg.Height,
					},
					Key:    key,
					Cached: true,
				}, nil
			}
			// Unreadable entry: fall through and overwrite it
		}
	}

	exp := export.NewExporter(r.Compositor, opts.Logger)
	art, err := exp.Export(ctx, active, opts.Name, format)
	if err != nil {
		return nil, err
	}

	// Partial composites are not cached so a fixed layer is picked up next time
	if len(art.Skipped) == 0 {
		if err := r.Cache.Set(ctx, key, art.Data, cache.TTLArtifact); err != nil {
			opts.Logger.Warn("cache write failed", "err", err)
		}
	}
	return &Result{Artifact: art, Key: key}, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
