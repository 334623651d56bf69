// Package studio wires the sprite components into one editing session.
//
// A [Studio] owns a layer store, a compositor, the lazily derived grid, the
// frame sequence and the animation clock. Callers feed it plain data (files,
// reorder requests, visibility toggles, configuration) and read back the
// active layers, the current frame and the live composited surface.
//
//	s, _ := studio.New(runner, pipeline.Options{CellSize: 32})
//	s.Intake(files, "base")
//	s.Refresh(ctx)
//	go s.Run(ctx, func(f sprite.Frame) { redraw(s.CellImage()) })
//
// Mutations do not re-composite on their own; call Refresh afterwards.
package studio

import (
	"context"
	"image"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spritestack/pkg/anim"
	"github.com/matzehuels/spritestack/pkg/compose"
	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/layers"
	"github.com/matzehuels/spritestack/pkg/pipeline"
	"github.com/matzehuels/spritestack/pkg/sheet"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// Studio is one sprite editing session. It is safe for concurrent use.
type Studio struct {
	mu   sync.Mutex
	opts pipeline.Options
	src  layers.Source

	store      *layers.Store
	compositor *compose.Compositor
	runner     *pipeline.Runner
	geometry   *sheet.Geometry
	sequencer  sheet.Sequencer
	clock      *anim.Clock
	logger     *log.Logger

	surface *image.NRGBA
	stop    context.CancelFunc
}

// New creates a session. The session gets its own compositor so stale
// composites are tracked per session; cache and keyer are shared with base.
func New(base *pipeline.Runner, opts pipeline.Options) (*Studio, error) {
	if base == nil {
		base = pipeline.NewRunner(nil, nil, nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = base.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	c := compose.New(compose.Options{Logger: opts.Logger})
	s := &Studio{
		opts:       opts,
		store:      layers.NewStore(),
		compositor: c,
		runner:     pipeline.NewRunner(base.Cache, base.Keyer, c, opts.Logger),
		geometry:   sheet.NewGeometry(opts.CellSize),
		clock:      anim.NewClock(opts.FPS),
		logger:     opts.Logger,
	}
	if opts.Seed != 0 {
		s.src = layers.NewSource(opts.Seed)
	} else {
		s.src = layers.NewSource(randomSeed())
	}
	return s, nil
}

// Intake converts files into visible layers tagged with category and
// appends them on top. Duplicate names are suffixed.
func (s *Studio) Intake(files []sprite.File, category string) ([]sprite.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := sprite.FindCategory(s.opts.Categories, category); !ok {
		return nil, errors.New(errors.ErrCodeInvalidCategory, "unknown category %q", category)
	}
	for _, f := range files {
		if err := errors.ValidateLayerName(f.Name); err != nil {
			return nil, err
		}
	}
	added := sprite.NewLayers(files, category, sprite.Names(s.store.All()))
	s.store.Append(added...)
	s.logger.Debug("intake", "category", category, "layers", len(added))
	return added, nil
}

// Add appends prepared layers, such as those loaded from a project file.
func (s *Studio) Add(ls ...sprite.Layer) {
	s.store.Append(ls...)
}

// Move reorders a layer. Out-of-range indices are ignored and reported false.
func (s *Studio) Move(from, to int) bool {
	return s.store.Move(from, to)
}

// SetVisibility shows or hides the named layer.
func (s *Studio) SetVisibility(name string, show bool) error {
	if !s.store.SetVisibility(name, show) {
		return errors.New(errors.ErrCodeLayerNotFound, "no layer named %q", name)
	}
	return nil
}

// Toggle flips the named layer's visibility and returns the new value.
func (s *Studio) Toggle(name string) (bool, error) {
	show, ok := s.store.Toggle(name)
	if !ok {
		return false, errors.New(errors.ErrCodeLayerNotFound, "no layer named %q", name)
	}
	return show, nil
}

// Randomize resamples visibility per category.
func (s *Studio) Randomize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Randomize(s.opts.Categories, s.src)
}

// Layers returns every layer in paint order.
func (s *Studio) Layers() []sprite.Layer {
	return s.store.All()
}

// Active returns the visible layers in paint order.
func (s *Studio) Active() []sprite.Layer {
	return s.store.Active()
}

// Categories returns the session's category table.
func (s *Studio) Categories() []sprite.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Categories
}

// Refresh composites the active layers into the live surface. The first
// composite with a decodable layer fixes the grid. A composite superseded by
// a newer Refresh is discarded and does not touch the surface.
func (s *Studio) Refresh(ctx context.Context) (*compose.Result, error) {
	res, err := s.compositor.Composite(ctx, s.store.Active())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Stale || !s.compositor.IsLatest(res.ID) {
		res.Stale = true
		return res, nil
	}
	s.surface = res.Image
	if res.HasReference && s.geometry.Observe(res.Reference) {
		g, _ := s.geometry.Grid()
		s.logger.Debug("derived grid", "columns", g.Columns, "rows", g.Rows, "cell", s.opts.CellSize)
	}
	s.clock.SetLength(len(s.sequenceLocked()))
	return res, nil
}

// Grid returns the derived grid and whether it has been derived.
func (s *Studio) Grid() (sheet.Grid, bool) {
	return s.geometry.Grid()
}

// Sequence returns the frame sequence for the current grid. It is empty until
// the grid is derived.
func (s *Studio) Sequence() []sprite.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequenceLocked()
}

func (s *Studio) sequenceLocked() []sprite.Frame {
	g, _ := s.geometry.Grid()
	return s.sequencer.Frames(g)
}

// Frame returns the current animation frame. The zero frame is returned while
// the sequence is empty.
func (s *Studio) Frame() sprite.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *Studio) frameLocked() sprite.Frame {
	seq := s.sequenceLocked()
	i := s.clock.Index()
	if i < 0 || i >= len(seq) {
		return sprite.Frame{}
	}
	return seq[i]
}

// FrameIndex returns the clock's index into Sequence.
func (s *Studio) FrameIndex() int {
	return s.clock.Index()
}

// Surface returns the last composited surface, or nil before the first
// Refresh.
func (s *Studio) Surface() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// SurfaceSize returns the live surface dimensions, or false before the first
// Refresh.
func (s *Studio) SurfaceSize() (image.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return image.Point{}, false
	}
	return s.surface.Bounds().Size(), true
}

// CellImage crops the current frame's cell from the live surface. It
// returns nil before the first Refresh.
func (s *Studio) CellImage() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return nil
	}
	return compose.Cell(s.surface, s.frameLocked(), s.opts.CellSize)
}

// Export composites the active layers and encodes them with the session's
// name and format.
func (s *Studio) Export(ctx context.Context) (*pipeline.Result, error) {
	s.mu.Lock()
	opts := s.opts
	s.mu.Unlock()
	opts.Randomize = false
	return s.runner.Export(ctx, s.store.All(), opts)
}

// Run drives the animation clock until ctx is done. onFrame receives each
// new frame.
func (s *Studio) Run(ctx context.Context, onFrame func(sprite.Frame)) error {
	return s.clock.Run(ctx, func(int) {
		if onFrame != nil {
			onFrame(s.Frame())
		}
	})
}

// Play runs the clock in the background until Close. Calling Play on a
// playing studio does nothing.
func (s *Studio) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go func() { _ = s.clock.Run(ctx, nil) }()
}

// Clock exposes the animation clock for state inspection.
func (s *Studio) Clock() *anim.Clock {
	return s.clock
}

// Close stops playback and drops the surface. The shared cache is not
// closed.
func (s *Studio) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.surface = nil
	s.clock.SetLength(0)
	return nil
}
