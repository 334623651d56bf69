// Package pipeline provides the export pipeline shared by the CLI and the
// HTTP API.
//
// By centralizing option defaults and the cache-aware export flow here, every
// entry point produces byte-identical artifacts for the same layer stack.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, nil, logger)
//	opts := pipeline.Options{Name: "knight", Format: "png"}
//	result, err := runner.Export(ctx, store.All(), opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(result.Artifact.Name, result.Artifact.Data, 0644)
package pipeline

import (
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spritestack/pkg/cache"
	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/export"
	"github.com/matzehuels/spritestack/pkg/layers"
	"github.com/matzehuels/spritestack/pkg/sprite"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultFPS is the animation rate of the preview.
	DefaultFPS = 3

	// DefaultScale is the preview magnification. It never affects exports.
	DefaultScale = 3

	// DefaultCellSize is the edge length of one sprite-sheet cell in pixels.
	DefaultCellSize = 20

	// DefaultName is the export file stem when none is given.
	DefaultName = "sample"

	// DefaultFormat is the export format when none is given.
	DefaultFormat = string(export.DefaultFormat)

	// MaxFPS bounds the preview rate.
	MaxFPS = 60

	// MaxScale bounds the preview magnification.
	MaxScale = 32
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains the sprite configuration values.
// This struct supports JSON serialization for API requests.
type Options struct {
	Name     string `json:"name,omitempty"`
	Format   string `json:"format,omitempty"`
	FPS      int    `json:"fps,omitempty"`
	Scale    int    `json:"scale,omitempty"`
	CellSize int    `json:"cell_size,omitempty"`

	// Randomize resamples layer visibility before exporting. Seed zero
	// picks a random seed.
	Randomize bool   `json:"randomize,omitempty"`
	Seed      uint64 `json:"seed,omitempty"`

	// Refresh skips the cache lookup but still stores the result.
	Refresh bool `json:"refresh,omitempty"`

	// Categories defaults to sprite.DefaultCategories.
	Categories []sprite.Category `json:"categories,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of an export.
type Result struct {
	Artifact *export.Artifact

	// Key is the cache key the artifact is stored under.
	Key string

	// Cached reports whether the artifact came from the cache.
	Cached bool

	Duration time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	_, err := export.ParseFormat(format)
	return err
}

// ValidateRange checks that v lies in [1, maxV]. maxV ≤ 0 means unbounded.
func ValidateRange(field string, v, maxV int) error {
	if v < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "%s must be positive, got %d", field, v)
	}
	if maxV > 0 && v > maxV {
		return errors.New(errors.ErrCodeInvalidConfig, "%s must be at most %d, got %d", field, maxV, v)
	}
	return nil
}

// ValidateCategories checks category names and uniqueness.
func ValidateCategories(categories []sprite.Category) error {
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if err := errors.ValidateCategoryName(c.Name); err != nil {
			return err
		}
		if seen[c.Name] {
			return errors.New(errors.ErrCodeInvalidCategory, "duplicate category %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every field and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()

	if err := errors.ValidateSpriteName(o.Name); err != nil {
		return err
	}
	f, err := export.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.Format = string(f)
	if err := ValidateRange("fps", o.FPS, MaxFPS); err != nil {
		return err
	}
	if err := ValidateRange("scale", o.Scale, MaxScale); err != nil {
		return err
	}
	if err := ValidateRange("cell_size", o.CellSize, 0); err != nil {
		return err
	}
	if err := ValidateCategories(o.Categories); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetDefaults fills zero fields with defaults.
func (o *Options) SetDefaults() {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.FPS == 0 {
		o.FPS = DefaultFPS
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.CellSize == 0 {
		o.CellSize = DefaultCellSize
	}
	if len(o.Categories) == 0 {
		o.Categories = sprite.DefaultCategories
	}
	if o.Randomize && o.Seed == 0 {
		o.Seed = rand.Uint64()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ExportFormat returns the parsed format. Call after ValidateAndSetDefaults.
func (o *Options) ExportFormat() export.Format {
	f, _ := export.ParseFormat(o.Format)
	return f
}

// Source returns the deterministic random source for Seed.
func (o *Options) Source() layers.Source {
	return layers.NewSource(o.Seed)
}

// ExportKeyOpts returns cache key options for an export.
func (o *Options) ExportKeyOpts(width, height int) cache.ExportKeyOpts {
	return cache.ExportKeyOpts{
		Format: string(o.ExportFormat()),
		Width:  width,
		Height: height,
	}
}
