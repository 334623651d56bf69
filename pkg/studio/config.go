package studio

import (
	"math/rand/v2"

	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/pipeline"
)

// Config returns a copy of the session options.
func (s *Studio) Config() pipeline.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// SetFPS changes the animation rate without restarting playback.
func (s *Studio) SetFPS(fps int) error {
	if err := pipeline.ValidateRange("fps", fps, pipeline.MaxFPS); err != nil {
		return err
	}
	s.mu.Lock()
	s.opts.FPS = fps
	s.mu.Unlock()
	s.clock.SetFPS(fps)
	return nil
}

// SetScale changes the display magnification. Exports are unaffected.
func (s *Studio) SetScale(scale int) error {
	if err := pipeline.ValidateRange("scale", scale, pipeline.MaxScale); err != nil {
		return err
	}
	s.mu.Lock()
	s.opts.Scale = scale
	s.mu.Unlock()
	return nil
}

// SetCellSize changes the cell size and forgets the derived grid; the next
// Refresh derives it again.
func (s *Studio) SetCellSize(size int) error {
	if err := pipeline.ValidateRange("cell_size", size, 0); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if size == s.opts.CellSize {
		return nil
	}
	s.opts.CellSize = size
	s.geometry.Reset(size)
	s.clock.SetLength(0)
	return nil
}

// SetName sets the export file stem.
func (s *Studio) SetName(name string) error {
	if err := errors.ValidateSpriteName(name); err != nil {
		return err
	}
	s.mu.Lock()
	s.opts.Name = name
	s.mu.Unlock()
	return nil
}

// SetFormat sets the export format.
func (s *Studio) SetFormat(format string) error {
	if err := pipeline.ValidateFormat(format); err != nil {
		return err
	}
	s.mu.Lock()
	s.opts.Format = format
	s.opts.Format = string(s.opts.ExportFormat())
	s.mu.Unlock()
	return nil
}

// Configure applies the non-zero fields of update. Either every field is
// applied or none is.
func (s *Studio) Configure(update pipeline.Options) error {
	if update.FPS != 0 {
		if err := pipeline.ValidateRange("fps", update.FPS, pipeline.MaxFPS); err != nil {
			return err
		}
	}
	if update.Scale != 0 {
		if err := pipeline.ValidateRange("scale", update.Scale, pipeline.MaxScale); err != nil {
			return err
		}
	}
	if update.CellSize != 0 {
		if err := pipeline.ValidateRange("cell_size", update.CellSize, 0); err != nil {
			return err
		}
	}
	if update.Name != "" {
		if err := errors.ValidateSpriteName(update.Name); err != nil {
			return err
		}
	}
	if update.Format != "" {
		if err := pipeline.ValidateFormat(update.Format); err != nil {
			return err
		}
	}

	if update.FPS != 0 {
		_ = s.SetFPS(update.FPS)
	}
	if update.Scale != 0 {
		_ = s.SetScale(update.Scale)
	}
	if update.CellSize != 0 {
		_ = s.SetCellSize(update.CellSize)
	}
	if update.Name != "" {
		_ = s.SetName(update.Name)
	}
	if update.Format != "" {
		_ = s.SetFormat(update.Format)
	}
	return nil
}

func randomSeed() uint64 {
	return rand.Uint64()
}
