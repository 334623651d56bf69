package sheet

import (
	"sync"

	"github.com/matzehuels/spritestack/pkg/sprite"
)

// BuildSequence returns the ping-pong frame traversal for the grid.
// An empty grid yields an empty sequence.
func BuildSequence(columns, rows int) []sprite.Frame {
	g := Grid{Columns: columns, Rows: rows}
	if g.Empty() {
		return nil
	}
	frames := make([]sprite.Frame, 0, g.Len())
	for r := 0; r < rows; r++ {
		for c := 0; c < columns; c++ {
			frames = append(frames, sprite.Frame{X: -c, Y: -r})
		}
		for c := columns - 2; c >= 0; c-- {
			frames = append(frames, sprite.Frame{X: -c, Y: -r})
		}
	}
	return frames
}

// Sequencer memoizes BuildSequence for the most recent grid.
type Sequencer struct {
	mu     sync.Mutex
	grid   Grid
	frames []sprite.Frame
	valid  bool
}

// Frames returns the sequence for g, rebuilding only when g changed.
// The returned slice is shared and must not be modified.
func (s *Sequencer) Frames(g Grid) []sprite.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.valid || s.grid != g {
		s.frames = BuildSequence(g.Columns, g.Rows)
		s.grid = g
		s.valid = true
	}
	return s.frames
}
