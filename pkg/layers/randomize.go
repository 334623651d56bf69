package layers

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/spritestack/pkg/sprite"
)

// Source supplies uniform draws in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a deterministic Source for seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// SelectIndex picks the index to show within a group of n layers. Negative
// results mean no layer is shown.
func SelectIndex(src Source, n int, nullable bool) int {
	i := int(math.Floor(src.Float64() * float64(n)))
	if nullable {
		i -= int(math.Round(src.Float64()))
	}
	return i
}

// Randomize resamples visibility per category. Categories with no layers are
// skipped, as are layers whose category is not listed.
func (s *Store) Randomize(categories []sprite.Category, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range categories {
		var group []int
		for i, l := range s.layers {
			if l.Category == c.Name {
				group = append(group, i)
			}
		}
		if len(group) == 0 {
			continue
		}
		selected := SelectIndex(src, len(group), c.Nullable)
		for gi, li := range group {
			s.layers[li].Show = gi == selected
		}
	}
}
