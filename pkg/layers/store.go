package layers

import (
	"slices"
	"sync"

	"github.com/matzehuels/spritestack/pkg/sprite"
)

// Store is an ordered, name-unique collection of layers.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	layers []sprite.Layer
}

// NewStore returns a store holding layers in the given order.
func NewStore(layers ...sprite.Layer) *Store {
	s := &Store{}
	s.Append(layers...)
	return s
}

// Append inserts layers at the end, so new uploads paint on top. A layer
// whose name is already present is renamed with a " (n)" suffix.
func (s *Store) Append(layers ...sprite.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := sprite.Names(s.layers)
	for _, l := range layers {
		l.Name = sprite.UniqueName(l.Name, taken)
		taken[l.Name] = true
		s.layers = append(s.layers, l)
	}
}

// Move removes the layer at from and reinserts it at to. It reports false and
// leaves the store unchanged when either index is outside [0, Len()).
func (s *Store) Move(from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.layers)
	if to < 0 || to >= n || from < 0 || from >= n {
		return false
	}
	if from == to {
		return true
	}
	l := s.layers[from]
	s.layers = slices.Delete(s.layers, from, from+1)
	s.layers = slices.Insert(s.layers, to, l)
	return true
}

// SetVisibility sets the show flag of the named layer. It reports false if
// no such layer exists.
func (s *Store) SetVisibility(name string, show bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(name)
	if i < 0 {
		return false
	}
	s.layers[i].Show = show
	return true
}

// Toggle flips the show flag of the named layer and returns the new value.
func (s *Store) Toggle(name string) (show, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(name)
	if i < 0 {
		return false, false
	}
	s.layers[i].Show = !s.layers[i].Show
	return s.layers[i].Show, true
}

// Get returns the named layer.
func (s *Store) Get(name string) (sprite.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(name)
	if i < 0 {
		return sprite.Layer{}, false
	}
	return s.layers[i], true
}

// Active returns the visible layers in store order.
func (s *Store) Active() []sprite.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sprite.Layer, 0, len(s.layers))
	for _, l := range s.layers {
		if l.Show {
			out = append(out, l)
		}
	}
	return out
}

// All returns a copy of every layer in store order.
func (s *Store) All() []sprite.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.layers)
}

// Len returns the number of layers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

// Names returns layer names in store order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.Name
	}
	return out
}

func (s *Store) index(name string) int {
	return slices.IndexFunc(s.layers, func(l sprite.Layer) bool { return l.Name == name })
}
