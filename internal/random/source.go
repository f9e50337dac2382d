// Package random provides the seedable generator handle injected into
// parameter randomization and sensor noise.
package random

import (
	"math/rand/v2"
	"sync"
)

// Source is a rand.Source safe for use by several goroutines. Every
// Uint64 call is one draw taken under the lock, so concurrent plants sharing
// a Source never observe torn state. Plants that need reproducible
// trajectories should each own a Source built from their own seed.
type Source struct {
	mu  sync.Mutex
	src rand.Source
}

var _ rand.Source = (*Source)(nil)

// New returns a Source seeded deterministically from seed.
func New(seed uint64) *Source {
	return &Source{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// Wrap guards an existing source.
func Wrap(src rand.Source) *Source {
	return &Source{src: src}
}

func (s *Source) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 {
	return rand.New(s).Float64()
}
