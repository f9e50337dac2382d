// Package params derives per-instance physical parameters from nominal
// values plus a bounded uniform perturbation.
package params

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultAlpha is the uncertainty fraction applied when none is configured.
const DefaultAlpha = 0.2

// Nominal maps parameter names to their nominal values.
type Nominal map[string]float64

func (n Nominal) Clone() Nominal {
	c := make(Nominal, len(n))
	for k, v := range n {
		c[k] = v
	}
	return c
}

// Names returns the parameter names in sorted order.
func (n Nominal) Names() []string {
	names := make([]string, 0, len(n))
	for k := range n {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Set holds realized parameter values. It is immutable once built.
type Set struct {
	alpha    float64
	nominal  Nominal
	realized map[string]float64
}

// Randomize draws realized = nominal*(1+u), u ~ U[-alpha, alpha], once per
// parameter. Names listed in exempt pass through unchanged. Draws are taken
// in sorted name order so a given source state always yields the same Set.
// Degenerate draws are not rejected.
func Randomize(nominal Nominal, alpha float64, exempt []string, src rand.Source) Set {
	dist := distuv.Uniform{Min: -alpha, Max: alpha, Src: src}

	realized := make(map[string]float64, len(nominal))
	for _, name := range nominal.Names() {
		p := nominal[name]
		if slices.Contains(exempt, name) {
			realized[name] = p
			continue
		}
		realized[name] = p * (1 + dist.Rand())
	}

	return Set{alpha: alpha, nominal: nominal.Clone(), realized: realized}
}

// Exact returns a Set whose realized values equal the nominal ones.
func Exact(nominal Nominal) Set {
	realized := make(map[string]float64, len(nominal))
	for k, v := range nominal {
		realized[k] = v
	}
	return Set{nominal: nominal.Clone(), realized: realized}
}

// Get returns the realized value of name, or 0 when it is not part of the set.
func (s Set) Get(name string) float64 {
	return s.realized[name]
}

func (s Set) Lookup(name string) (float64, bool) {
	v, ok := s.realized[name]
	return v, ok
}

// Nominal returns the nominal value name was drawn around.
func (s Set) Nominal(name string) float64 {
	return s.nominal[name]
}

func (s Set) Alpha() float64 { return s.alpha }

func (s Set) Names() []string { return s.nominal.Names() }

// Values returns a copy of the realized values.
func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s.realized))
	for k, v := range s.realized {
		out[k] = v
	}
	return out
}
