// Package sim drives closed-loop simulations: a [Loop] alternates a
// controller and a plant at the plant's sample rate, records every step and
// feeds metrics and observers; an [Ensemble] runs many independent loops
// with different seeds in parallel.
package sim
