package sim

import (
	"strings"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// Plant is the stepping surface the loop drives. *plant.Simulator
// implements it.
type Plant interface {
	Update(u dynamo.Control) (dynamo.Output, error)
	Measure() dynamo.Output
	State() dynamo.State
	Time() float64
	Ts() float64
}

// Feedback selects what the controller sees.
type Feedback int

const (
	// FeedbackMeasurement feeds the noisy sensor output back.
	FeedbackMeasurement Feedback = iota
	// FeedbackState feeds the true state back.
	FeedbackState
)

func (f Feedback) String() string {
	if f == FeedbackState {
		return "state"
	}
	return "measurement"
}

func ParseFeedback(name string) (Feedback, error) {
	switch strings.ToLower(name) {
	case "", "measurement", "output":
		return FeedbackMeasurement, nil
	case "state":
		return FeedbackState, nil
	}
	return 0, dynamo.Invalidf("unknown feedback %q (want measurement or state)", name)
}

type Metric interface {
	Name() string
	Observe(s dynamo.Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s dynamo.Sample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s dynamo.Sample)

func (f ObserverFunc) OnStep(s dynamo.Sample) { f(s) }

// Result is everything recorded by one run. Samples[k] holds the state and
// input at step k; Measurements[k] is the output returned by the plant after
// applying Samples[k].U.
type Result struct {
	RunID        string
	Samples      []dynamo.Sample
	Measurements []dynamo.Output
	Final        dynamo.State
	Metrics      map[string]float64
	StepsTaken   int
}

func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.T
	}
	return out
}

// StateSeries returns channel i of the recorded state.
func (r *Result) StateSeries(i int) []float64 {
	out := make([]float64, len(r.Samples))
	for k, s := range r.Samples {
		if i < len(s.X) {
			out[k] = s.X[i]
		}
	}
	return out
}

func (r *Result) InputSeries(i int) []float64 {
	out := make([]float64, len(r.Samples))
	for k, s := range r.Samples {
		if i < len(s.U) {
			out[k] = s.U[i]
		}
	}
	return out
}

func (r *Result) ReferenceSeries() []float64 {
	out := make([]float64, len(r.Samples))
	for k, s := range r.Samples {
		if len(s.Ref) > 0 {
			out[k] = s.Ref[0]
		}
	}
	return out
}

// MeasurementSeries returns channel i of the measurements seen at each step.
func (r *Result) MeasurementSeries(i int) []float64 {
	out := make([]float64, len(r.Samples))
	for k, s := range r.Samples {
		if i < len(s.Y) {
			out[k] = s.Y[i]
		}
	}
	return out
}
