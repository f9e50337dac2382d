package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/rs/xid"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/signal"
)

// Loop alternates controller and plant updates at the plant's sample rate.
type Loop struct {
	Plant      Plant
	Controller dynamo.Controller
	Reference  signal.Signal
	Feedback   Feedback
	Log        logr.Logger

	metrics   []Metric
	observers []Observer
}

func New(p Plant, ctrl dynamo.Controller, ref signal.Signal) *Loop {
	return &Loop{
		Plant:      p,
		Controller: ctrl,
		Reference:  ref,
		Log:        logr.Discard(),
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (l *Loop) AddMetric(m Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// Run steps the loop for round(duration/Ts) periods. It takes an initial
// measurement, then each step reads the reference, asks the controller for
// an input, records the sample and advances the plant. A plant failure or a
// cancelled context stops the run; the partial Result is returned with the
// error.
func (l *Loop) Run(ctx context.Context, duration float64) (*Result, error) {
	if err := l.validate(duration); err != nil {
		return nil, err
	}

	steps := int(math.Round(duration / l.Plant.Ts()))
	result := &Result{
		RunID:        xid.New().String(),
		Samples:      make([]dynamo.Sample, 0, steps),
		Measurements: make([]dynamo.Output, 0, steps),
		Metrics:      make(map[string]float64),
	}
	log := l.Log.WithValues("run", result.RunID)

	for _, m := range l.metrics {
		m.Reset()
	}

	log.V(1).Info("run started", "steps", steps, "ts", l.Plant.Ts(), "feedback", l.Feedback)

	y := l.Plant.Measure()
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			l.finish(result)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		t := l.Plant.Time()
		ref := signal.Reference(l.Reference, t)
		x := l.Plant.State()

		fb := y
		if l.Feedback == FeedbackState {
			fb = dynamo.Output(x.Clone())
		}
		u := l.Controller.Update(ref, fb)

		sample := dynamo.Sample{T: t, Ref: ref, X: x, Y: y, U: u.Clone()}
		result.Samples = append(result.Samples, sample)
		for _, m := range l.metrics {
			m.Observe(sample)
		}
		for _, obs := range l.observers {
			obs.OnStep(sample)
		}

		next, err := l.Plant.Update(u)
		if err != nil {
			l.finish(result)
			log.Error(err, "run halted", "step", i, "t", t)
			return result, err
		}
		y = next
		result.Measurements = append(result.Measurements, y)
		result.StepsTaken++
	}

	l.finish(result)
	log.V(1).Info("run finished", "steps", result.StepsTaken, "metrics", result.Metrics)

	return result, nil
}

func (l *Loop) finish(result *Result) {
	result.Final = l.Plant.State()
	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (l *Loop) validate(duration float64) error {
	if l.Plant == nil {
		return dynamo.Invalidf("loop has no plant")
	}
	if l.Controller == nil {
		return dynamo.Invalidf("loop has no controller")
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return dynamo.Invalidf("duration must be positive, got %g", duration)
	}
	return nil
}
