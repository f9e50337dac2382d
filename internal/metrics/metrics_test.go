package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/plants"
)

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Error("expected zero effort before any sample")
	}

	m.Observe(dynamo.Sample{U: dynamo.Control{1, -2}})
	m.Observe(dynamo.Sample{U: dynamo.Control{-1, 0}})

	if m.Value() != 2 {
		t.Errorf("expected mean effort 2, got %f", m.Value())
	}
	if m.Peak() != 3 {
		t.Errorf("expected peak effort 3, got %f", m.Peak())
	}

	m.Reset()
	if m.Value() != 0 || m.Peak() != 0 {
		t.Error("expected zero effort after reset")
	}
}

func TestStability(t *testing.T) {
	m := NewStability(1.0)
	if m.Value() != 1 {
		t.Error("no samples should count as stable")
	}

	m.Observe(dynamo.Sample{X: dynamo.State{0.5, -1.0}})
	m.Observe(dynamo.Sample{X: dynamo.State{0.5, -1.5}})
	m.Observe(dynamo.Sample{X: dynamo.State{2, 2}})
	m.Observe(dynamo.Sample{X: dynamo.State{0, 0}})

	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", m.Value())
	}
}

func TestStabilityPerChannelBounds(t *testing.T) {
	// cart_pendulum: z, theta, zdot, thetadot. The last bound covers both rates.
	m := NewStability(3, 0.5, 2)
	if _, escaped := m.Escape(); escaped {
		t.Fatal("an empty metric has not escaped")
	}

	m.Observe(dynamo.Sample{T: 0.0, X: dynamo.State{2.5, 0.4, 1.5, -1.5}})
	m.Observe(dynamo.Sample{T: 0.1, X: dynamo.State{2.5, 0.6, 0, 0}})
	m.Observe(dynamo.Sample{T: 0.2, X: dynamo.State{0, 0, 0, 2.5}})
	m.Observe(dynamo.Sample{T: 0.3, X: dynamo.State{0, math.NaN(), 0, 0}})

	if m.Value() != 0.25 {
		t.Errorf("expected 0.25, got %f", m.Value())
	}
	if at, escaped := m.Escape(); !escaped || at != 0.1 {
		t.Errorf("escape = %g, %v; want 0.1", at, escaped)
	}

	m.Reset()
	m.Observe(dynamo.Sample{X: dynamo.State{0, 0, 0, 0}})
	if _, escaped := m.Escape(); escaped || m.Value() != 1 {
		t.Error("reset should clear the escape")
	}
}

func TestStabilityUnbounded(t *testing.T) {
	m := NewStability()
	m.Observe(dynamo.Sample{X: dynamo.State{1e9}})
	if m.Value() != 1 {
		t.Errorf("no bounds should never lose the plant, got %f", m.Value())
	}
}

func TestTrackingError(t *testing.T) {
	m := NewTrackingError(1)

	m.Observe(dynamo.Sample{Ref: dynamo.Reference{1}, X: dynamo.State{9, 0}})
	m.Observe(dynamo.Sample{Ref: dynamo.Reference{1}, X: dynamo.State{9, 2}})
	m.Observe(dynamo.Sample{Ref: dynamo.Reference{1}, X: dynamo.State{9}})

	if math.Abs(m.Value()-1) > 1e-12 {
		t.Errorf("expected rms 1, got %f", m.Value())
	}

	m.Reset()
	m.Observe(dynamo.Sample{X: dynamo.State{0, 3}})
	if math.Abs(m.Value()-3) > 1e-12 {
		t.Errorf("missing reference counts as zero, got %f", m.Value())
	}
}

func TestEnergyDrift(t *testing.T) {
	sat := plants.NewSatellite()
	m := NewEnergyDrift(sat)

	x0 := dynamo.State{0, 0, 1, 0}
	m.Observe(dynamo.Sample{X: x0})
	if m.Value() != 0 {
		t.Errorf("expected no drift on first sample, got %f", m.Value())
	}

	m.Observe(dynamo.Sample{X: dynamo.State{0, 0, 1.1, 0}})
	m.Observe(dynamo.Sample{X: x0})

	want := math.Abs(sat.Energy(dynamo.State{0, 0, 1.1, 0})-sat.Energy(x0)) / sat.Energy(x0)
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("expected max drift %f, got %f", want, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

type frictionless struct{}

func (frictionless) Derive(x dynamo.State, _ dynamo.Control) (dynamo.State, error) { return x, nil }
func (frictionless) StateDim() int { return 1 }
func (frictionless) ControlDim() int { return 0 }

func TestEnergyDriftWithoutEnergy(t *testing.T) {
	m := NewEnergyDrift(frictionless{})
	m.Observe(dynamo.Sample{X: dynamo.State{1}})
	m.Observe(dynamo.Sample{X: dynamo.State{2}})

	if m.Value() != 0 {
		t.Errorf("expected zero for a plant without energy, got %f", m.Value())
	}
}
