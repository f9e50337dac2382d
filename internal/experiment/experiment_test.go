package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/plantsim/internal/config"
	"github.com/san-kum/plantsim/internal/control"
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/plants"
	"github.com/san-kum/plantsim/internal/sim"
)

func TestRestScenario(t *testing.T) {
	exp := New(config.GetPreset(plants.CartPendulumName, "rest"))

	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 100 {
		t.Errorf("expected 100 steps, got %d", result.StepsTaken)
	}
	for i, v := range result.Final {
		if math.Abs(v) > 1e-9 {
			t.Errorf("state[%d] = %g, want 0", i, v)
		}
	}
	for _, name := range []string{"stability", "control_effort", "tracking_error", "energy_drift"} {
		if _, ok := result.Metrics[name]; !ok {
			t.Errorf("metric %s missing", name)
		}
	}
}

func TestBalancePreset(t *testing.T) {
	cfg := config.GetPreset(plants.CartPendulumName, "balance")
	a := 0.0
	cfg.Alpha = &a

	exp := New(cfg)
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, ok := exp.Loop().Controller.(*control.StateFeedback); !ok {
		t.Fatalf("expected state feedback, got %T", exp.Loop().Controller)
	}

	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if math.Abs(result.Final[1]) > 0.01 {
		t.Errorf("rod not balanced: %v", result.Final)
	}
	if result.Metrics["stability"] != 1 {
		t.Errorf("expected full stability, got %f", result.Metrics["stability"])
	}
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ts = -1

	_, err := New(cfg).Run(context.Background())
	if !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestFeedbackControllerDefaultsToState(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller.Type = config.ControllerFeedback
	cfg.InitialState = []float64{0, 0.1, 0, 0}
	cfg.Duration = 5

	exp := New(cfg)
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if exp.Loop().Feedback != sim.FeedbackState {
		t.Fatalf("feedback = %s, want state", exp.Loop().Feedback)
	}

	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for i, v := range result.Final {
		if math.Abs(v) > 0.01 {
			t.Errorf("state[%d] = %g, want it settled near 0", i, v)
		}
	}
	if got := exp.Metadata(result).Feedback; got != "state" {
		t.Errorf("metadata feedback = %q", got)
	}
}

func TestFeedbackControllerRejectsMeasurement(t *testing.T) {
	for _, feedback := range []string{"measurement", "output"} {
		t.Run(feedback, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Controller.Type = config.ControllerFeedback
			cfg.Feedback = feedback

			if err := New(cfg).Setup(); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestSeedsChangeParameters(t *testing.T) {
	cfg := config.GetPreset(plants.SatelliteName, "wobble")

	a, b := New(cfg), New(cfg)
	if err := a.SetupSeed(1); err != nil {
		t.Fatal(err)
	}
	if err := b.SetupSeed(2); err != nil {
		t.Fatal(err)
	}
	if a.Plant().Params().Get("Js") == b.Plant().Params().Get("Js") {
		t.Error("different seeds should draw different parameters")
	}
}

func TestRegistryControllers(t *testing.T) {
	r := NewRegistry()
	want := []string{"constant", "feedback", "none", "pid"}
	got := r.ListControllers()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}

	vtol, _ := plants.Lookup(plants.VTOLName)
	sat, _ := plants.Lookup(plants.SatelliteName)

	tests := []struct {
		name  string
		cfg   config.ControllerConfig
		model plants.Model
		ok    bool
	}{
		{"default none", config.ControllerConfig{}, vtol, true},
		{"constant", config.ControllerConfig{Type: "constant", Input: []float64{1, 1}}, vtol, true},
		{"constant wrong size", config.ControllerConfig{Type: "constant", Input: []float64{1}}, vtol, false},
		{"pid", config.ControllerConfig{Type: "pid", Kp: 1, Channel: 1}, sat, true},
		{"pid two inputs", config.ControllerConfig{Type: "pid", Kp: 1}, vtol, false},
		{"pid bad channel", config.ControllerConfig{Type: "pid", Channel: 2}, sat, false},
		{"feedback preset", config.ControllerConfig{Type: "feedback"}, vtol, true},
		{"feedback bad gains", config.ControllerConfig{Type: "feedback", Gains: [][]float64{{1, 2}}}, sat, false},
		{"unknown", config.ControllerConfig{Type: "mpc"}, sat, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, err := r.GetController(tt.cfg, tt.model, 0.01)
			if tt.ok {
				if err != nil || ctrl == nil {
					t.Errorf("expected controller, got %v", err)
				}
				return
			}
			if !errors.Is(err, dynamo.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestFeedbackGainsAreCopied(t *testing.T) {
	sat, _ := plants.Lookup(plants.SatelliteName)
	gains := [][]float64{{1, 2, 3, 4}}

	ctrl, err := NewRegistry().GetController(config.ControllerConfig{Type: "feedback", Gains: gains}, sat, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctrl.(*control.StateFeedback).SetParam("K0_0", 9); err != nil {
		t.Fatal(err)
	}
	if gains[0][0] != 1 {
		t.Error("configured gains must not be shared with the controller")
	}
}

func TestTrackedState(t *testing.T) {
	sat, _ := plants.Lookup(plants.SatelliteName)
	vtol, _ := plants.Lookup(plants.VTOLName)

	pid := config.GetPreset(plants.SatelliteName, "pid")
	pid.Controller.Channel = 1
	if got := TrackedState(pid, sat); got != 1 {
		t.Errorf("pid on phi should track state 1, got %d", got)
	}

	hover := config.GetPreset(plants.VTOLName, "hover")
	if got := TrackedState(hover, vtol); got != 1 {
		t.Errorf("vtol feedback should track altitude, got %d", got)
	}

	hover.Controller.ReferenceStates = []int{0}
	if got := TrackedState(hover, vtol); got != 0 {
		t.Errorf("explicit reference state should win, got %d", got)
	}
}

func TestEnsemble(t *testing.T) {
	cfg := config.GetPreset(plants.SatelliteName, "point")
	cfg.Duration = 1
	cfg.Reference = config.ReferenceConfig{Type: config.ReferenceStep, After: 1}

	results, err := Ensemble(cfg, 3, 2).Run(context.Background(), cfg.Duration)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Final[0] == results[1].Final[0] && results[1].Final[0] == results[2].Final[0] {
		t.Error("runs with different seeds should differ")
	}
}

func TestMetadata(t *testing.T) {
	exp := New(config.GetPreset(plants.SatelliteName, "point"))
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	meta := exp.Metadata(result)
	if meta.ID != result.RunID || meta.Steps != result.StepsTaken {
		t.Errorf("metadata does not describe the result: %+v", meta)
	}
	if meta.Plant != plants.SatelliteName || meta.Scheme != "rk4" || meta.Feedback != "state" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if len(meta.StateLabels) != 4 || len(meta.InputLabels) != 1 {
		t.Errorf("expected satellite labels, got %v and %v", meta.StateLabels, meta.InputLabels)
	}
	if _, ok := meta.Params["Js"]; !ok {
		t.Errorf("realized parameters missing: %v", meta.Params)
	}
}
