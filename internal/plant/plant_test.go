package plant

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/integrators"
	"github.com/san-kum/plantsim/internal/params"
	"github.com/san-kum/plantsim/internal/plants"
	"github.com/san-kum/plantsim/internal/random"
)

func cartPendulum(t *testing.T) plants.Model {
	t.Helper()
	m, err := plants.Lookup(plants.CartPendulumName)
	require.NoError(t, err)
	return m
}

func TestCartPendulumStaysAtRest(t *testing.T) {
	cfg := Config{Ts: 0.01, Alpha: Alpha(0), Scheme: integrators.RK4}
	sim, err := New(cartPendulum(t), cfg, dynamo.State{0, 0, 0, 0}, random.New(1))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		y, err := sim.Update(dynamo.Control{0})
		require.NoError(t, err)
		require.Len(t, y, 2)
	}

	for i, v := range sim.State() {
		assert.InDelta(t, 0, v, 1e-9, "state[%d]", i)
	}
	assert.Equal(t, 100, sim.Steps())
	assert.InDelta(t, 1.0, sim.Time(), 1e-12)
}

func TestZeroAlphaUsesNominal(t *testing.T) {
	m := cartPendulum(t)
	sim, err := New(m, Config{Ts: 0.01, Alpha: Alpha(0)}, dynamo.State{0, 0, 0, 0}, random.New(3))
	require.NoError(t, err)

	assert.Equal(t, map[string]float64(m.Nominal()), sim.Params().Values())
	assert.Equal(t, integrators.RK4, sim.Scheme())
}

func TestParametersWithinBounds(t *testing.T) {
	m := cartPendulum(t)
	src := random.New(11)

	for i := 0; i < 200; i++ {
		sim, err := New(m, Config{Ts: 0.01}, dynamo.State{0, 0, 0, 0}, src)
		require.NoError(t, err)

		p := sim.Params()
		assert.Equal(t, params.DefaultAlpha, p.Alpha())
		assert.Equal(t, 9.8, p.Get("g"), "gravity is exact")
		for _, name := range []string{"m1", "m2", "ell", "b"} {
			nom := p.Nominal(name)
			assert.GreaterOrEqual(t, p.Get(name), nom*(1-params.DefaultAlpha))
			assert.LessOrEqual(t, p.Get(name), nom*(1+params.DefaultAlpha))
		}
	}
}

func TestDeterminism(t *testing.T) {
	m := cartPendulum(t)
	cfg := Config{Ts: 0.01, Scheme: integrators.RK2}

	run := func() (map[string]float64, []dynamo.State, []dynamo.Output) {
		sim, err := New(m, cfg, dynamo.State{0, 0.05, 0, 0}, random.New(42))
		require.NoError(t, err)

		var states []dynamo.State
		var outputs []dynamo.Output
		for i := 0; i < 50; i++ {
			y, err := sim.Update(dynamo.Control{math.Sin(float64(i) * 0.1)})
			require.NoError(t, err)
			states = append(states, sim.State())
			outputs = append(outputs, y)
		}
		return sim.Params().Values(), states, outputs
	}

	p1, s1, y1 := run()
	p2, s2, y2 := run()

	assert.Equal(t, p1, p2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, y1, y2)
}

func TestDifferentSeedsDiffer(t *testing.T) {
	m := cartPendulum(t)
	a, err := New(m, Config{Ts: 0.01}, dynamo.State{0, 0, 0, 0}, random.New(1))
	require.NoError(t, err)
	b, err := New(m, Config{Ts: 0.01}, dynamo.State{0, 0, 0, 0}, random.New(2))
	require.NoError(t, err)

	assert.NotEqual(t, a.Params().Values(), b.Params().Values())
}

func TestInvalidConfiguration(t *testing.T) {
	m := cartPendulum(t)
	x0 := dynamo.State{0, 0, 0, 0}

	tests := []struct {
		name  string
		model plants.Model
		cfg   Config
		x0    dynamo.State
		noSrc bool
	}{
		{"nil model", nil, Config{Ts: 0.01}, x0, false},
		{"nil source", m, Config{Ts: 0.01}, x0, true},
		{"zero ts", m, Config{Ts: 0}, x0, false},
		{"negative ts", m, Config{Ts: -0.01}, x0, false},
		{"nan ts", m, Config{Ts: math.NaN()}, x0, false},
		{"alpha one", m, Config{Ts: 0.01, Alpha: Alpha(1)}, x0, false},
		{"negative alpha", m, Config{Ts: 0.01, Alpha: Alpha(-0.1)}, x0, false},
		{"unknown scheme", m, Config{Ts: 0.01, Scheme: integrators.Scheme(9)}, x0, false},
		{"unknown override", m, Config{Ts: 0.01, Nominal: params.Nominal{"m3": 1}}, x0, false},
		{"infinite override", m, Config{Ts: 0.01, Nominal: params.Nominal{"m1": math.Inf(1)}}, x0, false},
		{"short state", m, Config{Ts: 0.01}, dynamo.State{0, 0}, false},
		{"nan state", m, Config{Ts: 0.01}, dynamo.State{0, math.NaN(), 0, 0}, false},
		{"nil state", m, Config{Ts: 0.01}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src *random.Source
			if !tt.noSrc {
				src = random.New(1)
			}
			var err error
			if src == nil {
				_, err = New(tt.model, tt.cfg, tt.x0, nil)
			} else {
				_, err = New(tt.model, tt.cfg, tt.x0, src)
			}
			assert.ErrorIs(t, err, dynamo.ErrInvalidConfiguration)
		})
	}
}

func TestOverrideApplied(t *testing.T) {
	sim, err := New(cartPendulum(t), Config{Ts: 0.01, Alpha: Alpha(0), Nominal: params.Nominal{"ell": 1.0}},
		dynamo.State{0, 0, 0, 0}, random.New(1))
	require.NoError(t, err)

	assert.Equal(t, 1.0, sim.Params().Get("ell"))
	assert.Equal(t, 1.0, sim.Dynamics().(*plants.CartPendulum).Ell)
}

func TestInitialStateIsCopied(t *testing.T) {
	x0 := dynamo.State{0, 0.1, 0, 0}
	sim, err := New(cartPendulum(t), Config{Ts: 0.01}, x0, random.New(1))
	require.NoError(t, err)

	x0[1] = 99
	assert.Equal(t, 0.1, sim.State()[1])

	x := sim.State()
	x[1] = 42
	assert.Equal(t, 0.1, sim.State()[1])
}

func TestSingularDynamicsHalts(t *testing.T) {
	cfg := Config{Ts: 0.01, Alpha: Alpha(0), Nominal: params.Nominal{"m1": 0}}
	sim, err := New(cartPendulum(t), cfg, dynamo.State{0, 0.1, 0, 0}, random.New(1))
	require.NoError(t, err)

	_, err = sim.Update(dynamo.Control{0})
	require.ErrorIs(t, err, dynamo.ErrSingularDynamics)

	var simErr *dynamo.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, plants.CartPendulumName, simErr.Plant)
	assert.Equal(t, dynamo.ComponentDynamics, simErr.Component)
	assert.Equal(t, 0, simErr.Step)
	assert.Equal(t, dynamo.State{0, 0.1, 0, 0}, simErr.State)

	assert.Equal(t, dynamo.State{0, 0.1, 0, 0}, sim.State(), "failed step must not be committed")
	assert.Equal(t, 0, sim.Steps())

	_, again := sim.Update(dynamo.Control{0})
	assert.Same(t, err, again)
	assert.Same(t, err, sim.Err())
}

func TestNonFiniteInputHalts(t *testing.T) {
	sim, err := New(cartPendulum(t), Config{Ts: 0.01}, dynamo.State{0, 0, 0, 0}, random.New(1))
	require.NoError(t, err)

	_, err = sim.Update(dynamo.Control{0.5})
	require.NoError(t, err)
	before := sim.State()

	_, err = sim.Update(dynamo.Control{math.Inf(1)})
	require.ErrorIs(t, err, dynamo.ErrNonFiniteState)

	var simErr *dynamo.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, 1, simErr.Step)
	assert.InDelta(t, 0.01, simErr.Time, 1e-15)

	assert.Equal(t, before, sim.State())
	assert.True(t, sim.State().IsValid())
	assert.Error(t, sim.Err())
}

func TestDimensionMismatchIsNotLatched(t *testing.T) {
	sim, err := New(cartPendulum(t), Config{Ts: 0.01}, dynamo.State{0, 0, 0, 0}, random.New(1))
	require.NoError(t, err)

	_, err = sim.Update(dynamo.Control{1, 2})
	require.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
	assert.NoError(t, sim.Err())
	assert.Equal(t, 0, sim.Steps())

	_, err = sim.Update(dynamo.Control{1})
	assert.NoError(t, err)
}

func TestMeasureDoesNotStep(t *testing.T) {
	sim, err := New(cartPendulum(t), Config{Ts: 0.01}, dynamo.State{1, 0.2, 0, 0}, random.New(5))
	require.NoError(t, err)

	y1 := sim.Measure()
	y2 := sim.Measure()

	assert.Equal(t, 0, sim.Steps())
	assert.NotEqual(t, y1, y2, "noise is redrawn on every call")
	assert.InDelta(t, 1.0, y1[0], 0.1)
	assert.InDelta(t, 0.2, y1[1], 0.01)
}

func TestStepFreeFunction(t *testing.T) {
	sys := plants.NewSatellite()
	x := dynamo.State{0, 0, 0, 0}

	next, err := Step(integrators.RK1, sys, x, dynamo.Control{1}, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.1/sys.Js, next[2], 1e-15)
	assert.Equal(t, dynamo.State{0, 0, 0, 0}, x)
}

func TestSchemesProduceDistinctSteps(t *testing.T) {
	m := cartPendulum(t)
	x0 := dynamo.State{0, 0.3, 0.1, 0}

	var finals []dynamo.State
	for _, scheme := range integrators.Schemes {
		sim, err := New(m, Config{Ts: 0.05, Alpha: Alpha(0), Scheme: scheme}, x0, random.New(1))
		require.NoError(t, err)
		_, err = sim.Update(dynamo.Control{1})
		require.NoError(t, err)
		finals = append(finals, sim.State())
	}

	assert.NotEqual(t, finals[0], finals[1])
	assert.NotEqual(t, finals[1], finals[2])
	assert.NotEqual(t, finals[0], finals[2])
}
