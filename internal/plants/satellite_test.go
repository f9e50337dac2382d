package plants

import (
	"math"
	"testing"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/integrators"
)

func TestSatelliteEquilibrium(t *testing.T) {
	s := NewSatellite()

	dx, err := s.Derive(dynamo.State{0.4, 0.4, 0, 0}, dynamo.Control{0})
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	for i, v := range dx {
		if math.Abs(v) > 1e-15 {
			t.Errorf("expected zero derivative with relaxed spring, dx[%d]=%g", i, v)
		}
	}
}

func TestSatelliteTorque(t *testing.T) {
	s := NewSatellite()

	dx, err := s.Derive(dynamo.State{0, 0, 0, 0}, dynamo.Control{2.5})
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if math.Abs(dx[2]-2.5/s.Js) > 1e-12 {
		t.Errorf("expected thetaddot %f, got %f", 2.5/s.Js, dx[2])
	}
	if dx[3] != 0 {
		t.Errorf("panel should not accelerate before the spring twists, got %f", dx[3])
	}
}

func TestSatelliteSpringCoupling(t *testing.T) {
	s := NewSatellite()

	dx, err := s.Derive(dynamo.State{0.2, 0, 0, 0}, dynamo.Control{0})
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if math.Abs(dx[2]+s.K*0.2/s.Js) > 1e-12 {
		t.Errorf("unexpected body acceleration %f", dx[2])
	}
	if math.Abs(dx[3]-s.K*0.2/s.Jp) > 1e-12 {
		t.Errorf("unexpected panel acceleration %f", dx[3])
	}
}

func TestSatelliteEnergyConservation(t *testing.T) {
	s := NewSatellite()
	s.B = 0

	x := dynamo.State{0.5, -0.5, 0.1, 0}
	e0 := s.Energy(x)

	var err error
	for i := 0; i < 5000; i++ {
		x, err = integrators.Integrate(integrators.RK4, x, dynamo.Control{0}, s.Derive, 0.01)
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}

	drift := math.Abs(s.Energy(x)-e0) / e0
	if drift > 1e-6 {
		t.Errorf("energy drift too high: %e", drift)
	}
}
