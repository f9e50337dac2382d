// Package integrators advances a state vector by one fixed step under an
// explicit Runge-Kutta scheme.
//
// The set of schemes is closed, so it is modeled as the [Scheme] enum and
// dispatched through [Integrate] rather than through an interface:
//
//	next, err := integrators.Integrate(integrators.RK4, x, u, f, 0.01)
//
// There is no step-size control; every call advances exactly ts.
package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/plantsim/internal/dynamo"
)

type Scheme int

const (
	RK1 Scheme = iota + 1
	RK2
	RK4
)

// Schemes lists every supported scheme in order of increasing stage count.
var Schemes = []Scheme{RK1, RK2, RK4}

func (s Scheme) String() string {
	switch s {
	case RK1:
		return "rk1"
	case RK2:
		return "rk2"
	case RK4:
		return "rk4"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// Stages is the number of derivative evaluations per step.
func (s Scheme) Stages() int {
	switch s {
	case RK1:
		return 1
	case RK2:
		return 2
	case RK4:
		return 4
	default:
		return 0
	}
}

func (s Scheme) Valid() bool { return s.Stages() > 0 }

func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rk1", "euler":
		return RK1, nil
	case "rk2":
		return RK2, nil
	case "rk4", "":
		return RK4, nil
	default:
		return 0, dynamo.Invalidf("unknown integration scheme %q", name)
	}
}

func (s Scheme) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, dynamo.Invalidf("unknown integration scheme %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Scheme) UnmarshalText(text []byte) error {
	parsed, err := ParseScheme(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Integrate advances x by one step of length ts with input u held constant.
// Stages run strictly in order; the first derivative error aborts the step
// and is returned unchanged. x is never modified.
func Integrate(scheme Scheme, x dynamo.State, u dynamo.Control, f dynamo.Derivative, ts float64) (dynamo.State, error) {
	switch scheme {
	case RK1:
		return stepRK1(x, u, f, ts)
	case RK2:
		return stepRK2(x, u, f, ts)
	case RK4:
		return stepRK4(x, u, f, ts)
	default:
		return nil, dynamo.Invalidf("unknown integration scheme %d", int(scheme))
	}
}
