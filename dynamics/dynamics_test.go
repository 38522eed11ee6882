// dynamics/dynamics_test.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dynamics

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

const dt = 0.01

func near(a, b, tol float64) bool { return gomath.Abs(a-b) <= tol }

func makeSimulator(t *testing.T) *Simulator {
	t.Helper()
	sim, err := NewSimulator(vehicle.Aerosonde())
	if err != nil {
		t.Fatalf("unable to create simulator: %v", err)
	}
	return sim
}

func TestGravityOnlyAtRest(t *testing.T) {
	p := vehicle.Aerosonde()
	fm := NewForceModel(p).Compute(State{}, ActuatorCommand{})

	expected := r3.Vec{Z: p.Mass * math.G}
	if r3.Norm(r3.Sub(fm.Force, expected)) > 1e-9 {
		t.Errorf("expected gravity only %v, got %v", expected, fm.Force)
	}
	if r3.Norm(fm.Moment) != 0 {
		t.Errorf("expected no moment at rest, got %v", fm.Moment)
	}
	if gomath.IsNaN(fm.Beta) || fm.Lift != 0 || fm.Drag != 0 {
		t.Errorf("aerodynamic terms should vanish at zero airspeed: %+v", fm)
	}
}

func TestSymmetricFlight(t *testing.T) {
	p := vehicle.Aerosonde()
	s := State{Velocity: r3.Vec{X: 30, Z: 1.5}}
	a := ActuatorCommand{Motors: [NumMotors]float64{20, 20, 20, 20}, Throttle: 15, Elevator: -0.05}

	fm := NewForceModel(p).Compute(s, a)
	if fm.Force.Y != 0 {
		t.Errorf("expected zero side force, got %g", fm.Force.Y)
	}
	if fm.Moment.X != 0 || fm.Moment.Z != 0 {
		t.Errorf("expected zero roll and yaw moment, got %v", fm.Moment)
	}
	if fm.Lift <= 0 || fm.Drag <= 0 {
		t.Errorf("expected positive lift and drag, got %g %g", fm.Lift, fm.Drag)
	}
}

func TestLiftAndDragDirections(t *testing.T) {
	p := vehicle.Aerosonde()
	fm := NewForceModel(p).Compute(State{Velocity: r3.Vec{X: 30, Z: 3}}, ActuatorCommand{})

	// Gravity is along +Z at level attitude, so X only sees aerodynamics:
	// -D cos(alpha) + L sin(alpha).
	ca, sa := gomath.Cos(fm.Alpha), gomath.Sin(fm.Alpha)
	if !near(fm.Force.X, -fm.Drag*ca+fm.Lift*sa, 1e-9) {
		t.Errorf("body X force %g does not match rotated lift/drag", fm.Force.X)
	}
	if !near(fm.Force.Z, -fm.Drag*sa-fm.Lift*ca+p.Mass*math.G, 1e-9) {
		t.Errorf("body Z force %g does not match rotated lift/drag plus gravity", fm.Force.Z)
	}
}

func TestRotorMoments(t *testing.T) {
	p := vehicle.Aerosonde()
	f := NewForceModel(p)

	for _, tc := range []struct {
		name   string
		motors [NumMotors]float64
		sign   r3.Vec
	}{
		{"left rotors roll right", [NumMotors]float64{MotorLF: 10, MotorLB: 10}, r3.Vec{X: 1, Y: 0, Z: 0}},
		{"front rotors pitch up", [NumMotors]float64{MotorLF: 10, MotorRF: 10}, r3.Vec{X: 0, Y: 1, Z: 0}},
		{"ccw pair yaws right", [NumMotors]float64{MotorRF: 10, MotorLB: 10}, r3.Vec{X: 0, Y: 0, Z: 1}},
	} {
		fm := f.Compute(State{}, ActuatorCommand{Motors: tc.motors})
		got := r3.Vec{X: math.Sign(fm.Moment.X), Y: math.Sign(fm.Moment.Y), Z: math.Sign(fm.Moment.Z)}
		if got != tc.sign {
			t.Errorf("%s: moment %v has signs %v, expected %v", tc.name, fm.Moment, got, tc.sign)
		}
		if !near(fm.Force.Z, p.Mass*math.G-20, 1e-9) {
			t.Errorf("%s: each rotor should count once in the thrust sum, got Fz %g", tc.name, fm.Force.Z)
		}
	}
}

func TestKinematics(t *testing.T) {
	if _, err := NewKinematics(vehicle.Inertia{Jx: 1, Jy: 1, Jz: 1, Jxz: 1}, 1); !errors.Is(err, vehicle.ErrDegenerateInertia) {
		t.Errorf("expected ErrDegenerateInertia, got %v", err)
	}
	if _, err := NewKinematics(vehicle.Inertia{Jx: 1, Jy: 1, Jz: 1}, 0); !errors.Is(err, vehicle.ErrDegenerateInertia) {
		t.Errorf("expected ErrDegenerateInertia for zero mass, got %v", err)
	}

	k, err := NewKinematics(vehicle.Inertia{Jx: 2, Jy: 3, Jz: 4}, 5)
	if err != nil {
		t.Fatal(err)
	}
	lin, ang := k.Accelerations(State{}, ForceMoment{Force: r3.Vec{X: 10, Y: -5, Z: 20}, Moment: r3.Vec{X: 4, Y: 6, Z: 8}})
	if lin != (r3.Vec{X: 2, Y: -1, Z: 4}) {
		t.Errorf("linear acceleration: got %v", lin)
	}
	// With no product of inertia the axes decouple.
	if !near(ang.X, 2, 1e-12) || !near(ang.Y, 2, 1e-12) || !near(ang.Z, 2, 1e-12) {
		t.Errorf("angular acceleration: got %v", ang)
	}

	// Coriolis coupling: flying forward while pitching up pushes w.
	lin, _ = k.Accelerations(State{Velocity: r3.Vec{X: 10}, Q: 0.5}, ForceMoment{})
	if !near(lin.Z, 5, 1e-12) {
		t.Errorf("expected w' = q u = 5, got %g", lin.Z)
	}
}

func TestYawWrap(t *testing.T) {
	sim := makeSimulator(t)
	s, _, err := sim.Step(State{R: 2 * gomath.Pi / dt}, ActuatorCommand{}, dt)
	if err != nil {
		t.Fatal(err)
	}
	if s.Psi <= -gomath.Pi || s.Psi > gomath.Pi {
		t.Errorf("psi %f outside (-pi, pi]", s.Psi)
	}

	s, _, _ = sim.Step(State{Psi: gomath.Pi - 0.001, R: 1}, ActuatorCommand{}, dt)
	if !near(s.Psi, -gomath.Pi+0.009, 1e-6) {
		t.Errorf("expected psi to wrap to %f, got %f", -gomath.Pi+0.009, s.Psi)
	}
}

func TestDragDecay(t *testing.T) {
	sim := makeSimulator(t)
	s := State{Position: r3.Vec{Z: -1000}, Velocity: r3.Vec{X: 30}, Armed: true}
	prev := s.Velocity.X
	for i := 0; i < 10; i++ {
		var err error
		s, _, err = sim.Step(s, ActuatorCommand{}, dt)
		if err != nil {
			t.Fatal(err)
		}
		if s.Velocity.X >= prev {
			t.Fatalf("tick %d: u did not decrease: %f -> %f", i, prev, s.Velocity.X)
		}
		prev = s.Velocity.X
	}
}

func TestPositionFollowsHeading(t *testing.T) {
	sim := makeSimulator(t)
	// Heading east with the rotors holding the vehicle up.
	p := vehicle.Aerosonde()
	hover := p.Mass * math.G / 4
	s := State{Velocity: r3.Vec{X: 1}, Psi: gomath.Pi / 2}
	s, _, err := sim.Step(s, ActuatorCommand{Motors: [NumMotors]float64{hover, hover, hover, hover}}, dt)
	if err != nil {
		t.Fatal(err)
	}
	if s.Position.Y <= 0 || !near(s.Position.X, 0, 1e-6) {
		t.Errorf("expected eastward motion, got position %v", s.Position)
	}
	if !near(s.Airspeed, r3.Norm(s.Velocity), 1e-12) {
		t.Errorf("airspeed should be |v_body|")
	}
}

func TestStepRejectsBadTimestep(t *testing.T) {
	sim := makeSimulator(t)
	for _, bad := range []float64{0, -1} {
		if _, _, err := sim.Step(State{}, ActuatorCommand{}, bad); !errors.Is(err, ErrNonPositiveTimestep) {
			t.Errorf("dt %g: expected ErrNonPositiveTimestep, got %v", bad, err)
		}
	}
}

func TestActuatorModel(t *testing.T) {
	p := vehicle.Aerosonde()
	m, err := NewActuatorModel(p.Actuators)
	if err != nil {
		t.Fatal(err)
	}

	out := m.Run(ActuatorCommand{
		Motors:   [NumMotors]float64{1100, 2000, 1550, 0},
		Throttle: 2000,
		Aileron:  2000,
		Elevator: 1100,
		Rudder:   0,
	})
	if out.Motors != [NumMotors]float64{0, 110, 55, 0} {
		t.Errorf("motor thrust: got %v", out.Motors)
	}
	if out.Throttle != 110 {
		t.Errorf("throttle thrust: got %g", out.Throttle)
	}
	if !near(out.Aileron, math.Radians(30), 1e-12) || !near(out.Elevator, math.Radians(-30), 1e-12) {
		t.Errorf("surface deflection: got %g %g", out.Aileron, out.Elevator)
	}
	if out.Rudder != 0 {
		t.Errorf("no pulse should hold the surface at neutral, got %g", out.Rudder)
	}

	if !m.Run(ActuatorCommand{}).IsZero() {
		t.Errorf("all-zero pulses should produce an all-zero physical command")
	}

	lim := p.Actuators
	lim.PWM = math.Range{Min: 1500, Max: 1500}
	if _, err := NewActuatorModel(lim); !errors.Is(err, math.ErrZeroWidthRange) {
		t.Errorf("expected ErrZeroWidthRange, got %v", err)
	}
}
