// dynamics/simulator.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dynamics

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrNonPositiveTimestep = errors.New("timestep must be positive")

// Below this |cos(theta)| the Euler-rate transform is evaluated as if
// pitch were just short of vertical.
const minCosTheta = 1e-6

// Simulator advances the vehicle state with a semi-implicit Euler step.
type Simulator struct {
	Forces     *ForceModel
	Kinematics *Kinematics
}

func NewSimulator(p vehicle.Properties) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	k, err := NewKinematics(p.Inertia, p.Mass)
	if err != nil {
		return nil, err
	}
	return &Simulator{Forces: NewForceModel(p), Kinematics: k}, nil
}

// Step returns the state dt seconds later, given physical actuator values,
// along with the loads that were applied. Body velocity and rates are
// integrated first; the attitude is then advanced with the updated rates
// and the updated velocity, rotated by the updated attitude, moves the
// vehicle.
func (sim *Simulator) Step(s State, a ActuatorCommand, dt float64) (State, ForceMoment, error) {
	if !(dt > 0) {
		return s, ForceMoment{}, fmt.Errorf("dt %g: %w", dt, ErrNonPositiveTimestep)
	}

	fm := sim.Forces.Compute(s, a)
	lin, ang := sim.Kinematics.Accelerations(s, fm)

	s.Velocity = r3.Add(s.Velocity, r3.Scale(dt, lin))
	s.P += ang.X * dt
	s.Q += ang.Y * dt
	s.R += ang.Z * dt

	phiDot, thetaDot, psiDot := eulerRates(s.Phi, s.Theta, s.P, s.Q, s.R)
	s.Phi = math.WrapPi(s.Phi + phiDot*dt)
	s.Theta = math.WrapPi(s.Theta + thetaDot*dt)
	s.Psi = math.WrapPi(s.Psi + psiDot*dt)

	bodyToNED := math.EulerRotation(s.Phi, s.Theta, s.Psi).Transpose()
	s.NEDVelocity = bodyToNED.MulVec(s.Velocity)
	s.Position = r3.Add(s.Position, r3.Scale(dt, s.NEDVelocity))

	s.Airspeed = r3.Norm(s.Velocity)

	return s, fm, nil
}

// eulerRates maps body rates to 3-2-1 Euler angle rates. With the vehicle
// level they are the body rates themselves.
func eulerRates(phi, theta, p, q, r float64) (phiDot, thetaDot, psiDot float64) {
	sphi, cphi := gomath.Sincos(phi)
	cth := gomath.Cos(theta)
	if math.Abs(cth) < minCosTheta {
		cth = gomath.Copysign(minCosTheta, cth)
	}
	tth := gomath.Sin(theta) / cth

	phiDot = p + (q*sphi+r*cphi)*tth
	thetaDot = q*cphi - r*sphi
	psiDot = (q*sphi + r*cphi) / cth
	return
}
