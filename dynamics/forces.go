// dynamics/forces.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dynamics

import (
	gomath "math"

	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

// ForceModel computes the aerodynamic, gravitational and propulsive loads
// on the airframe. It holds no state between calls.
type ForceModel struct {
	props vehicle.Properties
}

func NewForceModel(p vehicle.Properties) *ForceModel {
	return &ForceModel{props: p}
}

// Compute returns the total body-axis force and moment for the given state
// and physical actuator values.
func (f *ForceModel) Compute(s State, a ActuatorCommand) ForceMoment {
	p := &f.props
	c := &p.Aero

	V := r3.Norm(s.Velocity)
	alpha := gomath.Atan2(s.Velocity.Z, s.Velocity.X)

	// With no relative wind there is no dynamic pressure and the
	// nondimensional rates are undefined; every aerodynamic term vanishes.
	var beta, qbar, pHat, qHat, rHat float64
	if V > 0 {
		beta = math.SafeASin(s.Velocity.Y / V)
		qbar = 0.5 * p.AirDensity * V * V
		pHat = s.P * p.WingSpan / (2 * V)
		qHat = s.Q * p.Chord / (2 * V)
		rHat = s.R * p.WingSpan / (2 * V)
	}

	CL := c.CL0 + c.CLAlpha*alpha + c.CLQ*qHat + c.CLDe*a.Elevator
	CD := c.CD0 + c.CDAlpha*math.Abs(alpha) + c.CDQ*math.Abs(qHat) + c.CDDe*math.Abs(a.Elevator)
	CY := c.CY0 + c.CYBeta*beta + c.CYP*pHat + c.CYR*rHat + c.CYDa*a.Aileron + c.CYDr*a.Rudder
	Cl := c.Cl0 + c.ClBeta*beta + c.ClP*pHat + c.ClR*rHat + c.ClDa*a.Aileron + c.ClDr*a.Rudder
	Cm := c.Cm0 + c.CmAlpha*alpha + c.CmQ*qHat + c.CmDe*a.Elevator
	Cn := c.Cn0 + c.CnBeta*beta + c.CnP*pHat + c.CnR*rHat + c.CnDa*a.Aileron + c.CnDr*a.Rudder

	qS := qbar * p.WingArea
	lift, drag := qS*CL, qS*CD

	// The stability axes are the body axes pitched by -alpha; lift and
	// drag act along -Z and -X there.
	stabilityToBody := math.EulerRotation(0, -alpha, 0).Transpose()
	force := stabilityToBody.MulVec(r3.Vec{X: -drag, Z: -lift})
	force.Y += qS * CY

	nedToBody := math.EulerRotation(s.Phi, s.Theta, s.Psi)
	force = r3.Add(force, nedToBody.MulVec(r3.Vec{Z: p.Mass * math.G}))

	force.X += a.Throttle
	force.Z -= a.TotalMotorThrust()

	moment := r3.Vec{
		X: qS * p.WingSpan * Cl,
		Y: qS * p.Chord * Cm,
		Z: qS * p.WingSpan * Cn,
	}
	moment = r3.Add(moment, f.rotorMoment(a.Motors))

	return ForceMoment{
		Force:  force,
		Moment: moment,
		Lift:   lift,
		Drag:   drag,
		Alpha:  alpha,
		Beta:   beta,
	}
}

// rotorMoment returns the roll, pitch and yaw moments produced by
// differential lift-rotor thrust. Left rotors roll the vehicle right,
// front rotors pitch it nose up and the clockwise pair (LF, RB) yaws it
// nose left.
func (f *ForceModel) rotorMoment(m [NumMotors]float64) r3.Vec {
	d := f.props.Quad.MomentArm()
	k := f.props.Quad.YawTorqueCoeff
	return r3.Vec{
		X: d * ((m[MotorLF] + m[MotorLB]) - (m[MotorRF] + m[MotorRB])),
		Y: d * ((m[MotorLF] + m[MotorRF]) - (m[MotorLB] + m[MotorRB])),
		Z: k * ((m[MotorRF] + m[MotorLB]) - (m[MotorLF] + m[MotorRB])),
	}
}
