// dynamics/kinematics.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dynamics

import (
	"fmt"

	"github.com/vtolsim/vtolsim/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kinematics evaluates the rigid-body equations of motion. The gamma
// coefficients are the closed-form inverse of the inertia tensor for an
// airframe with Jxy = Jyz = 0.
type Kinematics struct {
	mass  float64
	jy    float64
	gamma [9]float64 // gamma[1]..gamma[8]
}

func NewKinematics(j vehicle.Inertia, mass float64) (*Kinematics, error) {
	g := j.Gamma()
	if g == 0 || j.Jy == 0 {
		return nil, fmt.Errorf("Jx %g Jy %g Jz %g Jxz %g: %w", j.Jx, j.Jy, j.Jz, j.Jxz, vehicle.ErrDegenerateInertia)
	}
	if !(mass > 0) {
		return nil, fmt.Errorf("mass %g: %w", mass, vehicle.ErrDegenerateInertia)
	}

	k := &Kinematics{mass: mass, jy: j.Jy}
	k.gamma[1] = j.Jxz * (j.Jx - j.Jy + j.Jz) / g
	k.gamma[2] = (j.Jz*(j.Jz-j.Jy) + j.Jxz*j.Jxz) / g
	k.gamma[3] = j.Jz / g
	k.gamma[4] = j.Jxz / g
	k.gamma[5] = (j.Jz - j.Jx) / j.Jy
	k.gamma[6] = j.Jxz / j.Jy
	k.gamma[7] = ((j.Jx-j.Jy)*j.Jx + j.Jxz*j.Jxz) / g
	k.gamma[8] = j.Jx / g
	return k, nil
}

// Accelerations returns the body-frame linear acceleration (u', v', w')
// and angular acceleration (p', q', r') for the given state and loads.
func (k *Kinematics) Accelerations(s State, fm ForceMoment) (lin, ang r3.Vec) {
	u, v, w := s.Velocity.X, s.Velocity.Y, s.Velocity.Z
	p, q, r := s.P, s.Q, s.R
	l, m, n := fm.Moment.X, fm.Moment.Y, fm.Moment.Z
	g := &k.gamma

	lin = r3.Vec{
		X: r*v - q*w + fm.Force.X/k.mass,
		Y: p*w - r*u + fm.Force.Y/k.mass,
		Z: q*u - p*v + fm.Force.Z/k.mass,
	}
	ang = r3.Vec{
		X: g[1]*p*q - g[2]*q*r + g[3]*l + g[4]*n,
		Y: g[5]*p*r - g[6]*(p*p-r*r) + m/k.jy,
		Z: g[7]*p*q - g[1]*q*r + g[4]*l + g[8]*n,
	}
	return
}
