// vehicle/aerosonde.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vehicle

import "github.com/vtolsim/vtolsim/math"

// Aerosonde returns the Aerosonde small UAV airframe with a lift-rotor
// set added for vertical flight.
func Aerosonde() Properties {
	return Properties{
		Name: "Aerosonde QuadPlane",

		Mass: 13.5,
		Inertia: Inertia{
			Jx:  0.8244,
			Jy:  1.135,
			Jz:  1.759,
			Jxz: 0.1204,
		},

		WingArea:   0.55,
		WingSpan:   2.8956,
		Chord:      0.18994,
		AirDensity: 1.2682,
		StallSpeed: 20,

		Aero: AeroCoefficients{
			CL0:     0.23,
			CLAlpha: 5.61,
			CLQ:     7.95,
			CLDe:    0.13,

			CD0:     0.043,
			CDAlpha: 0.03,
			CDQ:     0,
			CDDe:    0.0135,

			CY0:    0,
			CYBeta: -0.98,
			CYP:    0,
			CYR:    0,
			CYDa:   0.075,
			CYDr:   0.19,

			Cl0:    0,
			ClBeta: -0.13,
			ClP:    -0.51,
			ClR:    0.25,
			ClDa:   0.17,
			ClDr:   0.0024,

			Cm0:     0.0135,
			CmAlpha: -2.74,
			CmQ:     -38.21,
			CmDe:    -0.99,

			Cn0:    0,
			CnBeta: 0.073,
			CnP:    -0.069,
			CnR:    -0.095,
			CnDa:   -0.011,
			CnDr:   -0.069,
		},

		Quad: QuadGeometry{
			ArmLength:      0.6,
			YawTorqueCoeff: 0.05,
		},

		Actuators: ActuatorLimits{
			PWM:            math.Range{Min: 1100, Max: 2000},
			MaxMotorThrust: 110,
			MaxFWThrust:    110,
			MaxDeflection:  30,
		},
	}
}
