// vehicle/properties.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package vehicle holds the static description of a QuadPlane airframe:
// mass properties, wing geometry, the aerodynamic coefficient table, the
// lift-rotor layout and actuator limits.
package vehicle

import (
	"errors"
	"fmt"
	gomath "math"
	"os"

	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/util"
)

var ErrDegenerateInertia = errors.New("inertia tensor is degenerate")

// Inertia holds the body-axis moments of inertia, kg m^2. Jxy and Jyz are
// taken to be zero (the airframe is symmetric about its x-z plane).
type Inertia struct {
	Jx  float64 `json:"jx"`
	Jy  float64 `json:"jy"`
	Jz  float64 `json:"jz"`
	Jxz float64 `json:"jxz"`
}

// Gamma returns Jx*Jz - Jxz^2, the determinant that appears in every
// coefficient of the rotational equations of motion.
func (i Inertia) Gamma() float64 {
	return i.Jx*i.Jz - i.Jxz*i.Jxz
}

// AeroCoefficients are the stability and control derivatives of the
// airframe; angles in radians and rates nondimensionalized by b/2V (lateral)
// or c/2V (longitudinal).
type AeroCoefficients struct {
	CL0     float64 `json:"CL0"`
	CLAlpha float64 `json:"CLalpha"`
	CLQ     float64 `json:"CLq"`
	CLDe    float64 `json:"CLde"`

	CD0     float64 `json:"CD0"`
	CDAlpha float64 `json:"CDalpha"`
	CDQ     float64 `json:"CDq"`
	CDDe    float64 `json:"CDde"`

	CY0    float64 `json:"CY0"`
	CYBeta float64 `json:"CYbeta"`
	CYP    float64 `json:"CYp"`
	CYR    float64 `json:"CYr"`
	CYDa   float64 `json:"CYda"`
	CYDr   float64 `json:"CYdr"`

	Cl0    float64 `json:"Cl0"`
	ClBeta float64 `json:"Clbeta"`
	ClP    float64 `json:"Clp"`
	ClR    float64 `json:"Clr"`
	ClDa   float64 `json:"Clda"`
	ClDr   float64 `json:"Cldr"`

	Cm0     float64 `json:"Cm0"`
	CmAlpha float64 `json:"Cmalpha"`
	CmQ     float64 `json:"Cmq"`
	CmDe    float64 `json:"Cmde"`

	Cn0    float64 `json:"Cn0"`
	CnBeta float64 `json:"Cnbeta"`
	CnP    float64 `json:"Cnp"`
	CnR    float64 `json:"Cnr"`
	CnDa   float64 `json:"Cnda"`
	CnDr   float64 `json:"Cndr"`
}

// QuadGeometry describes the four lift rotors, mounted in an X with the
// front-left and rear-right rotors spinning clockwise seen from above.
type QuadGeometry struct {
	// Distance from the center of gravity to each rotor hub, m.
	ArmLength float64 `json:"arm_length"`
	// Reaction torque per newton of rotor thrust, N m / N.
	YawTorqueCoeff float64 `json:"yaw_torque_coeff"`
}

// MomentArm is the perpendicular distance from each rotor to the roll and
// pitch axes.
func (q QuadGeometry) MomentArm() float64 {
	return q.ArmLength * gomath.Sqrt2 / 2
}

type ActuatorLimits struct {
	// Commanded pulse range, microseconds.
	PWM            math.Range `json:"pwm"`
	MaxMotorThrust float64    `json:"max_motor_thrust"` // N, each lift rotor
	MaxFWThrust    float64    `json:"max_fw_thrust"`    // N, pusher
	MaxDeflection  float64    `json:"max_deflection"`   // degrees, control surfaces
}

type Properties struct {
	Name string `json:"name"`

	Mass    float64 `json:"mass"` // kg
	Inertia Inertia `json:"inertia"`

	WingArea   float64 `json:"wing_area"`   // m^2
	WingSpan   float64 `json:"wing_span"`   // m
	Chord      float64 `json:"chord"`       // m
	AirDensity float64 `json:"air_density"` // kg/m^3
	StallSpeed float64 `json:"stall_speed"` // m/s

	Aero      AeroCoefficients `json:"aero"`
	Quad      QuadGeometry     `json:"quad"`
	Actuators ActuatorLimits   `json:"actuators"`
}

// Validate checks everything that would make the equations of motion or
// the actuator model ill-defined and reports all problems together.
func (p *Properties) Validate() error {
	var e util.ErrorLogger
	e.Push("vehicle " + p.Name)

	if !(p.Mass > 0) {
		e.ErrorString("mass must be positive, got %g", p.Mass)
	}

	e.Push("inertia")
	if !(p.Inertia.Jx > 0) || !(p.Inertia.Jy > 0) || !(p.Inertia.Jz > 0) {
		e.ErrorString("principal moments must be positive: %+v", p.Inertia)
	}
	if p.Inertia.Gamma() == 0 {
		e.Error(fmt.Errorf("Jx*Jz - Jxz^2 is zero: %w", ErrDegenerateInertia))
	}
	e.Pop()

	e.Push("geometry")
	for _, v := range []struct {
		name string
		v    float64
	}{{"wing_area", p.WingArea}, {"wing_span", p.WingSpan}, {"chord", p.Chord}, {"air_density", p.AirDensity}} {
		if !(v.v > 0) {
			e.ErrorString("%s must be positive, got %g", v.name, v.v)
		}
	}
	if p.StallSpeed < 0 {
		e.ErrorString("stall_speed must not be negative, got %g", p.StallSpeed)
	}
	if p.Quad.ArmLength <= 0 {
		e.ErrorString("quad arm_length must be positive, got %g", p.Quad.ArmLength)
	}
	e.Pop()

	e.Push("actuators")
	if p.Actuators.PWM.Min >= p.Actuators.PWM.Max {
		e.Error(fmt.Errorf("pwm %s: %w", p.Actuators.PWM, math.ErrZeroWidthRange))
	}
	if !(p.Actuators.MaxMotorThrust > 0) || !(p.Actuators.MaxFWThrust > 0) {
		e.ErrorString("thrust limits must be positive, got %g and %g", p.Actuators.MaxMotorThrust,
			p.Actuators.MaxFWThrust)
	}
	if !(p.Actuators.MaxDeflection > 0) {
		e.ErrorString("max_deflection must be positive, got %g", p.Actuators.MaxDeflection)
	}
	e.Pop()

	e.Pop()
	return e.Err()
}

// Load reads a vehicle description from a JSON file. Fields that are not
// present keep their Aerosonde values, so a file only needs to list what
// differs.
func Load(path string) (Properties, error) {
	p := Aerosonde()

	f, err := os.Open(path)
	if err != nil {
		return Properties{}, err
	}
	defer f.Close()

	var e util.ErrorLogger
	e.Push(path)
	if err := util.LoadJSON(f, &p, &e); err != nil {
		return Properties{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Properties{}, err
	}
	return p, nil
}
