// dynamics/state.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dynamics

import (
	"fmt"
	"log/slog"
	gomath "math"

	"github.com/vtolsim/vtolsim/math"

	"gonum.org/v1/gonum/spatial/r3"
)

// State is the full rigid-body state of the vehicle. Positions are in the
// local NED frame (so altitude is -Position.Z); velocities and rates are
// in the body frame.
type State struct {
	Position    r3.Vec `json:"position" msgpack:"pos"`
	Velocity    r3.Vec `json:"velocity" msgpack:"vel"`         // u, v, w
	NEDVelocity r3.Vec `json:"ned_velocity" msgpack:"ned_vel"` // derived each step

	Phi   float64 `json:"phi" msgpack:"phi"`
	Theta float64 `json:"theta" msgpack:"theta"`
	Psi   float64 `json:"psi" msgpack:"psi"`

	P float64 `json:"p" msgpack:"p"`
	Q float64 `json:"q" msgpack:"q"`
	R float64 `json:"r" msgpack:"r"`

	Airspeed float64 `json:"airspeed" msgpack:"airspeed"`
	Armed    bool    `json:"armed" msgpack:"armed"`
	Mode     string  `json:"mode" msgpack:"mode"`
}

// Altitude is height above the NED origin, m.
func (s State) Altitude() float64 { return -s.Position.Z }

// ClimbRate is the vertical speed, positive up, m/s.
func (s State) ClimbRate() float64 { return -s.NEDVelocity.Z }

func (s State) Groundspeed() float64 {
	return gomath.Hypot(s.NEDVelocity.X, s.NEDVelocity.Y)
}

func (s State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("pos", fmt.Sprintf("%.1f,%.1f,%.1f", s.Position.X, s.Position.Y, s.Position.Z)),
		slog.String("att", fmt.Sprintf("%.1f,%.1f,%.1f", math.Degrees(s.Phi), math.Degrees(s.Theta), math.Degrees(s.Psi))),
		slog.Float64("airspeed", s.Airspeed),
		slog.Bool("armed", s.Armed),
		slog.String("mode", s.Mode))
}

// ForceMoment is the total force and moment acting on the vehicle, in body
// axes, along with the aerodynamic quantities they were computed from.
type ForceMoment struct {
	Force  r3.Vec `json:"force" msgpack:"f"`  // N
	Moment r3.Vec `json:"moment" msgpack:"m"` // N m: l, m, n

	Lift  float64 `json:"lift" msgpack:"lift"`
	Drag  float64 `json:"drag" msgpack:"drag"`
	Alpha float64 `json:"alpha" msgpack:"alpha"`
	Beta  float64 `json:"beta" msgpack:"beta"`
}

// Motor indices for ActuatorCommand.Motors.
const (
	MotorLF = iota
	MotorRF
	MotorRB
	MotorLB
	NumMotors
)

// ActuatorCommand carries one value per actuator. Out of the mixer the
// values are pulse widths in microseconds, with zero meaning no pulse;
// after the actuator model they are physical: thrust in newtons and
// surface deflections in radians.
type ActuatorCommand struct {
	Motors   [NumMotors]float64 `json:"motors" msgpack:"motors"`
	Throttle float64            `json:"throttle" msgpack:"throttle"`
	Aileron  float64            `json:"aileron" msgpack:"aileron"`
	Elevator float64            `json:"elevator" msgpack:"elevator"`
	Rudder   float64            `json:"rudder" msgpack:"rudder"`
}

func (a ActuatorCommand) IsZero() bool {
	return a == ActuatorCommand{}
}

func (a ActuatorCommand) TotalMotorThrust() float64 {
	var sum float64
	for _, m := range a.Motors {
		sum += m
	}
	return sum
}
