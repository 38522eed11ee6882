// dynamics/actuators.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package dynamics

import (
	"fmt"

	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/vehicle"
)

// ActuatorModel converts pulse widths into rotor thrust and surface
// deflection. A channel with no pulse is off: its rotor produces no
// thrust and its surface is held at neutral.
type ActuatorModel struct {
	motor   math.Scaler
	pusher  math.Scaler
	surface math.Scaler
}

func NewActuatorModel(lim vehicle.ActuatorLimits) (*ActuatorModel, error) {
	pwm := lim.PWM
	motor, err := math.NewScaler(pwm.Min, pwm.Max, 0, lim.MaxMotorThrust)
	if err != nil {
		return nil, fmt.Errorf("motor pwm: %w", err)
	}
	pusher, err := math.NewScaler(pwm.Min, pwm.Max, 0, lim.MaxFWThrust)
	if err != nil {
		return nil, fmt.Errorf("throttle pwm: %w", err)
	}
	maxDefl := math.Radians(lim.MaxDeflection)
	surface, err := math.NewScaler(pwm.Min, pwm.Max, -maxDefl, maxDefl)
	if err != nil {
		return nil, fmt.Errorf("surface pwm: %w", err)
	}
	return &ActuatorModel{motor: motor, pusher: pusher, surface: surface}, nil
}

func (m *ActuatorModel) Run(pwm ActuatorCommand) ActuatorCommand {
	var out ActuatorCommand
	for i, v := range pwm.Motors {
		out.Motors[i] = scaleActive(m.motor, v, 0)
	}
	out.Throttle = scaleActive(m.pusher, pwm.Throttle, 0)
	out.Aileron = scaleActive(m.surface, pwm.Aileron, 0)
	out.Elevator = scaleActive(m.surface, pwm.Elevator, 0)
	out.Rudder = scaleActive(m.surface, pwm.Rudder, 0)
	return out
}

func scaleActive(s math.Scaler, pulse, off float64) float64 {
	if pulse <= 0 {
		return off
	}
	return s.Scale(pulse)
}
