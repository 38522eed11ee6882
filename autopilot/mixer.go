// autopilot/mixer.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package autopilot

import (
	"fmt"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/pid"
)

type MixerConfig struct {
	PWM math.Range `json:"pwm"`
	// Surface commands in degrees and pusher throttle in percent that map
	// onto the full PWM range.
	Surface  math.Range `json:"surface"`
	Throttle math.Range `json:"throttle"`
}

func DefaultMixerConfig() MixerConfig {
	return MixerConfig{
		PWM:      math.Range{Min: 1100, Max: 2000},
		Surface:  math.Range{Min: -30, Max: 30},
		Throttle: math.Range{Min: 0, Max: 100},
	}
}

// Mixer turns controller outputs into per-channel pulse widths. A channel
// that is not driven in the current submode gets no pulse at all (0).
type Mixer struct {
	cfg                      MixerConfig
	motor, surface, throttle math.Scaler
}

func NewMixer(cfg MixerConfig) (*Mixer, error) {
	for _, r := range []struct {
		name string
		r    math.Range
	}{{"pwm", cfg.PWM}, {"surface", cfg.Surface}, {"throttle", cfg.Throttle}} {
		if !r.r.Increasing() {
			return nil, fmt.Errorf("mixer %s range %s: %w", r.name, r.r, pid.ErrInvalidLimits)
		}
	}

	motor, err := math.NewScaler(0, 1, cfg.PWM.Min, cfg.PWM.Max)
	if err != nil {
		return nil, fmt.Errorf("mixer pwm: %w", err)
	}
	surface, err := math.NewScaler(cfg.Surface.Min, cfg.Surface.Max, cfg.PWM.Min, cfg.PWM.Max)
	if err != nil {
		return nil, fmt.Errorf("mixer surface: %w", err)
	}
	throttle, err := math.NewScaler(cfg.Throttle.Min, cfg.Throttle.Max, cfg.PWM.Min, cfg.PWM.Max)
	if err != nil {
		return nil, fmt.Errorf("mixer throttle: %w", err)
	}
	return &Mixer{cfg: cfg, motor: motor, surface: surface, throttle: throttle}, nil
}

// Run returns the pulse widths for the given submode.
func (m *Mixer) Run(sub Submode, out ControlOutput) dynamics.ActuatorCommand {
	var pwm dynamics.ActuatorCommand

	switch sub {
	case SubmodeFW, SubmodeManual:
		m.fixedWing(&pwm, out.FW, true)
	case SubmodeQD:
		m.quad(&pwm, out.Quad)
	case SubmodeTransition:
		m.quad(&pwm, out.Quad)
		m.fixedWing(&pwm, out.FW, false)
	case SubmodeShutdown:
	}

	// Nothing is ever driven when shut down, whatever the controllers
	// produced.
	if sub == SubmodeShutdown || !sub.Valid() {
		pwm = dynamics.ActuatorCommand{}
	}
	return pwm
}

func (m *Mixer) fixedWing(pwm *dynamics.ActuatorCommand, fw FWOutput, surfaces bool) {
	pwm.Throttle = m.throttle.Scale(fw.Throttle)
	if surfaces {
		pwm.Aileron = m.surface.Scale(fw.Aileron)
		pwm.Elevator = m.surface.Scale(fw.Elevator)
		pwm.Rudder = m.surface.Scale(fw.Rudder)
	}
}

func (m *Mixer) quad(pwm *dynamics.ActuatorCommand, q QuadOutput) {
	t := q.Throttle
	pwm.Motors[dynamics.MotorLF] = m.motor.Scale(t + q.Roll + q.Pitch - q.Yaw)
	pwm.Motors[dynamics.MotorRF] = m.motor.Scale(t - q.Roll + q.Pitch + q.Yaw)
	pwm.Motors[dynamics.MotorRB] = m.motor.Scale(t - q.Roll - q.Pitch - q.Yaw)
	pwm.Motors[dynamics.MotorLB] = m.motor.Scale(t + q.Roll - q.Pitch + q.Yaw)
}
