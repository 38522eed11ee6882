// autopilot/fixedwing.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package autopilot

import (
	"fmt"
	"strings"
	"time"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/pid"

	einride "go.einride.tech/pid"
)

// Longitudinal selects how the fixed-wing controller manages height and
// speed.
type Longitudinal int

const (
	// Height drives pitch and airspeed drives throttle independently.
	LongitudinalClassic Longitudinal = iota
	// Total energy drives throttle and the kinetic/potential balance
	// drives pitch.
	LongitudinalTECS
)

func (l Longitudinal) String() string {
	switch l {
	case LongitudinalClassic:
		return "classic"
	case LongitudinalTECS:
		return "tecs"
	default:
		return fmt.Sprintf("Longitudinal(%d)", int(l))
	}
}

func (l Longitudinal) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Longitudinal) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "classic":
		*l = LongitudinalClassic
	case "tecs":
		*l = LongitudinalTECS
	default:
		return fmt.Errorf("%q: unknown longitudinal control law", string(b))
	}
	return nil
}

type TECSConfig struct {
	Throttle      pid.Gains  `json:"throttle"` // Kp, Kd used; percent per meter of energy
	Pitch         pid.Gains  `json:"pitch"`    // Kp, Kd used; radians per meter of energy
	TrimThrottle  float64    `json:"trim_throttle"`
	ThrottleLimit math.Range `json:"throttle_limit"`
}

// FixedWingConfig holds the loop gains. Loop inputs are SI units and
// radians; aileron, elevator and rudder come out in degrees and throttle
// in percent.
type FixedWingConfig struct {
	Longitudinal Longitudinal `json:"longitudinal"`

	Heading  pid.Config `json:"heading"`   // heading error -> roll
	Roll     pid.Config `json:"roll"`      // roll -> roll rate
	RollRate pid.Config `json:"roll_rate"` // roll rate -> aileron

	Altitude  pid.Config `json:"altitude"`   // height -> pitch
	Pitch     pid.Config `json:"pitch"`      // pitch -> pitch rate
	PitchRate pid.Config `json:"pitch_rate"` // pitch rate -> elevator
	Airspeed  pid.Config `json:"airspeed"`   // airspeed -> throttle

	TECS TECSConfig `json:"tecs"`

	MaxRoll   float64 `json:"max_roll"`
	RudderMix float64 `json:"rudder_mix"`
}

func DefaultFixedWingConfig() FixedWingConfig {
	return FixedWingConfig{
		Longitudinal: LongitudinalClassic,

		Heading:  pid.Symmetric(1, 0, 0, math.Radians(30), 1),
		Roll:     pid.Symmetric(3, 0, 0, 1, 1),
		RollRate: pid.Symmetric(5, 10, 0, 30, 1.5),

		Altitude:  pid.Symmetric(0.01, 0.001, 0, math.Radians(15), 100),
		Pitch:     pid.Symmetric(2.5, 0, 0, 0.5, 1),
		PitchRate: pid.Symmetric(5, 5, 0, 30, 3),
		Airspeed: pid.Config{
			Gains:    pid.Gains{Kp: 5, Ki: 2},
			Output:   math.Range{Min: 0, Max: 100},
			Integral: math.Range{Min: -30, Max: 30},
		},

		TECS: TECSConfig{
			Throttle:      pid.Gains{Kp: 2, Kd: 0.5},
			Pitch:         pid.Gains{Kp: 0.01, Kd: 0.005},
			TrimThrottle:  15,
			ThrottleLimit: math.Range{Min: 0, Max: 100},
		},

		MaxRoll:   math.Radians(30),
		RudderMix: -0.7,
	}
}

// FixedWingController runs the lateral and longitudinal cascades for
// wing-borne flight.
type FixedWingController struct {
	cfg FixedWingConfig
	dt  float64

	heading, roll, rollRate           *pid.Controller
	altitude, pitch, pitchRate, speed *pid.Controller

	tecsThrottle, tecsPitch einride.Controller
}

func NewFixedWingController(cfg FixedWingConfig, dt float64) (*FixedWingController, error) {
	c := &FixedWingController{cfg: cfg, dt: dt}

	for _, l := range []struct {
		name string
		cfg  pid.Config
		p    **pid.Controller
	}{
		{"heading", cfg.Heading, &c.heading},
		{"roll", cfg.Roll, &c.roll},
		{"roll_rate", cfg.RollRate, &c.rollRate},
		{"altitude", cfg.Altitude, &c.altitude},
		{"pitch", cfg.Pitch, &c.pitch},
		{"pitch_rate", cfg.PitchRate, &c.pitchRate},
		{"airspeed", cfg.Airspeed, &c.speed},
	} {
		var err error
		if *l.p, err = pid.New(l.cfg); err != nil {
			return nil, fmt.Errorf("fixed-wing %s loop: %w", l.name, err)
		}
	}
	if cfg.TECS.ThrottleLimit.Min >= cfg.TECS.ThrottleLimit.Max {
		return nil, fmt.Errorf("tecs throttle limit %s: %w", cfg.TECS.ThrottleLimit, pid.ErrInvalidLimits)
	}

	c.tecsThrottle.Config = einride.ControllerConfig{
		ProportionalGain: cfg.TECS.Throttle.Kp,
		DerivativeGain:   cfg.TECS.Throttle.Kd,
	}
	c.tecsPitch.Config = einride.ControllerConfig{
		ProportionalGain: cfg.TECS.Pitch.Kp,
		DerivativeGain:   cfg.TECS.Pitch.Kd,
	}
	return c, nil
}

func (c *FixedWingController) Config() FixedWingConfig { return c.cfg }

// Reset clears every loop's integrator and derivative history.
func (c *FixedWingController) Reset() {
	for _, p := range c.loops() {
		p.Reset()
	}
	c.tecsThrottle.State = einride.ControllerState{}
	c.tecsPitch.State = einride.ControllerState{}
}

func (c *FixedWingController) loops() []*pid.Controller {
	return []*pid.Controller{c.heading, c.roll, c.rollRate, c.altitude, c.pitch, c.pitchRate, c.speed}
}

func (c *FixedWingController) Run(t FWTarget, s dynamics.State, flags ControllerFlags) (FWOutput, error) {
	var out FWOutput

	aileron, err := c.lateral(t, s, flags)
	if err != nil {
		return out, err
	}

	var pitchCmd, throttle float64
	switch c.cfg.Longitudinal {
	case LongitudinalTECS:
		pitchCmd, throttle = c.tecs(t, s)
	case LongitudinalClassic:
		if pitchCmd, err = c.altitude.Update(t.Altitude, s.Altitude(), c.dt); err != nil {
			return out, err
		}
		if throttle, err = c.speed.Update(t.Airspeed, s.Airspeed, c.dt); err != nil {
			return out, err
		}
	default:
		return out, fmt.Errorf("%s: unknown longitudinal control law", c.cfg.Longitudinal)
	}

	var qCmd float64
	if flags.Angle {
		if qCmd, err = c.pitch.Update(pitchCmd, s.Theta, c.dt); err != nil {
			return out, err
		}
	}
	if flags.Rate {
		// Positive elevator pitches the nose down.
		e, err := c.pitchRate.Update(qCmd, s.Q, c.dt)
		if err != nil {
			return out, err
		}
		out.Elevator = -e
		out.Aileron = aileron
		out.Rudder = c.cfg.RudderMix * aileron
	}
	if flags.Throttle {
		out.Throttle = throttle
	}
	return out, nil
}

func (c *FixedWingController) lateral(t FWTarget, s dynamics.State, flags ControllerFlags) (float64, error) {
	rollCmd := t.Roll
	if t.HoldHeading {
		var err error
		if rollCmd, err = c.heading.Update(math.AngleDifference(t.Heading, s.Psi), 0, c.dt); err != nil {
			return 0, err
		}
	}
	rollCmd = math.Clamp(rollCmd, -c.cfg.MaxRoll, c.cfg.MaxRoll)

	var pCmd float64
	if flags.Angle {
		var err error
		if pCmd, err = c.roll.Update(rollCmd, s.Phi, c.dt); err != nil {
			return 0, err
		}
	}
	if !flags.Rate {
		return 0, nil
	}
	return c.rollRate.Update(pCmd, s.P, c.dt)
}

// tecs returns the pitch command and throttle from the total energy
// error and the energy balance error, both expressed as heights.
func (c *FixedWingController) tecs(t FWTarget, s dynamics.State) (pitchCmd, throttle float64) {
	dh := s.Altitude() - t.Altitude
	dk := (math.Sqr(s.Airspeed) - math.Sqr(t.Airspeed)) / (2 * math.G)

	interval := time.Duration(c.dt * float64(time.Second))
	c.tecsThrottle.Update(einride.ControllerInput{
		ReferenceSignal:  0,
		ActualSignal:     dh + dk,
		SamplingInterval: interval,
	})
	c.tecsPitch.Update(einride.ControllerInput{
		ReferenceSignal:  0,
		ActualSignal:     dh - dk,
		SamplingInterval: interval,
	})

	throttle = c.cfg.TECS.ThrottleLimit.Clamp(c.cfg.TECS.TrimThrottle + c.tecsThrottle.State.ControlSignal)
	pitchCmd = c.cfg.Altitude.Output.Clamp(c.tecsPitch.State.ControlSignal)
	return
}
