// autopilot/quad.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package autopilot

import (
	"fmt"
	gomath "math"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/pid"
)

type QuadConfig struct {
	Position pid.Config `json:"position"` // horizontal position -> velocity, m/s
	Velocity pid.Config `json:"velocity"` // velocity -> acceleration, m/s^2

	RollAngle  pid.Config `json:"roll_angle"`  // -> roll rate
	PitchAngle pid.Config `json:"pitch_angle"` // -> pitch rate
	YawAngle   pid.Config `json:"yaw_angle"`   // -> yaw rate

	RollRate  pid.Config `json:"roll_rate"`
	PitchRate pid.Config `json:"pitch_rate"`
	YawRate   pid.Config `json:"yaw_rate"`

	Altitude  pid.Config `json:"altitude"`   // height -> climb rate
	ClimbRate pid.Config `json:"climb_rate"` // climb rate -> throttle

	MaxTilt float64 `json:"max_tilt"`
	// Largest normalized roll, pitch or yaw demand handed to the mixer.
	Authority float64 `json:"authority"`
}

func DefaultQuadConfig() QuadConfig {
	return QuadConfig{
		Position: pid.Symmetric(0.5, 0, 0, 5, 1),
		Velocity: pid.Symmetric(1, 0.1, 0, 5, 10),

		RollAngle:  pid.Symmetric(4, 0, 0, 2, 1),
		PitchAngle: pid.Symmetric(4, 0, 0, 2, 1),
		YawAngle:   pid.Symmetric(1, 0, 0, 1, 1),

		RollRate:  pid.Symmetric(0.2, 0.1, 0.005, 1, 1),
		PitchRate: pid.Symmetric(0.2, 0.1, 0.005, 1, 1),
		YawRate:   pid.Symmetric(1, 0.1, 0, 1, 1),

		Altitude:  pid.Symmetric(1, 0, 0, 3, 1),
		ClimbRate: pid.Symmetric(0.3, 0.3, 0, 1, 3),

		MaxTilt:   math.Radians(30),
		Authority: 0.25,
	}
}

// QuadController flies the vehicle as a multirotor: position, velocity,
// attitude and rate loops for the horizontal axes and a height/climb-rate
// cascade for throttle.
type QuadController struct {
	cfg QuadConfig
	dt  float64

	posX, posY, velX, velY       *pid.Controller
	rollAngle, pitchAngle, yaw   *pid.Controller
	rollRate, pitchRate, yawRate *pid.Controller
	altitude, climb              *pid.Controller

	// Rescale the rate and climb loop outputs to mixer units.
	roll, pitch, yawOut, throttle math.Scaler
}

func NewQuadController(cfg QuadConfig, dt float64) (*QuadController, error) {
	c := &QuadController{cfg: cfg, dt: dt}

	for _, l := range []struct {
		name string
		cfg  pid.Config
		p    **pid.Controller
	}{
		{"x position", cfg.Position, &c.posX},
		{"y position", cfg.Position, &c.posY},
		{"x velocity", cfg.Velocity, &c.velX},
		{"y velocity", cfg.Velocity, &c.velY},
		{"roll angle", cfg.RollAngle, &c.rollAngle},
		{"pitch angle", cfg.PitchAngle, &c.pitchAngle},
		{"yaw angle", cfg.YawAngle, &c.yaw},
		{"roll rate", cfg.RollRate, &c.rollRate},
		{"pitch rate", cfg.PitchRate, &c.pitchRate},
		{"yaw rate", cfg.YawRate, &c.yawRate},
		{"altitude", cfg.Altitude, &c.altitude},
		{"climb rate", cfg.ClimbRate, &c.climb},
	} {
		var err error
		if *l.p, err = pid.New(l.cfg); err != nil {
			return nil, fmt.Errorf("quad %s loop: %w", l.name, err)
		}
	}

	if !(cfg.Authority > 0) {
		return nil, fmt.Errorf("quad authority %g: %w", cfg.Authority, math.ErrZeroWidthRange)
	}
	var err error
	toMixer := func(r math.Range, lo, hi float64) math.Scaler {
		if err != nil {
			return math.Scaler{}
		}
		var s math.Scaler
		s, err = math.NewScaler(r.Min, r.Max, lo, hi)
		return s
	}
	a := cfg.Authority
	c.roll = toMixer(cfg.RollRate.Output, -a, a)
	c.pitch = toMixer(cfg.PitchRate.Output, -a, a)
	c.yawOut = toMixer(cfg.YawRate.Output, -a, a)
	c.throttle = toMixer(cfg.ClimbRate.Output, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("quad output scaling: %w", err)
	}
	return c, nil
}

func (c *QuadController) Config() QuadConfig { return c.cfg }

func (c *QuadController) Reset() {
	for _, p := range []*pid.Controller{c.posX, c.posY, c.velX, c.velY, c.rollAngle, c.pitchAngle, c.yaw,
		c.rollRate, c.pitchRate, c.yawRate, c.altitude, c.climb} {
		p.Reset()
	}
}

func (c *QuadController) Run(t QuadTarget, s dynamics.State, flags ControllerFlags) (QuadOutput, error) {
	var out QuadOutput

	rollCmd, pitchCmd := t.Roll, t.Pitch
	if flags.Position {
		var err error
		if rollCmd, pitchCmd, err = c.tilt(t, s); err != nil {
			return out, err
		}
	}
	rollCmd = math.Clamp(rollCmd, -c.cfg.MaxTilt, c.cfg.MaxTilt)
	pitchCmd = math.Clamp(pitchCmd, -c.cfg.MaxTilt, c.cfg.MaxTilt)

	var pc, qc, rc float64
	if flags.Angle {
		var err error
		if pc, err = c.rollAngle.Update(rollCmd, s.Phi, c.dt); err != nil {
			return out, err
		}
		if qc, err = c.pitchAngle.Update(pitchCmd, s.Theta, c.dt); err != nil {
			return out, err
		}
		if rc, err = c.yaw.Update(math.AngleDifference(t.Heading, s.Psi), 0, c.dt); err != nil {
			return out, err
		}
	}

	if flags.Rate {
		p, err := c.rollRate.Update(pc, s.P, c.dt)
		if err != nil {
			return out, err
		}
		q, err := c.pitchRate.Update(qc, s.Q, c.dt)
		if err != nil {
			return out, err
		}
		r, err := c.yawRate.Update(rc, s.R, c.dt)
		if err != nil {
			return out, err
		}
		out.Roll, out.Pitch, out.Yaw = c.roll.Scale(p), c.pitch.Scale(q), c.yawOut.Scale(r)
	}

	if flags.Throttle {
		climbCmd, err := c.altitude.Update(t.Altitude, s.Altitude(), c.dt)
		if err != nil {
			return out, err
		}
		th, err := c.climb.Update(climbCmd, s.ClimbRate(), c.dt)
		if err != nil {
			return out, err
		}
		out.Throttle = c.throttle.Scale(th)
	}
	return out, nil
}

// tilt runs the horizontal position and velocity loops and converts the
// resulting NED acceleration demand into roll and pitch angles.
func (c *QuadController) tilt(t QuadTarget, s dynamics.State) (roll, pitch float64, err error) {
	vx, err := c.posX.Update(t.X, s.Position.X, c.dt)
	if err != nil {
		return
	}
	vy, err := c.posY.Update(t.Y, s.Position.Y, c.dt)
	if err != nil {
		return
	}
	ax, err := c.velX.Update(vx, s.NEDVelocity.X, c.dt)
	if err != nil {
		return
	}
	ay, err := c.velY.Update(vy, s.NEDVelocity.Y, c.dt)
	if err != nil {
		return
	}

	// Rotate into the heading frame; nose down accelerates forward and
	// right wing down accelerates right.
	sin, cos := gomath.Sincos(s.Psi)
	fwd := cos*ax + sin*ay
	right := -sin*ax + cos*ay

	pitch = math.Clamp(-fwd/math.G, -c.cfg.MaxTilt, c.cfg.MaxTilt)
	roll = math.Clamp(gomath.Cos(s.Theta)*right/math.G, -c.cfg.MaxTilt, c.cfg.MaxTilt)
	return
}
