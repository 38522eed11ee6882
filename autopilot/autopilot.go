// autopilot/autopilot.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package autopilot holds the flight mode manager, the fixed-wing and
// multirotor controllers, and the mixer that turns their outputs into
// pulse widths.
package autopilot

import (
	"fmt"
	"log/slog"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/nav"
	"github.com/vtolsim/vtolsim/util"
)

type Config struct {
	DT        float64             `json:"dt"`
	Navigator nav.NavigatorConfig `json:"navigator"`
	Guidance  nav.L1Config        `json:"guidance"`
	Modes     ModeManagerConfig   `json:"modes"`
	FixedWing FixedWingConfig     `json:"fixed_wing"`
	Quad      QuadConfig          `json:"quad"`
	Mixer     MixerConfig         `json:"mixer"`
}

func DefaultConfig() Config {
	return Config{
		DT:        0.01,
		Navigator: nav.DefaultNavigatorConfig(),
		Guidance:  nav.DefaultL1Config(),
		Modes:     DefaultModeManagerConfig(),
		FixedWing: DefaultFixedWingConfig(),
		Quad:      DefaultQuadConfig(),
		Mixer:     DefaultMixerConfig(),
	}
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var e util.ErrorLogger

	e.Push("autopilot")
	if !(c.DT > 0) {
		e.ErrorString("dt %g must be positive", c.DT)
	}
	if c.Navigator.FWAcceptRadius <= 0 || c.Navigator.QDAcceptRadius <= 0 {
		e.ErrorString("waypoint acceptance radii must be positive")
	}
	if c.Navigator.QDDwellTicks < 0 {
		e.ErrorString("dwell ticks %d must not be negative", c.Navigator.QDDwellTicks)
	}
	if c.Guidance.L1Ratio <= 0 || c.Guidance.MinL1Distance <= 0 {
		e.ErrorString("L1 ratio and minimum distance must be positive")
	}
	if c.Modes.TransitionTimeout <= 0 {
		e.ErrorString("transition timeout %g must be positive", c.Modes.TransitionTimeout)
	}
	if c.Modes.HeadingHoldTime < 0 {
		e.ErrorString("heading hold time %g must not be negative", c.Modes.HeadingHoldTime)
	}
	if !(c.Modes.MaxTilt > 0) || !(c.Modes.MaxYawOffset > 0) {
		e.ErrorString("stick tilt and yaw authority must be positive")
	}

	e.Push("mixer")
	for _, r := range []struct {
		name string
		r    math.Range
	}{{"pwm", c.Mixer.PWM}, {"surface", c.Mixer.Surface}, {"throttle", c.Mixer.Throttle}} {
		if !r.r.Increasing() {
			e.ErrorString("%s range %s: lower limit must be below upper", r.name, r.r)
		}
	}
	e.Pop()
	e.Pop()

	return e.Err()
}

// Autopilot runs the mode manager, the active controllers and the mixer
// once per tick.
type Autopilot struct {
	cfg Config

	modes     *ModeManager
	fixedWing *FixedWingController
	quad      *QuadController
	mixer     *Mixer

	stickRoll, stickPitch, stickYaw, stickThrottle math.Scaler

	lg *log.Logger
}

// Output is everything the autopilot decided on one tick.
type Output struct {
	PWM     dynamics.ActuatorCommand `json:"pwm"`
	Flags   ControllerFlags          `json:"flags"`
	Target  TargetSetpoint           `json:"target"`
	Track   nav.MissionTrack         `json:"track"`
	Control ControlOutput            `json:"control"`
}

func New(cfg Config, lg *log.Logger) (*Autopilot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ap := &Autopilot{cfg: cfg, lg: lg}

	var err error
	n := nav.NewNavigator(cfg.Navigator, lg)
	g := nav.NewL1Guidance(cfg.Guidance)
	if ap.modes, err = NewModeManager(cfg.Modes, n, g, cfg.DT, lg); err != nil {
		return nil, fmt.Errorf("mode manager: %w", err)
	}
	if ap.fixedWing, err = NewFixedWingController(cfg.FixedWing, cfg.DT); err != nil {
		return nil, err
	}
	if ap.quad, err = NewQuadController(cfg.Quad, cfg.DT); err != nil {
		return nil, err
	}
	if ap.mixer, err = NewMixer(cfg.Mixer); err != nil {
		return nil, err
	}

	surf := cfg.Mixer.Surface
	ap.stickRoll = math.MustScaler(-10, 10, surf.Min, surf.Max)
	ap.stickPitch = math.MustScaler(-10, 10, surf.Max, surf.Min) // stick back is nose up
	ap.stickYaw = math.MustScaler(-10, 10, surf.Min, surf.Max)
	ap.stickThrottle = math.MustScaler(-100, 100, cfg.Mixer.Throttle.Min, cfg.Mixer.Throttle.Max)

	return ap, nil
}

func (ap *Autopilot) Config() Config { return ap.cfg }
func (ap *Autopilot) Navigator() *nav.Navigator { return ap.modes.Navigator() }
func (ap *Autopilot) FixedWing() *FixedWingController { return ap.fixedWing }
func (ap *Autopilot) Quad() *QuadController { return ap.quad }

// Run computes the pulse widths for one tick from the ground-station input
// and the current vehicle state.
func (ap *Autopilot) Run(in GCSInput, s dynamics.State) (Output, error) {
	flags, target, track := ap.modes.Update(in, s)
	out := Output{Flags: flags, Target: target, Track: track}

	if flags.ResetIntegrators {
		ap.fixedWing.Reset()
		ap.quad.Reset()
	}

	var err error
	switch flags.Submode {
	case SubmodeFW:
		out.Control.FW, err = ap.fixedWing.Run(target.FW, s, flags)
	case SubmodeQD:
		out.Control.Quad, err = ap.quad.Run(target.Quad, s, flags)
	case SubmodeTransition:
		// The rotors hold the vehicle up while the pusher accelerates it;
		// the fixed-wing loops only contribute throttle.
		if out.Control.Quad, err = ap.quad.Run(target.Quad, s, flags); err == nil {
			fw := flags
			fw.Angle, fw.Rate = false, false
			out.Control.FW, err = ap.fixedWing.Run(target.FW, s, fw)
		}
	case SubmodeManual:
		out.Control.FW = ap.manual(in.Radio)
	case SubmodeShutdown:
	}
	if err != nil {
		ap.lg.Error("controller failed", slog.Any("error", err), slog.Any("flags", flags))
		return out, err
	}

	out.PWM = ap.mixer.Run(flags.Submode, out.Control)
	return out, nil
}

func (ap *Autopilot) manual(r RadioInput) FWOutput {
	return FWOutput{
		Aileron:  ap.stickRoll.Scale(r.Roll),
		Elevator: ap.stickPitch.Scale(r.Pitch),
		Rudder:   ap.stickYaw.Scale(r.Yaw),
		Throttle: ap.stickThrottle.Scale(r.Throttle),
	}
}
