// autopilot/fmm.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package autopilot

import (
	"log/slog"
	gomath "math"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/nav"
)

type ModeManagerConfig struct {
	// Height for the LAUNCH climb, m.
	TakeoffAltitude float64 `json:"takeoff_altitude"`
	// A transition to wing-borne flight completes once the airspeed
	// reaches TransitionAirspeed or after TransitionTimeout seconds.
	TransitionAirspeed float64 `json:"transition_airspeed"`
	TransitionTimeout  float64 `json:"transition_timeout"`
	// After a transition the wing holds the departure heading for this
	// many seconds before L1 guidance takes over.
	HeadingHoldTime float64 `json:"heading_hold_time"`
	// Height change per unit of throttle stick in QD_ALTHOLD, m.
	AltHoldStickGain float64 `json:"althold_stick_gain"`
	// Stick authority in QD_ALTHOLD: full deflection commands MaxTilt of
	// roll or pitch and MaxYawOffset of heading change, radians.
	MaxTilt      float64 `json:"max_tilt"`
	MaxYawOffset float64 `json:"max_yaw_offset"`
}

func DefaultModeManagerConfig() ModeManagerConfig {
	return ModeManagerConfig{
		TakeoffAltitude:    10,
		TransitionAirspeed: 24,
		TransitionTimeout:  15,
		HeadingHoldTime:    2,
		AltHoldStickGain:   0.1,
		MaxTilt:            math.Radians(30),
		MaxYawOffset:       math.Radians(30),
	}
}

// ModeManager turns ground-station input and vehicle state into the
// submode, loop enables and setpoints for the controllers.
type ModeManager struct {
	cfg      ModeManagerConfig
	dt       float64
	nav      *nav.Navigator
	guidance *nav.L1Guidance

	prev Submode

	// LAUNCH progress.
	launching   bool
	takeoffDone bool
	launchPoint dynamics.State

	// LAND/ABORT latch, held until disarmed.
	landing   bool
	landPoint dynamics.State

	// Transition progress and the state it started from.
	transitionTicks int
	transitionFrom  dynamics.State
	holdTicks       int

	stickTilt, stickYaw math.Scaler

	// Last unrecognized command, so it is only reported once.
	badCommand string

	lg *log.Logger
}

func NewModeManager(cfg ModeManagerConfig, n *nav.Navigator, g *nav.L1Guidance, dt float64, lg *log.Logger) (*ModeManager, error) {
	tilt, err := math.NewScaler(-10, 10, -cfg.MaxTilt, cfg.MaxTilt)
	if err != nil {
		return nil, err
	}
	yaw, err := math.NewScaler(-10, 10, -cfg.MaxYawOffset, cfg.MaxYawOffset)
	if err != nil {
		return nil, err
	}
	return &ModeManager{
		cfg:       cfg,
		dt:        dt,
		nav:       n,
		guidance:  g,
		prev:      SubmodeShutdown,
		stickTilt: tilt,
		stickYaw:  yaw,
		lg:        lg,
	}, nil
}

func (m *ModeManager) Navigator() *nav.Navigator { return m.nav }

// Update runs one tick of mode logic.
func (m *ModeManager) Update(in GCSInput, s dynamics.State) (ControllerFlags, TargetSetpoint, nav.MissionTrack) {
	mode := in.Mode
	if mode == "" {
		mode = in.Radio.ModeSwitch
	}
	op := ParseOperatorMode(mode)
	if !s.Armed {
		op = ModeShutdown
		// A new flight starts from scratch.
		m.landing, m.launching, m.takeoffDone = false, false, false
	}

	var sub Submode
	var target TargetSetpoint
	var track nav.MissionTrack

	switch op {
	case ModeAuto:
		sub, target, track = m.auto(in, s)

	case ModeQDPosHold:
		sub = SubmodeQD
		track = m.nav.Track(in.Mission)
		target.Quad = hoverAt(track.Target)

	case ModeQDAltHold:
		sub = SubmodeQD
		track = m.nav.Track(in.Mission)
		target.Quad = QuadTarget{
			X:        s.Position.X,
			Y:        s.Position.Y,
			Altitude: s.Altitude() + m.cfg.AltHoldStickGain*in.Radio.Throttle,
			Heading:  math.WrapPi(s.Psi + m.stickYaw.Scale(in.Radio.Yaw)),
			Roll:     m.stickTilt.Scale(in.Radio.Roll),
			Pitch:    m.stickTilt.Scale(in.Radio.Pitch),
		}

	case ModeManual:
		sub = SubmodeManual
		track = m.nav.Track(in.Mission)

	case ModeShutdown:
		sub = SubmodeShutdown
		track = m.nav.Track(in.Mission)

	default:
		sub = SubmodeShutdown
	}

	flags := ControllerFlags{Operator: op, Submode: sub}
	switch sub {
	case SubmodeFW:
		flags.Position, flags.Angle, flags.Rate, flags.Throttle = true, true, true, true
	case SubmodeQD:
		flags.Position = op != ModeQDAltHold
		flags.Angle, flags.Rate, flags.Throttle = true, true, true
	case SubmodeTransition:
		flags.Angle, flags.Rate, flags.Throttle = true, true, true
	case SubmodeManual, SubmodeShutdown:
	}

	if sub != m.prev {
		flags.ResetIntegrators = true
		m.lg.Info("submode change", slog.String("from", m.prev.String()), slog.String("to", sub.String()),
			slog.String("operator", op.String()), slog.Any("state", s))
		m.prev = sub
	}

	return flags, target, track
}

func (m *ModeManager) auto(in GCSInput, s dynamics.State) (Submode, TargetSetpoint, nav.MissionTrack) {
	cmd, err := ParseCommand(in.Command)
	if err != nil && in.Command != m.badCommand {
		m.lg.Warn("ignoring ground station command", slog.Any("error", err))
	}
	m.badCommand = ""
	if err != nil {
		m.badCommand = in.Command
	}

	switch cmd {
	case CommandLand, CommandAbort:
		if !m.landing {
			m.lg.Info("landing", slog.String("command", cmd.String()), slog.Any("state", s))
			m.landing = true
			m.landPoint = s
		}
	case CommandLaunch:
		if !m.launching && !m.takeoffDone {
			m.lg.Info("launch", slog.Any("state", s))
			m.launching = true
			m.launchPoint = s
		}
	case CommandNone:
	}

	if m.landing {
		var target TargetSetpoint
		target.Quad = QuadTarget{X: m.landPoint.Position.X, Y: m.landPoint.Position.Y, Heading: m.landPoint.Psi}
		return SubmodeQD, target, m.nav.Track(in.Mission)
	}

	if m.launching && !m.takeoffDone {
		if s.Altitude() < m.cfg.TakeoffAltitude {
			var target TargetSetpoint
			target.Quad = QuadTarget{
				X:        m.launchPoint.Position.X,
				Y:        m.launchPoint.Position.Y,
				Altitude: m.cfg.TakeoffAltitude,
				Heading:  m.launchPoint.Psi,
			}
			return SubmodeQD, target, m.nav.Track(in.Mission)
		}
		m.takeoffDone = true
		m.launching = false
		m.lg.Info("takeoff complete", slog.Any("state", s))
	}

	track := m.nav.Track(in.Mission)
	want := submodeFor(track.Target.Mode)

	if m.prev != SubmodeFW && m.prev != SubmodeTransition {
		m.holdTicks = 0
	}

	// Going from hover to wing-borne flight passes through TRANSITION.
	if want == SubmodeFW && (m.prev == SubmodeQD || m.prev == SubmodeTransition) {
		if m.prev != SubmodeTransition {
			m.transitionTicks = 0
			m.transitionFrom = s
		}
		m.transitionTicks++
		elapsed := float64(m.transitionTicks) * m.dt
		if s.Airspeed < m.cfg.TransitionAirspeed && elapsed < m.cfg.TransitionTimeout {
			return SubmodeTransition, m.transitionTarget(), track
		}
		m.lg.Info("transition complete", slog.Float64("airspeed", s.Airspeed), slog.Float64("elapsed", elapsed))
		m.holdTicks = int(gomath.Round(m.cfg.HeadingHoldTime / m.dt))
	}

	var target TargetSetpoint
	switch want {
	case SubmodeFW:
		track = m.nav.Update(s, in.Mission, nav.FixedWing)
		g := m.guidance.Run(s, track)
		target.FW = FWTarget{Roll: g.Roll, Altitude: g.Altitude, Airspeed: g.Airspeed}
		if m.holdTicks > 0 {
			m.holdTicks--
			target.FW.Heading = m.transitionFrom.Psi
			target.FW.HoldHeading = true
		}
	case SubmodeQD:
		track = m.nav.Update(s, in.Mission, nav.Quad)
		target.Quad = hoverAt(track.Target)
	default:
		return SubmodeShutdown, target, track
	}
	return want, target, track
}

// transitionTarget holds the height and heading the transition started
// from, wings level, while the pusher accelerates to cruise.
func (m *ModeManager) transitionTarget() TargetSetpoint {
	from := m.transitionFrom
	return TargetSetpoint{
		FW: FWTarget{
			Altitude:    from.Altitude(),
			Airspeed:    m.guidance.Config.CruiseAirspeed,
			Heading:     from.Psi,
			HoldHeading: true,
		},
		Quad: QuadTarget{
			X:        from.Position.X,
			Y:        from.Position.Y,
			Altitude: from.Altitude(),
			Heading:  from.Psi,
		},
	}
}

func hoverAt(wp nav.Waypoint) QuadTarget {
	return QuadTarget{X: wp.X, Y: wp.Y, Altitude: wp.Altitude(), Heading: wp.Heading}
}
