// autopilot/mode.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package autopilot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vtolsim/vtolsim/nav"
)

// OperatorMode is the flight mode selected from the ground station.
type OperatorMode int

const (
	ModeAuto OperatorMode = iota
	ModeQDPosHold
	ModeQDAltHold
	ModeManual
	ModeShutdown
)

var operatorModeNames = [...]string{"AUTO", "QD_POSHOLD", "QD_ALTHOLD", "MANUAL", "SHUTDOWN"}

func (m OperatorMode) String() string {
	if m < 0 || int(m) >= len(operatorModeNames) {
		return fmt.Sprintf("OperatorMode(%d)", int(m))
	}
	return operatorModeNames[m]
}

// ParseOperatorMode maps a ground-station mode string to an OperatorMode.
// Anything that is not recognized shuts the vehicle down.
func ParseOperatorMode(s string) OperatorMode {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AUTO":
		return ModeAuto
	case "QD_POSHOLD":
		return ModeQDPosHold
	case "QD_ALTHOLD":
		return ModeQDAltHold
	case "MANUAL":
		return ModeManual
	case "SHUTDOWN":
		return ModeShutdown
	default:
		return ModeShutdown
	}
}

// Submode is the vehicle configuration the controllers and mixer run in.
type Submode int

const (
	SubmodeFW Submode = iota
	SubmodeQD
	SubmodeTransition
	SubmodeManual
	SubmodeShutdown
)

var submodeNames = [...]string{"FW", "QD", "TRANSITION", "MANUAL", "SHUTDOWN"}

func (s Submode) Valid() bool { return s >= 0 && int(s) < len(submodeNames) }

func (s Submode) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Submode(%d)", int(s))
	}
	return submodeNames[s]
}

func submodeFor(m nav.WaypointMode) Submode {
	switch m {
	case nav.FixedWing:
		return SubmodeFW
	case nav.Quad:
		return SubmodeQD
	default:
		return SubmodeShutdown
	}
}

// Command is a one-word ground-station instruction honored in AUTO.
type Command int

const (
	CommandNone Command = iota
	CommandLaunch
	CommandLand
	CommandAbort
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return ""
	case CommandLaunch:
		return "LAUNCH"
	case CommandLand:
		return "LAND"
	case CommandAbort:
		return "ABORT"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

func ParseCommand(s string) (Command, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return CommandNone, nil
	case "LAUNCH":
		return CommandLaunch, nil
	case "LAND":
		return CommandLand, nil
	case "ABORT":
		return CommandAbort, nil
	default:
		return CommandNone, fmt.Errorf("%q: unknown command", s)
	}
}

// RadioInput holds the pilot's stick positions. Roll, pitch and yaw run
// from -10 to 10 and throttle from -100 to 100. ModeSwitch selects the
// operator mode when the ground station does not.
type RadioInput struct {
	Roll       float64 `json:"roll"`
	Pitch      float64 `json:"pitch"`
	Throttle   float64 `json:"throttle"`
	Yaw        float64 `json:"yaw"`
	ModeSwitch string  `json:"mode_switch"`
}

// GCSInput is everything the ground station sends the autopilot.
type GCSInput struct {
	Mode    string      `json:"mode"`
	Command string      `json:"command"`
	Mission nav.Mission `json:"mission"`
	Radio   RadioInput  `json:"radio"`
}

// ControllerFlags tell the controllers which loops to close this tick.
type ControllerFlags struct {
	Operator OperatorMode `json:"operator"`
	Submode  Submode      `json:"submode"`

	Position bool `json:"position"`
	Angle    bool `json:"angle"`
	Rate     bool `json:"rate"`
	Throttle bool `json:"throttle"`

	// Set for the single tick on which the submode changes.
	ResetIntegrators bool `json:"reset_integrators"`
}

func (f ControllerFlags) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("operator", f.Operator.String()),
		slog.String("submode", f.Submode.String()),
		slog.Bool("position", f.Position),
		slog.Bool("angle", f.Angle),
		slog.Bool("rate", f.Rate),
		slog.Bool("throttle", f.Throttle),
		slog.Bool("reset", f.ResetIntegrators))
}

// FWTarget is the fixed-wing setpoint. Angles are radians, altitude is
// height in meters and airspeed m/s. With HoldHeading set the roll
// command comes from the heading loop instead of Roll.
type FWTarget struct {
	Roll        float64 `json:"roll"`
	Altitude    float64 `json:"altitude"`
	Airspeed    float64 `json:"airspeed"`
	Heading     float64 `json:"heading"`
	HoldHeading bool    `json:"hold_heading"`
}

// QuadTarget is the hover setpoint. Roll and Pitch are only used when the
// position loop is off.
type QuadTarget struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Altitude float64 `json:"altitude"`
	Heading  float64 `json:"heading"`
	Roll     float64 `json:"roll"`
	Pitch    float64 `json:"pitch"`
}

type TargetSetpoint struct {
	FW   FWTarget   `json:"fw"`
	Quad QuadTarget `json:"quad"`
}

// FWOutput holds surface deflections in degrees and throttle in percent.
type FWOutput struct {
	Aileron  float64 `json:"aileron"`
	Elevator float64 `json:"elevator"`
	Rudder   float64 `json:"rudder"`
	Throttle float64 `json:"throttle"`
}

// QuadOutput is normalized: throttle in [0, 1] and the three moments in
// [-Authority, Authority].
type QuadOutput struct {
	Roll     float64 `json:"roll"`
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
	Throttle float64 `json:"throttle"`
}

type ControlOutput struct {
	FW   FWOutput   `json:"fw"`
	Quad QuadOutput `json:"quad"`
}
