// nav/guidance.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	gomath "math"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/math"
)

// Added to the segment length so that zero-length segments do not divide
// by zero.
const segmentEpsilon = 1e-6

type L1Config struct {
	// The L1 distance is L1Ratio times the groundspeed, but never less
	// than MinL1Distance.
	L1Ratio        float64 `json:"l1_ratio"`
	MinL1Distance  float64 `json:"min_l1_distance"`
	CruiseAirspeed float64 `json:"cruise_airspeed"`
}

func DefaultL1Config() L1Config {
	return L1Config{
		L1Ratio:        1.5,
		MinL1Distance:  300,
		CruiseAirspeed: 30,
	}
}

// Command is what guidance asks of the fixed-wing controllers. Altitude
// is height above the origin, positive up.
type Command struct {
	Roll     float64
	Altitude float64
	Airspeed float64
}

// L1Guidance steers toward a point a fixed distance ahead along the
// active segment, giving a lateral acceleration and from it a bank angle.
type L1Guidance struct {
	Config L1Config
}

func NewL1Guidance(cfg L1Config) *L1Guidance {
	return &L1Guidance{Config: cfg}
}

func (g *L1Guidance) Run(s dynamics.State, t MissionTrack) Command {
	cmd := Command{
		Altitude: t.Target.Altitude(),
		Airspeed: g.Config.CruiseAirspeed,
	}

	gs := s.Groundspeed()
	if gs == 0 {
		return cmd
	}

	pathX, pathY := t.Target.X-t.Previous.X, t.Target.Y-t.Previous.Y
	pathLen := gomath.Hypot(pathX, pathY) + segmentEpsilon
	unitX, unitY := pathX/pathLen, pathY/pathLen

	posX, posY := s.Position.X-t.Previous.X, s.Position.Y-t.Previous.Y
	along := posX*unitX + posY*unitY

	l1 := max(g.Config.L1Ratio*gs, g.Config.MinL1Distance)
	l1X := (along+l1)*unitX - posX
	l1Y := (along+l1)*unitY - posY

	eta := math.WrapPi(gomath.Atan2(l1Y, l1X) - gomath.Atan2(s.NEDVelocity.Y, s.NEDVelocity.X))
	latAccel := 2 * gs * gs * gomath.Sin(eta) / l1
	cmd.Roll = gomath.Atan2(latAccel, math.G)

	if NavLogEnabled(NavLogGuidance) {
		NavLog(NavLogGuidance, "along %.0f l1 %.0f eta %.1f roll %.1f", along, l1, math.Degrees(eta), math.Degrees(cmd.Roll))
	}

	return cmd
}
