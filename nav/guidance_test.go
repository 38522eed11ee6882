// nav/guidance_test.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	gomath "math"
	"testing"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/math"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestL1Guidance(t *testing.T) {
	g := NewL1Guidance(DefaultL1Config())
	north := MissionTrack{
		Previous: Waypoint{X: 0, Y: 0, Z: -500},
		Target:   Waypoint{X: 5000, Y: 0, Z: -800},
	}
	vnorth := r3.Vec{X: 30}

	for _, tc := range []struct {
		name string
		pos  r3.Vec
		vel  r3.Vec
		sign float64
	}{
		{"on track", r3.Vec{X: 100}, vnorth, 0},
		{"east of track", r3.Vec{X: 100, Y: 100}, vnorth, -1},
		{"west of track", r3.Vec{X: 100, Y: -100}, vnorth, 1},
		{"heading away from track", r3.Vec{X: 100}, r3.Vec{Y: 30}, -1},
	} {
		cmd := g.Run(dynamics.State{Position: tc.pos, NEDVelocity: tc.vel}, north)
		if s := math.Sign(cmd.Roll); s != tc.sign && !(tc.sign == 0 && gomath.Abs(cmd.Roll) < 1e-6) {
			t.Errorf("%s: roll %.2f deg, expected sign %g", tc.name, math.Degrees(cmd.Roll), tc.sign)
		}
		if cmd.Altitude != 800 {
			t.Errorf("%s: expected target altitude 800, got %g", tc.name, cmd.Altitude)
		}
		if cmd.Airspeed != 30 {
			t.Errorf("%s: expected cruise airspeed, got %g", tc.name, cmd.Airspeed)
		}
	}
}

func TestL1Magnitude(t *testing.T) {
	g := NewL1Guidance(DefaultL1Config())
	tr := MissionTrack{Target: Waypoint{X: 1000}}

	// L1 point dead abeam to the right: eta = 90 degrees, so
	// a = 2 V^2 / L1 with L1 = 300.
	s := dynamics.State{Position: r3.Vec{X: -300}, NEDVelocity: r3.Vec{Y: -30}}
	cmd := g.Run(s, tr)
	expected := gomath.Atan2(2*30*30/300., math.G)
	if gomath.Abs(cmd.Roll-expected) > 1e-6 {
		t.Errorf("expected roll %.3f, got %.3f", expected, cmd.Roll)
	}
}

func TestL1Degenerate(t *testing.T) {
	g := NewL1Guidance(DefaultL1Config())

	// Zero groundspeed: no correction.
	cmd := g.Run(dynamics.State{Position: r3.Vec{Y: 500}}, MissionTrack{Target: Waypoint{X: 1000}})
	if cmd.Roll != 0 {
		t.Errorf("expected zero roll with no groundspeed, got %g", cmd.Roll)
	}

	// Zero-length segment: head straight for the waypoint.
	wp := Waypoint{X: 1000, Y: 1000, Z: -100}
	cmd = g.Run(dynamics.State{NEDVelocity: r3.Vec{X: 30}}, MissionTrack{Previous: wp, Target: wp})
	if gomath.IsNaN(cmd.Roll) || cmd.Roll <= 0 {
		t.Errorf("expected a right turn toward a waypoint to the northeast, got %g", cmd.Roll)
	}
}
