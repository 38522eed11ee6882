// autopilot/autopilot_test.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package autopilot

import (
	"encoding/json"
	"errors"
	gomath "math"
	"testing"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/pid"
	"github.com/vtolsim/vtolsim/util"

	"gonum.org/v1/gonum/spatial/r3"
)

func newAutopilot(t *testing.T) *Autopilot {
	t.Helper()
	ap, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ap
}

func allLoops(sub Submode) ControllerFlags {
	return ControllerFlags{Submode: sub, Position: true, Angle: true, Rate: true, Throttle: true}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DT = 0
	cfg.Modes.TransitionTimeout = -1
	_, err := New(cfg, nil)
	if !errors.Is(err, util.ErrInvalidConfiguration) {
		t.Errorf("expected an invalid configuration error, got %v", err)
	}

	for _, modify := range []func(c *Config){
		func(c *Config) { c.Modes.HeadingHoldTime = -1 },
		func(c *Config) { c.Modes.MaxTilt = 0 },
	} {
		cfg = DefaultConfig()
		modify(&cfg)
		if _, err := New(cfg, nil); !errors.Is(err, util.ErrInvalidConfiguration) {
			t.Errorf("expected an invalid configuration error, got %v", err)
		}
	}

	cfg = DefaultConfig()
	cfg.FixedWing.Pitch.Output = math.Range{Min: 1, Max: -1}
	if _, err := New(cfg, nil); !errors.Is(err, pid.ErrInvalidLimits) {
		t.Errorf("expected invalid limits, got %v", err)
	}
}

func TestLongitudinalJSON(t *testing.T) {
	var cfg FixedWingConfig
	if err := json.Unmarshal([]byte(`{"longitudinal": "TECS"}`), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Longitudinal != LongitudinalTECS {
		t.Errorf("expected tecs, got %s", cfg.Longitudinal)
	}
	if err := json.Unmarshal([]byte(`{"longitudinal": "energy"}`), &cfg); err == nil {
		t.Errorf("expected an unknown control law to be rejected")
	}
}

func TestDisarmedIsSilent(t *testing.T) {
	ap := newAutopilot(t)
	s := cruising(1000)
	s.Armed = false

	for _, mode := range []string{"AUTO", "QD_POSHOLD", "QD_ALTHOLD", "MANUAL"} {
		out, err := ap.Run(GCSInput{Mode: mode, Mission: fwSquare(), Radio: RadioInput{Throttle: 100}}, s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Flags.Submode != SubmodeShutdown || !out.PWM.IsZero() {
			t.Errorf("%s disarmed: expected no output, got %s %+v", mode, out.Flags.Submode, out.PWM)
		}
	}
}

func TestIntegratorsResetOnSubmodeChange(t *testing.T) {
	ap := newAutopilot(t)
	mission := fwSquare()
	s := cruising(900) // 100 m low

	for i := 0; i < 10; i++ {
		if _, err := ap.Run(GCSInput{Mode: "AUTO", Mission: mission}, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := ap.fixedWing.altitude.Integral(); gomath.Abs(got-10) > 1e-9 {
		t.Fatalf("expected the altitude integrator at 10, got %g", got)
	}

	out, err := ap.Run(GCSInput{Mode: "QD_POSHOLD", Mission: mission}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Flags.Submode != SubmodeQD || !out.Flags.ResetIntegrators {
		t.Fatalf("expected a reset into QD, got %+v", out.Flags)
	}

	out, err = ap.Run(GCSInput{Mode: "AUTO", Mission: mission}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Flags.Submode != SubmodeFW || !out.Flags.ResetIntegrators {
		t.Fatalf("expected a reset back into FW, got %+v", out.Flags)
	}
	// One tick of accumulation since the reset.
	if got := ap.fixedWing.altitude.Integral(); gomath.Abs(got-1) > 1e-9 {
		t.Errorf("expected the altitude integrator restarted, got %g", got)
	}
	if ap.quad.climb.Integral() != 0 {
		t.Errorf("quad integrators should be clear after leaving QD, got %g", ap.quad.climb.Integral())
	}
}

func TestFixedWingResponse(t *testing.T) {
	c, err := NewFixedWingController(DefaultFixedWingConfig(), 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := cruising(1000)

	out, err := c.Run(FWTarget{Altitude: 1100, Airspeed: 30}, s, allLoops(SubmodeFW))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Elevator >= 0 {
		t.Errorf("climbing needs trailing-edge-up elevator, got %g", out.Elevator)
	}

	c.Reset()
	out, _ = c.Run(FWTarget{Roll: math.Radians(20), Altitude: 1000, Airspeed: 30}, s, allLoops(SubmodeFW))
	if out.Aileron <= 0 || out.Rudder >= 0 {
		t.Errorf("right roll: expected positive aileron and opposite rudder, got %+v", out)
	}
	if gomath.Abs(out.Rudder+0.7*out.Aileron) > 1e-12 {
		t.Errorf("rudder should follow aileron, got %+v", out)
	}

	c.Reset()
	out, _ = c.Run(FWTarget{Altitude: 1000, Airspeed: 35}, s, allLoops(SubmodeFW))
	if out.Throttle <= 0 || out.Throttle > 100 {
		t.Errorf("slow: expected throttle in (0, 100], got %g", out.Throttle)
	}

	c.Reset()
	out, _ = c.Run(FWTarget{Heading: gomath.Pi / 2, HoldHeading: true, Altitude: 1000, Airspeed: 30}, s,
		allLoops(SubmodeFW))
	if out.Aileron <= 0 {
		t.Errorf("heading east from north should roll right, got %g", out.Aileron)
	}

	// Loops that are off contribute nothing.
	c.Reset()
	out, _ = c.Run(FWTarget{Roll: 0.3, Altitude: 1100, Airspeed: 40}, s, ControllerFlags{Submode: SubmodeFW})
	if out != (FWOutput{}) {
		t.Errorf("expected zero output with every loop off, got %+v", out)
	}
}

func TestTECS(t *testing.T) {
	cfg := DefaultFixedWingConfig()
	cfg.Longitudinal = LongitudinalTECS
	c, err := NewFixedWingController(cfg, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trim := cfg.TECS.TrimThrottle

	for _, tc := range []struct {
		name               string
		alt, airspeed      float64
		pitchSign, thrSign float64
	}{
		{"low", 900, 30, 1, 1},
		{"high", 1100, 30, -1, -1},
		{"slow", 1000, 25, -1, 1},
		{"fast", 1000, 35, 1, -1},
	} {
		c.Reset()
		s := cruising(tc.alt)
		s.Airspeed = tc.airspeed
		pitch, throttle := c.tecs(FWTarget{Altitude: 1000, Airspeed: 30}, s)
		if math.Sign(pitch) != tc.pitchSign {
			t.Errorf("%s: pitch command %g, expected sign %g", tc.name, pitch, tc.pitchSign)
		}
		if math.Sign(throttle-trim) != tc.thrSign {
			t.Errorf("%s: throttle %g relative to trim %g, expected sign %g", tc.name, throttle, trim, tc.thrSign)
		}
		if gomath.Abs(pitch) > math.Radians(15)+1e-12 || throttle < 0 || throttle > 100 {
			t.Errorf("%s: outputs out of range: pitch %g throttle %g", tc.name, pitch, throttle)
		}
	}
}

func TestQuadResponse(t *testing.T) {
	c, err := NewQuadController(DefaultQuadConfig(), 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hover := dynamics.State{Position: r3.Vec{Z: -10}, Armed: true}

	out, err := c.Run(QuadTarget{Altitude: 20}, hover, allLoops(SubmodeQD))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Throttle <= 0.5 || out.Throttle > 1 {
		t.Errorf("below target: expected throttle above neutral, got %g", out.Throttle)
	}
	if out.Roll != 0 || out.Pitch != 0 || out.Yaw != 0 {
		t.Errorf("expected no attitude demand, got %+v", out)
	}

	c.Reset()
	out, _ = c.Run(QuadTarget{X: 100, Altitude: 10}, hover, allLoops(SubmodeQD))
	if out.Pitch >= 0 {
		t.Errorf("target ahead: expected nose-down demand, got %g", out.Pitch)
	}

	c.Reset()
	out, _ = c.Run(QuadTarget{Y: 100, Altitude: 10}, hover, allLoops(SubmodeQD))
	if out.Roll <= 0 {
		t.Errorf("target to the right: expected right roll demand, got %g", out.Roll)
	}

	c.Reset()
	out, _ = c.Run(QuadTarget{Altitude: 10, Heading: 1}, hover, allLoops(SubmodeQD))
	if out.Yaw <= 0 {
		t.Errorf("expected a right yaw demand, got %g", out.Yaw)
	}

	// Without the position loop the tilt comes straight from the target.
	c.Reset()
	f := allLoops(SubmodeQD)
	f.Position = false
	out, _ = c.Run(QuadTarget{X: 100, Altitude: 10, Roll: -0.2}, hover, f)
	if out.Roll >= 0 || out.Pitch != 0 {
		t.Errorf("expected left roll and no pitch, got %+v", out)
	}

	a := DefaultQuadConfig().Authority
	c.Reset()
	out, _ = c.Run(QuadTarget{Altitude: 10, Roll: 1, Pitch: -1, Heading: 3}, hover, allLoops(SubmodeQD))
	for _, v := range []float64{out.Roll, out.Pitch, out.Yaw} {
		if gomath.Abs(v) > a+1e-12 {
			t.Errorf("demand %g exceeds authority %g", v, a)
		}
	}
}

func TestHeadingHoldAfterTransition(t *testing.T) {
	ap := newAutopilot(t)
	mission := fwSquare()
	s := cruising(1000)

	if _, err := ap.Run(GCSInput{Mode: "QD_POSHOLD", Mission: mission}, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Already above transition airspeed, so the wing takes over at once
	// on the departure heading.
	out, err := ap.Run(GCSInput{Mode: "AUTO", Mission: mission}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Flags.Submode != SubmodeFW || !out.Target.FW.HoldHeading || out.Target.FW.Heading != 0 {
		t.Fatalf("expected FW holding heading 0, got %s %+v", out.Flags.Submode, out.Target.FW)
	}

	// Yawed 20 degrees left of it: the heading loop asks for right roll.
	s.Psi = math.Radians(-20)
	if out, err = ap.Run(GCSInput{Mode: "AUTO", Mission: mission}, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := ap.fixedWing.heading.Terms().P; gomath.Abs(p-math.Radians(20)) > 1e-9 {
		t.Errorf("expected a heading error of 20 degrees, got %g", math.Degrees(p))
	}
	if out.Control.FW.Aileron <= 0 {
		t.Errorf("expected right aileron, got %g", out.Control.FW.Aileron)
	}

	// Two seconds in all, then L1 steers.
	for tick := 3; tick <= 201; tick++ {
		if out, err = ap.Run(GCSInput{Mode: "AUTO", Mission: mission}, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hold := tick <= 200; out.Target.FW.HoldHeading != hold {
			t.Fatalf("tick %d: expected heading hold %v", tick, hold)
		}
	}
}
