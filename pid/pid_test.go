// pid/pid_test.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pid

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/vtolsim/vtolsim/math"
)

func mustNew(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestZeroErrorIsIdempotent(t *testing.T) {
	c := mustNew(t, Symmetric(2, 0.5, 0.1, 10, 5))
	for i := 0; i < 1000; i++ {
		out, err := c.Update(3.5, 3.5, 0.01)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != 0 {
			t.Fatalf("iteration %d: expected exactly 0 output, got %g", i, out)
		}
	}
}

func TestProportional(t *testing.T) {
	c := mustNew(t, Symmetric(2, 0, 0, 100, 1))
	for _, tc := range []struct {
		target, measured, expected float64
	}{
		{1, 0, 2},
		{0, 1, -2},
		{10, 5, 10},
		{100, 0, 100}, // clamped
		{-100, 0, -100},
	} {
		out, _ := c.Update(tc.target, tc.measured, 0.01)
		if out != tc.expected {
			t.Errorf("target %g measured %g: got %g, expected %g", tc.target, tc.measured, out, tc.expected)
		}
	}
}

func TestAntiWindup(t *testing.T) {
	// Output limits are wide so that only the integral clamp matters.
	c := mustNew(t, Symmetric(0, 1, 0, 1000, 0.5))
	var out float64
	for i := 0; i < 10000; i++ {
		out, _ = c.Update(10, 0, 0.01)
	}
	if out != 0.5 {
		t.Errorf("integral term should saturate at 0.5, got %g", out)
	}
	if c.Integral() != 0.5 {
		t.Errorf("integrator should be clamped to 0.5, got %g", c.Integral())
	}

	// Recovery after the error changes sign is immediate rather than
	// having to unwind 1000 seconds of accumulated error.
	for i := 0; i < 100; i++ {
		out, _ = c.Update(-10, 0, 0.01)
	}
	if out != -0.5 {
		t.Errorf("expected integral to swing to -0.5 within one second, got %g", out)
	}
}

func TestDerivativeOnMeasurement(t *testing.T) {
	c := mustNew(t, Symmetric(0, 0, 1, 1000, 1))

	// First sample has no history.
	if out, _ := c.Update(0, 5, 0.1); out != 0 {
		t.Errorf("first sample: expected 0 derivative, got %g", out)
	}
	// A target step produces no derivative kick.
	if out, _ := c.Update(100, 5, 0.1); out != 0 {
		t.Errorf("target step: expected 0 derivative, got %g", out)
	}
	// Rising measurement gives a negative contribution.
	out, _ := c.Update(100, 6, 0.1)
	if gomath.Abs(out-(-10)) > 1e-9 {
		t.Errorf("measurement ramp: expected -10, got %g", out)
	}
}

func TestResetIntegral(t *testing.T) {
	c := mustNew(t, Symmetric(0, 1, 0, 100, 100))
	for i := 0; i < 100; i++ {
		c.Update(1, 0, 0.01)
	}
	if gomath.Abs(c.Integral()-1) > 1e-9 {
		t.Fatalf("expected integral of 1, got %g", c.Integral())
	}

	c.ResetIntegral()
	out, _ := c.Update(1, 0, 0.01)
	if gomath.Abs(out-0.01) > 1e-12 {
		t.Errorf("after reset expected a single step of integral, got %g", out)
	}

	c.Reset()
	if c.Integral() != 0 || c.Terms() != (Terms{}) {
		t.Errorf("Reset should clear all state")
	}
}

func TestResetForgetsDerivative(t *testing.T) {
	c := mustNew(t, Symmetric(0, 1, 1, 100, 100))
	for i := 0; i < 50; i++ {
		c.Update(1, 0, 0.01)
	}

	// A loop idle since measuring 0 resumes at 5 without a derivative
	// kick and with a fresh integrator.
	c.Reset()
	c.Update(1, 5, 0.01)
	if tm := c.Terms(); tm.D != 0 || gomath.Abs(c.Integral()+0.04) > 1e-12 {
		t.Errorf("expected no derivative and a single step of integral, got %+v integral %g", tm, c.Integral())
	}
}

func TestInvalid(t *testing.T) {
	if _, err := New(Config{Output: math.Range{Min: 1, Max: 1}, Integral: math.Range{Min: -1, Max: 1}}); !errors.Is(err, ErrInvalidLimits) {
		t.Errorf("equal output limits: expected ErrInvalidLimits, got %v", err)
	}
	if _, err := New(Config{Output: math.Range{Min: -1, Max: 1}, Integral: math.Range{Min: 2, Max: 1}}); !errors.Is(err, ErrInvalidLimits) {
		t.Errorf("inverted integral limits: expected ErrInvalidLimits, got %v", err)
	}

	c := mustNew(t, Symmetric(1, 1, 1, 10, 10))
	for _, dt := range []float64{0, -0.01, gomath.NaN()} {
		if _, err := c.Update(1, 0, dt); !errors.Is(err, ErrNonPositiveTimestep) {
			t.Errorf("dt %g: expected ErrNonPositiveTimestep, got %v", dt, err)
		}
	}
	if c.Integral() != 0 {
		t.Errorf("failed updates must not change state")
	}
}
