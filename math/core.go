// math/core.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// Standard gravitational acceleration, m/s^2.
const G = 9.81

// Degrees converts an angle expressed in radians to degrees.
func Degrees(r float64) float64 {
	return r * 180 / gomath.Pi
}

// Radians converts an angle expressed in degrees to radians.
func Radians(d float64) float64 {
	return d / 180 * gomath.Pi
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Sign(v float64) float64 {
	if v > 0 {
		return 1
	} else if v < 0 {
		return -1
	}
	return 0
}

func Lerp(x, a, b float64) float64 {
	return (1-x)*a + x*b
}

// SafeASin returns asin of its argument after clamping it to [-1,1], so
// that round-off never produces a NaN.
func SafeASin(a float64) float64 {
	return gomath.Asin(Clamp(a, -1, 1))
}

// WrapPi wraps an angle in radians to the half-open interval (-pi, pi].
func WrapPi(a float64) float64 {
	if gomath.IsNaN(a) || gomath.IsInf(a, 0) {
		return 0
	}
	r := gomath.Mod(a+gomath.Pi, 2*gomath.Pi)
	if r <= 0 {
		r += 2 * gomath.Pi
	}
	return r - gomath.Pi
}

// AngleDifference returns the signed shortest rotation from b to a, in
// radians, in (-pi, pi].
func AngleDifference(a, b float64) float64 {
	return WrapPi(a - b)
}
