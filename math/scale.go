// math/scale.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"errors"
	"fmt"
	"log/slog"
)

var ErrZeroWidthRange = errors.New("scaling range has zero width")

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Width() float64 { return r.Max - r.Min }

// Increasing reports whether Min < Max; NaN bounds fail.
func (r Range) Increasing() bool { return r.Min < r.Max }

func (r Range) Clamp(v float64) float64 {
	if r.Min > r.Max {
		return Clamp(v, r.Max, r.Min)
	}
	return Clamp(v, r.Min, r.Max)
}

func (r Range) String() string { return fmt.Sprintf("[%g, %g]", r.Min, r.Max) }

// Scaler is an affine map from an input range to an output range. It is
// validated when it is created so that Scale itself can never fail.
type Scaler struct {
	In, Out Range
}

// NewScaler returns a Scaler mapping [inMin,inMax] onto [outMin,outMax].
// Either range may be reversed, which inverts the map, but neither may
// have zero width: ErrZeroWidthRange is returned for that.
func NewScaler(inMin, inMax, outMin, outMax float64) (Scaler, error) {
	if inMin == inMax {
		return Scaler{}, fmt.Errorf("input %w: [%g, %g]", ErrZeroWidthRange, inMin, inMax)
	}
	if outMin == outMax {
		return Scaler{}, fmt.Errorf("output %w: [%g, %g]", ErrZeroWidthRange, outMin, outMax)
	}
	return Scaler{In: Range{inMin, inMax}, Out: Range{outMin, outMax}}, nil
}

// MustScaler is NewScaler for ranges that are compile-time constants.
func MustScaler(inMin, inMax, outMin, outMax float64) Scaler {
	s, err := NewScaler(inMin, inMax, outMin, outMax)
	if err != nil {
		panic(err)
	}
	return s
}

// Scale clamps x to the input range and maps it linearly to the output
// range.
func (s Scaler) Scale(x float64) float64 {
	x = s.In.Clamp(x)
	t := (x - s.In.Min) / s.In.Width()
	return Lerp(t, s.Out.Min, s.Out.Max)
}

func (s Scaler) LogValue() slog.Value {
	return slog.GroupValue(slog.String("in", s.In.String()), slog.String("out", s.Out.String()))
}

// LinearScale is the one-shot form of Scaler.Scale.
func LinearScale(x, inMin, inMax, outMin, outMax float64) (float64, error) {
	s, err := NewScaler(inMin, inMax, outMin, outMax)
	if err != nil {
		return 0, err
	}
	return s.Scale(x), nil
}
