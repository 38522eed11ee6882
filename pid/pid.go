// pid/pid.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package pid provides the discrete PID compensator used by every loop of
// the autopilot.
package pid

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vtolsim/vtolsim/math"
)

var (
	ErrInvalidLimits       = errors.New("lower limit must be less than upper limit")
	ErrNonPositiveTimestep = errors.New("timestep must be positive")
)

type Gains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

type Config struct {
	Gains
	Output   math.Range `json:"output"`
	Integral math.Range `json:"integral"`
}

// Symmetric returns a Config whose output and integral limits are
// [-outLimit, outLimit] and [-intLimit, intLimit].
func Symmetric(kp, ki, kd, outLimit, intLimit float64) Config {
	return Config{
		Gains:    Gains{Kp: kp, Ki: ki, Kd: kd},
		Output:   math.Range{Min: -outLimit, Max: outLimit},
		Integral: math.Range{Min: -intLimit, Max: intLimit},
	}
}

func (c Config) Validate() error {
	if c.Output.Min >= c.Output.Max {
		return fmt.Errorf("output %s: %w", c.Output, ErrInvalidLimits)
	}
	if c.Integral.Min >= c.Integral.Max {
		return fmt.Errorf("integral %s: %w", c.Integral, ErrInvalidLimits)
	}
	return nil
}

// Controller is a PID compensator with a clamped integrator and a
// derivative taken on the measurement, so that steps in the target do not
// kick the output.
type Controller struct {
	cfg Config

	integral     float64
	prevMeasured float64
	initialized  bool
	resetPending bool

	p, i, d float64
	output  float64
}

func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg}, nil
}

func (c *Controller) Config() Config { return c.cfg }

// Update runs one step of the controller and returns the clamped output.
// dt must be positive; otherwise the controller state is left untouched
// and ErrNonPositiveTimestep is returned.
func (c *Controller) Update(target, measured, dt float64) (float64, error) {
	if !(dt > 0) {
		return 0, fmt.Errorf("dt %g: %w", dt, ErrNonPositiveTimestep)
	}

	if c.resetPending {
		c.integral = 0
		c.resetPending = false
	}

	err := target - measured
	c.p = c.cfg.Kp * err

	c.integral = c.cfg.Integral.Clamp(c.integral + err*dt)
	c.i = c.cfg.Ki * c.integral

	c.d = 0
	if c.initialized {
		c.d = -c.cfg.Kd * (measured - c.prevMeasured) / dt
	}
	c.prevMeasured = measured
	c.initialized = true

	c.output = c.cfg.Output.Clamp(c.p + c.i + c.d)
	return c.output, nil
}

// ResetIntegral zeroes the integrator at the start of the next Update.
func (c *Controller) ResetIntegral() {
	c.resetPending = true
}

// Reset clears the integrator with ResetIntegral and also forgets the
// derivative history and the last terms, so a loop that sat idle does not
// kick on its first Update.
func (c *Controller) Reset() {
	c.ResetIntegral()
	c.prevMeasured, c.initialized = 0, false
	c.p, c.i, c.d, c.output = 0, 0, 0, 0
}

// Integral returns the integrator value the next Update starts from.
func (c *Controller) Integral() float64 {
	if c.resetPending {
		return 0
	}
	return c.integral
}

type Terms struct {
	P, I, D, Output float64
}

// Terms returns the contributions computed by the most recent Update.
func (c *Controller) Terms() Terms {
	return Terms{P: c.p, I: c.i, D: c.d, Output: c.output}
}

func (c *Controller) LogValue() slog.Value {
	t := c.Terms()
	return slog.GroupValue(
		slog.Float64("p", t.P),
		slog.Float64("i", t.I),
		slog.Float64("d", t.D),
		slog.Float64("integral", c.Integral()),
		slog.Float64("output", t.Output))
}
