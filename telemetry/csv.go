// telemetry/csv.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/sim"
)

// Column is one field of the flight log.
type Column struct {
	Name  string
	Value func(f sim.Frame) float64
}

// Columns lists the numeric flight log fields in file order. Angles are
// in degrees.
var Columns = []Column{
	{"time", func(f sim.Frame) float64 { return f.Time }},
	{"x", func(f sim.Frame) float64 { return f.State.Position.X }},
	{"y", func(f sim.Frame) float64 { return f.State.Position.Y }},
	{"z", func(f sim.Frame) float64 { return f.State.Position.Z }},
	{"u", func(f sim.Frame) float64 { return f.State.Velocity.X }},
	{"v", func(f sim.Frame) float64 { return f.State.Velocity.Y }},
	{"w", func(f sim.Frame) float64 { return f.State.Velocity.Z }},
	{"phi", func(f sim.Frame) float64 { return math.Degrees(f.State.Phi) }},
	{"theta", func(f sim.Frame) float64 { return math.Degrees(f.State.Theta) }},
	{"psi", func(f sim.Frame) float64 { return math.Degrees(f.State.Psi) }},
	{"p", func(f sim.Frame) float64 { return math.Degrees(f.State.P) }},
	{"q", func(f sim.Frame) float64 { return math.Degrees(f.State.Q) }},
	{"r", func(f sim.Frame) float64 { return math.Degrees(f.State.R) }},
	{"airspeed", func(f sim.Frame) float64 { return f.State.Airspeed }},
	{"altitude", func(f sim.Frame) float64 { return f.State.Altitude() }},
	{"Fx", func(f sim.Frame) float64 { return f.Loads.Force.X }},
	{"Fy", func(f sim.Frame) float64 { return f.Loads.Force.Y }},
	{"Fz", func(f sim.Frame) float64 { return f.Loads.Force.Z }},
	{"l", func(f sim.Frame) float64 { return f.Loads.Moment.X }},
	{"m", func(f sim.Frame) float64 { return f.Loads.Moment.Y }},
	{"n", func(f sim.Frame) float64 { return f.Loads.Moment.Z }},
	{"alpha", func(f sim.Frame) float64 { return math.Degrees(f.Loads.Alpha) }},
	{"beta", func(f sim.Frame) float64 { return math.Degrees(f.Loads.Beta) }},
	{"pwm_lf", func(f sim.Frame) float64 { return f.PWM.Motors[0] }},
	{"pwm_rf", func(f sim.Frame) float64 { return f.PWM.Motors[1] }},
	{"pwm_rb", func(f sim.Frame) float64 { return f.PWM.Motors[2] }},
	{"pwm_lb", func(f sim.Frame) float64 { return f.PWM.Motors[3] }},
	{"pwm_throttle", func(f sim.Frame) float64 { return f.PWM.Throttle }},
	{"pwm_aileron", func(f sim.Frame) float64 { return f.PWM.Aileron }},
	{"pwm_elevator", func(f sim.Frame) float64 { return f.PWM.Elevator }},
	{"pwm_rudder", func(f sim.Frame) float64 { return f.PWM.Rudder }},
	{"waypoint", func(f sim.Frame) float64 { return float64(f.Track.Index) }},
}

// LookupColumn finds a column by name.
func LookupColumn(name string) (Column, bool) {
	for _, c := range Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CSVWriter writes the flight log as CSV: a header row with the column
// names followed by the mode and submode, then one row per frame.
type CSVWriter struct {
	w      *csv.Writer
	header bool
	row    []string
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) Name() string { return "csv" }

func (c *CSVWriter) Publish(_ context.Context, f sim.Frame) error {
	if !c.header {
		c.row = c.row[:0]
		for _, col := range Columns {
			c.row = append(c.row, col.Name)
		}
		c.row = append(c.row, "mode", "submode")
		if err := c.w.Write(c.row); err != nil {
			return err
		}
		c.header = true
	}

	c.row = c.row[:0]
	for _, col := range Columns {
		c.row = append(c.row, strconv.FormatFloat(col.Value(f), 'g', 8, 64))
	}
	c.row = append(c.row, f.Flags.Operator.String(), f.Flags.Submode.String())
	return c.w.Write(c.row)
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}
