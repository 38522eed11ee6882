// telemetry/plot.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/vtolsim/vtolsim/nav"
	"github.com/vtolsim/vtolsim/sim"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoFrames = errors.New("no frames to plot")

var plotColors = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
}

// PlotGroundTrack draws the vehicle's path seen from above, east to the
// right and north up, with the mission's waypoints marked.
func PlotGroundTrack(w io.Writer, frames []sim.Frame, mission nav.Mission) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	p := plot.New()
	p.Title.Text = "Ground track"
	p.X.Label.Text = "east (m)"
	p.Y.Label.Text = "north (m)"
	p.Add(plotter.NewGrid())

	track := make(plotter.XYs, len(frames))
	for i, f := range frames {
		track[i].X, track[i].Y = f.State.Position.Y, f.State.Position.X
	}
	line, err := plotter.NewLine(track)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = plotColors[0]
	p.Add(line)
	p.Legend.Add("vehicle", line)

	if n := len(mission.Waypoints); n > 0 {
		wps := make(plotter.XYs, n)
		for i, wp := range mission.Waypoints {
			wps[i].X, wps[i].Y = wp.Y, wp.X
		}
		sc, err := plotter.NewScatter(wps)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(5)
		sc.GlyphStyle.Color = plotColors[3]
		p.Add(sc)
		p.Legend.Add("waypoints", sc)
	}

	return writePNG(w, p, 8, 8)
}

// PlotColumns draws the named flight log columns against time, one panel
// per column.
func PlotColumns(w io.Writer, frames []sim.Frame, names []string) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if len(names) == 0 {
		return errors.New("no columns to plot")
	}

	var plots [][]*plot.Plot
	for i, name := range names {
		col, ok := LookupColumn(name)
		if !ok {
			return fmt.Errorf("%q: unknown column", name)
		}

		p := plot.New()
		p.Y.Label.Text = name
		if i == len(names)-1 {
			p.X.Label.Text = "time (s)"
		}
		p.Add(plotter.NewGrid())

		pts := make(plotter.XYs, len(frames))
		for j, f := range frames {
			pts[j].X, pts[j].Y = f.Time, col.Value(f)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		line.LineStyle.Width = vg.Points(1)
		line.LineStyle.Color = plotColors[i%len(plotColors)]
		p.Add(line)

		plots = append(plots, []*plot.Plot{p})
	}

	width, height := vg.Length(10)*vg.Inch, vg.Length(2.5*float64(len(names)))*vg.Inch
	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(96))
	dc := draw.New(c)
	tiles := draw.Tiles{Rows: len(names), Cols: 1, PadY: vg.Points(6), PadX: vg.Points(6)}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	_, err := vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

func writePNG(w io.Writer, p *plot.Plot, widthIn, heightIn float64) error {
	c := vgimg.NewWith(vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch), vgimg.UseDPI(96))
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
