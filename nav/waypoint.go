// nav/waypoint.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// WaypointMode is the flight configuration the vehicle should be in while
// heading to a waypoint.
type WaypointMode int

const (
	FixedWing WaypointMode = iota
	Quad
)

func (m WaypointMode) String() string {
	switch m {
	case FixedWing:
		return "FW"
	case Quad:
		return "QD"
	default:
		return fmt.Sprintf("WaypointMode(%d)", int(m))
	}
}

func (m WaypointMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *WaypointMode) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "FW":
		*m = FixedWing
	case "QD":
		*m = Quad
	default:
		return fmt.Errorf("%q: unknown waypoint mode", string(b))
	}
	return nil
}

// Waypoint is a mission point in the local NED frame; Z is down, so a
// waypoint 1000 m up has Z = -1000. Next is the index of the waypoint to
// fly to once this one has been reached.
type Waypoint struct {
	X       float64      `json:"x" msgpack:"x"`
	Y       float64      `json:"y" msgpack:"y"`
	Z       float64      `json:"z" msgpack:"z"`
	Heading float64      `json:"heading" msgpack:"heading"` // radians, used when hovering
	Next    int          `json:"next" msgpack:"next"`
	Mode    WaypointMode `json:"mode" msgpack:"mode"`
}

func (w Waypoint) Position() r3.Vec { return r3.Vec{X: w.X, Y: w.Y, Z: w.Z} }

func (w Waypoint) Altitude() float64 { return -w.Z }

func (w Waypoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("pos", fmt.Sprintf("%.0f,%.0f,%.0f", w.X, w.Y, w.Z)),
		slog.Int("next", w.Next),
		slog.String("mode", w.Mode.String()))
}

type Mission struct {
	Home      Waypoint   `json:"home" msgpack:"home"`
	Waypoints []Waypoint `json:"waypoints" msgpack:"waypoints"`
}

// Dangling returns the indices of waypoints whose Next is not a waypoint
// of the mission. The navigator restarts at waypoint 0 after reaching one.
func (m Mission) Dangling() []int {
	var d []int
	for i, wp := range m.Waypoints {
		if wp.Next < 0 || wp.Next >= len(m.Waypoints) {
			d = append(d, i)
		}
	}
	return d
}

// Loop returns a mission that visits the given waypoints in order and then
// starts over.
func Loop(mode WaypointMode, pts ...r3.Vec) Mission {
	var m Mission
	for i, p := range pts {
		m.Waypoints = append(m.Waypoints, Waypoint{X: p.X, Y: p.Y, Z: p.Z, Next: (i + 1) % len(pts), Mode: mode})
	}
	return m
}

// MissionTrack is the active path segment, from the waypoint last
// departed to the one being flown to.
type MissionTrack struct {
	Previous Waypoint `json:"previous" msgpack:"previous"`
	Target   Waypoint `json:"target" msgpack:"target"`
	Index    int      `json:"index" msgpack:"index"`
}

func (t MissionTrack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("index", t.Index),
		slog.Any("previous", t.Previous),
		slog.Any("target", t.Target))
}
