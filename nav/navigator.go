// nav/navigator.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/log"

	"gonum.org/v1/gonum/spatial/r3"
)

type NavigatorConfig struct {
	// A fixed-wing waypoint is reached once the vehicle is this close, m.
	FWAcceptRadius float64 `json:"fw_accept_radius"`
	// A hover waypoint is reached once the vehicle has stayed within
	// QDAcceptRadius for more than QDDwellTicks consecutive ticks.
	QDAcceptRadius float64 `json:"qd_accept_radius"`
	QDDwellTicks   int     `json:"qd_dwell_ticks"`
}

func DefaultNavigatorConfig() NavigatorConfig {
	return NavigatorConfig{
		FWAcceptRadius: 120,
		QDAcceptRadius: 5,
		QDDwellTicks:   100,
	}
}

// Navigator tracks progress through a mission. Missions are graphs: each
// waypoint names its successor, so loops and branches are expressed in
// the mission itself.
type Navigator struct {
	Config NavigatorConfig

	index    int
	previous int
	dwell    int
	advances int
	visited  map[int]struct{}

	lg *log.Logger
}

func NewNavigator(cfg NavigatorConfig, lg *log.Logger) *Navigator {
	return &Navigator{Config: cfg, visited: make(map[int]struct{}), lg: lg}
}

func (n *Navigator) Index() int    { return n.index }
func (n *Navigator) Advances() int { return n.advances }

// Visited returns the indices of the waypoints reached so far, in
// increasing order.
func (n *Navigator) Visited() []int {
	return slices.Sorted(maps.Keys(n.visited))
}

// Reset restarts the mission at its first waypoint and forgets which
// waypoints were reached.
func (n *Navigator) Reset() {
	n.index, n.previous, n.dwell = 0, 0, 0
	clear(n.visited)
}

// Track returns the active segment without advancing.
func (n *Navigator) Track(m Mission) MissionTrack {
	if len(m.Waypoints) == 0 {
		return MissionTrack{Previous: m.Home, Target: m.Home}
	}
	if n.index < 0 || n.index >= len(m.Waypoints) || n.previous < 0 || n.previous >= len(m.Waypoints) {
		// The mission was replaced by a shorter one.
		n.Reset()
	}
	return MissionTrack{
		Previous: m.Waypoints[n.previous],
		Target:   m.Waypoints[n.index],
		Index:    n.index,
	}
}

// Update checks whether the current waypoint has been reached, advancing
// to its successor if so, and returns the resulting track.
func (n *Navigator) Update(s dynamics.State, m Mission, mode WaypointMode) MissionTrack {
	track := n.Track(m)
	if len(m.Waypoints) == 0 {
		return track
	}

	dist := r3.Norm(r3.Sub(s.Position, track.Target.Position()))
	if !n.reached(dist, mode) {
		return track
	}

	next := track.Target.Next
	if next < 0 || next >= len(m.Waypoints) {
		next = 0
	}
	n.lg.Debug("waypoint reached", slog.Int("index", n.index), slog.Int("next", next),
		slog.Float64("distance", dist), slog.String("mode", mode.String()))
	NavLog(NavLogWaypoint, "reached %d (%s) at %.1f m, next %d", n.index, mode, dist, next)

	n.visited[n.index] = struct{}{}
	n.previous, n.index = n.index, next
	n.dwell = 0
	n.advances++

	return n.Track(m)
}

func (n *Navigator) reached(dist float64, mode WaypointMode) bool {
	switch mode {
	case FixedWing:
		n.dwell = 0
		return dist < n.Config.FWAcceptRadius
	case Quad:
		if dist < n.Config.QDAcceptRadius {
			n.dwell++
		} else {
			n.dwell = 0
		}
		return n.dwell > n.Config.QDDwellTicks
	default:
		return false
	}
}

func (n *Navigator) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("index", n.index),
		slog.Int("previous", n.previous),
		slog.Int("dwell", n.dwell),
		slog.Int("advances", n.advances),
		slog.Int("visited", len(n.visited)))
}
