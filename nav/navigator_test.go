// nav/navigator_test.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/vtolsim/vtolsim/dynamics"

	"gonum.org/v1/gonum/spatial/r3"
)

func at(x, y, z float64) dynamics.State {
	return dynamics.State{Position: r3.Vec{X: x, Y: y, Z: z}}
}

func square(mode WaypointMode) Mission {
	return Loop(mode,
		r3.Vec{X: 5000, Y: 5000, Z: -1000},
		r3.Vec{X: 5000, Y: -5000, Z: -1000},
		r3.Vec{X: -5000, Y: -5000, Z: -1000},
		r3.Vec{X: -5000, Y: 5000, Z: -1000})
}

func TestFixedWingAdvance(t *testing.T) {
	n := NewNavigator(DefaultNavigatorConfig(), nil)
	m := square(FixedWing)

	tr := n.Update(at(0, 0, -1000), m, FixedWing)
	if tr.Index != 0 || tr.Previous != m.Waypoints[0] || tr.Target != m.Waypoints[0] {
		t.Errorf("mission start should track waypoint 0 from waypoint 0, got %+v", tr)
	}

	// Just outside the acceptance radius.
	tr = n.Update(at(5000-121, 5000, -1000), m, FixedWing)
	if tr.Index != 0 {
		t.Errorf("advanced too early: index %d", tr.Index)
	}

	tr = n.Update(at(5000-100, 5000, -1000), m, FixedWing)
	if tr.Index != 1 {
		t.Fatalf("expected to advance to 1, got %d", tr.Index)
	}
	if tr.Previous != m.Waypoints[0] || tr.Target != m.Waypoints[1] {
		t.Errorf("expected segment 0 -> 1, got %+v", tr)
	}

	// Altitude counts toward the distance.
	tr = n.Update(at(5000, -5000, -1200), m, FixedWing)
	if tr.Index != 1 {
		t.Errorf("200 m below the waypoint should not count as reached")
	}
}

func TestQuadDwell(t *testing.T) {
	n := NewNavigator(DefaultNavigatorConfig(), nil)
	m := square(Quad)
	near := at(5000, 5002, -1000)
	far := at(5000, 5010, -1000)

	for i := 0; i < 99; i++ {
		if tr := n.Update(near, m, Quad); tr.Index != 0 {
			t.Fatalf("advanced after only %d ticks", i+1)
		}
	}
	n.Update(far, m, Quad)
	for i := 0; i < 99; i++ {
		if tr := n.Update(near, m, Quad); tr.Index != 0 {
			t.Fatalf("dwell timer was not reset on leaving; advanced after %d ticks", i+1)
		}
	}
	n.Update(far, m, Quad)

	var tr MissionTrack
	for i := 0; i < 101; i++ {
		tr = n.Update(near, m, Quad)
	}
	if tr.Index != 1 {
		t.Errorf("expected to advance after 101 consecutive ticks, index %d", tr.Index)
	}
	if n.Advances() != 1 {
		t.Errorf("expected one advance, got %d", n.Advances())
	}
}

func TestNextOutOfRange(t *testing.T) {
	n := NewNavigator(DefaultNavigatorConfig(), nil)
	m := Mission{Waypoints: []Waypoint{
		{X: 0, Y: 0, Z: -100, Next: 1},
		{X: 1000, Y: 0, Z: -100, Next: 7},
	}}
	if d := m.Dangling(); !slices.Equal(d, []int{1}) {
		t.Errorf("expected waypoint 1 dangling, got %v", d)
	}

	n.Update(at(0, 0, -100), m, FixedWing)
	if n.Index() != 1 {
		t.Fatalf("expected index 1, got %d", n.Index())
	}
	tr := n.Update(at(1000, 0, -100), m, FixedWing)
	if tr.Index != 0 {
		t.Errorf("out-of-range next should restart at 0, got %d", tr.Index)
	}
	if tr.Previous != m.Waypoints[1] {
		t.Errorf("previous should be the waypoint just departed")
	}
}

func TestGraphTraversal(t *testing.T) {
	// 0 -> 2 -> 1 -> 2 -> 1 ...
	n := NewNavigator(DefaultNavigatorConfig(), nil)
	m := Mission{Waypoints: []Waypoint{
		{X: 0, Next: 2},
		{X: 1000, Next: 2},
		{X: 2000, Next: 1},
	}}
	expect := []int{2, 1, 2, 1}
	for i, e := range expect {
		wp := m.Waypoints[n.Index()]
		tr := n.Update(at(wp.X, wp.Y, wp.Z), m, FixedWing)
		if tr.Index != e {
			t.Errorf("step %d: expected index %d, got %d", i, e, tr.Index)
		}
	}
	if v := n.Visited(); !slices.Equal(v, []int{0, 1, 2}) || n.Advances() != 4 {
		t.Errorf("expected 0, 1 and 2 visited over 4 advances, got %v over %d", v, n.Advances())
	}

	// Waypoint 1 is no longer in the mission: start over.
	n.Track(Mission{Waypoints: m.Waypoints[:1]})
	if v := n.Visited(); len(v) != 0 || n.Index() != 0 {
		t.Errorf("expected a fresh start, got index %d visited %v", n.Index(), v)
	}
}

func TestMissionEdgeCases(t *testing.T) {
	n := NewNavigator(DefaultNavigatorConfig(), nil)

	home := Waypoint{X: 1, Y: 2, Z: -3}
	tr := n.Update(at(0, 0, 0), Mission{Home: home}, FixedWing)
	if tr.Previous != home || tr.Target != home {
		t.Errorf("empty mission should track home, got %+v", tr)
	}

	// Advance into a long mission, then shrink it.
	long := square(FixedWing)
	n.Update(at(5000, 5000, -1000), long, FixedWing)
	n.Update(at(5000, -5000, -1000), long, FixedWing)
	if n.Index() != 2 {
		t.Fatalf("expected index 2, got %d", n.Index())
	}
	short := Mission{Waypoints: long.Waypoints[:1]}
	if tr := n.Track(short); tr.Index != 0 {
		t.Errorf("index beyond a replaced mission should reset to 0, got %d", tr.Index)
	}
}

func TestWaypointJSON(t *testing.T) {
	var m Mission
	if err := json.Unmarshal([]byte(`{"waypoints": [{"x": 10, "y": 20, "z": -30, "next": 0, "mode": "qd"}]}`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Waypoints) != 1 || m.Waypoints[0].Mode != Quad || m.Waypoints[0].Altitude() != 30 {
		t.Errorf("unexpected mission %+v", m)
	}
	if err := json.Unmarshal([]byte(`{"waypoints": [{"mode": "helicopter"}]}`), &m); err == nil {
		t.Errorf("expected unknown mode to be rejected")
	}
}
