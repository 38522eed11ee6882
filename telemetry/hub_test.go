// telemetry/hub_test.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vtolsim/vtolsim/autopilot"
	"github.com/vtolsim/vtolsim/nav"
	"github.com/vtolsim/vtolsim/sim"

	"github.com/gorilla/websocket"
)

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	for deadline := time.Now().Add(time.Second); time.Now().Before(deadline); time.Sleep(5 * time.Millisecond) {
		if cond() {
			return
		}
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHubHandle(t *testing.T) {
	var armed []bool
	live := sim.NewLiveInput(autopilot.GCSInput{Mode: "AUTO"})
	h := NewHub(live, func(a bool) { armed = append(armed, a) }, nil)

	for _, tc := range []struct {
		msg ClientMessage
		ok  bool
	}{
		{ClientMessage{Type: "mode", Mode: "qd_poshold"}, true},
		{ClientMessage{Type: "mode", Mode: "LOITER"}, false},
		{ClientMessage{Type: "command", Command: "LAND"}, true},
		{ClientMessage{Type: "command", Command: "FLIP"}, false},
		{ClientMessage{Type: "radio", Radio: &autopilot.RadioInput{Throttle: 50}}, true},
		{ClientMessage{Type: "radio"}, false},
		{ClientMessage{Type: "mission"}, false},
		{ClientMessage{Type: "mission", Mission: &nav.Mission{Waypoints: []nav.Waypoint{{X: 7, Next: 1}}}}, true},
		{ClientMessage{Type: "disarm"}, true},
		{ClientMessage{Type: "reboot"}, false},
	} {
		if err := h.Handle(tc.msg); (err == nil) != tc.ok {
			t.Errorf("%+v: expected ok=%v, got %v", tc.msg, tc.ok, err)
		}
	}

	in := live.Input()
	if in.Mode != "QD_POSHOLD" || in.Command != "LAND" || in.Radio.Throttle != 50 ||
		len(in.Mission.Waypoints) != 1 || in.Mission.Waypoints[0].X != 7 {
		t.Errorf("unexpected input %+v", in)
	}
	if len(armed) != 1 || armed[0] {
		t.Errorf("expected a single disarm, got %v", armed)
	}
}

func TestHubWebsocket(t *testing.T) {
	_, _, frames := flight(t, 3)

	live := sim.NewLiveInput(autopilot.GCSInput{Mode: "AUTO"})
	h := NewHub(live, nil, nil)
	h.MinInterval = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	waitFor(t, "client registration", func() bool { return h.Clients() == 1 })

	if err := h.Publish(ctx, frames[2]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var msg StateMessage
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != "state" || msg.Tick != 3 || msg.Mode != "AUTO" || msg.Submode != "FW" {
		t.Errorf("unexpected message %+v", msg)
	}

	if err := conn.WriteJSON(ClientMessage{Type: "mode", Mode: "MANUAL"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, "mode change", func() bool { return live.Input().Mode == "MANUAL" })

	conn.Close()
	waitFor(t, "client removal", func() bool { return h.Clients() == 0 })
}
