// telemetry/hub.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vtolsim/vtolsim/autopilot"
	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/nav"
	"github.com/vtolsim/vtolsim/sim"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 * 1024
)

// StateMessage is what the hub sends to clients for each frame. Angles
// are in degrees.
type StateMessage struct {
	Type     string  `json:"type"`
	Tick     int64   `json:"tick"`
	Time     float64 `json:"time"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Phi      float64 `json:"phi"`
	Theta    float64 `json:"theta"`
	Psi      float64 `json:"psi"`
	Airspeed float64 `json:"airspeed"`
	Armed    bool    `json:"armed"`
	Mode     string  `json:"mode"`
	Submode  string  `json:"submode"`
	Waypoint int     `json:"waypoint"`
}

func MakeStateMessage(f sim.Frame) StateMessage {
	s := f.State
	return StateMessage{
		Type:     "state",
		Tick:     f.Tick,
		Time:     f.Time,
		X:        s.Position.X,
		Y:        s.Position.Y,
		Z:        s.Position.Z,
		Phi:      math.Degrees(s.Phi),
		Theta:    math.Degrees(s.Theta),
		Psi:      math.Degrees(s.Psi),
		Airspeed: s.Airspeed,
		Armed:    s.Armed,
		Mode:     f.Flags.Operator.String(),
		Submode:  f.Flags.Submode.String(),
		Waypoint: f.Track.Index,
	}
}

// ClientMessage is a ground-station request from a websocket client. Type
// selects which of the other fields is used: "mode", "command", "radio",
// "mission", "arm" or "disarm".
type ClientMessage struct {
	Type    string                `json:"type"`
	Mode    string                `json:"mode,omitempty"`
	Command string                `json:"command,omitempty"`
	Radio   *autopilot.RadioInput `json:"radio,omitempty"`
	Mission *nav.Mission          `json:"mission,omitempty"`
}

// Hub fans frames out to websocket clients and feeds their requests into
// the simulation's live input.
type Hub struct {
	// Frames closer together than this are not sent.
	MinInterval time.Duration

	input *sim.LiveInput
	arm   func(bool)

	mu       sync.RWMutex
	clients  map[*client]struct{}
	lastSent time.Time
	dropped  int

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	upgrader websocket.Upgrader
	lg       *log.Logger
}

type client struct {
	id   uuid.UUID
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a hub that applies client requests to input; arm is
// called for arm and disarm requests and may be nil.
func NewHub(input *sim.LiveInput, arm func(bool), lg *log.Logger) *Hub {
	return &Hub{
		MinInterval: 50 * time.Millisecond,
		input:       input,
		arm:         arm,
		clients:     make(map[*client]struct{}),
		register:    make(chan *client),
		unregister:  make(chan *client),
		broadcast:   make(chan []byte, 256),
		done:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		lg: lg,
	}
}

func (h *Hub) Name() string { return "websocket" }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run manages clients and broadcasts until ctx is done, at which point
// every client is disconnected.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	stats := time.NewTicker(30 * time.Second)
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.lg.Info("websocket client connected", slog.String("client", c.id.String()), slog.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.lg.Info("websocket client disconnected", slog.String("client", c.id.String()),
					slog.Int("clients", len(h.clients)))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			var slow []*client
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()

			for _, c := range slow {
				h.lg.Warn("websocket client is not keeping up; disconnecting", slog.String("client", c.id.String()))
				h.mu.Lock()
				if _, ok := h.clients[c]; ok {
					delete(h.clients, c)
					close(c.send)
				}
				h.mu.Unlock()
			}

		case <-stats.C:
			h.mu.Lock()
			if h.dropped > 0 {
				h.lg.Warn("dropped websocket broadcasts", slog.Int("count", h.dropped))
				h.dropped = 0
			}
			h.mu.Unlock()
		}
	}
}

// Publish sends a frame to every client. It never blocks the caller: if
// the hub is backed up, the frame is dropped.
func (h *Hub) Publish(_ context.Context, f sim.Frame) error {
	h.mu.Lock()
	if len(h.clients) == 0 || time.Since(h.lastSent) < h.MinInterval {
		h.mu.Unlock()
		return nil
	}
	h.lastSent = time.Now()
	h.mu.Unlock()

	b, err := json.Marshal(MakeStateMessage(f))
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- b:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
	return nil
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Warn("websocket upgrade failed", slog.Any("error", err), slog.String("remote", r.RemoteAddr))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{id: uuid.New(), hub: h, conn: conn, send: make(chan []byte, 64)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Handle applies a client request to the live input.
func (h *Hub) Handle(m ClientMessage) error {
	switch strings.ToLower(m.Type) {
	case "mode":
		mode := strings.ToUpper(strings.TrimSpace(m.Mode))
		if autopilot.ParseOperatorMode(mode).String() != mode {
			return fmt.Errorf("%q: unknown mode", m.Mode)
		}
		h.input.Update(func(in *autopilot.GCSInput) { in.Mode = mode })

	case "command":
		if _, err := autopilot.ParseCommand(m.Command); err != nil {
			return err
		}
		h.input.Update(func(in *autopilot.GCSInput) { in.Command = m.Command })

	case "radio":
		if m.Radio == nil {
			return fmt.Errorf("radio message without stick positions")
		}
		h.input.Update(func(in *autopilot.GCSInput) { in.Radio = *m.Radio })

	case "mission":
		if m.Mission == nil {
			return fmt.Errorf("mission message without a mission")
		}
		if d := m.Mission.Dangling(); len(d) > 0 {
			h.lg.Warn("mission restarts at waypoint 0 after waypoints with no valid next", slog.Any("waypoints", d))
		}
		h.input.Update(func(in *autopilot.GCSInput) { in.Mission = *m.Mission })

	case "arm", "disarm":
		if h.arm == nil {
			return fmt.Errorf("arming is not available")
		}
		h.arm(strings.EqualFold(m.Type, "arm"))

	default:
		return fmt.Errorf("%q: unknown message type", m.Type)
	}

	h.lg.Info("ground station request", slog.String("type", m.Type), slog.String("mode", m.Mode),
		slog.String("command", m.Command))
	return nil
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, b, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.lg.Warn("websocket read failed", slog.String("client", c.id.String()), slog.Any("error", err))
			}
			return
		}

		var m ClientMessage
		if err := json.Unmarshal(b, &m); err == nil {
			err = c.hub.Handle(m)
		}
		if err != nil {
			c.hub.lg.Warn("bad ground station request", slog.String("client", c.id.String()), slog.Any("error", err))
		}
	}
}

func (c *client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
