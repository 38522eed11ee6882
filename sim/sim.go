// sim/sim.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package sim drives the vehicle: once per tick the autopilot turns the
// current state and ground-station input into pulse widths, the actuator
// model turns those into thrust and deflection, and the dynamics advance
// the state.
package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vtolsim/vtolsim/autopilot"
	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/nav"
	"github.com/vtolsim/vtolsim/util"
	"github.com/vtolsim/vtolsim/vehicle"

	"github.com/brunoga/deep"
	"github.com/goforj/godump"
	"github.com/google/uuid"
)

var ErrNonFiniteState = errors.New("vehicle state is not finite")

// Frame is everything that happened on one tick. It holds no references
// into the simulation, so consumers may keep it.
type Frame struct {
	Tick int64   `json:"tick" msgpack:"tick"`
	Time float64 `json:"time" msgpack:"time"` // s

	State     dynamics.State           `json:"state" msgpack:"state"` // after the tick
	Loads     dynamics.ForceMoment     `json:"loads" msgpack:"loads"`
	PWM       dynamics.ActuatorCommand `json:"pwm" msgpack:"pwm"`
	Actuators dynamics.ActuatorCommand `json:"actuators" msgpack:"actuators"` // physical

	Flags   autopilot.ControllerFlags `json:"flags" msgpack:"flags"`
	Target  autopilot.TargetSetpoint  `json:"target" msgpack:"target"`
	Track   nav.MissionTrack          `json:"track" msgpack:"track"`
	Control autopilot.ControlOutput   `json:"control" msgpack:"control"`
}

func (f Frame) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", f.Tick),
		slog.Any("state", f.State),
		slog.Any("flags", f.Flags),
		slog.Int("waypoint", f.Track.Index))
}

// Sim owns the working vehicle state. All methods may be called
// concurrently; Step and Run serialize on the same lock.
type Sim struct {
	mu util.LoggingMutex

	RunID uuid.UUID
	dt    float64

	state dynamics.State
	tick  int64
	last  Frame

	dyn       *dynamics.Simulator
	actuators *dynamics.ActuatorModel
	ap        *autopilot.Autopilot

	events *EventStream
	// Frames are posted to the event stream every frameEvery ticks;
	// mode and waypoint changes always are.
	frameEvery int64

	lg *log.Logger
}

func New(props vehicle.Properties, cfg autopilot.Config, initial dynamics.State, lg *log.Logger) (*Sim, error) {
	dyn, err := dynamics.NewSimulator(props)
	if err != nil {
		return nil, err
	}
	act, err := dynamics.NewActuatorModel(props.Actuators)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	lg = lg.With(slog.String("run", id.String()))

	ap, err := autopilot.New(cfg, lg)
	if err != nil {
		return nil, err
	}

	s := &Sim{
		RunID:      id,
		dt:         cfg.DT,
		state:      initial,
		dyn:        dyn,
		actuators:  act,
		ap:         ap,
		events:     NewEventStream(lg),
		frameEvery: 1,
		lg:         lg,
	}
	s.last = Frame{State: initial}

	lg.Info("simulation created", slog.String("vehicle", props.Name), slog.Float64("dt", cfg.DT),
		slog.Any("initial", initial))
	return s, nil
}

func (s *Sim) Events() *EventStream { return s.events }
func (s *Sim) Autopilot() *autopilot.Autopilot { return s.ap }
func (s *Sim) DT() float64 { return s.dt }

// SetFrameInterval sets how many ticks pass between FrameEvents.
func (s *Sim) SetFrameInterval(n int) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.frameEvery = int64(max(1, n))
}

func (s *Sim) SetArmed(armed bool) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if armed != s.state.Armed {
		s.lg.Info("arming", slog.Bool("armed", armed))
		msg := "disarmed"
		if armed {
			msg = "armed"
		}
		s.events.Post(Event{Type: StatusMessageEvent, Tick: s.tick, Message: msg})
	}
	s.state.Armed = armed
}

// Snapshot returns a copy of the most recent frame.
func (s *Sim) Snapshot() Frame {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	return deep.MustCopy(s.last)
}

// Step runs one tick with the given input.
func (s *Sim) Step(in autopilot.GCSInput) (Frame, error) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	return s.step(in)
}

func (s *Sim) step(in autopilot.GCSInput) (Frame, error) {
	nav.SetNavLogTick(s.tick, s.dt)

	out, err := s.ap.Run(in, s.state)
	if err != nil {
		s.lg.Error("autopilot failed", slog.Any("error", err), slog.String("frame", godump.DumpStr(s.last)))
		return s.last, fmt.Errorf("tick %d: %w", s.tick, err)
	}

	phys := s.actuators.Run(out.PWM)
	next, loads, err := s.dyn.Step(s.state, phys, s.dt)
	if err != nil {
		return s.last, fmt.Errorf("tick %d: %w", s.tick, err)
	}
	if !finite(next) {
		s.lg.Error("non-finite state", slog.String("frame", godump.DumpStr(s.last)))
		return s.last, fmt.Errorf("tick %d: %w", s.tick, ErrNonFiniteState)
	}
	next.Mode = out.Flags.Operator.String()

	prev := s.last
	s.state = next
	s.tick++

	f := Frame{
		Tick:      s.tick,
		Time:      float64(s.tick) * s.dt,
		State:     next,
		Loads:     loads,
		PWM:       out.PWM,
		Actuators: phys,
		Flags:     out.Flags,
		Target:    out.Target,
		Track:     out.Track,
		Control:   out.Control,
	}
	s.last = f

	if out.Flags.ResetIntegrators {
		s.events.Post(Event{Type: SubmodeChangedEvent, Tick: f.Tick, Frame: f})
	}
	if f.Track.Index != prev.Track.Index && prev.Tick > 0 {
		s.lg.Info("waypoint advanced", slog.Int("index", f.Track.Index), slog.Any("state", next))
		s.events.Post(Event{Type: WaypointAdvancedEvent, Tick: f.Tick, Frame: f})
	}
	if f.Tick%s.frameEvery == 0 {
		s.events.Post(Event{Type: FrameEvent, Tick: f.Tick, Frame: f})
	}

	return f, nil
}

func finite(s dynamics.State) bool {
	for _, v := range []float64{s.Position.X, s.Position.Y, s.Position.Z,
		s.Velocity.X, s.Velocity.Y, s.Velocity.Z, s.Phi, s.Theta, s.Psi, s.P, s.Q, s.R} {
		if v-v != 0 { // NaN or Inf
			return false
		}
	}
	return true
}
