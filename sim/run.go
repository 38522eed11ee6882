// sim/run.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vtolsim/vtolsim/autopilot"

	"github.com/brunoga/deep"
)

// InputSource supplies the ground-station input for each tick. It is
// read once at the start of the tick, so a change made while a tick is
// running takes effect on the next one.
type InputSource interface {
	Input() autopilot.GCSInput
}

// StaticInput sends the same input every tick.
type StaticInput autopilot.GCSInput

func (s StaticInput) Input() autopilot.GCSInput { return autopilot.GCSInput(s) }

// LiveInput is an InputSource that other goroutines (a telemetry client,
// a console) may change while the simulation runs.
type LiveInput struct {
	mu sync.Mutex
	in autopilot.GCSInput
}

func NewLiveInput(in autopilot.GCSInput) *LiveInput {
	return &LiveInput{in: deep.MustCopy(in)}
}

func (l *LiveInput) Input() autopilot.GCSInput {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.in
}

// Update applies fn to a private copy of the current input and installs
// the result, so a mission slice handed out by Input is never modified in
// place.
func (l *LiveInput) Update(fn func(*autopilot.GCSInput)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	in := deep.MustCopy(l.in)
	fn(&in)
	l.in = in
}

type Options struct {
	// Stop after this many ticks; zero runs until the context is done.
	Ticks int64
	// Sleep out the remainder of each tick so the run proceeds at wall
	// clock speed.
	Realtime bool
}

// Run steps the simulation until opts.Ticks have run or ctx is done, and
// returns the last frame. Cancellation is only noticed between ticks.
func (s *Sim) Run(ctx context.Context, src InputSource, opts Options) (Frame, error) {
	start := time.Now()
	period := time.Duration(s.dt * float64(time.Second))
	next := start

	s.lg.Info("run starting", slog.Int64("ticks", opts.Ticks), slog.Bool("realtime", opts.Realtime))

	var last Frame
	for n := int64(0); opts.Ticks == 0 || n < opts.Ticks; n++ {
		select {
		case <-ctx.Done():
			s.lg.Info("run canceled", slog.Int64("ticks", n), slog.Duration("wall", time.Since(start)))
			return last, ctx.Err()
		default:
		}

		f, err := s.Step(src.Input())
		if err != nil {
			return f, err
		}
		last = f

		if opts.Realtime {
			next = next.Add(period)
			if d := time.Until(next); d > 0 {
				time.Sleep(d)
			} else if d < -time.Second {
				// Too far behind to catch up; start over from now.
				s.lg.Warn("simulation falling behind real time", slog.Duration("behind", -d))
				s.events.Post(Event{Type: StatusMessageEvent, Tick: f.Tick,
					Message: fmt.Sprintf("falling behind real time by %s", (-d).Round(time.Millisecond))})
				next = time.Now()
			}
		}
	}

	s.lg.Info("run finished", slog.Int64("ticks", opts.Ticks), slog.Duration("wall", time.Since(start)),
		slog.Any("frame", last))
	return last, nil
}
