// telemetry/pump.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package telemetry carries simulation frames out of the process: to a
// flight recording, a CSV log, websocket clients, redis, and UDP.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/sim"
)

// Sink receives frames from a Pump. Publish is only ever called from the
// pump's goroutine.
type Sink interface {
	Name() string
	Publish(ctx context.Context, f sim.Frame) error
}

// PollInterval is how often a Pump drains its subscription.
var PollInterval = 20 * time.Millisecond

// Pump delivers the frames posted to an event stream to a set of sinks.
type Pump struct {
	sub   *sim.EventsSubscription
	sinks []Sink
	lg    *log.Logger
}

func NewPump(es *sim.EventStream, lg *log.Logger, sinks ...Sink) *Pump {
	return &Pump{sub: es.Subscribe(), sinks: sinks, lg: lg}
}

// Run delivers frames until ctx is done, then delivers whatever was
// posted before returning. A sink that fails is logged and dropped; the
// others keep going.
func (p *Pump) Run(ctx context.Context) error {
	defer p.sub.Unsubscribe()

	tick := time.NewTicker(PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			// The context is done but the last frames still go out.
			p.drain(context.WithoutCancel(ctx))
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-tick.C:
			p.drain(ctx)
		}
	}
}

func (p *Pump) drain(ctx context.Context) {
	for _, e := range p.sub.Get() {
		switch e.Type {
		case sim.FrameEvent:
			p.publish(ctx, e.Frame)
		case sim.SubmodeChangedEvent:
			p.lg.Info("submode changed", slog.Int64("tick", e.Tick), slog.Any("flags", e.Frame.Flags))
		case sim.WaypointAdvancedEvent:
			p.lg.Debug("waypoint advanced", slog.Any("event", e))
		case sim.StatusMessageEvent:
			p.lg.Info(e.Message, slog.Int64("tick", e.Tick))
		}
	}
}

func (p *Pump) publish(ctx context.Context, f sim.Frame) {
	kept := p.sinks[:0]
	for _, s := range p.sinks {
		if err := s.Publish(ctx, f); err != nil {
			p.lg.Error("telemetry sink failed; dropping it", slog.String("sink", s.Name()),
				slog.Any("error", err), slog.Int64("tick", f.Tick))
			continue
		}
		kept = append(kept, s)
	}
	p.sinks = kept
}
