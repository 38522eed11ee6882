// cmd/vtolsim/telemetry.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/sim"
	"github.com/vtolsim/vtolsim/telemetry"
	"github.com/vtolsim/vtolsim/vehicle"

	"golang.org/x/sync/errgroup"
)

// telemetrySet is every frame consumer the flags asked for.
type telemetrySet struct {
	pump     *telemetry.Pump
	hub      *telemetry.Hub
	server   *http.Server
	listener net.Listener
	announce *telemetry.Announcement

	// Run in reverse order by close.
	closers []func() error

	lg *log.Logger
}

func startTelemetry(ctx context.Context, s *sim.Sim, sc sim.Scenario, props vehicle.Properties,
	live *sim.LiveInput, lg *log.Logger) (_ *telemetrySet, err error) {
	t := &telemetrySet{lg: lg}
	defer func() {
		if err != nil {
			t.close()
		}
	}()

	var sinks []telemetry.Sink

	if *recordFilename != "" {
		f, err := os.Create(*recordFilename)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, f.Close)

		rec, err := telemetry.NewRecorder(f, telemetry.Header{
			RunID:    s.RunID,
			Scenario: sc.Name,
			Vehicle:  props.Name,
			DT:       s.DT(),
			Created:  time.Now(),
			Mission:  sc.Input.Mission,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", *recordFilename, err)
		}
		t.closers = append(t.closers, func() error {
			lg.Info("recording closed", slog.String("file", *recordFilename), slog.Int("frames", rec.Frames()))
			return rec.Close()
		})
		sinks = append(sinks, rec)
	}

	if *csvFilename != "" {
		f, err := os.Create(*csvFilename)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, f.Close)
		w := telemetry.NewCSVWriter(f)
		t.closers = append(t.closers, w.Close)
		sinks = append(sinks, w)
	}

	if *redisAddress != "" {
		r, err := telemetry.NewRedisPublisher(ctx, telemetry.RedisConfig{
			Addr:   *redisAddress,
			Prefix: *redisPrefix,
			TTL:    time.Hour,
		}, s.RunID, lg)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, r.Close)
		sinks = append(sinks, r)
	}

	if *udpAddress != "" {
		u, err := telemetry.DialUDP(*udpAddress)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, u.Close)
		sinks = append(sinks, u)
	}

	if *wsAddress != "" {
		t.hub = telemetry.NewHub(live, s.SetArmed, lg)
		sinks = append(sinks, t.hub)

		mux := http.NewServeMux()
		mux.Handle("/ws", t.hub)
		t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		if t.listener, err = net.Listen("tcp", *wsAddress); err != nil {
			return nil, err
		}
		lg.Info("serving websocket telemetry", slog.String("addr", t.listener.Addr().String()))

		if *announce {
			_, port, _ := net.SplitHostPort(t.listener.Addr().String())
			p, _ := strconv.Atoi(port)
			if t.announce, err = telemetry.Announce(p, s.RunID, sc.Name, lg); err != nil {
				// Clients can still connect by address.
				lg.Warn("unable to announce telemetry", slog.Any("error", err))
				err = nil
			}
		}
	}

	if len(sinks) > 0 {
		t.pump = telemetry.NewPump(s.Events(), lg, sinks...)
	}
	return t, nil
}

func (t *telemetrySet) run(ctx context.Context, eg *errgroup.Group) {
	if t.pump != nil {
		eg.Go(func() error { return t.pump.Run(ctx) })
	}
	if t.hub != nil {
		eg.Go(func() error { return t.hub.Run(ctx) })
		eg.Go(func() error {
			if err := t.server.Serve(t.listener); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return t.server.Shutdown(sctx)
		})
	}
}

func (t *telemetrySet) close() error {
	if t.announce != nil {
		t.announce.Shutdown()
	}
	if t.server != nil && t.listener != nil {
		t.listener.Close()
	}

	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}
